// Package realtime propagates request and response changes to connected
// clients. A Hub owns every subscription; optional sinks mirror published
// events to an MQTT broker or to peer instances through Redis.
package realtime

import (
	"time"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
)

// Kind names the change an Event carries.
type Kind string

const (
	// KindRequestCreated announces a new blood request on the donor channel.
	KindRequestCreated Kind = "request.created"
	// KindResponseChanged carries a DonorResponse row change on the
	// requester channel.
	KindResponseChanged Kind = "response.changed"
)

// Event is the payload delivered to subscribers and sinks.
type Event struct {
	Kind     Kind                  `json:"kind"`
	Topic    string                `json:"topic"`
	Request  *domain.BloodRequest  `json:"request,omitempty"`
	Response *domain.DonorResponse `json:"response,omitempty"`
	At       time.Time             `json:"at"`
}

// DonorTopic is the donor channel for requests of one blood type. This is
// the coarse server-side filter: exact type equality.
func DonorTopic(bt domain.BloodType) string { return "requests/" + string(bt) }

// RequesterTopic is the channel carrying response changes for every request
// owned by requesterID.
func RequesterTopic(requesterID string) string { return "responses/" + requesterID }

// NewRequestEvent builds the donor channel event for r.
func NewRequestEvent(r domain.BloodRequest, at time.Time) Event {
	return Event{Kind: KindRequestCreated, Topic: DonorTopic(r.BloodType), Request: &r, At: at}
}

// NewResponseEvent builds the requester channel event for a response row.
func NewResponseEvent(requesterID string, resp domain.DonorResponse, at time.Time) Event {
	return Event{Kind: KindResponseChanged, Topic: RequesterTopic(requesterID), Response: &resp, At: at}
}
