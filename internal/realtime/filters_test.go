package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
)

func fp(v float64) *float64 { return &v }

func TestDonorFilter(t *testing.T) {
	// ~11 km north of the request at (40, -74)
	donor := domain.DonorProfile{
		ID: "d1", BloodType: domain.APos, Latitude: fp(40.1), Longitude: fp(-74.0),
		IsAvailable: true, AvailabilityRadiusKm: 25,
	}

	tests := []struct {
		name   string
		mutate func(*domain.DonorProfile, *Event)
		want   bool
	}{
		{"critical nearby", func(*domain.DonorProfile, *Event) {}, true},
		{"urgent nearby", func(_ *domain.DonorProfile, ev *Event) { ev.Request.Urgency = domain.UrgencyUrgent }, true},
		{"normal urgency", func(_ *domain.DonorProfile, ev *Event) { ev.Request.Urgency = domain.UrgencyNormal }, false},
		{"low urgency", func(_ *domain.DonorProfile, ev *Event) { ev.Request.Urgency = domain.UrgencyLow }, false},
		{"unavailable", func(d *domain.DonorProfile, _ *Event) { d.IsAvailable = false }, false},
		{"outside radius", func(d *domain.DonorProfile, _ *Event) { d.AvailabilityRadiusKm = 5 }, false},
		{"unknown location", func(d *domain.DonorProfile, _ *Event) { d.Latitude = nil }, false},
		{"wrong kind", func(_ *domain.DonorProfile, ev *Event) { ev.Kind = KindResponseChanged }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := donor
			ev := requestEvent(domain.APos, domain.UrgencyCritical)
			tt.mutate(&d, &ev)
			assert.Equal(t, tt.want, DonorFilter(d)(ev))
		})
	}
}

func TestResponseFilter_ExcludesNotified(t *testing.T) {
	f := ResponseFilter()
	for status, want := range map[domain.ResponseStatus]bool{
		domain.ResponseNotified:  false,
		domain.ResponsePending:   true,
		domain.ResponseAccepted:  true,
		domain.ResponseDeclined:  true,
		domain.ResponseCancelled: true,
	} {
		ev := NewResponseEvent("h1", domain.DonorResponse{Status: status}, time.Now())
		assert.Equal(t, want, f(ev), "status %s", status)
	}
	assert.False(t, f(Event{Kind: KindResponseChanged}), "missing payload")
}

func TestAll(t *testing.T) {
	yes := func(Event) bool { return true }
	no := func(Event) bool { return false }
	assert.True(t, All()(Event{}))
	assert.True(t, All(yes, nil, yes)(Event{}))
	assert.False(t, All(yes, no)(Event{}))
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "requests/O-", DonorTopic(domain.ONeg))
	assert.Equal(t, "responses/hospital-7", RequesterTopic("hospital-7"))
	ev := NewResponseEvent("hospital-7", domain.DonorResponse{ID: "x"}, time.Now())
	assert.Equal(t, "responses/hospital-7", ev.Topic)
}
