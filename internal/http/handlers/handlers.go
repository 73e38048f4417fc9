// Package handlers exposes the matching engine over HTTP:
//   - donors:        POST /donors, GET /donors/{id}
//   - requests:      POST /requests, GET /requests/{id}, POST /requests/{id}/cancel
//   - matching:      GET /requests/{id}/matches
//   - dispatch:      POST /requests/{id}/dispatch
//   - responses:     GET|POST /requests/{id}/responses, POST /notifications/actions
//   - event streams: GET /events/donors/{id}, GET /events/requesters/{id}
//
// Handlers are transport-thin: they bind input, call a service and translate
// the result or error into the JSON envelope.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/http/middleware"
	"github.com/tbourn/go-bloodlink-backend/internal/realtime"
	"github.com/tbourn/go-bloodlink-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// DonorService registers and loads donor profiles.
type DonorService interface {
	Register(ctx context.Context, in services.RegisterDonorInput) (*domain.DonorProfile, error)
	Get(ctx context.Context, id string) (*domain.DonorProfile, error)
}

// RequestService manages the blood request lifecycle.
type RequestService interface {
	Create(ctx context.Context, in services.CreateRequestInput) (*domain.BloodRequest, error)
	Get(ctx context.Context, id string) (*domain.BloodRequest, error)
	Cancel(ctx context.Context, id string) (*domain.BloodRequest, error)
}

// Matcher ranks candidate donors for a request.
type Matcher interface {
	FindCandidates(ctx context.Context, requestID string, opts services.MatchOptions) ([]domain.MatchCandidate, error)
}

// Dispatcher notifies selected donors.
type Dispatcher interface {
	Dispatch(ctx context.Context, requestID string, donorIDs []string) (*services.DispatchResult, error)
}

// ResponseTracker records and lists donor responses.
type ResponseTracker interface {
	Respond(ctx context.Context, requestID, donorID, status, message string) (*services.RespondResult, error)
	ListPage(ctx context.Context, requestID string, page, pageSize int) ([]domain.DonorResponse, int64, error)
}

// EventHub is the part of *realtime.Hub the stream endpoints use.
type EventHub interface {
	Subscribe(topic string, filter realtime.Filter) *realtime.Subscription
	Unsubscribe(id realtime.Handle)
}

// ResponseStatsFunc returns the row count and newest update of a request's
// responses. It backs the weak ETag of the response list.
type ResponseStatsFunc func(ctx context.Context, requestID string) (int64, *time.Time, error)

//
// Handler wiring
//

// DefaultKeepAlive is the comment-frame interval on event streams.
const DefaultKeepAlive = 25 * time.Second

// Deps are the collaborators of Handlers. Stats and Hub may be nil: the list
// endpoint then skips ETags and the stream endpoints answer 503.
type Deps struct {
	Donors    DonorService
	Requests  RequestService
	Matcher   Matcher
	Dispatch  Dispatcher
	Responses ResponseTracker
	Hub       EventHub
	Stats     ResponseStatsFunc
	KeepAlive time.Duration
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	donors    DonorService
	requests  RequestService
	matcher   Matcher
	dispatch  Dispatcher
	responses ResponseTracker
	hub       EventHub
	stats     ResponseStatsFunc
	keepAlive time.Duration
}

// New constructs Handlers from d.
func New(d Deps) *Handlers {
	ka := d.KeepAlive
	if ka <= 0 {
		ka = DefaultKeepAlive
	}
	return &Handlers{
		donors:    d.Donors,
		requests:  d.Requests,
		matcher:   d.Matcher,
		dispatch:  d.Dispatch,
		responses: d.Responses,
		hub:       d.Hub,
		stats:     d.Stats,
		keepAlive: ka,
	}
}

// actor is the caller identity from X-Actor-ID, or "" when anonymous.
func actor(c *gin.Context) string {
	if id := middleware.ActorID(c); id != middleware.AnonymousActor {
		return id
	}
	return ""
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}
