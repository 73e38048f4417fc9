// Package services – ResponseTracker
//
// ResponseTracker applies a donor's answer to the response state machine:
//
//	awaiting (notified|pending) -> pending | accepted | declined
//	declined                    -> accepted | declined
//	accepted                    -> accepted (no-op)
//	cancelled                   -> (none)
//
// Acceptance fulfils the request through a guarded status update inside one
// transaction. Exactly one donor can win; a concurrent loser gets
// ErrRequestClosed and none of the fulfillment records are written.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/observability"
	"github.com/tbourn/go-bloodlink-backend/internal/realtime"
	"github.com/tbourn/go-bloodlink-backend/internal/repo"
)

// DefaultDonationUnitMl is the volume recorded per unit needed.
const DefaultDonationUnitMl = 450

// RespondResult is the outcome of a donor response.
type RespondResult struct {
	Response   domain.DonorResponse `json:"response"`
	Request    domain.BloodRequest  `json:"request"`
	Connection *domain.Connection   `json:"connection,omitempty"`
	Donation   *domain.Donation     `json:"donation,omitempty"`
	// Changed is false when the call repeated an acceptance.
	Changed bool `json:"changed"`
}

// ResponseTracker records donor responses.
type ResponseTracker struct {
	DB     *gorm.DB
	Hub    Publisher
	UnitMl int

	Now func() time.Time
}

func (s *ResponseTracker) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *ResponseTracker) unitMl() int {
	if s.UnitMl > 0 {
		return s.UnitMl
	}
	return DefaultDonationUnitMl
}

// ParseResponseStatus accepts the statuses a donor may set.
func ParseResponseStatus(v string) (domain.ResponseStatus, error) {
	st := domain.ResponseStatus(strings.ToLower(strings.TrimSpace(v)))
	switch st {
	case domain.ResponsePending, domain.ResponseAccepted, domain.ResponseDeclined:
		return st, nil
	}
	return "", ErrInvalidResponseStatus
}

// CanTransition reports whether a response may move from `from` to `to`. An
// empty from means no row exists yet and counts as awaiting.
func CanTransition(from, to domain.ResponseStatus) bool {
	switch {
	case from == "" || from.Awaiting():
		return to == domain.ResponsePending || to == domain.ResponseAccepted || to == domain.ResponseDeclined
	case from == domain.ResponseDeclined:
		return to == domain.ResponseAccepted || to == domain.ResponseDeclined
	case from == domain.ResponseAccepted:
		return to == domain.ResponseAccepted
	}
	return false
}

// Respond records the donor's answer to a request.
func (s *ResponseTracker) Respond(ctx context.Context, requestID, donorID, status, message string) (*RespondResult, error) {
	tr := otel.Tracer("services/ResponseTracker")
	ctx, span := tr.Start(ctx, "Respond",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("donor.id", donorID),
			attribute.String("status", status),
		),
	)
	defer span.End()

	to, err := ParseResponseStatus(status)
	if err != nil {
		return nil, err
	}
	if _, err := loadRequest(ctx, s.DB, requestID); err != nil {
		return nil, err
	}
	donor, err := repo.GetDonor(ctx, s.DB, donorID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrDonorNotFound
	}
	if err != nil {
		return nil, &domain.DependencyError{Op: "load donor", Err: err}
	}

	now := s.now()
	res := &RespondResult{Changed: true}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := repo.GetRequest(ctx, tx, requestID)
		if err != nil {
			return &domain.DependencyError{Op: "load request", Err: err}
		}

		var from domain.ResponseStatus
		cur, err := repo.GetResponse(ctx, tx, requestID, donorID)
		switch {
		case err == nil:
			from = cur.Status
		case !errors.Is(err, repo.ErrNotFound):
			return &domain.DependencyError{Op: "load response", Err: err}
		}

		if from == domain.ResponseAccepted && to == domain.ResponseAccepted {
			res.Response, res.Request, res.Changed = *cur, *req, false
			return nil
		}
		if !CanTransition(from, to) {
			return ErrInvalidTransition
		}
		if !req.Status.Open() {
			return ErrRequestClosed
		}

		if to == domain.ResponseAccepted {
			if err := s.fulfil(ctx, tx, req, donor, now, res); err != nil {
				return err
			}
		}

		resp, err := repo.UpsertResponse(ctx, tx, requestID, donorID, to, message)
		if err != nil {
			return &domain.DependencyError{Op: "upsert response", Err: err}
		}
		res.Response = *resp

		fresh, err := repo.GetRequest(ctx, tx, requestID)
		if err != nil {
			return &domain.DependencyError{Op: "reload request", Err: err}
		}
		res.Request = *fresh
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if res.Changed {
		observability.Responses.WithLabelValues(string(res.Response.Status)).Inc()
		publisherOrNop(s.Hub).Publish(realtime.NewResponseEvent(res.Request.RequesterID, res.Response, now))
	}
	return res, nil
}

// fulfil runs the acceptance side effects. The guarded status update comes
// first so a losing concurrent acceptance writes nothing.
func (s *ResponseTracker) fulfil(ctx context.Context, tx *gorm.DB, req *domain.BloodRequest, donor *domain.DonorProfile, now time.Time, res *RespondResult) error {
	won, err := repo.TransitionRequestStatus(ctx, tx, req.ID, domain.RequestFulfilled, domain.RequestPending, domain.RequestActive)
	if err != nil {
		return &domain.DependencyError{Op: "fulfil request", Err: err}
	}
	if !won {
		observability.FulfillmentConflicts.Inc()
		return ErrRequestClosed
	}

	if _, err := repo.SupersedeCompetingResponses(ctx, tx, req.ID, donor.ID); err != nil {
		return &domain.DependencyError{Op: "supersede responses", Err: err}
	}
	conn, err := repo.CreateConnection(ctx, tx, req.ID, donor.ID, req.RequesterID)
	if err != nil {
		return &domain.DependencyError{Op: "create connection", Err: err}
	}
	res.Connection = conn

	if req.Urgency.IsEmergency() {
		if err := repo.StampEmergencyResponse(ctx, tx, donor.ID, now); err != nil {
			return &domain.DependencyError{Op: "stamp emergency response", Err: err}
		}
	}

	don, err := repo.CreateDonation(ctx, tx, donor.ID, req.ID, donor.BloodType, req.UnitsNeeded*s.unitMl(), now)
	if err != nil {
		return &domain.DependencyError{Op: "create donation", Err: err}
	}
	res.Donation = don
	return nil
}

// ListPage returns a page of response rows for a request and the total.
func (s *ResponseTracker) ListPage(ctx context.Context, requestID string, page, pageSize int) ([]domain.DonorResponse, int64, error) {
	tr := otel.Tracer("services/ResponseTracker")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if _, err := loadRequest(ctx, s.DB, requestID); err != nil {
		return nil, 0, err
	}

	total, err := repo.CountResponses(ctx, s.DB, requestID)
	if err != nil {
		return nil, 0, &domain.DependencyError{Op: "count responses", Err: err}
	}
	if total == 0 {
		return []domain.DonorResponse{}, 0, nil
	}
	items, err := repo.ListResponsesPage(ctx, s.DB, requestID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, &domain.DependencyError{Op: "list responses", Err: err}
	}
	return items, total, nil
}
