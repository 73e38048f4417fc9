// Package services – Dispatcher
//
// Dispatcher notifies a selected set of donors about a request. Each donor is
// handled independently on a bounded errgroup: the notification row is
// upserted, a push alert is attempted and the change is published on the
// requester channel. One donor failing never aborts the others; a batch with
// zero successes is a DispatchError.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/geo"
	"github.com/tbourn/go-bloodlink-backend/internal/matching"
	"github.com/tbourn/go-bloodlink-backend/internal/observability"
	"github.com/tbourn/go-bloodlink-backend/internal/push"
	"github.com/tbourn/go-bloodlink-backend/internal/realtime"
	"github.com/tbourn/go-bloodlink-backend/internal/repo"
)

// DefaultDispatchConcurrency bounds per-donor work when none is configured.
const DefaultDispatchConcurrency = 4

// DispatchResult lists the notifications written and the donors that failed.
// Failures alongside a non-empty Notifications is a partial failure and is
// not returned as an error.
type DispatchResult struct {
	RequestID     string                 `json:"request_id"`
	Status        domain.RequestStatus   `json:"status"`
	Notifications []domain.DonorResponse `json:"notifications"`
	Failures      []domain.ItemFailure   `json:"failures"`
}

// Dispatcher sends notifications for a request.
type Dispatcher struct {
	DB          *gorm.DB
	Repo        ResponseRepo
	Push        push.Surface
	Hub         Publisher
	Concurrency int
	TravelMode  geo.TravelMode
	Locale      language.Tag
	Log         zerolog.Logger

	Now func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

type itemOutcome struct {
	resp    *domain.DonorResponse
	failure *domain.ItemFailure
}

// Dispatch notifies donorIDs about requestID. Duplicate ids are notified
// once. Donors whose blood type cannot serve the request fail individually
// with a validation error. Re-dispatching to a donor updates the existing row to notified.
func (d *Dispatcher) Dispatch(ctx context.Context, requestID string, donorIDs []string) (*DispatchResult, error) {
	tr := otel.Tracer("services/Dispatcher")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.Int("donors.requested", len(donorIDs)),
		),
	)
	defer span.End()

	ids := uniqueIDs(donorIDs)
	if len(ids) == 0 {
		return nil, ErrNoDonorsSelected
	}

	req, err := loadRequest(ctx, d.DB, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.Open() {
		return nil, ErrRequestClosed
	}

	donors, err := repo.GetDonorsByIDs(ctx, d.DB, ids)
	if err != nil {
		return nil, &domain.DependencyError{Op: "load donors", Err: err}
	}
	byID := make(map[string]domain.DonorProfile, len(donors))
	for _, dn := range donors {
		byID[dn.ID] = dn
	}

	outcomes := make([]itemOutcome, len(ids))
	var g errgroup.Group
	g.SetLimit(d.concurrency())
	for i, id := range ids {
		donor, ok := byID[id]
		if !ok {
			outcomes[i] = itemOutcome{failure: &domain.ItemFailure{DonorID: id, Err: ErrDonorNotFound, Message: ErrDonorNotFound.Error()}}
			continue
		}
		if !matching.CanDonate(donor.BloodType, req.BloodType) {
			verr := domain.NewValidationError("donor_ids", "donor %s (%s) cannot donate to %s", id, donor.BloodType, req.BloodType)
			outcomes[i] = itemOutcome{failure: &domain.ItemFailure{DonorID: id, Err: verr, Message: verr.Error()}}
			continue
		}
		g.Go(func() error {
			outcomes[i] = d.notifyOne(ctx, *req, donor)
			return nil
		})
	}
	_ = g.Wait()

	res := &DispatchResult{RequestID: req.ID, Notifications: []domain.DonorResponse{}, Failures: []domain.ItemFailure{}}
	for _, o := range outcomes {
		if o.resp != nil {
			res.Notifications = append(res.Notifications, *o.resp)
			observability.Notifications.WithLabelValues("created").Inc()
			continue
		}
		res.Failures = append(res.Failures, *o.failure)
		observability.Notifications.WithLabelValues("failed").Inc()
	}
	span.SetAttributes(
		attribute.Int("notifications.created", len(res.Notifications)),
		attribute.Int("notifications.failed", len(res.Failures)),
	)

	if len(res.Notifications) == 0 {
		derr := &domain.DispatchError{RequestID: req.ID, Failures: res.Failures}
		span.SetStatus(codes.Error, derr.Error())
		d.Log.Error().Str("request_id", req.ID).Int("failed", len(res.Failures)).Msg("dispatch created no notifications")
		return nil, derr
	}

	if _, err := repo.TransitionRequestStatus(ctx, d.DB, req.ID, domain.RequestActive, domain.RequestPending); err != nil {
		return nil, &domain.DependencyError{Op: "activate request", Err: err}
	}
	cur, err := loadRequest(ctx, d.DB, req.ID)
	if err != nil {
		return nil, err
	}
	res.Status = cur.Status
	return res, nil
}

func (d *Dispatcher) notifyOne(ctx context.Context, req domain.BloodRequest, donor domain.DonorProfile) itemOutcome {
	log := d.Log.With().Str("request_id", req.ID).Str("donor_id", donor.ID).Logger()
	if err := ctx.Err(); err != nil {
		return itemOutcome{failure: &domain.ItemFailure{DonorID: donor.ID, Err: err, Message: err.Error()}}
	}

	msg := BuildMessage(req, donor, d.TravelMode, d.Locale)
	r := d.Repo
	if r == nil {
		r = GormResponseRepo{}
	}
	resp, err := r.UpsertResponse(ctx, d.DB, req.ID, donor.ID, domain.ResponseNotified, msg)
	if err != nil {
		derr := &domain.DependencyError{Op: "upsert notification", Err: err}
		log.Warn().Err(err).Msg("notification failed")
		return itemOutcome{failure: &domain.ItemFailure{DonorID: donor.ID, Err: derr, Message: derr.Error()}}
	}

	if d.Push != nil {
		alert := push.Alert{
			Title:     alertTitle(req),
			Body:      msg,
			Actions:   push.DefaultActions,
			RequestID: req.ID,
			DonorID:   donor.ID,
		}
		if perr := d.Push.Show(ctx, alert); perr != nil && !errors.Is(perr, context.Canceled) {
			log.Warn().Err(perr).Msg("push alert failed")
		}
	}

	publisherOrNop(d.Hub).Publish(realtime.NewResponseEvent(req.RequesterID, *resp, d.now()))
	return itemOutcome{resp: resp}
}

func (d *Dispatcher) concurrency() int {
	if d.Concurrency > 0 {
		return d.Concurrency
	}
	return DefaultDispatchConcurrency
}

// uniqueIDs drops blanks and repeats, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
