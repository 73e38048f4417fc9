// Package services – RequestService
//
// RequestService owns the lifecycle of a blood request: creation with input
// validation, lookup and cancellation. New requests are announced on the
// donor channel for their blood type.
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
	"github.com/tbourn/go-bloodlink-backend/internal/geo"
	"github.com/tbourn/go-bloodlink-backend/internal/realtime"
	"github.com/tbourn/go-bloodlink-backend/internal/repo"
)

// CreateRequestInput is the caller-supplied part of a new request.
type CreateRequestInput struct {
	RequesterID    string
	FacilityName   string
	BloodType      string
	Urgency        string
	UnitsNeeded    int
	Latitude       float64
	Longitude      float64
	SearchRadiusKm *float64
	Notes          string
	NeededBy       *time.Time
}

// RequestService manages blood requests.
type RequestService struct {
	DB  *gorm.DB
	Hub Publisher

	// MaxRadiusKm caps a per-request search radius override. Zero means no cap.
	MaxRadiusKm float64

	Now func() time.Time
}

func (s *RequestService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Create validates in, stores a pending request and publishes it on the
// donor channel.
func (s *RequestService) Create(ctx context.Context, in CreateRequestInput) (*domain.BloodRequest, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("requester.id", in.RequesterID),
			attribute.String("blood_type", in.BloodType),
			attribute.String("urgency", in.Urgency),
		),
	)
	defer span.End()

	r, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	if err := repo.CreateRequest(ctx, s.DB, r); err != nil {
		span.RecordError(err)
		return nil, &domain.DependencyError{Op: "create request", Err: err}
	}
	span.SetAttributes(attribute.String("request.id", r.ID))

	publisherOrNop(s.Hub).Publish(realtime.NewRequestEvent(*r, s.now()))
	return r, nil
}

func (s *RequestService) validate(in CreateRequestInput) (*domain.BloodRequest, error) {
	requester := strings.TrimSpace(in.RequesterID)
	if requester == "" {
		return nil, domain.NewValidationError("requester_id", "must not be empty")
	}
	bt, ok := domain.ParseBloodType(in.BloodType)
	if !ok {
		return nil, domain.NewValidationError("blood_type", "unknown blood type %q", in.BloodType)
	}
	urgency := domain.Urgency(strings.ToLower(strings.TrimSpace(in.Urgency)))
	if !urgency.Valid() {
		return nil, domain.NewValidationError("urgency", "must be one of critical, urgent, normal, low")
	}
	if in.UnitsNeeded < 1 {
		return nil, domain.NewValidationError("units_needed", "must be at least 1")
	}
	if err := geo.ValidateCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, err
	}
	if in.SearchRadiusKm != nil {
		rad := *in.SearchRadiusKm
		if rad <= 0 {
			return nil, domain.NewValidationError("search_radius_km", "must be positive")
		}
		if s.MaxRadiusKm > 0 && rad > s.MaxRadiusKm {
			return nil, domain.NewValidationError("search_radius_km", "must not exceed %s", geo.FormatDistance(s.MaxRadiusKm))
		}
	}
	return &domain.BloodRequest{
		RequesterID:    requester,
		FacilityName:   strings.TrimSpace(in.FacilityName),
		BloodType:      bt,
		Urgency:        urgency,
		UnitsNeeded:    in.UnitsNeeded,
		Status:         domain.RequestPending,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		SearchRadiusKm: in.SearchRadiusKm,
		Notes:          strings.TrimSpace(in.Notes),
		NeededBy:       in.NeededBy,
	}, nil
}

// Get returns a request by id.
func (s *RequestService) Get(ctx context.Context, id string) (*domain.BloodRequest, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("request.id", id)))
	defer span.End()

	return loadRequest(ctx, s.DB, id)
}

// Cancel moves an open request to cancelled and withdraws the notifications
// donors have not answered yet. Closed requests return ErrRequestClosed.
func (s *RequestService) Cancel(ctx context.Context, id string) (*domain.BloodRequest, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Cancel", trace.WithAttributes(attribute.String("request.id", id)))
	defer span.End()

	if _, err := loadRequest(ctx, s.DB, id); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.TransitionRequestStatus(ctx, tx, id, domain.RequestCancelled, domain.RequestPending, domain.RequestActive)
		if err != nil {
			return &domain.DependencyError{Op: "cancel request", Err: err}
		}
		if !ok {
			return ErrRequestClosed
		}
		if _, err := repo.SupersedeCompetingResponses(ctx, tx, id, ""); err != nil {
			return &domain.DependencyError{Op: "withdraw notifications", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loadRequest(ctx, s.DB, id)
}

// loadRequest maps a missing row to ErrRequestNotFound and other store
// failures to a DependencyError.
func loadRequest(ctx context.Context, db *gorm.DB, id string) (*domain.BloodRequest, error) {
	r, err := repo.GetRequest(ctx, db, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, &domain.DependencyError{Op: "load request", Err: err}
	}
	return r, nil
}
