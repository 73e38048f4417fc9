// Package services – MatchService
//
// MatchService composes the pure matching package with the store: it turns a
// request into a bounding-box query over compatible blood types, then runs the
// exact distance filter, eligibility rules and ranking over the result.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/geo"
	"github.com/tbourn/go-bloodlink-backend/internal/matching"
	"github.com/tbourn/go-bloodlink-backend/internal/observability"
	"github.com/tbourn/go-bloodlink-backend/internal/repo"
)

// MatchOptions tunes a single FindCandidates call.
type MatchOptions struct {
	// IncludeIneligible keeps failing donors in the list with their reasons.
	IncludeIneligible bool
	// Limit caps the result; zero or anything above MaxCandidates means
	// MaxCandidates.
	Limit int
}

// MatchService finds and ranks donors for a request.
type MatchService struct {
	DB            *gorm.DB
	Rules         matching.Rules
	TravelMode    geo.TravelMode
	MaxRadiusKm   float64
	MaxCandidates int

	Now func() time.Time
}

func (s *MatchService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// SearchRadiusKm is the radius the store query covers for req: the
// request's override capped at MaxRadiusKm, else MaxRadiusKm itself so that
// donors with a large personal radius are still found.
func (s *MatchService) SearchRadiusKm(req domain.BloodRequest) float64 {
	if req.SearchRadiusKm != nil && *req.SearchRadiusKm > 0 {
		if s.MaxRadiusKm > 0 && *req.SearchRadiusKm > s.MaxRadiusKm {
			return s.MaxRadiusKm
		}
		return *req.SearchRadiusKm
	}
	return s.MaxRadiusKm
}

// FindCandidates loads the request and returns its ranked candidates.
func (s *MatchService) FindCandidates(ctx context.Context, requestID string, opts MatchOptions) ([]domain.MatchCandidate, error) {
	tr := otel.Tracer("services/MatchService")
	ctx, span := tr.Start(ctx, "FindCandidates",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.Bool("include_ineligible", opts.IncludeIneligible),
			attribute.Int("limit", opts.Limit),
		),
	)
	defer span.End()

	req, err := loadRequest(ctx, s.DB, requestID)
	if err != nil {
		return nil, err
	}
	return s.Rank(ctx, *req, opts)
}

// Rank runs the search for an already loaded request. An unknown blood type
// or invalid coordinates stop the search with a validation error.
func (s *MatchService) Rank(ctx context.Context, req domain.BloodRequest, opts MatchOptions) ([]domain.MatchCandidate, error) {
	tr := otel.Tracer("services/MatchService")
	ctx, span := tr.Start(ctx, "Rank", trace.WithAttributes(attribute.String("request.id", req.ID)))
	defer span.End()

	types, err := matching.CompatibleDonorTypes(req.BloodType)
	if err != nil {
		return nil, err
	}
	center := geo.Point{Lat: req.Latitude, Lng: req.Longitude}
	if err := center.Validate(); err != nil {
		return nil, err
	}

	radius := s.SearchRadiusKm(req)
	box := geo.NewBoundingBox(center, radius)
	donors, err := repo.ListDonorsInBox(ctx, s.DB, box, types)
	if err != nil {
		span.RecordError(err)
		return nil, &domain.DependencyError{Op: "query donors", Err: err}
	}

	limit := opts.Limit
	if s.MaxCandidates > 0 && (limit <= 0 || limit > s.MaxCandidates) {
		limit = s.MaxCandidates
	}
	cands := matching.BuildCandidates(req, donors, matching.Options{
		Rules:             s.Rules,
		TravelMode:        s.TravelMode,
		MaxRadiusKm:       radius,
		IncludeIneligible: opts.IncludeIneligible,
		Limit:             limit,
	}, s.now())

	eligible := 0
	for _, c := range cands {
		if c.Eligibility.Eligible {
			eligible++
		}
	}
	observability.CandidatesEvaluated.WithLabelValues("true").Add(float64(eligible))
	observability.CandidatesEvaluated.WithLabelValues("false").Add(float64(len(cands) - eligible))
	span.SetAttributes(
		attribute.Int("donors.in_box", len(donors)),
		attribute.Int("candidates", len(cands)),
	)
	return cands, nil
}
