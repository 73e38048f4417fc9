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
	"github.com/tbourn/go-bloodlink-backend/internal/repo"
)

// RegisterDonorInput describes a donor profile to create.
type RegisterDonorInput struct {
	Name                      string
	BloodType                 string
	Latitude                  *float64
	Longitude                 *float64
	IsAvailable               *bool
	AvailabilityRadiusKm      float64
	LastDonationDate          *time.Time
	LastEmergencyResponseDate *time.Time
	MedicalConditions         string
}

// DonorService manages donor profiles.
type DonorService struct {
	DB *gorm.DB
	// DefaultRadiusKm is used when a profile has no availability radius.
	DefaultRadiusKm float64
}

// Register validates and stores a donor profile.
func (s *DonorService) Register(ctx context.Context, in RegisterDonorInput) (*domain.DonorProfile, error) {
	tr := otel.Tracer("services/DonorService")
	ctx, span := tr.Start(ctx, "Register", trace.WithAttributes(attribute.String("blood_type", in.BloodType)))
	defer span.End()

	bt, ok := domain.ParseBloodType(in.BloodType)
	if !ok {
		return nil, domain.NewValidationError("blood_type", "unknown blood type %q", in.BloodType)
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, domain.NewValidationError("location", "latitude and longitude must be given together")
	}
	if in.Latitude != nil {
		if err := geo.ValidateCoordinates(*in.Latitude, *in.Longitude); err != nil {
			return nil, err
		}
	}
	radius := in.AvailabilityRadiusKm
	if radius < 0 {
		return nil, domain.NewValidationError("availability_radius_km", "must not be negative")
	}
	if radius == 0 {
		radius = s.DefaultRadiusKm
	}
	available := true
	if in.IsAvailable != nil {
		available = *in.IsAvailable
	}

	d := &domain.DonorProfile{
		Name:                      strings.TrimSpace(in.Name),
		BloodType:                 bt,
		Latitude:                  in.Latitude,
		Longitude:                 in.Longitude,
		IsAvailable:               available,
		AvailabilityRadiusKm:      radius,
		LastDonationDate:          in.LastDonationDate,
		LastEmergencyResponseDate: in.LastEmergencyResponseDate,
		MedicalConditions:         strings.TrimSpace(in.MedicalConditions),
	}
	if err := repo.CreateDonor(ctx, s.DB, d); err != nil {
		return nil, &domain.DependencyError{Op: "create donor", Err: err}
	}
	return d, nil
}

// Get returns a donor by id.
func (s *DonorService) Get(ctx context.Context, id string) (*domain.DonorProfile, error) {
	tr := otel.Tracer("services/DonorService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("donor.id", id)))
	defer span.End()

	d, err := repo.GetDonor(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrDonorNotFound
	}
	if err != nil {
		return nil, &domain.DependencyError{Op: "load donor", Err: err}
	}
	return d, nil
}
