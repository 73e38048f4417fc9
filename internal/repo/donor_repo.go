package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/geo"
)

// CreateDonor inserts a donor profile, assigning an ID when empty.
func CreateDonor(ctx context.Context, db *gorm.DB, d *domain.DonorProfile) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	// is_available has no column default: GORM skips zero-valued fields that
	// carry one, which would turn an explicit false into true.
	return db.WithContext(ctx).Create(d).Error
}

// GetDonor fetches a donor by ID or returns ErrNotFound.
func GetDonor(ctx context.Context, db *gorm.DB, id string) (*domain.DonorProfile, error) {
	var d domain.DonorProfile
	if err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDonorsByIDs loads the given donors. Unknown IDs are silently absent
// from the result.
func GetDonorsByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.DonorProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.DonorProfile
	err := db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&out).Error
	return out, err
}

// ListDonorsInBox is the coarse prefilter of a radius search: donors of one
// of the given types whose coordinates fall inside box. Donors without a
// location never match. Callers compute exact distances afterwards.
func ListDonorsInBox(ctx context.Context, db *gorm.DB, box geo.BoundingBox, types []domain.BloodType) ([]domain.DonorProfile, error) {
	if len(types) == 0 {
		return nil, nil
	}
	var out []domain.DonorProfile
	err := db.WithContext(ctx).
		Where("blood_type IN ?", types).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng).
		Order("id").
		Find(&out).Error
	return out, err
}

// StampEmergencyResponse records that the donor answered an emergency
// request at t, starting the emergency cooldown.
func StampEmergencyResponse(ctx context.Context, db *gorm.DB, donorID string, t time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.DonorProfile{}).
		Where("id = ?", donorID).
		Updates(map[string]any{"last_emergency_response_date": t, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
