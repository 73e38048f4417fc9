package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
)

// CreateConnection links donor and requester for a request. A second call
// for the same pair returns ErrDuplicate.
func CreateConnection(ctx context.Context, db *gorm.DB, requestID, donorID, requesterID string) (*domain.Connection, error) {
	c := &domain.Connection{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		DonorID:     donorID,
		RequesterID: requesterID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// CreateDonation records a completed donation.
func CreateDonation(ctx context.Context, db *gorm.DB, donorID, requestID string, bt domain.BloodType, volumeMl int, at time.Time) (*domain.Donation, error) {
	d := &domain.Donation{
		ID:        uuid.NewString(),
		DonorID:   donorID,
		RequestID: requestID,
		BloodType: bt,
		VolumeMl:  volumeMl,
		Status:    domain.DonationStatusCompleted,
		DonatedAt: at,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// ListDonations returns a donor's donations, newest first.
func ListDonations(ctx context.Context, db *gorm.DB, donorID string) ([]domain.Donation, error) {
	var out []domain.Donation
	err := db.WithContext(ctx).
		Where("donor_id = ?", donorID).
		Order("donated_at desc").
		Find(&out).Error
	return out, err
}

// GetConnection returns the connection for (request, donor) or ErrNotFound.
func GetConnection(ctx context.Context, db *gorm.DB, requestID, donorID string) (*domain.Connection, error) {
	var c domain.Connection
	err := db.WithContext(ctx).
		Where("request_id = ? AND donor_id = ?", requestID, donorID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}
