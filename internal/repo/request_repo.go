// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for BloodRequest.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use inside transactions. They do no business validation.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateRequest inserts r, assigning an ID when empty and defaulting the
// status to pending.
func CreateRequest(ctx context.Context, db *gorm.DB, r *domain.BloodRequest) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = domain.RequestPending
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	return db.WithContext(ctx).Create(r).Error
}

// GetRequest fetches a request by ID or returns ErrNotFound.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.BloodRequest, error) {
	var r domain.BloodRequest
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// TransitionRequestStatus moves a request to `to` only if its current status
// is one of `from`. It reports whether a row changed, so concurrent callers
// racing on the same request see exactly one winner.
func TransitionRequestStatus(ctx context.Context, db *gorm.DB, id string, to domain.RequestStatus, from ...domain.RequestStatus) (bool, error) {
	now := time.Now().UTC()
	updates := map[string]any{"status": to, "updated_at": now}
	if to == domain.RequestFulfilled {
		updates["fulfilled_at"] = now
	}
	res := db.WithContext(ctx).
		Model(&domain.BloodRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
