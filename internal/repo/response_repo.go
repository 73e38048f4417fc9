package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
)

// UpsertResponse writes the (donor, request) notification row. An existing
// row is updated in place: status always, message only when non-empty. The
// stored row is returned.
func UpsertResponse(ctx context.Context, db *gorm.DB, requestID, donorID string, status domain.ResponseStatus, message string) (*domain.DonorResponse, error) {
	now := time.Now().UTC()
	row := &domain.DonorResponse{
		ID:        uuid.NewString(),
		RequestID: requestID,
		DonorID:   donorID,
		Status:    status,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}

	cols := []string{"status", "updated_at"}
	if message != "" {
		cols = append(cols, "message")
	}
	err := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "donor_id"}, {Name: "request_id"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return GetResponse(ctx, db, requestID, donorID)
}

// GetResponse returns the row for (request, donor) or ErrNotFound.
func GetResponse(ctx context.Context, db *gorm.DB, requestID, donorID string) (*domain.DonorResponse, error) {
	var r domain.DonorResponse
	err := db.WithContext(ctx).
		Where("request_id = ? AND donor_id = ?", requestID, donorID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CountResponses returns the number of response rows for a request.
func CountResponses(ctx context.Context, db *gorm.DB, requestID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.DonorResponse{}).
		Where("request_id = ?", requestID).
		Count(&total).Error
	return total, err
}

// ListResponsesPage returns a page of response rows for a request, oldest
// first, with donor_id as tie-breaker.
func ListResponsesPage(ctx context.Context, db *gorm.DB, requestID string, offset, limit int) ([]domain.DonorResponse, error) {
	var out []domain.DonorResponse
	err := db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at asc").
		Order("donor_id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SupersedeCompetingResponses cancels every still-awaiting row of the
// request except the winner's and returns how many rows changed.
func SupersedeCompetingResponses(ctx context.Context, db *gorm.DB, requestID, winnerDonorID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.DonorResponse{}).
		Where("request_id = ? AND donor_id <> ? AND status IN ?", requestID, winnerDonorID,
			[]domain.ResponseStatus{domain.ResponseNotified, domain.ResponsePending}).
		Updates(map[string]any{"status": domain.ResponseCancelled, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
