package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/realtime"
	"github.com/tbourn/go-bloodlink-backend/internal/repo"
)

// Publisher receives realtime events. *realtime.Hub implements it.
type Publisher interface {
	Publish(ev realtime.Event)
}

// nopPublisher is used when a service has no hub configured.
type nopPublisher struct{}

func (nopPublisher) Publish(realtime.Event) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// ResponseRepo abstracts the response-row writes dispatch performs.
type ResponseRepo interface {
	UpsertResponse(ctx context.Context, db *gorm.DB, requestID, donorID string, status domain.ResponseStatus, message string) (*domain.DonorResponse, error)
}

// GormResponseRepo is the ResponseRepo backed by the repo package.
type GormResponseRepo struct{}

// UpsertResponse implements ResponseRepo.
func (GormResponseRepo) UpsertResponse(ctx context.Context, db *gorm.DB, requestID, donorID string, status domain.ResponseStatus, message string) (*domain.DonorResponse, error) {
	return repo.UpsertResponse(ctx, db, requestID, donorID, status, message)
}
