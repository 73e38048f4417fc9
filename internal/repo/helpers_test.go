package repo

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

// newMigratedDB returns a DB with the full schema.
func newMigratedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func fptr(v float64) *float64 { return &v }

func seedRequest(t *testing.T, db *gorm.DB, mut ...func(*domain.BloodRequest)) *domain.BloodRequest {
	t.Helper()
	r := &domain.BloodRequest{
		RequesterID:  "hospital-1",
		FacilityName: "St. Mary",
		BloodType:    domain.APos,
		Urgency:      domain.UrgencyUrgent,
		UnitsNeeded:  2,
		Latitude:     40.0,
		Longitude:    -74.0,
	}
	for _, m := range mut {
		m(r)
	}
	if err := CreateRequest(context.Background(), db, r); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return r
}

func seedDonor(t *testing.T, db *gorm.DB, id string, bt domain.BloodType, lat, lng *float64) *domain.DonorProfile {
	t.Helper()
	d := &domain.DonorProfile{
		ID:                   id,
		Name:                 "donor " + id,
		BloodType:            bt,
		Latitude:             lat,
		Longitude:            lng,
		IsAvailable:          true,
		AvailabilityRadiusKm: 25,
	}
	if err := CreateDonor(context.Background(), db, d); err != nil {
		t.Fatalf("seed donor %s: %v", id, err)
	}
	return d
}
