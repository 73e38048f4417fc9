package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/realtime"
	"github.com/tbourn/go-bloodlink-backend/internal/repo"
)

// ---------- test helpers ----------

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// newSvcDB opens a private in-memory database with every table migrated. A
// single connection serializes writers the way SQLite does on disk.
func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func fptr(v float64) *float64 { return &v }

func tptr(v time.Time) *time.Time { return &v }

// kmNorth returns the latitude that lies km north of lat.
func kmNorth(lat, km float64) float64 { return lat + km/111.19492664455873 }

func seedRequest(t *testing.T, db *gorm.DB, mut ...func(*domain.BloodRequest)) *domain.BloodRequest {
	t.Helper()
	r := &domain.BloodRequest{
		RequesterID:  "hospital-1",
		FacilityName: "st. mary",
		BloodType:    domain.APos,
		Urgency:      domain.UrgencyUrgent,
		UnitsNeeded:  2,
		Latitude:     40,
		Longitude:    -74,
	}
	for _, m := range mut {
		m(r)
	}
	if err := repo.CreateRequest(context.Background(), db, r); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return r
}

func seedDonor(t *testing.T, db *gorm.DB, bt domain.BloodType, km float64, mut ...func(*domain.DonorProfile)) *domain.DonorProfile {
	t.Helper()
	d := &domain.DonorProfile{
		Name:                 "donor",
		BloodType:            bt,
		Latitude:             fptr(kmNorth(40, km)),
		Longitude:            fptr(-74),
		IsAvailable:          true,
		AvailabilityRadiusKm: 25,
	}
	for _, m := range mut {
		m(d)
	}
	if err := repo.CreateDonor(context.Background(), db, d); err != nil {
		t.Fatalf("seed donor: %v", err)
	}
	return d
}

// recorder is a Publisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Publish(ev realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]realtime.Event, len(r.events))
	copy(out, r.events)
	return out
}
