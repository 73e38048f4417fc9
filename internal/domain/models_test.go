package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&BloodRequest{}, &DonorProfile{}, &DonorResponse{}, &Connection{}, &Donation{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(BloodRequest{}).TableName():  "blood_requests",
		(DonorProfile{}).TableName():  "donor_profiles",
		(DonorResponse{}).TableName(): "donor_responses",
		(Connection{}).TableName():    "connections",
		(Donation{}).TableName():      "donations",
		(Idempotency{}).TableName():   "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()

	if !m.HasIndex(&DonorResponse{}, "ux_response_donor_request") {
		t.Fatalf("expected unique index ux_response_donor_request")
	}
	if !m.HasIndex(&DonorProfile{}, "idx_donor_type_geo") {
		t.Fatalf("expected index idx_donor_type_geo")
	}
	if !m.HasIndex(&Connection{}, "ux_connection_request_donor") {
		t.Fatalf("expected unique index ux_connection_request_donor")
	}
	if !m.HasIndex(&Idempotency{}, "ux_user_scope_key") {
		t.Fatalf("expected unique index ux_user_scope_key")
	}
}

func seedRequest(t *testing.T, db *gorm.DB) *BloodRequest {
	t.Helper()
	r := &BloodRequest{
		ID:          uuid.NewString(),
		RequesterID: "hospital-1",
		BloodType:   ABPos,
		Urgency:     UrgencyCritical,
		UnitsNeeded: 2,
		Status:      RequestPending,
		Latitude:    40,
		Longitude:   -74,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return r
}

func TestDonorResponse_PairIsUnique(t *testing.T) {
	db := newDomainDB(t)
	req := seedRequest(t, db)

	first := &DonorResponse{ID: uuid.NewString(), RequestID: req.ID, DonorID: "d1", Status: ResponseNotified}
	if err := db.Omit("Request").Create(first).Error; err != nil {
		t.Fatalf("insert first: %v", err)
	}
	dup := &DonorResponse{ID: uuid.NewString(), RequestID: req.ID, DonorID: "d1", Status: ResponseDeclined}
	if err := db.Omit("Request").Create(dup).Error; err == nil {
		t.Fatalf("expected unique violation for duplicate (donor, request)")
	}
}

func TestChecks_RejectBadValues(t *testing.T) {
	db := newDomainDB(t)

	bad := &BloodRequest{ID: uuid.NewString(), RequesterID: "h", BloodType: APos, Urgency: "whenever", UnitsNeeded: 1, Status: RequestPending}
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected check failure for unknown urgency")
	}
	zero := &BloodRequest{ID: uuid.NewString(), RequesterID: "h", BloodType: APos, Urgency: UrgencyLow, UnitsNeeded: 0, Status: RequestPending}
	if err := db.Create(zero).Error; err == nil {
		t.Fatalf("expected check failure for units_needed=0")
	}

	req := seedRequest(t, db)
	resp := &DonorResponse{ID: uuid.NewString(), RequestID: req.ID, DonorID: "d2", Status: "maybe"}
	if err := db.Omit("Request").Create(resp).Error; err == nil {
		t.Fatalf("expected check failure for unknown response status")
	}
}

func TestResponses_CascadeWithRequest(t *testing.T) {
	db := newDomainDB(t)
	req := seedRequest(t, db)
	resp := &DonorResponse{ID: uuid.NewString(), RequestID: req.ID, DonorID: "d3", Status: ResponseNotified}
	if err := db.Omit("Request").Create(resp).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Delete(&BloodRequest{}, "id = ?", req.ID).Error; err != nil {
		t.Fatalf("delete request: %v", err)
	}
	var n int64
	db.Model(&DonorResponse{}).Where("id = ?", resp.ID).Count(&n)
	if n != 0 {
		t.Fatalf("expected response to cascade, still have %d", n)
	}
}

func TestDonorProfile_HasLocation(t *testing.T) {
	lat, lng := 1.0, 2.0
	if (DonorProfile{}).HasLocation() {
		t.Fatalf("zero profile must not have a location")
	}
	if (DonorProfile{Latitude: &lat}).HasLocation() {
		t.Fatalf("half a coordinate is not a location")
	}
	if !(DonorProfile{Latitude: &lat, Longitude: &lng}).HasLocation() {
		t.Fatalf("expected location")
	}
}

func TestIdempotency_ExpiresAtRoundTrip(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	rec := &Idempotency{ID: uuid.NewString(), UserID: "u", Scope: "r1", Key: "k", Status: 200, Body: []byte(`{}`), ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	var got Idempotency
	if err := db.First(&got, "id = ?", rec.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.ExpiresAt.Equal(rec.ExpiresAt) {
		t.Fatalf("expires_at = %v; want %v", got.ExpiresAt, rec.ExpiresAt)
	}
}
