package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/repo"
	"github.com/tbourn/go-bloodlink-backend/internal/services"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	orig := log.Logger
	t.Cleanup(func() { log.Logger = orig })

	var out, errOut bytes.Buffer
	cmd := RootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateThenMatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bloodlink.db")

	if _, err := execute(t, "--db", dbPath, "--log-level", "error", "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// Seed one request and one nearby universal donor.
	db, err := repo.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	req := &domain.BloodRequest{RequesterID: "h", BloodType: domain.APos, Urgency: domain.UrgencyUrgent, UnitsNeeded: 1, Latitude: 40, Longitude: -74}
	if err := repo.CreateRequest(ctx, db, req); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	lat, lng := 40.01, -74.0
	donor := &domain.DonorProfile{BloodType: domain.ONeg, Latitude: &lat, Longitude: &lng, IsAvailable: true, AvailabilityRadiusKm: 25}
	if err := repo.CreateDonor(ctx, db, donor); err != nil {
		t.Fatalf("seed donor: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	out, err := execute(t, "--db", dbPath, "--log-level", "error", "match", req.ID)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !strings.Contains(out, donor.ID) || !strings.Contains(out, "O-") || !strings.Contains(out, "1.1 km") {
		t.Fatalf("unexpected table:\n%s", out)
	}

	_, err = execute(t, "--db", dbPath, "--log-level", "error", "match", uuid.NewString())
	if !errors.Is(err, services.ErrRequestNotFound) {
		t.Fatalf("want ErrRequestNotFound, got %v", err)
	}

	if _, err := execute(t, "--db", dbPath, "match"); err == nil {
		t.Fatalf("match without an id must fail")
	}
}

func TestWriteCandidates(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCandidates(&buf, nil); err != nil || strings.TrimSpace(buf.String()) != "no candidates" {
		t.Fatalf("empty: %q %v", buf.String(), err)
	}

	dist, mins := 2.04, 4
	cands := []domain.MatchCandidate{
		{
			Donor:         domain.DonorProfile{ID: "d1", BloodType: domain.APos},
			DistanceKm:    &dist,
			TravelMinutes: &mins,
			PriorityScore: 142.5,
			Eligibility:   domain.Eligibility{Eligible: true},
		},
		{
			Donor:         domain.DonorProfile{ID: "d2", BloodType: domain.ONeg},
			PriorityScore: 10,
			Eligibility:   domain.Eligibility{Reasons: []string{"currently unavailable", "too far"}},
		},
	}
	buf.Reset()
	if err := writeCandidates(&buf, cands); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "RANK") {
		t.Fatalf("unexpected table:\n%s", buf.String())
	}
	if !strings.Contains(lines[1], "2.0 km") || !strings.Contains(lines[1], "4 min") || !strings.Contains(lines[1], "142.5") {
		t.Fatalf("row 1: %q", lines[1])
	}
	if !strings.Contains(lines[2], "unknown") || !strings.Contains(lines[2], "no: currently unavailable; too far") {
		t.Fatalf("row 2: %q", lines[2])
	}
}
