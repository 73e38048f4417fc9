package matching

import (
	"fmt"
	"strings"
	"time"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/geo"
)

// Default cooldowns in days.
const (
	DefaultDonationCooldownDays  = 56
	DefaultEmergencyCooldownDays = 90
)

// Rules are the thresholds applied by Evaluate.
type Rules struct {
	DonationCooldownDays  int
	EmergencyCooldownDays int
}

// DefaultRules returns the 56/90 day cooldowns.
func DefaultRules() Rules {
	return Rules{
		DonationCooldownDays:  DefaultDonationCooldownDays,
		EmergencyCooldownDays: DefaultEmergencyCooldownDays,
	}
}

// DaysSince counts whole days from t to now. Future timestamps count as 0.
func DaysSince(t, now time.Time) int {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

// DistanceKm returns the donor's distance to the request, or nil when the
// donor has no known location.
func DistanceKm(d domain.DonorProfile, req domain.BloodRequest) *float64 {
	if !d.HasLocation() {
		return nil
	}
	km := geo.Distance(*d.Latitude, *d.Longitude, req.Latitude, req.Longitude)
	return &km
}

// SearchRadiusKm is the request's override when set, else the donor's own
// availability radius.
func SearchRadiusKm(d domain.DonorProfile, req domain.BloodRequest) float64 {
	if req.SearchRadiusKm != nil && *req.SearchRadiusKm > 0 {
		return *req.SearchRadiusKm
	}
	return d.AvailabilityRadiusKm
}

// Evaluate checks every rule independently and reports all failures, not
// just the first. The distance rule only applies when the donor's location is
// known.
func (r Rules) Evaluate(d domain.DonorProfile, req domain.BloodRequest, now time.Time) domain.Eligibility {
	reasons := make([]string, 0, 4)

	if !d.IsAvailable {
		reasons = append(reasons, "donor is not currently available")
	}
	if d.LastDonationDate != nil {
		if days := DaysSince(*d.LastDonationDate, now); days < r.DonationCooldownDays {
			reasons = append(reasons, fmt.Sprintf("last donation %d days ago (need %d days)", days, r.DonationCooldownDays))
		}
	}
	// Responding to an emergency starts its own cooldown, whether or not a
	// donation followed.
	if d.LastEmergencyResponseDate != nil {
		if days := DaysSince(*d.LastEmergencyResponseDate, now); days < r.EmergencyCooldownDays {
			reasons = append(reasons, fmt.Sprintf("emergency response %d days ago (need %d days)", days, r.EmergencyCooldownDays))
		}
	}
	if strings.TrimSpace(d.MedicalConditions) != "" {
		reasons = append(reasons, "medical conditions prevent donation")
	}
	if dist := DistanceKm(d, req); dist != nil {
		if limit := SearchRadiusKm(d, req); *dist > limit {
			reasons = append(reasons, fmt.Sprintf("too far (%s away, limit %s)", geo.FormatDistance(*dist), geo.FormatDistance(limit)))
		}
	}

	return domain.Eligibility{Eligible: len(reasons) == 0, Reasons: reasons}
}
