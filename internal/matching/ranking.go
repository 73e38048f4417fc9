package matching

import (
	"math"
	"sort"
	"time"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
)

// urgencyMultiplier weights the base score by request urgency.
var urgencyMultiplier = map[domain.Urgency]float64{
	domain.UrgencyCritical: 2.0,
	domain.UrgencyUrgent:   1.5,
	domain.UrgencyNormal:   1.0,
	domain.UrgencyLow:      0.8,
}

// Score computes a donor's priority for a request:
//
//	score  = (exact type ? 100 : 50) + max(0, 50 - distanceKm)
//	score *= urgency multiplier
//	score += never donated ? 30 : (last donation > 90 days ago ? 20 : 0)
//
// A nil distance contributes no proximity bonus.
func Score(d domain.DonorProfile, req domain.BloodRequest, distanceKm *float64, now time.Time) float64 {
	score := 50.0
	if d.BloodType == req.BloodType {
		score = 100
	}
	if distanceKm != nil {
		score += math.Max(0, 50-*distanceKm)
	}

	mult, ok := urgencyMultiplier[req.Urgency]
	if !ok {
		mult = 1
	}
	score *= mult

	switch {
	case d.LastDonationDate == nil:
		score += 30
	case DaysSince(*d.LastDonationDate, now) > 90:
		score += 20
	}
	return score
}

// Rank sorts candidates by descending score. Ties go to the closer donor
// (unknown distance last), then to the lexicographically smaller donor id so
// the order is deterministic.
func Rank(cands []domain.MatchCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		switch {
		case a.DistanceKm != nil && b.DistanceKm != nil && *a.DistanceKm != *b.DistanceKm:
			return *a.DistanceKm < *b.DistanceKm
		case a.DistanceKm != nil && b.DistanceKm == nil:
			return true
		case a.DistanceKm == nil && b.DistanceKm != nil:
			return false
		}
		return a.Donor.ID < b.Donor.ID
	})
}
