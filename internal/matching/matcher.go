package matching

import (
	"time"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/geo"
)

// Options tunes BuildCandidates.
type Options struct {
	Rules      Rules
	TravelMode geo.TravelMode
	// MaxRadiusKm drops donors outside this circle; it matches the radius the
	// bounding box was built from. Zero disables the check.
	MaxRadiusKm float64
	// IncludeIneligible keeps failing donors in the ranking with their reasons
	// instead of filtering them out.
	IncludeIneligible bool
	// Limit caps the result; zero means no cap.
	Limit int
}

// BuildCandidates turns prefiltered donor profiles into a ranked candidate
// list for req. Donors of an incompatible type are skipped.
func BuildCandidates(req domain.BloodRequest, donors []domain.DonorProfile, opts Options, now time.Time) []domain.MatchCandidate {
	out := make([]domain.MatchCandidate, 0, len(donors))
	for _, d := range donors {
		if !CanDonate(d.BloodType, req.BloodType) {
			continue
		}
		dist := DistanceKm(d, req)
		if dist != nil && opts.MaxRadiusKm > 0 && *dist > opts.MaxRadiusKm {
			continue
		}
		elig := opts.Rules.Evaluate(d, req, now)
		if !elig.Eligible && !opts.IncludeIneligible {
			continue
		}

		c := domain.MatchCandidate{
			Donor:         d,
			DistanceKm:    dist,
			PriorityScore: Score(d, req, dist, now),
			Eligibility:   elig,
		}
		if dist != nil {
			mins := geo.TravelMinutes(*dist, opts.TravelMode)
			c.TravelMinutes = &mins
		}
		out = append(out, c)
	}

	Rank(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
