package domain

// Eligibility is the outcome of evaluating one donor against one request.
// A donor with no reasons is eligible; every failing rule adds a reason.
type Eligibility struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
}

// MatchCandidate is a donor scored for a request. It is derived per matching
// run and never persisted.
type MatchCandidate struct {
	Donor         DonorProfile `json:"donor"`
	DistanceKm    *float64     `json:"distance_km,omitempty"`
	TravelMinutes *int         `json:"travel_minutes,omitempty"`
	PriorityScore float64      `json:"priority_score"`
	Eligibility   Eligibility  `json:"eligibility"`
}
