package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain metrics shared by the matching, dispatch and realtime layers. HTTP
// traffic metrics live with the Gin middleware.
var (
	// CandidatesEvaluated counts donors scored by FindCandidates, split by
	// whether they passed eligibility.
	CandidatesEvaluated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloodlink_match_candidates_total",
			Help: "Donors evaluated by the matcher.",
		},
		[]string{"eligible"},
	)

	// Notifications counts per-donor dispatch outcomes (created, failed).
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloodlink_notifications_total",
			Help: "Per-donor notification outcomes.",
		},
		[]string{"outcome"},
	)

	// PushAlerts counts push surface deliveries by outcome (sent, deduped, failed).
	PushAlerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloodlink_push_alerts_total",
			Help: "Push alerts by outcome.",
		},
		[]string{"outcome"},
	)

	// Responses counts donor responses by the status they moved to.
	Responses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloodlink_responses_total",
			Help: "Donor responses recorded, by status.",
		},
		[]string{"status"},
	)

	// FulfillmentConflicts counts acceptances that lost the race for a request.
	FulfillmentConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bloodlink_fulfillment_conflicts_total",
			Help: "Acceptances rejected because another donor fulfilled the request first.",
		},
	)

	// RealtimeDropped counts events not delivered because a subscriber or sink
	// queue was full.
	RealtimeDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloodlink_realtime_dropped_total",
			Help: "Realtime events dropped on a full buffer.",
		},
		[]string{"target"},
	)

	// RealtimeSubscribers gauges live hub subscriptions.
	RealtimeSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bloodlink_realtime_subscribers",
			Help: "Active realtime subscriptions.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		CandidatesEvaluated,
		Notifications,
		PushAlerts,
		Responses,
		FulfillmentConflicts,
		RealtimeDropped,
		RealtimeSubscribers,
	)
}
