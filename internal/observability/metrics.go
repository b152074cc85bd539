package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// Interactions counts ledger toggles by kind (post_like, comment_like, post_save) and action (add, remove).
	Interactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_interactions_total",
			Help: "Like and save toggles applied to the ledger.",
		},
		[]string{"kind", "action"},
	)

	// Notifications counts notification writes by op (create, remove, skip) and result (ok, error).
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_notifications_total",
			Help: "Notification upserts and removals.",
		},
		[]string{"op", "result"},
	)

	StoriesReaped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "community_stories_reaped_total",
			Help: "Expired stories removed by the reaper.",
		},
	)

	// RealtimeConnections gauges open websocket connections.
	RealtimeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "community_realtime_connections",
			Help: "Open realtime notification connections.",
		},
	)
)

func init() {
	prometheus.MustRegister(Interactions, Notifications, StoriesReaped, RealtimeConnections)
}
