package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks live websocket connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "salonpulse_active_connections",
			Help: "Number of live realtime connections",
		},
	)

	// OnlineStaff tracks staff members with at least one live connection.
	OnlineStaff = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "salonpulse_online_staff",
			Help: "Number of staff members currently online",
		},
	)

	// BroadcastsSent counts broadcast deliveries by event name.
	BroadcastsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonpulse_broadcasts_total",
			Help: "Total number of events delivered to realtime connections",
		},
		[]string{"event"},
	)

	// DroppedDeliveries counts deliveries dropped because the target send buffer was full.
	DroppedDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salonpulse_dropped_deliveries_total",
			Help: "Total number of deliveries dropped due to backpressure",
		},
	)

	// NotificationsPersisted counts durable notification writes by result (success|failure).
	NotificationsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonpulse_notifications_persisted_total",
			Help: "Total number of durable notification writes",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salonpulse_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
