package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "trip_tracking", Name: "sessions_active", Help: "Open tracking sessions"})

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip_tracking", Name: "status_transitions_total", Help: "Order status events applied by trackers"},
		[]string{"status"},
	)

	LocationSamples = promauto.NewCounter(prometheus.CounterOpts{Namespace: "trip_tracking", Name: "location_samples_total", Help: "Driver location samples applied to sessions"})

	ArrivalAlerts = promauto.NewCounter(prometheus.CounterOpts{Namespace: "trip_tracking", Name: "arrival_alerts_total", Help: "One-shot arrival alerts raised"})

	MutationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip_tracking", Name: "mutation_failures_total", Help: "Best-effort ride mutations that failed"},
		[]string{"op"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trip_tracking", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trip_tracking",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
