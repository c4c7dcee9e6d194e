// Package metrics provides Prometheus metrics for the notification service.
// HTTP metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Notification metrics:
//   - snapshot_fetch_total: Counter with result label (success, failure, stale)
//   - snapshot_fetch_duration_seconds: Histogram of backend fetch latency
//   - snapshot_medicines: Gauge with the size of the current snapshot
//   - notifications_unread: Gauge with the current badge count
//   - notification_dismissals_total: Counter with kind label (seen, deleted)
//   - notification_streams_active: Gauge of open SSE streams
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Fetch results used as snapshot_fetch_total labels
const (
	FetchSuccess = "success"
	FetchFailure = "failure"
	FetchStale   = "stale"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	SnapshotFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_fetch_total",
			Help: "Backend snapshot fetches by result",
		},
		[]string{"result"},
	)

	SnapshotFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapshot_fetch_duration_seconds",
			Help:    "Backend snapshot fetch latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	SnapshotMedicines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_medicines",
			Help: "Number of medicines in the current snapshot",
		},
	)

	UnreadNotifications = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifications_unread",
			Help: "Current unread notification count for the active identity",
		},
	)

	DismissalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dismissals_total",
			Help: "Notifications marked seen or deleted",
		},
		[]string{"kind"},
	)

	ActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_streams_active",
			Help: "Open notification event streams",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(SnapshotFetchTotal)
	prometheus.MustRegister(SnapshotFetchDuration)
	prometheus.MustRegister(SnapshotMedicines)
	prometheus.MustRegister(UnreadNotifications)
	prometheus.MustRegister(DismissalsTotal)
	prometheus.MustRegister(ActiveStreams)
}
