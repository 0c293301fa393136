// Package metrics registers the Prometheus instruments for the like engine
// and the HTTP surface.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Like engine metrics
	TogglesTotal        *prometheus.CounterVec   // result: liked|unliked|error
	ToggleDuration      prometheus.Histogram
	CounterFallbacks    *prometheus.CounterVec   // op: count|status
	SyncOutcomesTotal   *prometheus.CounterVec   // result: ok|error|dropped
	SyncQueueDepth      prometheus.Gauge
	ReconcileRunsTotal  prometheus.Counter
	ReconcileDriftTotal *prometheus.CounterVec // direction: redis_wins|durable_wins

	// Rate limiting
	RateLimitExceededTotal prometheus.Counter
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "photofeed_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "photofeed_http_request_duration_seconds",
					Help:    "HTTP request latency",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),
			TogglesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "photofeed_like_toggles_total",
					Help: "Like toggle operations by result",
				},
				[]string{"result"},
			),
			ToggleDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "photofeed_like_toggle_duration_seconds",
					Help:    "Latency of the atomic toggle round trip",
					Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
				},
			),
			CounterFallbacks: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "photofeed_like_counter_fallbacks_total",
					Help: "Reads served from the durable store because Redis was unreachable",
				},
				[]string{"op"},
			),
			SyncOutcomesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "photofeed_like_sync_outcomes_total",
					Help: "Durable sync attempts by result",
				},
				[]string{"result"},
			),
			SyncQueueDepth: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "photofeed_like_sync_queue_depth",
					Help: "Outcomes waiting in the durable sync queue",
				},
			),
			ReconcileRunsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "photofeed_like_reconcile_runs_total",
					Help: "Completed reconciliation passes",
				},
			),
			ReconcileDriftTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "photofeed_like_reconcile_drift_total",
					Help: "Counters corrected during reconciliation, by winning store",
				},
				[]string{"direction"},
			),
			RateLimitExceededTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "photofeed_rate_limit_exceeded_total",
					Help: "Requests rejected by the rate limiter",
				},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it on first use
func Get() *Metrics {
	return Initialize()
}
