// Package metrics provides Prometheus metrics for the DrugSafe API.
// HTTP collectors:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Domain collectors cover extraction runs, live sessions and the loaded
// reference dataset. Everything is registered with the Prometheus default
// registry during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

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
			Help: "Total number of rate limiter buckets (clients seen since the last sweep)",
		},
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractions_total",
			Help: "Extraction runs by outcome (complete, failed, cancelled)",
		},
		[]string{"outcome"},
	)

	ExtractionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extraction_duration_seconds",
			Help:    "Duration of successful extraction runs",
			Buckets: []float64{.1, .5, 1, 2, 3, 5, 10, 30},
		},
	)

	ExtractionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "extractions_in_flight",
			Help: "Extraction runs currently analyzing",
		},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Dashboard sessions currently held in memory",
		},
	)

	ReferenceRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reference_records",
			Help: "Records in the loaded reference dataset by kind",
		},
		[]string{"kind"},
	)

	ReferenceReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reference_reloads_total",
			Help: "Reference data reload attempts by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(ExtractionsTotal)
	prometheus.MustRegister(ExtractionDuration)
	prometheus.MustRegister(ExtractionsInFlight)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(ReferenceRecords)
	prometheus.MustRegister(ReferenceReloadsTotal)
}
