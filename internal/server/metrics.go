package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "footprint_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "footprint_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Refinement metrics
	refineRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "footprint_refine_requests_total",
			Help: "Total number of refine requests by response format and outcome",
		},
		[]string{"format", "status"}, // status: ok, input, too_large, precondition, output
	)

	refineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "footprint_refine_stage_duration_seconds",
			Help:    "Duration of each refinement stage in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"stage"},
	)

	refineComponentsRemoved = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "footprint_refine_components_removed",
			Help:    "Number of small components removed per refinement",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 500},
		},
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "footprint_rate_limit_hits_total",
			Help: "Total number of rejected requests by exhausted limit",
		},
		[]string{"type"}, // type: minute, hour, requests, bytes
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "footprint_upload_size_bytes",
			Help:    "Size of uploaded rasters in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024, 100 * 1024 * 1024},
		},
	)
)

// observeStage feeds pipeline stage timings into the stage histogram.
func observeStage(stage string, d time.Duration) {
	refineStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
