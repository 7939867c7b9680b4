package server

import (
	"time"

	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixkit_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixkit_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Image processing metrics
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixkit_operations_total",
			Help: "Total number of image operations",
		},
		[]string{"operation", "status"}, // operation: upscale, matte, annotate, convert
	)

	processingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixkit_processing_duration_seconds",
			Help:    "Decode, transform and encode duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 25},
		},
		[]string{"operation"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixkit_stage_duration_seconds",
			Help:    "Duration of a single pipeline stage in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"stage"},
	)

	outputBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixkit_output_bytes",
			Help:    "Size of encoded outputs in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"format"},
	)

	cacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixkit_cache_requests_total",
			Help: "Prepared-surface cache lookups",
		},
		[]string{"result"}, // result: hit, miss
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixkit_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pixkit_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024, 100 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pixkit_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixkit_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// recordOperation updates the processing metrics for one finished image.
func recordOperation(op pipeline.Operation, format string, res *pipeline.Result, size int, d time.Duration) {
	operationsTotal.WithLabelValues(string(op), "success").Inc()
	processingDuration.WithLabelValues(string(op)).Observe(d.Seconds())
	outputBytes.WithLabelValues(format).Observe(float64(size))
	for _, t := range res.Timings {
		stageDuration.WithLabelValues(string(t.Stage)).Observe(t.Duration.Seconds())
	}
}

func recordFailure(op pipeline.Operation) {
	operationsTotal.WithLabelValues(string(op), "error").Inc()
}

func recordCacheLookup(hit bool) {
	if hit {
		cacheRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheRequestsTotal.WithLabelValues("miss").Inc()
}
