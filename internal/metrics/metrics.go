package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_transcoder_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watch_transcoder_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watch_transcoder_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_transcoder_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watch_transcoder_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watch_transcoder_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Transcode job metrics
var (
	JobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_transcoder_jobs_submitted_total",
			Help: "Total number of transcode submissions by outcome",
		},
		[]string{"outcome"}, // "queued", "cache_hit", "coalesced"
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_transcoder_jobs_completed_total",
			Help: "Total number of finished transcode jobs by terminal status",
		},
		[]string{"status"}, // "completed", "failed", "timeout"
	)

	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "watch_transcoder_job_duration_seconds",
			Help:    "Transcode job duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watch_transcoder_jobs_in_progress",
			Help: "Number of transcode jobs currently processing",
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watch_transcoder_queue_depth",
			Help: "Number of transcode jobs waiting for a worker slot",
		},
	)
)

// Rendition cache metrics
var (
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_transcoder_cache_hits_total",
			Help: "Total number of rendition cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_transcoder_cache_misses_total",
			Help: "Total number of rendition cache misses",
		},
	)

	CacheSelfHealsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_transcoder_cache_self_heals_total",
			Help: "Total number of stale cache rows removed on lookup",
		},
	)
)

// Janitor metrics
var (
	JanitorSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_transcoder_janitor_sweeps_total",
			Help: "Total number of janitor sweeps",
		},
	)

	JanitorEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_transcoder_janitor_evictions_total",
			Help: "Total number of cache entries evicted by the janitor",
		},
	)

	JanitorErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_transcoder_janitor_errors_total",
			Help: "Total number of file deletion errors during janitor sweeps",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "watch_transcoder_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
