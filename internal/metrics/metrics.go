package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Variant generation metrics
var (
	VariantGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_generations_total",
			Help: "Total number of derivative generations",
		},
		[]string{"kind", "status"}, // kind: image, thumbnail, transcode
	)

	VariantGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_variants_generation_duration_seconds",
			Help:    "Derivative generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 120, 600},
		},
		[]string{"kind"},
	)

	VariantCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_cache_hits_total",
			Help: "Total number of requests served from an existing cache entry",
		},
		[]string{"kind"},
	)

	VariantCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_cache_misses_total",
			Help: "Total number of requests that required generation",
		},
		[]string{"kind"},
	)

	VariantSharedInflight = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_shared_inflight_total",
			Help: "Total number of requests that joined an in-flight generation",
		},
		[]string{"kind"},
	)

	SourceResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_source_resolutions_total",
			Help: "Total number of source resolutions by resulting source kind",
		},
		[]string{"source"},
	)
)

// RAW worker metrics
var (
	RawWorkerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_raw_worker_runs_total",
			Help: "Total number of RAW decode worker invocations",
		},
		[]string{"status"},
	)

	RawWorkerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_variants_raw_worker_duration_seconds",
			Help:    "RAW decode worker run time in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	RawWorkersInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_variants_raw_workers_in_flight",
			Help: "Number of RAW decode worker processes currently running",
		},
	)

	AutoLevelApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_autolevel_total",
			Help: "Total number of auto-level estimates by outcome",
		},
		[]string{"outcome"}, // applied, skipped
	)
)

// Transcoder metrics
var (
	TranscodeDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_transcode_decisions_total",
			Help: "Total number of transcode coordinator decisions by outcome",
		},
		[]string{"outcome"},
	)

	TranscodeJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_variants_transcode_job_duration_seconds",
			Help:    "Transcoding job duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	TranscodeJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_variants_transcode_jobs_in_progress",
			Help: "Number of transcoding jobs currently in progress",
		},
	)
)

// Retry metrics
var (
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_retry_attempts_total",
			Help: "Total number of retries after a transient failure",
		},
		[]string{"operation"},
	)

	RetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_retry_success_total",
			Help: "Total number of operations that succeeded after at least one retry",
		},
		[]string{"operation"},
	)

	RetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_retry_failures_total",
			Help: "Total number of operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	RetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_variants_retry_duration_seconds",
			Help:    "Total time spent in a retried operation including backoff",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 300},
		},
		[]string{"operation"},
	)
)

// Watcher and lookup cache metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_variants_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_variants_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)

	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_variants_cache_invalidations_total",
			Help: "Total number of derivative files removed after a source change",
		},
	)

	LookupCacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_variants_lookup_cache_entries",
			Help: "Number of entries in the in-process lookup caches",
		},
		[]string{"cache"},
	)

	LookupCacheHits = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_variants_lookup_cache_hits",
			Help: "Cumulative hits of the in-process lookup caches",
		},
		[]string{"cache"},
	)

	LookupCacheMisses = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_variants_lookup_cache_misses",
			Help: "Cumulative misses of the in-process lookup caches",
		},
		[]string{"cache"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_variants_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_variants_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_variants_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_variants_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_variants_memory_paused",
			Help: "1 while image generation is paused for memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_variants_memory_gc_pauses_total",
			Help: "Total number of times generation paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_variants_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
