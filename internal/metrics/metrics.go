package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_index_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_index_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_db_queries_total",
			Help: "Total number of index database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_index_db_query_duration_seconds",
			Help:    "Index database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_index_db_transaction_duration_seconds",
			Help:    "Index database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"result"},
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_index_db_rows_affected",
			Help:    "Rows affected by bulk index operations",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_index_db_connections_open",
			Help: "Number of open index database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_index_db_size_bytes",
			Help: "Size of SQLite index files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_indexer_runs_total",
			Help: "Total number of build passes by repository and mode",
		},
		[]string{"repository", "mode"},
	)

	IndexerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_index_indexer_last_run_timestamp",
			Help: "Timestamp of the last completed build pass",
		},
		[]string{"repository"},
	)

	IndexerLastRunDuration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_index_indexer_last_run_duration_seconds",
			Help: "Duration of the last build pass in seconds",
		},
		[]string{"repository"},
	)

	IndexerFilesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_indexer_files_processed_total",
			Help: "Files handled by build passes, by outcome",
		},
		[]string{"repository", "outcome"}, // added, updated, skipped, failed, deleted
	)

	IndexerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_indexer_errors_total",
			Help: "Build passes aborted by an enumeration error",
		},
		[]string{"repository"},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_index_indexer_running",
			Help: "Whether a build pass is currently running (1 = running, 0 = idle)",
		},
	)

	IndexerExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_index_indexer_extraction_duration_seconds",
			Help:    "Metadata extraction time per file",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)
)

// Index content metrics
var (
	IndexRecordsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_index_records_total",
			Help: "Metadata records in the index by kind",
		},
		[]string{"kind"},
	)

	IndexTagsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_index_tags_total",
			Help: "Tags in the index",
		},
	)
)

// Iterator metrics
var (
	IteratorCompilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_iterator_compiles_total",
			Help: "Selective iterator compilations by order and status",
		},
		[]string{"order", "status"},
	)

	IteratorCompileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_index_iterator_compile_duration_seconds",
			Help:    "Time to validate, query and materialize an iterator",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"order"},
	)

	IteratorResultSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_index_iterator_result_size",
			Help:    "Number of references materialized per iterator",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	IteratorSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_index_iterator_skipped_total",
			Help: "References skipped because the file no longer resolves",
		},
	)

	IteratorExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_iterator_exhausted_total",
			Help: "Iterators that signalled exhaustion, by reason",
		},
		[]string{"reason"}, // end, smart_time
	)

	PlaylistRestartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_playlist_restarts_total",
			Help: "Playlist iterator recompilations after exhaustion",
		},
		[]string{"playlist"},
	)
)

// Repository adapter metrics
var (
	AdapterOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_index_adapter_operation_duration_seconds",
			Help:    "Repository adapter operation duration",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"backend", "operation"}, // operation: enumerate, resolve, download
	)

	AdapterOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_adapter_operation_errors_total",
			Help: "Repository adapter operation failures",
		},
		[]string{"backend", "operation"},
	)

	AdapterDownloadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_adapter_download_bytes_total",
			Help: "Bytes downloaded into remote repository caches",
		},
		[]string{"backend"},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_index_filesystem_operation_duration_seconds",
			Help:    "Local filesystem operation duration by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_filesystem_operation_errors_total",
			Help: "Local filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_filesystem_retry_attempts_total",
			Help: "Retries caused by stale NFS file handles",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_index_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_index_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retrying filesystem operations",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_index_memory_usage_ratio",
			Help: "Heap usage as a ratio of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_index_memory_paused",
			Help: "Whether metadata extraction is paused by memory pressure (1 = paused)",
		},
	)

	MemoryPausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_index_memory_pauses_total",
			Help: "Number of times metadata extraction was paused by memory pressure",
		},
	)
)

// Application info
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "media_index_app_info",
		Help: "Build information, constant 1",
	},
	[]string{"version", "commit", "go_version"},
)
