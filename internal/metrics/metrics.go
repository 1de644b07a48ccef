package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapbox_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapbox_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Capture metrics
var (
	CaptureFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_capture_frames_total",
			Help: "Total number of frames pulled from the camera",
		},
		[]string{"outcome"}, // "discarded", "published", "error"
	)

	CapturePublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapbox_capture_publish_duration_seconds",
			Help:    "Time to crop, encode and write a snapshot",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	CaptureRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapbox_capture_retries_total",
			Help: "Total number of per-frame capture retries",
		},
	)

	CaptureQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapbox_capture_queue_depth",
			Help: "Number of save requests waiting for the capture worker",
		},
	)

	CaptureWorkerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapbox_capture_worker_running",
			Help: "Whether the capture loop is running (1 = running, 0 = stopped)",
		},
	)
)

// Save metrics
var (
	SaveRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_save_requests_total",
			Help: "Total number of save requests",
		},
		[]string{"status"}, // "accepted", "rejected", "archived", "failed"
	)

	SaveSettleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapbox_save_settle_duration_seconds",
			Help:    "Time spent waiting for the snapshot to settle after a save request",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5},
		},
	)

	SaveSettleOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_save_settle_outcomes_total",
			Help: "How the settle wait ended",
		},
		[]string{"outcome"}, // "ack", "mtime", "timeout"
	)
)

// Archive metrics
var (
	ArchiveLabelsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapbox_archive_labels",
			Help: "Number of label directories in the sandbox",
		},
	)

	ArchiveCapturesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapbox_archive_captures",
			Help: "Number of archived captures in the sandbox",
		},
	)

	ArchiveBytesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapbox_archive_bytes",
			Help: "Total size of archived captures in bytes",
		},
	)

	ArchiveDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_archive_deletes_total",
			Help: "Total number of archive deletions",
		},
		[]string{"status"}, // "success", "error", "rejected"
	)

	ArchivePrunedDirsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapbox_archive_pruned_dirs_total",
			Help: "Total number of empty label directories removed",
		},
	)

	TransferFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_transfer_files_total",
			Help: "Total number of files copied to removable media",
		},
		[]string{"mode", "status"}, // mode: "all", "selected"
	)

	TransferBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_transfer_batches_total",
			Help: "Total number of transfer requests",
		},
		[]string{"mode", "status"}, // status: "complete", "partial", "rejected"
	)
)

// Removable media metrics
var (
	RemovableEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_removable_events_total",
			Help: "Total number of block device hotplug events",
		},
		[]string{"action"},
	)
)

// Memory metrics
var (
	MemoryLimitBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapbox_memory_limit_bytes",
			Help: "Configured Go soft memory limit in bytes (0 if unset)",
		},
	)
)

// Worker pool metrics
var (
	PoolJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_pool_jobs_total",
			Help: "Total number of jobs run on the filesystem worker pool",
		},
		[]string{"status"}, // "success", "error", "rejected"
	)

	PoolWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapbox_pool_workers",
			Help: "Number of filesystem pool workers",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapbox_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapbox_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors",
		},
		[]string{"operation", "volume"},
	)
)
