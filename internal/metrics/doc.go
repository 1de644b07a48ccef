// Package metrics provides Prometheus instrumentation for snapbox.
//
// All metrics are prefixed with "snapbox_".
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Capture Metrics
//
// The capture worker reports every frame it pulls from the camera, whether it was
// discarded to keep the stream alive or published as the snapshot:
//   - CaptureFramesTotal: frames by outcome ("discarded", "published", "error")
//   - CapturePublishDuration: crop + encode + write time
//   - CaptureRetriesTotal: per-frame capture retries
//   - CaptureQueueDepth: pending save requests in the worker mailbox
//   - CaptureWorkerRunning: 1 while the capture loop is alive
//
// ## Save Metrics
//   - SaveRequestsTotal: save requests by status
//   - SaveSettleDuration: time spent waiting for the snapshot to settle
//   - SaveSettleOutcomesTotal: "ack", "mtime" or "timeout"
//
// ## Archive Metrics
//   - ArchiveLabelsTotal, ArchiveCapturesTotal, ArchiveBytesTotal (collected periodically)
//   - ArchiveDeletesTotal, ArchivePrunedDirsTotal
//   - TransferFilesTotal, TransferBatchesTotal
//
// ## Removable Media Metrics
//   - RemovableEventsTotal: udev block device events by action
//
// ## Runtime Metrics
//   - MemoryLimitBytes: the Go soft memory limit set by package memory
//   - PoolWorkers, PoolJobsTotal: the filesystem worker pool
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer implementation in observer.go so the
// filesystem package stays free of a metrics import.
//
// # Usage
//
//	metrics.SaveRequestsTotal.WithLabelValues("accepted").Inc()
//
// Call InitializeMetrics once at startup so every label combination is exported from
// the first scrape.
package metrics
