package metrics

// Volume labels used by the filesystem observer.
var volumes = []string{"sandbox", "snapshot", "removable", "unknown"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range []string{"discarded", "published", "error"} {
		CaptureFramesTotal.WithLabelValues(outcome)
	}

	for _, status := range []string{"accepted", "rejected", "archived", "failed"} {
		SaveRequestsTotal.WithLabelValues(status)
	}
	for _, outcome := range []string{"ack", "mtime", "timeout"} {
		SaveSettleOutcomesTotal.WithLabelValues(outcome)
	}

	for _, status := range []string{"success", "error", "rejected"} {
		ArchiveDeletesTotal.WithLabelValues(status)
		PoolJobsTotal.WithLabelValues(status)
	}

	for _, mode := range []string{"all", "selected"} {
		TransferFilesTotal.WithLabelValues(mode, "success")
		TransferFilesTotal.WithLabelValues(mode, "error")
		for _, status := range []string{"complete", "partial", "rejected"} {
			TransferBatchesTotal.WithLabelValues(mode, status)
		}
	}

	for _, action := range []string{"add", "remove", "change"} {
		RemovableEventsTotal.WithLabelValues(action)
	}

	fsOps := []string{"stat", "open", "readdir", "copy", "remove", "mkdir"}
	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}
}
