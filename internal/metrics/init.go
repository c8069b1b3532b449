package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics(repositories []string) {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, op := range []string{"initialize_schema", "lookup", "upsert", "upsert_tag",
		"mark_all_unverified", "mark_verified", "delete_unverified", "delete_all",
		"delete_orphan_tags", "count", "snapshot", "stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, result := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(result)
	}

	for _, repo := range repositories {
		for _, mode := range []string{"update", "rebuild"} {
			IndexerRunsTotal.WithLabelValues(repo, mode)
		}
		for _, outcome := range []string{"added", "updated", "skipped", "failed", "deleted"} {
			IndexerFilesProcessed.WithLabelValues(repo, outcome)
		}
		IndexerErrors.WithLabelValues(repo)
		IndexerLastRunTimestamp.WithLabelValues(repo)
		IndexerLastRunDuration.WithLabelValues(repo)
	}

	for _, kind := range []string{"image", "video", "unknown"} {
		IndexerExtractionDuration.WithLabelValues(kind)
		IndexRecordsTotal.WithLabelValues(kind)
	}

	for _, order := range []string{"none", "name", "date", "random", "smart"} {
		IteratorCompilesTotal.WithLabelValues(order, "success")
		IteratorCompilesTotal.WithLabelValues(order, "error")
		IteratorCompileDuration.WithLabelValues(order)
	}
	for _, reason := range []string{"end", "smart_time"} {
		IteratorExhaustedTotal.WithLabelValues(reason)
	}

	for _, backend := range []string{"local", "webdav", "rclone", "s3"} {
		for _, op := range []string{"enumerate", "resolve", "download"} {
			AdapterOperationDuration.WithLabelValues(backend, op)
			AdapterOperationErrors.WithLabelValues(backend, op)
		}
		AdapterDownloadBytes.WithLabelValues(backend)
	}

	for _, op := range []string{"stat", "open", "readdir"} {
		for _, vol := range []string{"media", "cache", "database", "unknown"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
