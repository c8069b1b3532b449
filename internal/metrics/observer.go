package metrics

import "media-index/internal/filesystem"

// FilesystemObserver records filesystem events into the Filesystem* metrics.
type FilesystemObserver struct{}

// NewFilesystemObserver returns the observer to install with
// filesystem.SetObserver.
func NewFilesystemObserver() FilesystemObserver {
	return FilesystemObserver{}
}

// Observe implements filesystem.Observer.
func (FilesystemObserver) Observe(e filesystem.Event) {
	seconds := e.Elapsed.Seconds()
	switch e.Outcome {
	case filesystem.OutcomeDone:
		FilesystemOperationDuration.WithLabelValues(e.Volume, e.Operation).Observe(seconds)
		if e.Err != nil {
			FilesystemOperationErrors.WithLabelValues(e.Volume, e.Operation).Inc()
		}
	case filesystem.OutcomeStale:
		FilesystemStaleErrors.WithLabelValues(e.Operation, e.Volume).Inc()
	case filesystem.OutcomeRetry:
		FilesystemRetryAttempts.WithLabelValues(e.Operation, e.Volume).Inc()
	case filesystem.OutcomeRecovered:
		FilesystemRetrySuccess.WithLabelValues(e.Operation, e.Volume).Inc()
		FilesystemRetryDuration.WithLabelValues(e.Operation, e.Volume).Observe(seconds)
	case filesystem.OutcomeExhausted:
		FilesystemRetryFailures.WithLabelValues(e.Operation, e.Volume).Inc()
		FilesystemRetryDuration.WithLabelValues(e.Operation, e.Volume).Observe(seconds)
	}
}
