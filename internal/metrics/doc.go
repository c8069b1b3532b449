// Package metrics provides Prometheus instrumentation for the media index.
//
// All metrics are prefixed with "media_index_" and registered with the
// default registry through promauto. The server exposes them with
// promhttp.Handler() on the metrics port.
//
// # Metric Categories
//
//   - HTTP: request counts, latency and in-flight requests.
//   - Database: query counts and latency by operation, transaction latency,
//     rows affected by bulk operations and SQLite file sizes.
//   - Indexer: build passes per repository and mode, per-file outcomes
//     (added, updated, skipped, failed, deleted), extraction latency and a
//     running gauge.
//   - Index: records by media kind and tag count, refreshed by [Collector].
//   - Iterator: compilations by order, materialized result size, skipped
//     references and exhaustion reasons. Playlist restarts are counted per
//     playlist.
//   - Adapter: per-backend operation latency, failures and bytes
//     downloaded into remote caches.
//   - Filesystem: local repository operation latency and stale NFS handle
//     retries, fed by [FilesystemObserver] once it is installed with
//     filesystem.SetObserver.
//   - Memory: heap usage ratio and extraction pauses of the memory monitor.
//
// # Collector
//
//	collector := metrics.NewCollector(store, indexPath, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Files re-extracted per update pass:
//
//	increase(media_index_indexer_files_processed_total{outcome="updated"}[1d])
//
// Iterator compile latency:
//
//	histogram_quantile(0.95, sum(rate(media_index_iterator_compile_duration_seconds_bucket[5m])) by (le, order))
package metrics
