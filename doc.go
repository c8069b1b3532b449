// Package main is the entry point of the media index server.
//
// The server keeps a SQLite index of the image and video metadata found in
// one or more media repositories and serves playlists over that index.
//
// # Application Lifecycle
//
//  1. Memory Configuration: sets GOMEMLIMIT from MEMORY_LIMIT when present
//  2. Configuration Loading: reads .env, the environment and the config file
//  3. Index Initialization: opens the SQLite index in WAL mode
//  4. Repository Setup: opens local, WebDAV, rclone and S3 repositories
//  5. Indexer Start: queues every repository with its update schedule
//  6. HTTP Server Setup: admin API and optional metrics server
//  7. Graceful Shutdown: on SIGINT or SIGTERM
//
// # Background Services
//
//   - Scheduler: indexes every queued repository at start, then on schedule
//   - Memory Monitor: pauses metadata extraction under memory pressure
//   - Metrics Collector: updates index gauges every minute
//
// # HTTP Servers
//
//  1. Admin server (PORT, default 8080): health probes, index statistics,
//     manual re-indexing and playlist navigation under /api
//  2. Metrics server (METRICS_PORT, default 9090, optional): /metrics
//
// # Graceful Shutdown
//
//  1. Stop the scheduler; extractions already finished are still written
//  2. Stop the memory monitor and metrics collector
//  3. Shut down the HTTP servers (30s timeout)
//  4. Close the repositories, removing their download caches
//  5. Close the index database
//
// See [media-index/internal/startup] for the environment variables and
// the config file format.
package main
