// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is loaded from environment variables via [LoadConfig]. A
// .env file in the working directory is read first; variables already set
// in the environment win. The following variables are supported:
//
//   - INDEX_PATH: Path of the SQLite index (default: /database/index.db)
//   - CACHE_DIR: Download cache of remote repositories (default: /cache)
//   - CONFIG_FILE: YAML repository and playlist file (default: /config/media-index.yaml)
//   - MEDIA_DIR: Local repository used when no config file exists (default: /media)
//   - PORT: Admin HTTP port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_DIR: Also write logs to a rotated file in this directory
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//   - INDEX_WORKERS: Metadata extraction workers (default: based on CPUs)
//   - INDEX_UPDATE_INTERVAL: Default update interval as Go duration, 0 to index once (default: 30m)
//   - INDEX_UPDATE_AT: Default daily update time as HH:MM, overrides the interval
//
// # Config File
//
// The config file lists repositories by id and playlists by name:
//
//	repositories:
//	  photos:
//	    type: local
//	    root: /media/photos
//	  cloud:
//	    type: webdav
//	    url: https://dav.example.com
//	    user: media
//	    password: ${WEBDAV_PASSWORD}
//	    index_update_at: "03:30"
//	playlists:
//	  recent:
//	    most_recent: 100
//	    order: date
//	    direction: descending
//
// Repository types are local, webdav, rclone and s3. Unknown keys are
// rejected.
//
// # Startup Logging
//
// Startup is logged in sections (system information, configuration,
// directories, repositories, indexer, HTTP routes), and shutdown steps are
// logged as they complete.
package startup
