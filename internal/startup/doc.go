// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - MEDIA_DIR: Media root; derivatives are written beside the assets (default: /media)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_ENABLED: Serve Prometheus metrics on /metrics (default: true)
//   - WATCH_ENABLED: Invalidate derivatives when sources change (default: true)
//   - TRANSCODE_MIN_BYTES: Videos at or below this size are never transcoded (default: 10485760)
//   - TRANSCODE_LOCK_STALE: Age after which an abandoned transcode lock is broken (default: 6h)
//   - PROBE_CACHE_TTL: Lifetime of cached ffprobe results (default: 10m)
//   - FFMPEG_PATH, FFPROBE_PATH: Tool binaries (default: ffmpeg, ffprobe)
//   - RAW_WORKER: RAW decode worker binary (default: next to the executable, then PATH)
//   - RAW_WORKERS: Concurrent RAW decodes (default: CPU count, capped at 4)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//
// Invalid values are logged and their defaults used.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogToolsInit]: ffmpeg, ffprobe and RAW worker availability
//   - [LogWatcherInit]: source watcher state
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: Graceful shutdown
package startup
