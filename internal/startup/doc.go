// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is loaded by [LoadConfig] from environment variables. If
// CONFIG_FILE names a TOML file, its values replace the built-in defaults and
// environment variables still win. Supported variables:
//
//   - CONFIG_FILE: Optional TOML config file
//   - SANDBOX_DIR: Archive root; every mutating request must stay below it (default: ./saved)
//   - STATIC_DIR: Directory served under /public (default: ./static)
//   - SNAPSHOT_PATH: Live snapshot written by the camera worker (default: STATIC_DIR/latest.jpg)
//   - REMOVABLE_ROOT: Mount root for transfer targets (default: /media/)
//   - LOCK_FILE: Single-instance lock (default: $TMPDIR/snapbox.lock)
//   - CAMERA_DEVICE: V4L2 device node (default: /dev/video0)
//   - CAMERA_MODE: v4l2 or fake (default: v4l2)
//   - PIXEL_FORMAT: Capture fourcc (default: RGB3)
//   - FRAME_INTERVAL: Requested frame interval as Go duration (default: 66.666666ms)
//   - JPEG_QUALITY: Snapshot JPEG quality 1-100 (default: 90)
//   - CAPTURE_RETRIES: Frame read retries before the camera is declared failed (default: 3)
//   - SAVE_POLL_INTERVAL: Snapshot settle poll interval (default: 25ms)
//   - SAVE_POLL_ATTEMPTS: Snapshot settle poll attempts (default: 40)
//   - FS_WORKERS: Filesystem worker pool size (default: 2x CPUs, max 4)
//   - STATS_INTERVAL: Archive statistics refresh interval (default: 1m)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// The memory limit variables (GOMEMLIMIT, MEMORY_LIMIT, MEMORY_RATIO) are read
// earlier by package memory. The --config flag sets CONFIG_FILE.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogCameraInit]: Camera mode and external tool availability
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: Graceful shutdown
package startup
