package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"snapbox/internal/logging"
	"snapbox/internal/workers"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Camera modes
const (
	CameraModeV4L2 = "v4l2"
	CameraModeFake = "fake"
)

// Config holds all application configuration
type Config struct {
	ConfigFile string

	SandboxDir    string
	StaticDir     string
	SnapshotPath  string
	RemovableRoot string
	LockFile      string

	CameraDevice   string
	CameraMode     string
	PixelFormat    string
	FrameInterval  time.Duration
	JPEGQuality    int
	CaptureRetries int

	SavePollInterval time.Duration
	SavePollAttempts int

	FSWorkers     int
	StatsInterval time.Duration

	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogStaticFiles  bool
	LogHealthChecks bool
}

// LoadConfig loads and validates configuration from environment variables, on top
// of the TOML file named by CONFIG_FILE if set.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	configFile := os.Getenv("CONFIG_FILE")
	file, err := loadFile(configFile)
	if err != nil {
		return nil, err
	}
	if configFile != "" {
		logging.Info("  CONFIG_FILE:         %s", configFile)
	}

	if level := getEnv("LOG_LEVEL", file.LogLevel); level != "" {
		logging.SetLevel(logging.ParseLevel(level))
	}

	config := &Config{
		ConfigFile:    configFile,
		SandboxDir:    getEnv("SANDBOX_DIR", or(file.SandboxDir, "./saved")),
		StaticDir:     getEnv("STATIC_DIR", or(file.StaticDir, "./static")),
		RemovableRoot: getEnv("REMOVABLE_ROOT", or(file.RemovableRoot, "/media/")),
		LockFile:      getEnv("LOCK_FILE", or(file.LockFile, filepath.Join(os.TempDir(), "snapbox.lock"))),

		CameraDevice:   getEnv("CAMERA_DEVICE", or(file.Camera.Device, "/dev/video0")),
		CameraMode:     strings.ToLower(getEnv("CAMERA_MODE", or(file.Camera.Mode, CameraModeV4L2))),
		PixelFormat:    getEnv("PIXEL_FORMAT", or(file.Camera.PixelFormat, "RGB3")),
		FrameInterval:  getEnvDuration("FRAME_INTERVAL", parseDuration("camera.frame_interval", file.Camera.FrameInterval, time.Second/15)),
		JPEGQuality:    getEnvInt("JPEG_QUALITY", orInt(file.Camera.JPEGQuality, 90)),
		CaptureRetries: getEnvInt("CAPTURE_RETRIES", 3),

		SavePollInterval: getEnvDuration("SAVE_POLL_INTERVAL", parseDuration("save.poll_interval", file.Save.PollInterval, 25*time.Millisecond)),
		SavePollAttempts: getEnvInt("SAVE_POLL_ATTEMPTS", orInt(file.Save.PollAttempts, 40)),

		FSWorkers:     workers.ForIO(4),
		StatsInterval: getEnvDuration("STATS_INTERVAL", parseDuration("stats_interval", file.StatsInterval, time.Minute)),

		Port:            getEnv("PORT", or(file.Port, "8080")),
		MetricsPort:     getEnv("METRICS_PORT", or(file.MetricsPort, "9090")),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", orBool(file.MetricsEnabled, true)),
		LogStaticFiles:  getEnvBool("LOG_STATIC_FILES", orBool(file.LogStaticFiles, false)),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", orBool(file.LogHealthChecks, true)),
	}
	if file.Camera.Retries != nil && os.Getenv("CAPTURE_RETRIES") == "" {
		config.CaptureRetries = *file.Camera.Retries
	}
	config.SnapshotPath = getEnv("SNAPSHOT_PATH", or(file.SnapshotPath, filepath.Join(config.StaticDir, "latest.jpg")))

	logging.Info("  SANDBOX_DIR:         %s", config.SandboxDir)
	logging.Info("  STATIC_DIR:          %s", config.StaticDir)
	logging.Info("  SNAPSHOT_PATH:       %s", config.SnapshotPath)
	logging.Info("  REMOVABLE_ROOT:      %s", config.RemovableRoot)
	logging.Info("  LOCK_FILE:           %s", config.LockFile)
	logging.Info("  CAMERA_DEVICE:       %s", config.CameraDevice)
	logging.Info("  CAMERA_MODE:         %s", config.CameraMode)
	logging.Info("  PIXEL_FORMAT:        %s", config.PixelFormat)
	logging.Info("  FRAME_INTERVAL:      %v", config.FrameInterval)
	logging.Info("  JPEG_QUALITY:        %d", config.JPEGQuality)
	logging.Info("  CAPTURE_RETRIES:     %d", config.CaptureRetries)
	logging.Info("  SAVE_POLL_INTERVAL:  %v", config.SavePollInterval)
	logging.Info("  SAVE_POLL_ATTEMPTS:  %d", config.SavePollAttempts)
	logging.Info("  FS_WORKERS:          %d", config.FSWorkers)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  LOG_STATIC_FILES:    %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if err := config.validate(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := config.resolvePaths(); err != nil {
		return nil, err
	}
	logging.Info("  Sandbox directory (absolute): %s", config.SandboxDir)
	logging.Info("  Static directory (absolute):  %s", config.StaticDir)

	// The archive must be writable
	if err := ensureDirectory(config.SandboxDir, "sandbox"); err != nil {
		return nil, fmt.Errorf("sandbox directory error: %w", err)
	}
	logging.Debug("  Testing sandbox directory write access...")
	if err := testWriteAccess(config.SandboxDir); err != nil {
		return nil, fmt.Errorf("sandbox directory is not writable: %w", err)
	}
	logging.Info("  [OK] Sandbox directory is writable")

	if err := ensureDirectory(filepath.Dir(config.SnapshotPath), "snapshot"); err != nil {
		return nil, fmt.Errorf("snapshot directory error: %w", err)
	}
	logging.Info("  [OK] Snapshot directory ready")

	// Removable media is optional; drives may be mounted later
	removable := true
	if info, err := os.Stat(config.RemovableRoot); err != nil || !info.IsDir() {
		logging.Warn("  Removable media root %s is not available yet", config.RemovableRoot)
		removable = false
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Archive:         ENABLED (required)")
	logging.Info("    Removable media: %s", enabledString(removable))
	logging.Info("    Metrics:         %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func (c *Config) validate() error {
	switch c.CameraMode {
	case CameraModeV4L2, CameraModeFake:
	default:
		return fmt.Errorf("invalid CAMERA_MODE %q (want %s or %s)", c.CameraMode, CameraModeV4L2, CameraModeFake)
	}
	if len(c.PixelFormat) != 4 {
		return fmt.Errorf("invalid PIXEL_FORMAT %q: must be a four character code", c.PixelFormat)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("invalid JPEG_QUALITY %d: must be between 1 and 100", c.JPEGQuality)
	}
	if c.CaptureRetries < 0 {
		return fmt.Errorf("invalid CAPTURE_RETRIES %d: must not be negative", c.CaptureRetries)
	}
	if c.SavePollAttempts < 1 {
		return fmt.Errorf("invalid SAVE_POLL_ATTEMPTS %d: must be at least 1", c.SavePollAttempts)
	}
	return nil
}

// resolvePaths makes every path absolute. Sandbox roots keep a trailing separator
// so that "/media" does not also admit "/mediafoo".
func (c *Config) resolvePaths() error {
	for _, p := range []*string{&c.SandboxDir, &c.StaticDir, &c.SnapshotPath, &c.LockFile, &c.RemovableRoot} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", *p, err)
		}
		*p = abs
	}
	c.SandboxDir = withSeparator(c.SandboxDir)
	c.RemovableRoot = withSeparator(c.RemovableRoot)
	return nil
}

func withSeparator(dir string) string {
	return strings.TrimSuffix(dir, string(filepath.Separator)) + string(filepath.Separator)
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogCameraInit logs camera initialization and checks the external tools the
// V4L2 backend needs.
func LogCameraInit(mode, device string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CAMERA INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if mode == CameraModeFake {
		logging.Warn("  Using synthetic camera frames (CAMERA_MODE=fake)")
		return
	}

	logging.Info("  Device: %s", device)
	for _, tool := range []string{"ffmpeg", "v4l2-ctl"} {
		if err := checkTool(tool); err != nil {
			logging.Warn("  %s check failed: %v", tool, err)
		} else {
			logging.Info("  [OK] %s is available", tool)
		}
	}
}

// LogCameraStarted logs the negotiated stream.
func LogCameraStarted(stream string, duration time.Duration) {
	logging.Info("  [OK] Camera streaming %s (opened in %v)", stream, duration)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	logging.Info("    Snapshot:      http://0.0.0.0:%s/public/latest.jpg", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
                            __
   _________  ____ _____  / /_  ____  _  __
  / ___/ __ \/ __ '/ __ \/ __ \/ __ \| |/_/
 (__  ) / / / /_/ / /_/ / /_/ / /_/ />  <
/____/_/ /_/\__,_/ .___/_.___/\____/_/|_|
                /_/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "sandbox" && logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(path); err == nil {
			logging.Debug("    Contents: %d labels (top level)", len(entries))
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkTool(name string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", name, path)

	if name != "ffmpeg" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "ffmpeg", "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(lines[0]))
	}

	return nil
}
