package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"snapbox/internal/logging"
)

// fileSettings mirrors the optional TOML config file. Environment variables take
// precedence over anything set here.
type fileSettings struct {
	SandboxDir      string `toml:"sandbox_dir"`
	StaticDir       string `toml:"static_dir"`
	SnapshotPath    string `toml:"snapshot_path"`
	RemovableRoot   string `toml:"removable_root"`
	LockFile        string `toml:"lock_file"`
	Port            string `toml:"port"`
	MetricsPort     string `toml:"metrics_port"`
	MetricsEnabled  *bool  `toml:"metrics_enabled"`
	LogLevel        string `toml:"log_level"`
	LogStaticFiles  *bool  `toml:"log_static_files"`
	LogHealthChecks *bool  `toml:"log_health_checks"`
	StatsInterval   string `toml:"stats_interval"`

	Camera struct {
		Device        string `toml:"device"`
		Mode          string `toml:"mode"`
		PixelFormat   string `toml:"pixel_format"`
		FrameInterval string `toml:"frame_interval"`
		JPEGQuality   int    `toml:"jpeg_quality"`
		Retries       *int   `toml:"retries"`
	} `toml:"camera"`

	Save struct {
		PollInterval string `toml:"poll_interval"`
		PollAttempts int    `toml:"poll_attempts"`
	} `toml:"save"`
}

// loadFile decodes the TOML file at path. A missing file is an error only when
// the path was given explicitly.
func loadFile(path string) (*fileSettings, error) {
	settings := &fileSettings{}
	if path == "" {
		return settings, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(settings); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return settings, nil
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func orBool(value *bool, fallback bool) bool {
	if value != nil {
		return *value
	}
	return fallback
}

func orInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// parseDuration parses a duration from the config file, returning fallback for an
// empty or invalid value.
func parseDuration(name, value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logging.Warn("Invalid %s in config file: %q, using default: %v", name, value, fallback)
		return fallback
	}
	return d
}
