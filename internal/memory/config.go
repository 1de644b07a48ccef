package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"snapbox/internal/logging"
	"snapbox/internal/metrics"
)

const (
	// DefaultMemoryRatio is the share of the memory budget given to the Go heap.
	// The rest is left for ffmpeg and goroutine stacks.
	DefaultMemoryRatio = 0.75

	// CgroupMemoryMax is the cgroup v2 limit file for the current process.
	CgroupMemoryMax = "/sys/fs/cgroup/memory.max"
)

// Sources of the configured limit.
const (
	SourceGoMemLimit  = "GOMEMLIMIT"
	SourceMemoryLimit = "MEMORY_LIMIT"
	SourceCgroup      = "cgroup"
	SourceNone        = "none"
)

// Result reports what ConfigureFromEnv did.
type Result struct {
	Configured bool
	Source     string
	// Budget is the memory budget in bytes the limit was derived from (0 if none).
	Budget int64
	// GoMemLimit is the configured soft limit in bytes (0 if not set).
	GoMemLimit int64
	Ratio      float64
}

// ConfigureFromEnv sets the Go memory limit from the environment or the cgroup.
func ConfigureFromEnv() Result {
	return Configure(os.Getenv, CgroupMemoryMax)
}

// Configure sets the Go memory limit using getenv for the environment and
// cgroupFile for the cgroup limit. An empty cgroupFile skips the cgroup.
func Configure(getenv func(string) string, cgroupFile string) Result {
	if v := getenv("GOMEMLIMIT"); v != "" {
		result := Result{Source: SourceGoMemLimit}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
			metrics.MemoryLimitBytes.Set(float64(limit))
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return result
	}

	budget, source := budgetFrom(getenv, cgroupFile)
	if budget <= 0 {
		logging.Debug("No memory budget found, GOMEMLIMIT left unset")
		return Result{Source: SourceNone}
	}

	ratio := ratioFrom(getenv("MEMORY_RATIO"))
	limit := int64(float64(budget) * ratio)
	debug.SetMemoryLimit(limit)
	metrics.MemoryLimitBytes.Set(float64(limit))

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s from %s)",
		formatBytes(limit), ratio*100, formatBytes(budget), source)

	return Result{
		Configured: true,
		Source:     source,
		Budget:     budget,
		GoMemLimit: limit,
		Ratio:      ratio,
	}
}

func budgetFrom(getenv func(string) string, cgroupFile string) (int64, string) {
	if v := getenv("MEMORY_LIMIT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			logging.Warn("Ignoring invalid MEMORY_LIMIT %q", v)
		} else {
			return n, SourceMemoryLimit
		}
	}

	if cgroupFile == "" {
		return 0, SourceNone
	}
	data, err := os.ReadFile(cgroupFile)
	if err != nil {
		return 0, SourceNone
	}
	v := strings.TrimSpace(string(data))
	if v == "max" {
		return 0, SourceNone
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		logging.Warn("Ignoring unreadable cgroup limit %q in %s", v, cgroupFile)
		return 0, SourceNone
	}
	return n, SourceCgroup
}

func ratioFrom(v string) float64 {
	if v == "" {
		return DefaultMemoryRatio
	}
	r, err := strconv.ParseFloat(v, 64)
	if err != nil || r <= 0 || r > 1 {
		logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", v, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return r
}

// formatBytes formats bytes into human-readable string
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
