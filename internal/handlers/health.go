package handlers

import (
	"net/http"
	"runtime"
	"time"

	"snapbox/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	CaptureRunning  bool `json:"captureRunning"`
	PendingCaptures int  `json:"pendingCaptures"`

	// Removable media
	HotplugWatching bool   `json:"hotplugWatching"`
	LastDriveEvent  string `json:"lastDriveEvent,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Archive summary
	Labels   int   `json:"labels"`
	Captures int   `json:"captures"`
	Bytes    int64 `json:"bytes"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	running := h.captureRunning()

	response := HealthResponse{
		Ready:          running,
		Version:        startup.Version,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		CaptureRunning: running,
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}

	if h.PendingCaptures != nil {
		response.PendingCaptures = h.PendingCaptures()
	}

	if h.Watcher != nil {
		response.HotplugWatching = h.Watcher.Running()
		if ev := h.Watcher.LastEvent(); !ev.At.IsZero() {
			response.LastDriveEvent = ev.Action + " " + ev.Device + " at " + ev.At.Format(time.RFC3339)
		}
	}

	if h.Store != nil {
		stats := h.Store.Stats()
		response.Labels = stats.Labels
		response.Captures = stats.Captures
		response.Bytes = stats.Bytes
	}

	w.Header().Set("Content-Type", "application/json")

	if running {
		response.Status = statusHealthy
		w.WriteHeader(http.StatusOK)
	} else {
		response.Status = statusDegraded
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only while the capture worker is running
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.captureRunning() {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}
