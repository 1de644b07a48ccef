package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"snapbox/internal/startup"
)

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		running    func() bool
		wantCode   int
		wantStatus string
	}{
		{"capture running", func() bool { return true }, http.StatusOK, statusHealthy},
		{"capture stopped", func() bool { return false }, http.StatusServiceUnavailable, statusDegraded},
		{"no capture", nil, http.StatusServiceUnavailable, statusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.h.CaptureRunning = tt.running
			f.h.PendingCaptures = func() int { return 2 }
			f.write(t, "box/a.jpg", "12345")

			w := get(f.h.HealthCheck, "/health")
			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.PendingCaptures != 2 || resp.Labels != 1 || resp.Captures != 1 || resp.Bytes != 5 {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestLivenessCheck(t *testing.T) {
	t.Parallel()

	h := &Handlers{}

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		req := httptest.NewRequest(method, "/livez", http.NoBody)
		w := httptest.NewRecorder()
		h.LivenessCheck(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", method, w.Code)
		}
		if method == http.MethodHead && w.Body.Len() != 0 {
			t.Error("HEAD response has a body")
		}
	}
}

func TestReadinessCheck(t *testing.T) {
	t.Parallel()

	ready := &Handlers{Deps: Deps{CaptureRunning: func() bool { return true }}}
	notReady := &Handlers{}

	w := get(ready.ReadinessCheck, "/readyz")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ready"`) {
		t.Errorf("ready: %d %s", w.Code, w.Body.String())
	}

	w = get(notReady.ReadinessCheck, "/readyz")
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "not_ready") {
		t.Errorf("not ready: %d %s", w.Code, w.Body.String())
	}
}

func TestGetVersion(t *testing.T) {
	t.Parallel()

	h := &Handlers{}
	w := get(h.GetVersion, "/version")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}

	var info startup.BuildInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if info.Version != startup.Version {
		t.Errorf("Version = %q, want %q", info.Version, startup.Version)
	}
}

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	h := &Handlers{}
	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	w := httptest.NewRecorder()
	h.MetricsHandler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "# HELP") {
		t.Error("Expected Prometheus metrics format with HELP comments")
	}
}

func TestWriteJSONError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	writeJSONError(w, "Invalid path", http.StatusBadRequest)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"error":"Invalid path"}` {
		t.Errorf("body = %s", got)
	}
}
