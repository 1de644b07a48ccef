package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"snapbox/internal/metrics"
)

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are path prefixes that are not recorded
	SkipPaths []string
	// Routes are the paths recorded under their own label. Anything else is
	// recorded as "other", or "/public" for static assets.
	Routes []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/health", "/livez", "/readyz"},
		Routes: []string{
			"/",
			"/api/save",
			"/api/list",
			"/api/image",
			"/api/delete",
			"/api/transfer",
			"/api/transfer/all",
			"/api/drives",
			"/api/messages",
			"/version",
		},
	}
}

// Metrics returns a middleware that records Prometheus metrics
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	routes := make(map[string]bool, len(config.Routes))
	for _, r := range config.Routes {
		routes[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newResponseWriter(w)
			start := time.Now()
			next.ServeHTTP(wrapped, r)

			route := routeLabel(routes, r.URL.Path)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// routeLabel maps a request path to a bounded set of label values.
func routeLabel(routes map[string]bool, path string) string {
	switch {
	case routes[path]:
		return path
	case strings.HasPrefix(path, StaticPrefix):
		return strings.TrimSuffix(StaticPrefix, "/")
	default:
		return "other"
	}
}
