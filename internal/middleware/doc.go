// Package middleware provides the HTTP middleware wrapped around the snapbox API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics keyed by route
//   - gzip compression of JSON and text responses
package middleware
