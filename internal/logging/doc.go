// Package logging provides the leveled logger used across snapbox.
//
// Levels, lowest first:
//   - DEBUG: per-frame and per-request detail
//   - INFO: lifecycle and completed operations
//   - WARN: degraded but recoverable conditions (settle timeouts, prune failures)
//   - ERROR: request-scoped failures
//   - FATAL: capture subsystem failures; terminates the process
//
// The level comes from LOG_LEVEL, or DEBUG=1 as a shortcut. Components that want a
// fixed prefix on every line use For:
//
//	log := logging.For("capture")
//	log.Info("stream started at %dx%d", w, h)
package logging
