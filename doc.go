// Package main is the entry point for snapbox, a single-camera capture appliance.
//
// snapbox keeps the camera streaming, publishes the current frame as a square JPEG
// snapshot when a client asks to save it, and archives that snapshot under a label
// in a sandboxed directory. Archived captures can be browsed, deleted and copied to
// removable media over HTTP.
//
// # Application Lifecycle
//
//  1. Memory configuration: sets GOMEMLIMIT from the environment or the cgroup
//  2. Configuration loading: environment variables over an optional TOML file
//  3. Lock: takes LOCK_FILE so only one process opens the camera
//  4. Camera: opens the v4l2 (or fake) camera and negotiates the largest resolution
//  5. Components: capture worker, filesystem worker pool, archive, removable media
//     watcher and metrics collector
//  6. HTTP server: routes, middleware, and a separate metrics listener
//  7. Shutdown: on SIGINT/SIGTERM or a camera failure, stops the worker, the watcher,
//     the servers and the pool, then releases the lock
//
// A camera failure that outlives the configured retries stops the process with a
// non-zero exit status after the shutdown steps have run.
package main
