// Package memory sets the Go soft memory limit (GOMEMLIMIT) for the capture
// service.
//
// The capture loop holds a raw RGB frame in memory at all times and ffmpeg runs
// alongside it in the same cgroup, so the heap is given a fraction of the
// available memory rather than all of it.
//
// # Sources
//
// The limit is taken from the first of these that is set:
//
//   - GOMEMLIMIT: the standard Go variable. The runtime has already applied it;
//     it is only reported.
//   - MEMORY_LIMIT: a memory budget in bytes, for example from a container
//     runtime or a systemd unit's Environment= line.
//   - the cgroup v2 memory.max of the service, when it is not "max".
//
// MEMORY_RATIO (default 0.75) is the share of that budget given to the Go heap.
//
// Call [ConfigureFromEnv] once, early in main.
package memory
