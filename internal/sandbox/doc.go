// Package sandbox is the single gatekeeper for paths that arrive from outside the process.
//
// A Sandbox accepts a path when, after doubled separators are collapsed, the root is a
// literal prefix of it. The same type guards the archive tree and the removable-media
// mount prefix; only the root differs.
package sandbox
