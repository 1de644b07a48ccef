/*
Package filesystem provides the filesystem capability used by the archive, the save
coordinator and the transfer engine.

# Purpose

Operations are thin wrappers over the os package that

  - retry ESTALE (stale file handle) errors with exponential backoff, which removable
    media and network mounts produce when a device is re-enumerated mid-operation
  - report duration and errors per volume ("sandbox", "snapshot", "removable") to an
    Observer installed at startup

# Usage

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	n, err := filesystem.CopyFile(src, dst, filesystem.DefaultRetryConfig())

# Retry Behavior

Defaults: 3 retries, 50ms initial backoff doubling to a 500ms cap. Only ESTALE is
retried; every other error is returned immediately.
*/
package filesystem
