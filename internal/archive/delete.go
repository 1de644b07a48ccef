package archive

import (
	"fmt"
	"path/filepath"

	"snapbox/internal/filesystem"
	"snapbox/internal/logging"
	"snapbox/internal/metrics"
	"snapbox/internal/sandbox"
)

// Deleter removes archived captures.
type Deleter struct {
	sandbox *sandbox.Sandbox
	retry   filesystem.RetryConfig
}

// NewDeleter returns a Deleter confined to sb.
func NewDeleter(sb *sandbox.Sandbox) *Deleter {
	return &Deleter{
		sandbox: sb,
		retry:   filesystem.DefaultRetryConfig(),
	}
}

// Delete removes the file at path, then removes its parent directory if that left
// it empty. The cascade stops there, and the sandbox root itself is never removed.
// Paths outside the sandbox are rejected with ErrOutsideSandbox before anything is
// touched. Failures to remove the file or inspect the parent are returned.
func (d *Deleter) Delete(path string) error {
	if !d.sandbox.Validate(path) {
		metrics.ArchiveDeletesTotal.WithLabelValues("rejected").Inc()
		return ErrOutsideSandbox
	}

	path = filepath.Clean(sandbox.Normalize(path))

	info, err := filesystem.StatWithRetry(path, d.retry)
	if err != nil {
		metrics.ArchiveDeletesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if info.IsDir() {
		metrics.ArchiveDeletesTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("delete %s: %w", path, ErrIsDirectory)
	}

	if err := filesystem.RemoveWithRetry(path, d.retry); err != nil {
		metrics.ArchiveDeletesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("delete %s: %w", path, err)
	}
	metrics.ArchiveDeletesTotal.WithLabelValues("success").Inc()
	logging.Info("Deleted %s", path)

	parent := filepath.Dir(path)
	if !d.sandbox.Contains(parent) {
		return nil
	}

	siblings, err := filesystem.ReadDirWithRetry(parent, d.retry)
	if err != nil {
		return fmt.Errorf("read parent of %s: %w", path, err)
	}
	if len(siblings) > 0 {
		return nil
	}

	if err := filesystem.RemoveWithRetry(parent, d.retry); err != nil {
		return fmt.Errorf("remove empty directory %s: %w", parent, err)
	}
	metrics.ArchivePrunedDirsTotal.Inc()
	logging.Info("Removed empty directory %s", parent)
	return nil
}
