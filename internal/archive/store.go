package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"snapbox/internal/filesystem"
	"snapbox/internal/logging"
	"snapbox/internal/metrics"
	"snapbox/internal/sandbox"
)

// TimestampFormat names archived captures. It is UTC, to the second, with the time
// separators replaced so the name is safe on FAT-formatted media.
const TimestampFormat = "2006-01-02_15.04.05"

// Store writes new captures into the sandbox.
type Store struct {
	sandbox *sandbox.Sandbox
	retry   filesystem.RetryConfig
}

// NewStore returns a Store writing below sb's root.
func NewStore(sb *sandbox.Sandbox) *Store {
	return &Store{
		sandbox: sb,
		retry:   filesystem.DefaultRetryConfig(),
	}
}

// Root returns the sandbox root.
func (s *Store) Root() string {
	return s.sandbox.Root()
}

// ValidLabel reports whether label is non-empty and consists of ASCII letters and digits.
func ValidLabel(label string) bool {
	if label == "" {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// LabelDir returns the directory holding captures for label.
func (s *Store) LabelDir(label string) string {
	return filepath.Join(s.sandbox.Root(), label)
}

// Destination returns the archive path for a capture of label taken at t.
func (s *Store) Destination(label string, t time.Time) string {
	return filepath.Join(s.LabelDir(label), t.UTC().Format(TimestampFormat)+".jpg")
}

// Write stores data as the capture of label taken at t and returns its path. Two
// captures of the same label in the same second share a name; the later one wins.
func (s *Store) Write(label string, t time.Time, data []byte) (string, error) {
	dst, err := s.prepare(label, t)
	if err != nil {
		return "", err
	}
	if err := filesystem.WriteFile(dst, data, s.retry); err != nil {
		return "", fmt.Errorf("write capture %s: %w", dst, err)
	}
	logging.Info("Archived capture %s (%d bytes)", dst, len(data))
	return dst, nil
}

// CopyFrom copies the file at src as the capture of label taken at t.
func (s *Store) CopyFrom(label string, t time.Time, src string) (string, error) {
	dst, err := s.prepare(label, t)
	if err != nil {
		return "", err
	}
	n, err := filesystem.CopyFile(src, dst, s.retry)
	if err != nil {
		return "", fmt.Errorf("save capture: %w", err)
	}
	logging.Info("Archived capture %s from %s (%d bytes)", dst, src, n)
	return dst, nil
}

func (s *Store) prepare(label string, t time.Time) (string, error) {
	if !ValidLabel(label) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	dir := s.LabelDir(label)
	if err := filesystem.MkdirAllWithRetry(dir, 0o755, s.retry); err != nil {
		return "", fmt.Errorf("create label directory %s: %w", dir, err)
	}
	return s.Destination(label, t), nil
}

// Stats counts label directories, captures and bytes under the root. It implements
// metrics.StatsProvider.
func (s *Store) Stats() metrics.Stats {
	var stats metrics.Stats

	labels, err := os.ReadDir(s.sandbox.Root())
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Debug("Stats: unable to read %s: %v", s.sandbox.Root(), err)
		}
		return stats
	}

	for _, l := range labels {
		if !l.IsDir() {
			continue
		}
		stats.Labels++

		files, err := os.ReadDir(filepath.Join(s.sandbox.Root(), l.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			stats.Captures++
			if info, err := f.Info(); err == nil {
				stats.Bytes += info.Size()
			}
		}
	}

	return stats
}
