package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"snapbox/internal/filesystem"
	"snapbox/internal/logging"
	"snapbox/internal/metrics"
	"snapbox/internal/sandbox"
)

// Transfer modes, used as metric labels.
const (
	ModeAll      = "all"
	ModeSelected = "selected"
)

// Report summarizes a transfer. Failures are collected per file; a Report with
// messages may still have copied files.
type Report struct {
	Copied   int      `json:"copied"`
	Failed   int      `json:"failed"`
	Rejected bool     `json:"rejected,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// Err returns ErrInvalidTarget for a rejected transfer and nil otherwise.
func (r Report) Err() error {
	if r.Rejected {
		return ErrInvalidTarget
	}
	return nil
}

func (r *Report) addf(format string, args ...interface{}) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// Transfer copies archived captures to removable media.
type Transfer struct {
	archive *sandbox.Sandbox
	media   *sandbox.Sandbox
	catalog *Catalog
	retry   filesystem.RetryConfig
}

// NewTransfer returns a Transfer reading from archive and writing below media.
func NewTransfer(archive, media *sandbox.Sandbox, catalog *Catalog) *Transfer {
	return &Transfer{
		archive: archive,
		media:   media,
		catalog: catalog,
		retry:   filesystem.DefaultRetryConfig(),
	}
}

// All copies every label directory to target, keeping the <label>/<file> layout.
// Existing label directories on the target are reused and existing files overwritten.
func (t *Transfer) All(ctx context.Context, target string) Report {
	var report Report
	if !t.media.Validate(target) {
		return t.reject(ModeAll, target)
	}

	labels, err := t.catalog.List(t.archive.Root())
	if err != nil {
		report.addf("unable to list %s: %v", t.archive.Root(), err)
		t.finish(ModeAll, &report)
		return report
	}

	for _, label := range labels {
		if !label.IsDir {
			continue
		}
		if ctx.Err() != nil {
			report.addf("transfer interrupted: %v", ctx.Err())
			break
		}

		dstDir := filepath.Join(target, label.Name)
		if err := os.Mkdir(dstDir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			report.Failed++
			report.addf("unable to create %s: %v", dstDir, err)
			continue
		}

		files, err := t.catalog.List(label.Path)
		if err != nil {
			report.addf("unable to list %s: %v", label.Path, err)
			continue
		}
		for _, f := range files {
			if f.IsDir {
				continue
			}
			t.copyOne(ModeAll, &report, f.Path, filepath.Join(dstDir, f.Name))
		}
	}

	t.finish(ModeAll, &report)
	return report
}

// Selected copies each source directly into target as <label>-<file>, so captures
// with the same file name under different labels do not collide. Sources outside the
// archive are skipped with a message.
func (t *Transfer) Selected(ctx context.Context, sources []string, target string) Report {
	var report Report
	if !t.media.Validate(target) {
		return t.reject(ModeSelected, target)
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			report.addf("transfer interrupted: %v", ctx.Err())
			break
		}
		if !t.archive.Validate(src) {
			report.Failed++
			report.addf("Invalid path: %s", src)
			continue
		}
		t.copyOne(ModeSelected, &report, src, filepath.Join(target, FlatName(src)))
	}

	t.finish(ModeSelected, &report)
	return report
}

// FlatName returns the flattened transfer name for an archived capture:
// <parent directory name>-<file name>.
func FlatName(src string) string {
	clean := filepath.Clean(sandbox.Normalize(src))
	return filepath.Base(filepath.Dir(clean)) + "-" + filepath.Base(clean)
}

func (t *Transfer) copyOne(mode string, report *Report, src, dst string) {
	if _, err := filesystem.CopyFile(src, dst, t.retry); err != nil {
		report.Failed++
		report.addf("Could not copy file %s to %s: %v", src, dst, err)
		metrics.TransferFilesTotal.WithLabelValues(mode, "error").Inc()
		return
	}
	report.Copied++
	metrics.TransferFilesTotal.WithLabelValues(mode, "success").Inc()
}

func (t *Transfer) reject(mode, target string) Report {
	logging.Warn("Transfer rejected: %s: %v (%s)", target, ErrInvalidTarget, t.media.Root())
	metrics.TransferBatchesTotal.WithLabelValues(mode, "rejected").Inc()
	return Report{Rejected: true, Messages: []string{"Invalid path"}}
}

func (t *Transfer) finish(mode string, report *Report) {
	status := "complete"
	if len(report.Messages) > 0 {
		status = "partial"
	}
	metrics.TransferBatchesTotal.WithLabelValues(mode, status).Inc()
	logging.Info("Transfer (%s) finished: %d copied, %d failed", mode, report.Copied, report.Failed)
}
