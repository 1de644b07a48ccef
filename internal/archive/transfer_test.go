package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snapbox/internal/sandbox"
)

// newTestMedia returns a removable-media sandbox and one "drive" under it.
func newTestMedia(t *testing.T) (*sandbox.Sandbox, string) {
	t.Helper()
	mediaRoot := t.TempDir() + "/"
	drive := filepath.Join(mediaRoot, "usb0")
	if err := os.Mkdir(drive, 0o755); err != nil {
		t.Fatal(err)
	}
	return sandbox.New(mediaRoot), drive
}

func newTestTransfer(t *testing.T) (*Transfer, string, string) {
	t.Helper()
	sb, root := newTestSandbox(t)
	media, drive := newTestMedia(t)
	return NewTransfer(sb, media, NewCatalog(sb)), root, drive
}

func TestTransferSelected_FlattensWithoutCollision(t *testing.T) {
	tr, root, drive := newTestTransfer(t)
	src1 := filepath.Join(root, "label1", "photo.jpg")
	src2 := filepath.Join(root, "label2", "photo.jpg")
	writeFile(t, src1, "one")
	writeFile(t, src2, "two")

	report := tr.Selected(context.Background(), []string{src1, src2}, drive)
	if report.Copied != 2 || len(report.Messages) != 0 {
		t.Fatalf("Selected() report = %+v", report)
	}

	for name, want := range map[string]string{"label1-photo.jpg": "one", "label2-photo.jpg": "two"} {
		data, err := os.ReadFile(filepath.Join(drive, name))
		if err != nil {
			t.Errorf("missing %s: %v", name, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", name, data, want)
		}
	}

	if !exists(src1) || !exists(src2) {
		t.Error("transfer must copy, not move")
	}
}

func TestTransferSelected_SkipsInvalidSources(t *testing.T) {
	tr, root, drive := newTestTransfer(t)
	good := filepath.Join(root, "label", "a.jpg")
	writeFile(t, good, "a")
	outside := filepath.Join(t.TempDir(), "x", "secret.jpg")
	writeFile(t, outside, "secret")

	report := tr.Selected(context.Background(), []string{outside, good}, drive)
	if report.Copied != 1 {
		t.Errorf("Copied = %d, want 1", report.Copied)
	}
	if report.Failed != 1 || len(report.Messages) != 1 || !strings.HasPrefix(report.Messages[0], "Invalid path") {
		t.Errorf("report = %+v", report)
	}
	if exists(filepath.Join(drive, "x-secret.jpg")) {
		t.Error("file outside the sandbox was transferred")
	}
}

func TestTransferSelected_ContinuesAfterCopyFailure(t *testing.T) {
	tr, root, drive := newTestTransfer(t)
	missing := filepath.Join(root, "label", "missing.jpg")
	good := filepath.Join(root, "label", "b.jpg")
	writeFile(t, good, "b")

	report := tr.Selected(context.Background(), []string{missing, good}, drive)
	if report.Copied != 1 || report.Failed != 1 {
		t.Errorf("report = %+v, want 1 copied and 1 failed", report)
	}
	if len(report.Messages) != 1 || !strings.Contains(report.Messages[0], "Could not copy file") {
		t.Errorf("messages = %v", report.Messages)
	}
	if !exists(filepath.Join(drive, "label-b.jpg")) {
		t.Error("later file was not copied after an earlier failure")
	}
}

func TestTransfer_InvalidTarget(t *testing.T) {
	tr, root, _ := newTestTransfer(t)
	src := filepath.Join(root, "label", "a.jpg")
	writeFile(t, src, "a")
	elsewhere := t.TempDir()

	for name, report := range map[string]Report{
		"selected": tr.Selected(context.Background(), []string{src}, elsewhere),
		"all":      tr.All(context.Background(), elsewhere),
	} {
		if !errors.Is(report.Err(), ErrInvalidTarget) || report.Copied != 0 {
			t.Errorf("%s: report = %+v, want rejected", name, report)
		}
	}
	entries, _ := os.ReadDir(elsewhere)
	if len(entries) != 0 {
		t.Errorf("rejected transfer wrote %d entries", len(entries))
	}
}

func TestTransferAll_MirrorsLabels(t *testing.T) {
	tr, root, drive := newTestTransfer(t)
	writeFile(t, filepath.Join(root, "label1", "a.jpg"), "a")
	writeFile(t, filepath.Join(root, "label1", "b.jpg"), "b")
	writeFile(t, filepath.Join(root, "label2", "a.jpg"), "c")

	// an existing label directory on the drive is reused
	if err := os.Mkdir(filepath.Join(drive, "label2"), 0o755); err != nil {
		t.Fatal(err)
	}

	report := tr.All(context.Background(), drive)
	if report.Copied != 3 || len(report.Messages) != 0 {
		t.Fatalf("All() report = %+v", report)
	}
	for path, want := range map[string]string{
		"label1/a.jpg": "a",
		"label1/b.jpg": "b",
		"label2/a.jpg": "c",
	} {
		data, err := os.ReadFile(filepath.Join(drive, path))
		if err != nil || string(data) != want {
			t.Errorf("%s = %q, %v; want %q", path, data, err, want)
		}
	}
}

func TestTransferAll_MissingTargetReportsFailures(t *testing.T) {
	tr, root, drive := newTestTransfer(t)
	writeFile(t, filepath.Join(root, "label1", "a.jpg"), "a")

	report := tr.All(context.Background(), filepath.Join(drive, "not", "mounted"))
	if report.Rejected {
		t.Fatal("target under the media root must not be rejected")
	}
	if report.Copied != 0 || report.Failed != 1 || len(report.Messages) != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestTransfer_CancelledContext(t *testing.T) {
	tr, root, drive := newTestTransfer(t)
	src := filepath.Join(root, "label", "a.jpg")
	writeFile(t, src, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := tr.Selected(ctx, []string{src}, drive)
	if report.Copied != 0 || len(report.Messages) != 1 {
		t.Errorf("report = %+v, want interrupted", report)
	}
}

func TestFlatName(t *testing.T) {
	tests := map[string]string{
		"/saved/label1/photo.jpg":            "label1-photo.jpg",
		"/saved//label2//2024-01-01.jpg":     "label2-2024-01-01.jpg",
		"/saved/box/2024-01-01_10.00.00.jpg": "box-2024-01-01_10.00.00.jpg",
	}
	for in, want := range tests {
		if got := FlatName(in); got != want {
			t.Errorf("FlatName(%q) = %q, want %q", in, got, want)
		}
	}
}
