package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"snapbox/internal/archive"
	"snapbox/internal/archiver"
	"snapbox/internal/removable"
	"snapbox/internal/sandbox"
	"snapbox/internal/workers"
)

// =============================================================================
// Test fixture
// =============================================================================

type fakeSaver struct {
	mu     sync.Mutex
	labels []string
	err    error
	settle string
	done   error
}

func (f *fakeSaver) Submit(_ context.Context, raw string) (*archiver.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	label := archiver.Sanitize(raw)
	if label == "" {
		return nil, archiver.ErrEmptyLabel
	}
	if f.err != nil {
		return nil, f.err
	}
	f.labels = append(f.labels, label)

	done := make(chan error, 1)
	done <- f.done
	settle := f.settle
	if settle == "" {
		settle = archiver.SettleAck
	}
	return &archiver.Receipt{ID: "req-1", Label: label, Settle: settle, Done: done}, nil
}

type fixture struct {
	h     *Handlers
	saver *fakeSaver
	root  string
	drive string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := filepath.Join(t.TempDir(), "saved") + "/"
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	mediaRoot := t.TempDir() + "/"
	drive := filepath.Join(mediaRoot, "usb0")
	if err := os.Mkdir(drive, 0o755); err != nil {
		t.Fatal(err)
	}

	sb := sandbox.New(root)
	catalog := archive.NewCatalog(sb)
	pool := workers.NewPool(2, 4)
	t.Cleanup(pool.Stop)

	saver := &fakeSaver{}
	h := New(Deps{
		Saver:          saver,
		Archive:        sb,
		Catalog:        catalog,
		Deleter:        archive.NewDeleter(sb),
		Transfer:       archive.NewTransfer(sb, sandbox.New(mediaRoot), catalog),
		Store:          archive.NewStore(sb),
		Drives:         removable.NewDrives(mediaRoot, catalog),
		Watcher:        removable.NewWatcher(nil),
		Pool:           pool,
		CaptureRunning: func() bool { return true },
	})
	return &fixture{h: h, saver: saver, root: root, drive: drive}
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func postForm(handler http.HandlerFunc, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func get(handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func waitForMessage(t *testing.T, m *Messages, substr string) []Message {
	t.Helper()
	var seen []Message
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		seen = append(seen, m.Drain()...)
		for _, msg := range seen {
			if strings.Contains(msg.Text, substr) {
				return seen
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no message containing %q, got %+v", substr, seen)
	return nil
}

// =============================================================================
// TriggerSave Tests
// =============================================================================

func TestTriggerSave(t *testing.T) {
	f := newFixture(t)

	w := postForm(f.h.TriggerSave, "/api/save", url.Values{"label": {"box 7"}})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var resp SaveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Label != "boxx7" || resp.ID == "" {
		t.Errorf("response = %+v", resp)
	}

	waitForMessage(t, f.h.Messages, "Saved capture for boxx7")
}

func TestTriggerSave_ShipmentField(t *testing.T) {
	f := newFixture(t)

	w := postForm(f.h.TriggerSave, "/api/save", url.Values{"shipment": {"S1"}})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}
	if len(f.saver.labels) != 1 || f.saver.labels[0] != "S1" {
		t.Errorf("labels = %v", f.saver.labels)
	}
}

func TestTriggerSave_Errors(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		err      error
		wantCode int
	}{
		{"empty label", "", nil, http.StatusBadRequest},
		{"camera gone", "box", errors.New("capture for box: camera stopped"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.saver.err = tt.err

			w := postForm(f.h.TriggerSave, "/api/save", url.Values{"label": {tt.label}})
			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestTriggerSave_ArchiveFailureBecomesMessage(t *testing.T) {
	f := newFixture(t)
	f.saver.done = errors.New("disk full")

	w := postForm(f.h.TriggerSave, "/api/save", url.Values{"label": {"box"}})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}

	msgs := waitForMessage(t, f.h.Messages, "disk full")
	if msgs[len(msgs)-1].Level != LevelError {
		t.Errorf("message level = %q, want error", msgs[len(msgs)-1].Level)
	}
}

func TestTriggerSave_SettleTimeoutWarns(t *testing.T) {
	f := newFixture(t)
	f.saver.settle = archiver.SettleTimeout

	postForm(f.h.TriggerSave, "/api/save", url.Values{"label": {"box"}})
	waitForMessage(t, f.h.Messages, "may be stale")
}

// =============================================================================
// ListFiles / GetImage / DeleteFile Tests
// =============================================================================

func TestListFiles(t *testing.T) {
	f := newFixture(t)
	f.write(t, "beta/1.jpg", "1")
	f.write(t, "Alpha/2.jpg", "2")

	w := get(f.h.ListFiles, "/api/list")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp ListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entries) != 2 || resp.Entries[0].Name != "Alpha" || resp.Entries[1].Name != "beta" {
		t.Errorf("entries = %+v", resp.Entries)
	}

	w = get(f.h.ListFiles, "/api/list?path=beta")
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Path != filepath.Join(f.root, "beta", "1.jpg") {
		t.Errorf("label entries = %+v", resp.Entries)
	}
}

func TestListFiles_PrunesEmptyLabel(t *testing.T) {
	f := newFixture(t)
	empty := filepath.Join(f.root, "gone")
	if err := os.Mkdir(empty, 0o755); err != nil {
		t.Fatal(err)
	}

	w := get(f.h.ListFiles, "/api/list?path=gone")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if _, err := os.Stat(empty); !os.IsNotExist(err) {
		t.Error("empty label directory was not removed")
	}
}

func TestListFiles_InvalidPath(t *testing.T) {
	f := newFixture(t)

	for _, p := range []string{"../", "..%2F..%2Fetc", "%2Fetc"} {
		w := get(f.h.ListFiles, "/api/list?path="+p)
		if w.Code != http.StatusBadRequest {
			t.Errorf("path %q: expected status 400, got %d", p, w.Code)
		}
	}
}

func TestGetImage(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "box/2024-01-01_00.00.00.jpg", "jpegdata")

	w := get(f.h.GetImage, "/api/image?file="+url.QueryEscape(path))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "jpegdata" {
		t.Errorf("body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestGetImage_Errors(t *testing.T) {
	f := newFixture(t)
	f.write(t, "box/a.jpg", "a")

	tests := []struct {
		name     string
		file     string
		wantCode int
	}{
		{"missing parameter", "", http.StatusBadRequest},
		{"outside archive", "/etc/passwd", http.StatusBadRequest},
		{"traversal", f.root + "box/../../secret", http.StatusBadRequest},
		{"not found", f.root + "box/missing.jpg", http.StatusNotFound},
		{"directory", f.root + "box", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(f.h.GetImage, "/api/image?file="+url.QueryEscape(tt.file))
			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestDeleteFile(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "box/a.jpg", "a")

	w := postForm(f.h.DeleteFile, "/api/delete", url.Values{"file": {path}})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(f.root, "box")); !os.IsNotExist(err) {
		t.Error("emptied label directory was not removed")
	}
}

func TestDeleteFile_Errors(t *testing.T) {
	f := newFixture(t)
	outside := filepath.Join(t.TempDir(), "keep.jpg")
	if err := os.WriteFile(outside, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		file     string
		wantCode int
	}{
		{"missing parameter", "", http.StatusBadRequest},
		{"outside archive", outside, http.StatusBadRequest},
		{"not found", f.root + "box/missing.jpg", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postForm(f.h.DeleteFile, "/api/delete", url.Values{"file": {tt.file}})
			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
		})
	}

	if _, err := os.Stat(outside); err != nil {
		t.Error("file outside the archive was touched")
	}
}

// =============================================================================
// Transfer / Drives Tests
// =============================================================================

func TestTransferSelected(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "label1/photo.jpg", "one")
	b := f.write(t, "label2/photo.jpg", "two")

	w := postForm(f.h.TransferSelected, "/api/transfer", url.Values{
		"source": {a, b},
		"drive":  {"usb0"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var report archive.Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Copied != 2 {
		t.Errorf("report = %+v", report)
	}
	for _, name := range []string{"label1-photo.jpg", "label2-photo.jpg"} {
		if _, err := os.Stat(filepath.Join(f.drive, name)); err != nil {
			t.Errorf("%s not transferred: %v", name, err)
		}
	}
}

func TestTransferSelected_NoSources(t *testing.T) {
	f := newFixture(t)

	w := postForm(f.h.TransferSelected, "/api/transfer", url.Values{"drive": {"usb0"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestTransferAll(t *testing.T) {
	f := newFixture(t)
	f.write(t, "label1/a.jpg", "a")
	f.write(t, "label2/b.jpg", "b")

	w := postForm(f.h.TransferAll, "/api/transfer/all", url.Values{"drive": {f.drive}})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, rel := range []string{"label1/a.jpg", "label2/b.jpg"} {
		if _, err := os.Stat(filepath.Join(f.drive, rel)); err != nil {
			t.Errorf("%s not transferred: %v", rel, err)
		}
	}
	waitForMessage(t, f.h.Messages, "Copied 2 files")
}

func TestTransferAll_InvalidTarget(t *testing.T) {
	f := newFixture(t)
	f.write(t, "label1/a.jpg", "a")

	w := postForm(f.h.TransferAll, "/api/transfer/all", url.Values{"drive": {t.TempDir()}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	waitForMessage(t, f.h.Messages, "Invalid path")
}

func TestGetDrives(t *testing.T) {
	f := newFixture(t)

	w := get(f.h.GetDrives, "/api/drives")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var drives []archive.Entry
	if err := json.NewDecoder(w.Body).Decode(&drives); err != nil {
		t.Fatal(err)
	}
	if len(drives) != 1 || drives[0].Name != "usb0" {
		t.Errorf("drives = %+v", drives)
	}
}

// =============================================================================
// Messages Tests
// =============================================================================

func TestGetMessages_OneShot(t *testing.T) {
	f := newFixture(t)
	f.h.Messages.Add(LevelError, "Could not copy file %s", "x")

	var first, second []Message
	if err := json.NewDecoder(get(f.h.GetMessages, "/api/messages").Body).Decode(&first); err != nil {
		t.Fatal(err)
	}
	if err := json.NewDecoder(get(f.h.GetMessages, "/api/messages").Body).Decode(&second); err != nil {
		t.Fatal(err)
	}

	if len(first) != 1 || first[0].Text != "Could not copy file x" || first[0].Level != LevelError {
		t.Errorf("first read = %+v", first)
	}
	if second == nil || len(second) != 0 {
		t.Errorf("second read = %+v, want empty list", second)
	}
}

func TestMessages_Limit(t *testing.T) {
	m := NewMessages()
	for i := 0; i < 150; i++ {
		m.Add(LevelInfo, "msg %d", i)
	}
	got := m.Drain()
	if len(got) != 100 || got[0].Text != "msg 50" {
		t.Errorf("kept %d messages starting at %q", len(got), got[0].Text)
	}
}
