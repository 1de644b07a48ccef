package archive

import (
	"os"
	"path/filepath"
	"testing"

	"snapbox/internal/sandbox"
)

// newTestSandbox creates a sandbox root inside a temp dir and returns it.
func newTestSandbox(t *testing.T) (*sandbox.Sandbox, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "saved")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("Failed to create sandbox root: %v", err)
	}
	return sandbox.New(root), root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
