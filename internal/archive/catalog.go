package archive

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"snapbox/internal/filesystem"
	"snapbox/internal/logging"
	"snapbox/internal/metrics"
	"snapbox/internal/sandbox"
)

// Entry is one file or directory returned by Catalog.List.
type Entry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"isDir"`
	Size  int64  `json:"size,omitempty"`
}

// Catalog lists directory contents.
type Catalog struct {
	sandbox *sandbox.Sandbox
	retry   filesystem.RetryConfig
}

// NewCatalog returns a Catalog that prunes empty directories below sb's root.
func NewCatalog(sb *sandbox.Sandbox) *Catalog {
	return &Catalog{
		sandbox: sb,
		retry:   filesystem.DefaultRetryConfig(),
	}
}

// List returns the children of path sorted by case-insensitive name.
//
// A path that does not exist yields an empty list and no error. If path lies
// strictly below the sandbox root and is empty, it is removed before List returns;
// this is how label directories emptied by deletions disappear. A failed removal is
// logged and otherwise ignored.
func (c *Catalog) List(path string) ([]Entry, error) {
	entries := []Entry{}

	info, err := filesystem.StatWithRetry(path, c.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return entries, err
	}
	if !info.IsDir() {
		return entries, nil
	}

	children, err := filesystem.ReadDirWithRetry(path, c.retry)
	if err != nil {
		logging.Warn("Unable to read directory %s: %v", path, err)
		return entries, nil
	}

	if len(children) == 0 {
		c.prune(path)
		return entries, nil
	}

	for _, child := range children {
		e := Entry{
			Name:  child.Name(),
			Path:  filepath.Join(path, child.Name()),
			IsDir: child.IsDir(),
		}
		if !e.IsDir {
			if fi, err := child.Info(); err == nil {
				e.Size = fi.Size()
			}
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].Name), strings.ToLower(entries[j].Name)
		if a != b {
			return a < b
		}
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}

func (c *Catalog) prune(path string) {
	if !c.sandbox.Contains(path) {
		return
	}
	if err := filesystem.RemoveWithRetry(path, c.retry); err != nil {
		logging.Warn("Unable to remove empty directory %s: %v", path, err)
		return
	}
	metrics.ArchivePrunedDirsTotal.Inc()
	logging.Debug("Removed empty directory %s", path)
}
