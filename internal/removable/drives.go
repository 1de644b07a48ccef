package removable

import (
	"snapbox/internal/archive"
	"snapbox/internal/logging"
)

// Drive is a mounted drive directory and the space left on it.
type Drive struct {
	archive.Entry
	Space
}

// Drives lists mounted drives under a removable-media root.
type Drives struct {
	root    string
	catalog *archive.Catalog
	statfs  func(string) (Space, error)
}

// NewDrives returns a Drives listing root with catalog.
func NewDrives(root string, catalog *archive.Catalog) *Drives {
	return &Drives{root: root, catalog: catalog, statfs: statSpace}
}

// Root returns the removable-media root.
func (d *Drives) Root() string {
	return d.root
}

// List returns the directories directly under the root. A missing root yields an
// empty list. A drive whose capacity cannot be read is listed with zero space.
func (d *Drives) List() ([]Drive, error) {
	entries, err := d.catalog.List(d.root)
	if err != nil {
		return nil, err
	}

	drives := make([]Drive, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		space, err := d.statfs(e.Path)
		if err != nil {
			logging.Debug("Unable to stat filesystem of %s: %v", e.Path, err)
		}
		drives = append(drives, Drive{Entry: e, Space: space})
	}
	return drives, nil
}
