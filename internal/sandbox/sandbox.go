package sandbox

import (
	"strings"
)

// Sandbox validates paths against a fixed root.
type Sandbox struct {
	root string
}

// New returns a Sandbox rooted at root. The root is used literally, after doubled
// separators are collapsed, so "/media/" and "/media" are different roots.
func New(root string) *Sandbox {
	return &Sandbox{root: Normalize(root)}
}

// Root returns the normalized root.
func (s *Sandbox) Root() string {
	return s.root
}

// Normalize collapses runs of '/' into a single separator.
func Normalize(path string) string {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}

// Validate reports whether path lies under the root. Inputs shorter than the root are
// rejected, as are paths containing a ".." element.
func (s *Sandbox) Validate(path string) bool {
	if s == nil || s.root == "" {
		return false
	}
	p := Normalize(path)
	if len(p) < len(s.root) || p[:len(s.root)] != s.root {
		return false
	}
	return !hasParentRef(p)
}

// Contains reports whether path lies strictly below the root: it validates and is
// not the root itself.
func (s *Sandbox) Contains(path string) bool {
	if !s.Validate(path) {
		return false
	}
	p := strings.TrimSuffix(Normalize(path), "/")
	return p != strings.TrimSuffix(s.root, "/")
}

func hasParentRef(p string) bool {
	for _, elem := range strings.Split(p, "/") {
		if elem == ".." {
			return true
		}
	}
	return false
}
