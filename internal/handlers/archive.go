package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"snapbox/internal/archive"
	"snapbox/internal/filesystem"
	"snapbox/internal/logging"
)

// ListResponse is a directory listing.
type ListResponse struct {
	Path    string          `json:"path"`
	Entries []archive.Entry `json:"entries"`
}

// ListFiles lists a label directory, or the labels when path is empty. The path
// query parameter is relative to the archive root. Listing an empty label
// directory removes it.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	dir := filepath.Join(h.Archive.Root(), rel)
	if rel == "" {
		dir = h.Archive.Root()
	}

	if filepath.IsAbs(rel) || !h.Archive.Validate(dir) {
		logging.Warn("ListFiles: invalid path %q", rel)
		writeJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	}

	entries, err := h.Catalog.List(dir)
	if err != nil {
		logging.Error("ListFiles: %s: %v", dir, err)
		writeJSONError(w, "Failed to list directory", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, ListResponse{Path: rel, Entries: entries})
}

// GetImage serves an archived capture by absolute path.
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("file")
	if path == "" {
		writeJSONError(w, "File is required", http.StatusBadRequest)
		return
	}
	if !h.Archive.Validate(path) {
		logging.Warn("GetImage: path outside archive: %s", path)
		writeJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	}

	retry := filesystem.DefaultRetryConfig()
	info, err := filesystem.StatWithRetry(path, retry)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSONError(w, "File not found", http.StatusNotFound)
		} else {
			logging.Error("GetImage: failed to stat %s: %v", path, err)
			writeJSONError(w, "Failed to access file", http.StatusInternalServerError)
		}
		return
	}
	if info.IsDir() {
		writeJSONError(w, "Path is a directory", http.StatusBadRequest)
		return
	}

	f, err := filesystem.OpenWithRetry(path, retry)
	if err != nil {
		logging.Error("GetImage: failed to open %s: %v", path, err)
		writeJSONError(w, "Failed to access file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// DeleteFile removes an archived capture, and its label directory if it is now
// empty.
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	path := r.PostFormValue("file")
	if path == "" {
		writeJSONError(w, "File is required", http.StatusBadRequest)
		return
	}

	err := h.Pool.Do(r.Context(), "delete "+path, func() error {
		return h.Deleter.Delete(path)
	})

	switch {
	case err == nil:
		writeJSONStatus(w, "deleted")
	case errors.Is(err, archive.ErrOutsideSandbox):
		h.Messages.Add(LevelError, "Invalid path")
		writeJSONError(w, "Invalid path", http.StatusBadRequest)
	case errors.Is(err, archive.ErrIsDirectory):
		writeJSONError(w, "Path is a directory", http.StatusBadRequest)
	case errors.Is(err, os.ErrNotExist):
		h.Messages.Add(LevelError, "Could not delete file: %v", err)
		writeJSONError(w, "File not found", http.StatusNotFound)
	default:
		logging.Error("DeleteFile: %v", err)
		h.Messages.Add(LevelError, "Could not delete file: %v", err)
		writeJSONError(w, "Could not delete file", http.StatusInternalServerError)
	}
}
