package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"

	"snapbox/internal/archive"
	"snapbox/internal/logging"
)

// TransferAll copies every label directory to the drive named by the "drive" form
// field.
func (h *Handlers) TransferAll(w http.ResponseWriter, r *http.Request) {
	target := h.drivePath(r.PostFormValue("drive"))
	h.runTransfer(w, r, archive.ModeAll, func(ctx context.Context) archive.Report {
		return h.Transfer.All(ctx, target)
	})
}

// TransferSelected copies each "source" form value to the drive named by "drive",
// flattening <label>/<file> to <label>-<file>.
func (h *Handlers) TransferSelected(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, "Invalid form", http.StatusBadRequest)
		return
	}
	target := h.drivePath(r.PostFormValue("drive"))
	sources := r.PostForm["source"]
	if len(sources) == 0 {
		writeJSONError(w, "No files selected", http.StatusBadRequest)
		return
	}

	h.runTransfer(w, r, archive.ModeSelected, func(ctx context.Context) archive.Report {
		return h.Transfer.Selected(ctx, sources, target)
	})
}

// drivePath resolves a drive name relative to the removable-media root. Absolute
// paths are used as given and validated by the transfer.
func (h *Handlers) drivePath(drive string) string {
	if drive == "" || filepath.IsAbs(drive) || h.Drives == nil {
		return drive
	}
	return filepath.Join(h.Drives.Root(), drive)
}

func (h *Handlers) runTransfer(w http.ResponseWriter, r *http.Request, mode string, run func(context.Context) archive.Report) {
	var report archive.Report
	err := h.Pool.Do(r.Context(), "transfer "+mode, func() error {
		report = run(r.Context())
		return nil
	})
	if err != nil {
		logging.Error("Transfer (%s) not run: %v", mode, err)
		writeJSONError(w, "Transfer could not be started", http.StatusServiceUnavailable)
		return
	}

	for _, msg := range report.Messages {
		h.Messages.Add(LevelError, "%s", msg)
	}

	if errors.Is(report.Err(), archive.ErrInvalidTarget) {
		writeJSONValue(w, http.StatusBadRequest, report)
		return
	}
	if report.Copied > 0 {
		h.Messages.Add(LevelInfo, "Copied %d files", report.Copied)
	}
	writeJSONValue(w, http.StatusOK, report)
}

// GetDrives lists the mounted removable drives.
func (h *Handlers) GetDrives(w http.ResponseWriter, _ *http.Request) {
	drives, err := h.Drives.List()
	if err != nil {
		logging.Error("GetDrives: %v", err)
		writeJSONError(w, "Failed to list drives", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, drives)
}
