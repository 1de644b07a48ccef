package handlers

import (
	"context"
	"errors"
	"net/http"

	"snapbox/internal/archiver"
	"snapbox/internal/capture"
	"snapbox/internal/logging"
)

// SaveResponse acknowledges an accepted save request.
type SaveResponse struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Settle string `json:"settle"`
}

// TriggerSave captures the current frame and archives it under the label from the
// "label" (or legacy "shipment") form field. It returns once the snapshot has
// settled; the archive write finishes in the background and reports failures
// through the message store.
func (h *Handlers) TriggerSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, "Invalid form", http.StatusBadRequest)
		return
	}

	raw := r.PostFormValue("label")
	if raw == "" {
		raw = r.PostFormValue("shipment")
	}

	// the save outlives the request once accepted
	receipt, err := h.Saver.Submit(context.WithoutCancel(r.Context()), raw)
	if err != nil {
		var devErr *capture.DeviceError
		switch {
		case errors.Is(err, archiver.ErrEmptyLabel):
			writeJSONError(w, "Label is required", http.StatusBadRequest)
		case errors.As(err, &devErr), errors.Is(err, capture.ErrStopped):
			logging.Error("Save failed, camera unavailable: %v", err)
			h.Messages.Add(LevelError, "Camera unavailable: %v", err)
			writeJSONError(w, "Camera unavailable", http.StatusServiceUnavailable)
		default:
			logging.Error("Save failed: %v", err)
			h.Messages.Add(LevelError, "Could not save capture: %v", err)
			writeJSONError(w, "Could not save capture", http.StatusInternalServerError)
		}
		return
	}

	if receipt.Settle == archiver.SettleTimeout {
		h.Messages.Add(LevelError, "Snapshot for %s may be stale: %v", receipt.Label, archiver.ErrSettleTimeout)
	}
	go h.reportSave(receipt)

	writeJSONValue(w, http.StatusAccepted, SaveResponse{
		ID:     receipt.ID,
		Label:  receipt.Label,
		Settle: receipt.Settle,
	})
}

func (h *Handlers) reportSave(receipt *archiver.Receipt) {
	if err := <-receipt.Done; err != nil {
		h.Messages.Add(LevelError, "Could not save capture for %s: %v", receipt.Label, err)
		return
	}
	h.Messages.Add(LevelInfo, "Saved capture for %s", receipt.Label)
}
