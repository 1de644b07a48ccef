package handlers

import (
	"context"
	"time"

	"snapbox/internal/archive"
	"snapbox/internal/archiver"
	"snapbox/internal/removable"
	"snapbox/internal/sandbox"
	"snapbox/internal/workers"
)

// Saver archives a capture for a label.
type Saver interface {
	Submit(ctx context.Context, rawLabel string) (*archiver.Receipt, error)
}

// Deps are the components the handlers serve.
type Deps struct {
	Saver    Saver
	Archive  *sandbox.Sandbox
	Catalog  *archive.Catalog
	Deleter  *archive.Deleter
	Transfer *archive.Transfer
	Store    *archive.Store
	Drives   *removable.Drives
	Watcher  *removable.Watcher
	Pool     *workers.Pool
	Messages *Messages

	// CaptureRunning reports whether the capture worker is running. Nil means not running.
	CaptureRunning func() bool
	// PendingCaptures reports queued save requests. Optional.
	PendingCaptures func() int
}

type Handlers struct {
	Deps
	startTime time.Time
}

func New(deps Deps) *Handlers {
	if deps.Messages == nil {
		deps.Messages = NewMessages()
	}
	return &Handlers{
		Deps:      deps,
		startTime: time.Now(),
	}
}

func (h *Handlers) captureRunning() bool {
	return h.CaptureRunning != nil && h.CaptureRunning()
}
