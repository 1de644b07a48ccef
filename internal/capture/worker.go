package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"snapbox/internal/filesystem"
	"snapbox/internal/logging"
	"snapbox/internal/metrics"
)

// ErrStopped is returned to requests still pending when the worker stops.
var ErrStopped = errors.New("capture worker stopped")

// Config configures a Worker.
type Config struct {
	Device       string
	Format       PixelFormat
	Interval     time.Duration
	Quality      int
	SnapshotPath string

	// Retries is how many times a failed frame read is retried before the failure
	// becomes a DeviceError. Zero makes the first failure fatal.
	Retries        int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		Device:         "/dev/video0",
		Format:         FormatRGB3,
		Interval:       DefaultInterval,
		Quality:        DefaultQuality,
		SnapshotPath:   "static/latest.jpg",
		Retries:        3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     time.Second,
	}
}

// Worker owns a camera and publishes snapshots on request.
type Worker struct {
	cfg     Config
	cam     Camera
	stream  StreamConfig
	mailbox mailbox
	retry   filesystem.RetryConfig
	log     logging.Component

	closeOnce sync.Once
	closeErr  error
}

// Start opens and configures the camera. Any failure is returned as a *DeviceError
// and is not retried.
func Start(open Opener, cfg Config) (*Worker, error) {
	if cfg.Format == "" {
		cfg.Format = FormatRGB3
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultQuality
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	log := logging.For("capture")

	cam, err := open(cfg.Device)
	if err != nil {
		return nil, &DeviceError{Op: "open", Device: cfg.Device, Err: err}
	}

	info, err := cam.Resolutions(cfg.Format)
	if err != nil {
		cam.Close()
		return nil, &DeviceError{Op: "query resolutions", Device: cfg.Device, Err: err}
	}

	stream := StreamConfig{
		Resolution: info.Best(),
		Format:     cfg.Format,
		Interval:   cfg.Interval,
	}
	if err := cam.Start(stream); err != nil {
		cam.Close()
		return nil, &DeviceError{Op: "start stream", Device: cfg.Device, Err: err}
	}

	if dir := filepath.Dir(cfg.SnapshotPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			cam.Close()
			return nil, fmt.Errorf("create snapshot directory %s: %w", dir, err)
		}
	}

	log.Info("Streaming %s %s at %v from %s", stream.Resolution, stream.Format, stream.Interval, cfg.Device)

	return &Worker{
		cfg:    cfg,
		cam:    cam,
		stream: stream,
		retry:  filesystem.DefaultRetryConfig(),
		log:    log,
	}, nil
}

// Stream returns the negotiated stream configuration.
func (w *Worker) Stream() StreamConfig {
	return w.stream
}

// SnapshotPath returns the path the worker publishes to.
func (w *Worker) SnapshotPath() string {
	return w.cfg.SnapshotPath
}

// Trigger queues a save request and returns immediately. It is safe for concurrent
// use. Once Run has returned, the request is answered with ErrStopped.
func (w *Worker) Trigger(label string) *Request {
	r := newRequest(label)
	if !w.mailbox.push(r) {
		r.respond(Result{Err: ErrStopped})
		return r
	}
	w.log.Debug("Queued request %s for %q", r.ID, label)
	return r
}

// Pending returns the number of queued requests.
func (w *Worker) Pending() int {
	return w.mailbox.len()
}

// Run captures frames until ctx is cancelled or the camera fails. Each iteration
// takes at most one request: without one the frame is discarded, with one it is
// published and the request answered. Run returns nil on cancellation and a
// *DeviceError when frame reads keep failing. Requests still queued when Run returns
// receive an error.
func (w *Worker) Run(ctx context.Context) error {
	metrics.CaptureWorkerRunning.Set(1)
	defer metrics.CaptureWorkerRunning.Set(0)

	w.log.Info("Capture loop started")
	for {
		if ctx.Err() != nil {
			w.failPending(ErrStopped)
			w.log.Info("Capture loop stopped")
			return nil
		}

		req := w.mailbox.pop()

		frame, err := w.captureWithRetry(ctx)
		if err != nil {
			if ctx.Err() != nil {
				if req != nil {
					req.respond(Result{Err: ErrStopped})
				}
				w.failPending(ErrStopped)
				w.log.Info("Capture loop stopped")
				return nil
			}

			devErr := &DeviceError{Op: "capture", Device: w.cfg.Device, Err: err}
			metrics.CaptureFramesTotal.WithLabelValues("error").Inc()
			if req != nil {
				req.respond(Result{Err: devErr})
			}
			w.failPending(devErr)
			w.log.Error("%v", devErr)
			return devErr
		}

		if req == nil {
			metrics.CaptureFramesTotal.WithLabelValues("discarded").Inc()
			continue
		}

		req.respond(w.publish(frame))
	}
}

func (w *Worker) captureWithRetry(ctx context.Context) (Frame, error) {
	backoff := w.cfg.InitialBackoff

	var lastErr error
	for attempt := 0; attempt <= w.cfg.Retries; attempt++ {
		frame, err := w.cam.Capture()
		if err == nil {
			if attempt > 0 {
				w.log.Info("Frame read succeeded on retry %d", attempt)
			}
			return frame, nil
		}
		lastErr = err

		if attempt == w.cfg.Retries {
			break
		}

		metrics.CaptureRetriesTotal.Inc()
		w.log.Warn("Frame read failed, retrying in %v (attempt %d/%d): %v", backoff, attempt+1, w.cfg.Retries, err)

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > w.cfg.MaxBackoff {
			backoff = w.cfg.MaxBackoff
		}
	}

	return Frame{}, lastErr
}

// publish encodes frame and overwrites the snapshot file.
func (w *Worker) publish(frame Frame) Result {
	start := time.Now()

	data, err := Encode(frame, w.cfg.Quality)
	if err != nil {
		metrics.CaptureFramesTotal.WithLabelValues("error").Inc()
		w.log.Error("Encode failed: %v", err)
		return Result{Err: err}
	}

	if err := filesystem.WriteFile(w.cfg.SnapshotPath, data, w.retry); err != nil {
		metrics.CaptureFramesTotal.WithLabelValues("error").Inc()
		w.log.Error("Unable to write snapshot %s: %v", w.cfg.SnapshotPath, err)
		return Result{Err: fmt.Errorf("write snapshot: %w", err)}
	}

	metrics.CaptureFramesTotal.WithLabelValues("published").Inc()
	metrics.CapturePublishDuration.Observe(time.Since(start).Seconds())
	w.log.Debug("Published %d bytes to %s", len(data), w.cfg.SnapshotPath)

	return Result{PublishedAt: time.Now(), JPEG: data}
}

func (w *Worker) failPending(err error) {
	for _, r := range w.mailbox.close() {
		r.respond(Result{Err: err})
	}
}

// Close releases the camera. Call it after Run has returned.
func (w *Worker) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.cam.Close()
		w.log.Info("Camera %s released", w.cfg.Device)
	})
	return w.closeErr
}
