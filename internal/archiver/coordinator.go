package archiver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"snapbox/internal/archive"
	"snapbox/internal/capture"
	"snapbox/internal/logging"
	"snapbox/internal/metrics"
	"snapbox/internal/workers"
)

var (
	// ErrEmptyLabel is returned by Submit when the label is empty. Nothing is triggered.
	ErrEmptyLabel = errors.New("empty label")

	// ErrSettleTimeout is reported when neither the worker nor the snapshot file
	// confirmed a new frame in time. The archive step runs anyway.
	ErrSettleTimeout = errors.New("snapshot did not settle")
)

// Trigger queues a capture request with the worker.
type Trigger interface {
	Trigger(label string) *capture.Request
}

// Settle outcomes, also used as metric labels.
const (
	SettleAck     = "ack"
	SettleMtime   = "mtime"
	SettleTimeout = "timeout"
)

// Config controls the settle wait.
type Config struct {
	SnapshotPath string
	PollInterval time.Duration
	PollAttempts int
}

// DefaultConfig polls every 25ms for up to 40 attempts.
func DefaultConfig(snapshotPath string) Config {
	return Config{
		SnapshotPath: snapshotPath,
		PollInterval: 25 * time.Millisecond,
		PollAttempts: 40,
	}
}

// Receipt describes an accepted save request. Done receives the outcome of the
// archive write once it has run.
type Receipt struct {
	ID     string
	Label  string
	Settle string
	Done   <-chan error
}

// Coordinator handles save requests.
type Coordinator struct {
	trigger Trigger
	store   *archive.Store
	pool    *workers.Pool
	cfg     Config
	log     logging.Component
}

// NewCoordinator returns a Coordinator that triggers captures on t and archives
// them into store using pool.
func NewCoordinator(t Trigger, store *archive.Store, pool *workers.Pool, cfg Config) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 25 * time.Millisecond
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 40
	}
	return &Coordinator{
		trigger: t,
		store:   store,
		pool:    pool,
		cfg:     cfg,
		log:     logging.For("archiver"),
	}
}

// Submit records a capture for rawLabel. It triggers the worker, waits up to
// PollInterval*PollAttempts for the new snapshot, then queues the archive write and
// returns without waiting for it.
//
// When the worker acknowledged the request, the acknowledged bytes are archived.
// Otherwise whatever the snapshot file holds at write time is copied. A settle
// timeout is logged and counted but does not fail the request; a worker error does.
func (c *Coordinator) Submit(ctx context.Context, rawLabel string) (*Receipt, error) {
	label := Sanitize(rawLabel)
	if label == "" {
		metrics.SaveRequestsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrEmptyLabel
	}
	metrics.SaveRequestsTotal.WithLabelValues("accepted").Inc()

	before := modTime(c.cfg.SnapshotPath)
	req := c.trigger.Trigger(label)

	start := time.Now()
	outcome, result, err := c.settle(ctx, req, before)
	metrics.SaveSettleDuration.Observe(time.Since(start).Seconds())
	metrics.SaveSettleOutcomesTotal.WithLabelValues(outcome).Inc()
	if err != nil {
		metrics.SaveRequestsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	if outcome == SettleTimeout {
		c.log.Warn("Request %s (%s): %v after %v, archiving current snapshot", req.ID, label, ErrSettleTimeout, time.Since(start))
	}

	job := func() error { return c.archive(req.ID, label, result) }
	done, err := c.pool.Submit(ctx, "archive "+label, job)
	if err != nil {
		metrics.SaveRequestsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("queue archive for %s: %w", label, err)
	}

	return &Receipt{ID: req.ID, Label: label, Settle: outcome, Done: done}, nil
}

// settle waits for the worker's reply or for the snapshot mtime to change and then
// hold still for one poll.
func (c *Coordinator) settle(ctx context.Context, req *capture.Request, before time.Time) (string, *capture.Result, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	var last time.Time
	changed := false

	for attempt := 0; attempt < c.cfg.PollAttempts; attempt++ {
		select {
		case res := <-req.Reply:
			if res.Err != nil {
				return SettleAck, nil, fmt.Errorf("capture for %s: %w", req.Label, res.Err)
			}
			return SettleAck, &res, nil
		case <-ctx.Done():
			return SettleTimeout, nil, ctx.Err()
		case <-ticker.C:
			mt := modTime(c.cfg.SnapshotPath)
			if mt.Equal(before) {
				continue
			}
			if changed && mt.Equal(last) {
				return SettleMtime, nil, nil
			}
			changed = true
			last = mt
		}
	}

	return SettleTimeout, nil, nil
}

func (c *Coordinator) archive(id, label string, res *capture.Result) error {
	var (
		dst string
		err error
	)
	if res != nil && len(res.JPEG) > 0 {
		dst, err = c.store.Write(label, res.PublishedAt, res.JPEG)
	} else {
		dst, err = c.store.CopyFrom(label, time.Now(), c.cfg.SnapshotPath)
	}
	if err != nil {
		metrics.SaveRequestsTotal.WithLabelValues("failed").Inc()
		c.log.Error("Request %s (%s): %v", id, label, err)
		return err
	}

	metrics.SaveRequestsTotal.WithLabelValues("archived").Inc()
	c.log.Info("Request %s (%s) archived to %s", id, label, dst)
	return nil
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
