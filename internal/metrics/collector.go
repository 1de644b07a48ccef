package metrics

import (
	"time"

	"snapbox/internal/logging"
)

// StatsProvider supplies archive statistics to the collector.
type StatsProvider interface {
	Stats() Stats
}

// Stats holds the current archive statistics
type Stats struct {
	Labels   int
	Captures int
	Bytes    int64
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	done          chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.done
}

func (c *Collector) collectLoop() {
	defer close(c.done)

	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.Stats()

	ArchiveLabelsTotal.Set(float64(stats.Labels))
	ArchiveCapturesTotal.Set(float64(stats.Captures))
	ArchiveBytesTotal.Set(float64(stats.Bytes))

	logging.Debug("Metrics collected: labels=%d, captures=%d, bytes=%d",
		stats.Labels, stats.Captures, stats.Bytes)
}
