package metrics

import (
	"time"

	"guest-gallery/internal/logging"
)

// StatsProvider interface for collecting gallery stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current gallery statistics
type Stats struct {
	TotalRecords int
	TotalImages  int
	TotalVideos  int
}

// Collector periodically collects and updates gallery gauges
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
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

	stats := c.statsProvider.GetStats()

	GalleryRecordsTotal.WithLabelValues("image").Set(float64(stats.TotalImages))
	GalleryRecordsTotal.WithLabelValues("video").Set(float64(stats.TotalVideos))

	logging.Debug("Metrics collected: records=%d, images=%d, videos=%d",
		stats.TotalRecords, stats.TotalImages, stats.TotalVideos)
}
