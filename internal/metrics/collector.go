package metrics

import (
	"os"
	"time"

	"media-index/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current index statistics
type Stats struct {
	TotalRecords int
	ImageRecords int
	VideoRecords int
	OtherRecords int
	TotalTags    int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	refresh       chan struct{}
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector. dbPath may be empty, in which
// case index file sizes are not reported.
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		refresh:       make(chan struct{}, 1),
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

// Refresh asks the loop to collect before the next tick, e.g. after an
// index pass. It never blocks; requests made before Start are kept.
func (c *Collector) Refresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
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
		case <-c.refresh:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	c.collectFileSizes()

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	IndexRecordsTotal.WithLabelValues("image").Set(float64(stats.ImageRecords))
	IndexRecordsTotal.WithLabelValues("video").Set(float64(stats.VideoRecords))
	IndexRecordsTotal.WithLabelValues("unknown").Set(float64(stats.OtherRecords))
	IndexTagsTotal.Set(float64(stats.TotalTags))

	logging.Debug("Metrics collected: records=%d, images=%d, videos=%d, tags=%d",
		stats.TotalRecords, stats.ImageRecords, stats.VideoRecords, stats.TotalTags)
}

func (c *Collector) collectFileSizes() {
	if c.dbPath == "" {
		return
	}
	for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
		info, err := os.Stat(c.dbPath + suffix)
		if err != nil {
			DBSizeBytes.WithLabelValues(label).Set(0)
			continue
		}
		DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
	}
}
