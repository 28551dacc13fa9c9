package metrics

import (
	"context"
	"os"
	"time"

	"media-directory/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	CollectStats(ctx context.Context) (Stats, error)
}

// Stats holds the current catalog statistics
type Stats struct {
	Containers int64
	Items      int64
	Virtual    int64
	MimeTypes  int64
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewCollector creates a new metrics collector. dbPath may be empty for
// client/server backends, in which case file sizes are not reported.
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.doneChan
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

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
	if c.dbPath != "" {
		c.collectFileSizes()
	}

	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.interval)
	defer cancel()

	stats, err := c.statsProvider.CollectStats(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	ObjectsTotal.WithLabelValues("container").Set(float64(stats.Containers))
	ObjectsTotal.WithLabelValues("item").Set(float64(stats.Items))
	ObjectsTotal.WithLabelValues("virtual").Set(float64(stats.Virtual))
	MimeTypesTotal.Set(float64(stats.MimeTypes))

	logging.Debug("Metrics collected: containers=%d, items=%d, virtual=%d, mimeTypes=%d",
		stats.Containers, stats.Items, stats.Virtual, stats.MimeTypes)
}

func (c *Collector) collectFileSizes() {
	files := map[string]string{
		"main":   c.dbPath,
		"backup": c.dbPath + ".backup",
	}
	for label, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			DBSizeBytes.WithLabelValues(label).Set(0)
			continue
		}
		DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
	}
}
