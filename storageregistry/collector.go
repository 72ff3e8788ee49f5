package storageregistry

import (
	"expvar"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
)

// DiskUsageCollector periodically samples disk usage for every registered
// storage directory and publishes it via expvar, the same way the rest of
// this stack surfaces background metrics.
type DiskUsageCollector struct {
	dirs     []string
	interval time.Duration
	usage    *expvar.Map
	logger   *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewDiskUsageCollector constructs a collector over dirs, sampling every
// interval.
func NewDiskUsageCollector(dirs []string, interval time.Duration, logger *slog.Logger) *DiskUsageCollector {
	return &DiskUsageCollector{
		dirs:     dirs,
		interval: interval,
		usage:    expvar.NewMap("journalset_directory_disk_usage_percent"),
		logger:   logger.With("component", "storageregistry.DiskUsageCollector"),
		stopChan: make(chan struct{}),
	}
}

// Start begins the background sampling loop.
func (c *DiskUsageCollector) Start() {
	c.logger.Info("starting disk usage collector", "interval", c.interval, "directories", len(c.dirs))
	c.wg.Add(1)
	go c.loop()
}

// Stop signals the sampling loop to terminate and waits for it to exit.
func (c *DiskUsageCollector) Stop() {
	close(c.stopChan)
	c.wg.Wait()
}

func (c *DiskUsageCollector) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sampleOnce()
		case <-c.stopChan:
			return
		}
	}
}

func (c *DiskUsageCollector) sampleOnce() {
	for _, dir := range c.dirs {
		du, err := disk.Usage(dir)
		if err != nil {
			c.logger.Warn("failed to sample disk usage", "directory", dir, "error", err)
			continue
		}
		usedPercent := new(expvar.Float)
		usedPercent.Set(du.UsedPercent)
		c.usage.Set(dir, usedPercent)
	}
}
