package metrics

import (
	"time"

	"media-variants/internal/logging"
)

// CacheStats is a snapshot of an in-process lookup cache.
type CacheStats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// StatsFunc returns the current stats of one named cache.
type StatsFunc func() CacheStats

// SweepFunc drops expired entries from a cache and returns how many went.
type SweepFunc func() int

// Collector periodically publishes lookup cache stats as gauges.
type Collector struct {
	sources  map[string]StatsFunc
	sweeps   map[string]SweepFunc
	interval time.Duration
	stopChan chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(interval time.Duration) *Collector {
	return &Collector{
		sources:  make(map[string]StatsFunc),
		sweeps:   make(map[string]SweepFunc),
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Register adds a named cache. Must be called before Start.
func (c *Collector) Register(name string, fn StatsFunc) {
	c.sources[name] = fn
}

// RegisterSweep adds a sweep run on every tick before stats are read, so
// entries that are never looked up again still leave the cache. Must be
// called before Start.
func (c *Collector) RegisterSweep(name string, fn SweepFunc) {
	c.sweeps[name] = fn
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
	for name, fn := range c.sweeps {
		if n := fn(); n > 0 {
			logging.Debug("Lookup cache %s: swept %d expired entries", name, n)
		}
	}
	for name, fn := range c.sources {
		stats := fn()
		LookupCacheEntries.WithLabelValues(name).Set(float64(stats.Entries))
		LookupCacheHits.WithLabelValues(name).Set(float64(stats.Hits))
		LookupCacheMisses.WithLabelValues(name).Set(float64(stats.Misses))
		logging.Debug("Lookup cache %s: entries=%d hits=%d misses=%d", name, stats.Entries, stats.Hits, stats.Misses)
	}
}
