package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"media-variants/internal/clock"
	"media-variants/internal/ttlcache"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"VariantGenerationsTotal", VariantGenerationsTotal},
		{"VariantGenerationDuration", VariantGenerationDuration},
		{"VariantCacheHits", VariantCacheHits},
		{"VariantCacheMisses", VariantCacheMisses},
		{"RawWorkerRunsTotal", RawWorkerRunsTotal},
		{"RawWorkersInFlight", RawWorkersInFlight},
		{"TranscodeDecisions", TranscodeDecisions},
		{"RetryAttempts", RetryAttempts},
		{"WatcherEventsTotal", WatcherEventsTotal},
		{"LookupCacheEntries", LookupCacheEntries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetrics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("InitializeMetrics panicked: %v", r)
		}
	}()
	InitializeMetrics()

	if got := testutil.ToFloat64(TranscodeDecisions.WithLabelValues("skip_small")); got < 0 {
		t.Errorf("skip_small counter = %v, want >= 0", got)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.0.0", "abc123", "go1.25")
	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.0.0", "abc123", "go1.25")); got != 1 {
		t.Errorf("AppInfo = %v, want 1", got)
	}
}

func TestCollectorPublishesStats(t *testing.T) {
	c := NewCollector(time.Hour)
	c.Register("probe_test", func() CacheStats {
		return CacheStats{Entries: 3, Hits: 10, Misses: 4}
	})

	c.collect()

	if got := testutil.ToFloat64(LookupCacheEntries.WithLabelValues("probe_test")); got != 3 {
		t.Errorf("entries = %v, want 3", got)
	}
	if got := testutil.ToFloat64(LookupCacheHits.WithLabelValues("probe_test")); got != 10 {
		t.Errorf("hits = %v, want 10", got)
	}
	if got := testutil.ToFloat64(LookupCacheMisses.WithLabelValues("probe_test")); got != 4 {
		t.Errorf("misses = %v, want 4", got)
	}
}

func TestCollectorStartStop(t *testing.T) {
	c := NewCollector(10 * time.Millisecond)
	calls := make(chan struct{}, 10)
	c.Register("loop_test", func() CacheStats {
		select {
		case calls <- struct{}{}:
		default:
		}
		return CacheStats{}
	})

	c.Start()
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("collector never ran")
	}
	c.Stop()
}

func TestCollectorSweepsExpiredEntries(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cache := ttlcache.New[int](time.Minute, fc)
	for i := 0; i < 1000; i++ {
		cache.Set(fmt.Sprintf("clip-%d.mov", i), i)
	}
	fc.Advance(24 * time.Hour)

	c := NewCollector(time.Hour)
	c.Register("sweep_test", func() CacheStats {
		s := cache.Stats()
		return CacheStats{Entries: s.Entries, Hits: s.Hits, Misses: s.Misses}
	})
	c.RegisterSweep("sweep_test", cache.Sweep)

	c.collect()

	if got := cache.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0 after sweep", got)
	}
	if got := cache.Stats().Evictions; got != 1000 {
		t.Errorf("evictions = %d, want 1000", got)
	}
	if got := testutil.ToFloat64(LookupCacheEntries.WithLabelValues("sweep_test")); got != 0 {
		t.Errorf("entries gauge = %v, want 0", got)
	}
}
