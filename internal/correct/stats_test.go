package correct

import (
	"testing"
	"time"
)

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(100)
	stats.Record(200)
	stats.Record(300)
	stats.Record(400)
	stats.RecordFailure(500)

	snap := stats.Snapshot()
	if snap.Calls != 5 {
		t.Fatalf("expected calls=5, got %d", snap.Calls)
	}
	if snap.Failures != 1 {
		t.Fatalf("expected failures=1, got %d", snap.Failures)
	}
	if snap.Latency.MinMs != 100 || snap.Latency.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got %d %d", snap.Latency.MinMs, snap.Latency.MaxMs)
	}
	if snap.Latency.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.Latency.AvgMs)
	}
	if snap.Latency.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.Latency.P50Ms)
	}
	if snap.Latency.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.Latency.P95Ms)
	}
}

func TestStatsCacheHitsKeptOutOfLatency(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(200)
	stats.RecordCached()
	stats.RecordCached()
	stats.RecordCached()

	snap := stats.Snapshot()
	if snap.Calls != 1 || snap.CacheHits != 3 {
		t.Fatalf("expected 1 call and 3 hits, got %d and %d", snap.Calls, snap.CacheHits)
	}
	if snap.CacheHitRate != 0.75 {
		t.Errorf("expected hit rate 0.75, got %f", snap.CacheHitRate)
	}
	if snap.Latency.MinMs != 200 || snap.Latency.P50Ms != 200 {
		t.Errorf("expected latency from the service call only, got %+v", snap.Latency)
	}
}

func TestStatsCacheOnlyWindow(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.RecordCached()

	snap := stats.Snapshot()
	if snap.Calls != 0 || snap.CacheHitRate != 1 {
		t.Errorf("expected only a cache hit, got %+v", snap)
	}
	if snap.Latency != (Latency{}) {
		t.Errorf("expected zero latency, got %+v", snap.Latency)
	}
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewStats(10 * time.Millisecond)
	stats.Record(100)
	stats.RecordCached()
	time.Sleep(25 * time.Millisecond)

	if snap := stats.Snapshot(); snap.Calls != 0 || snap.CacheHits != 0 {
		t.Fatalf("expected empty window after prune, got %+v", snap)
	}

	stats.Record(-10)
	snap := stats.Snapshot()
	if snap.Calls != 1 || snap.Latency.MinMs != 0 {
		t.Fatalf("expected one clamped sample, got calls=%d min=%d", snap.Calls, snap.Latency.MinMs)
	}
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("en-US", "text", []Match{match(0, 1, "R", "x")})
	if _, ok := c.Get("en-US", "text"); !ok {
		t.Fatal("expected cache hit")
	}
	if _, ok := c.Get("en-GB", "text"); ok {
		t.Error("expected language to be part of the key")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("en-US", "text"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
}

func TestCacheKey_Separator(t *testing.T) {
	if CacheKey("en", "-US text") == CacheKey("en-US", " text") {
		t.Error("expected distinct keys")
	}
}
