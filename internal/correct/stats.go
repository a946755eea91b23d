package correct

import (
	"sort"
	"sync"
	"time"
)

type outcome uint8

const (
	outcomeOK outcome = iota
	outcomeFailed
	outcomeCached
)

type call struct {
	at      time.Time
	ms      int64
	outcome outcome
}

// Latency summarises service round trips in milliseconds.
type Latency struct {
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// StatsSnapshot covers the paragraphs reconciled within the window. Calls
// and Latency count only requests that reached the service; cache hits are
// reported apart so they do not drag the percentiles toward zero.
type StatsSnapshot struct {
	Calls        int     `json:"calls"`
	Failures     int     `json:"failures"`
	CacheHits    int     `json:"cache_hits"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	Latency      Latency `json:"latency"`
}

// Stats is a rolling window of correction lookups.
type Stats struct {
	mu     sync.Mutex
	calls  []call // Oldest first
	window time.Duration
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{window: window}
}

// Record adds a successful service call.
func (s *Stats) Record(durationMs int64) { s.add(durationMs, outcomeOK) }

// RecordFailure adds a service call that errored.
func (s *Stats) RecordFailure(durationMs int64) { s.add(durationMs, outcomeFailed) }

// RecordCached adds a paragraph answered from the cache.
func (s *Stats) RecordCached() { s.add(0, outcomeCached) }

func (s *Stats) add(ms int64, o outcome) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(now)
	s.calls = append(s.calls, call{at: now, ms: max(ms, 0), outcome: o})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	s.expireLocked(time.Now())
	calls := append([]call(nil), s.calls...)
	s.mu.Unlock()

	var snap StatsSnapshot
	durations := make([]int64, 0, len(calls))
	var total int64
	for _, c := range calls {
		switch c.outcome {
		case outcomeCached:
			snap.CacheHits++
			continue
		case outcomeFailed:
			snap.Failures++
		}
		durations = append(durations, c.ms)
		total += c.ms
	}
	snap.Calls = len(durations)
	if len(calls) > 0 {
		snap.CacheHitRate = float64(snap.CacheHits) / float64(len(calls))
	}
	if len(durations) == 0 {
		return snap
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	snap.Latency = Latency{
		MinMs: durations[0],
		MaxMs: durations[len(durations)-1],
		AvgMs: float64(total) / float64(len(durations)),
		P50Ms: interpolate(durations, 0.50),
		P95Ms: interpolate(durations, 0.95),
		P99Ms: interpolate(durations, 0.99),
	}
	return snap
}

// expireLocked drops calls older than the window. Calls are appended in
// time order, so the expired ones form a prefix.
func (s *Stats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := sort.Search(len(s.calls), func(i int) bool { return !s.calls[i].at.Before(cutoff) })
	if i > 0 {
		s.calls = append(s.calls[:0:0], s.calls[i:]...)
	}
}

// interpolate returns the q-quantile (0..1) of sorted by linear
// interpolation between closest ranks.
func interpolate(sorted []int64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return float64(sorted[len(sorted)-1])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
