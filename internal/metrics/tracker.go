// Package metrics collects entry cache, storage and fetch metrics and
// publishes them to a logger or a StatsD agent.
package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LavishGent/nekocache/internal/types"
)

const (
	defaultLatencyBufferSize = 10000
)

// Tracker counts events in memory and, when a publisher is attached,
// forwards each one as a StatsD-style metric.
type Tracker struct {
	publisher types.Publisher

	hits          atomic.Int64
	misses        atomic.Int64
	putCount      atomic.Int64
	evictions     atomic.Int64
	storageErrors atomic.Int64

	fetchCount     atomic.Int64
	fetchSucceeded atomic.Int64
	fetchAttempts  atomic.Int64

	latencyMu     sync.RWMutex
	latencyBuffer []time.Duration
	latencyIndex  int
	latencyCount  int

	totalBytesWritten atomic.Int64

	cbStateChanges atomic.Int64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithPublisher forwards every recorded event to p.
func WithPublisher(p types.Publisher) TrackerOption {
	return func(t *Tracker) { t.publisher = p }
}

// NewTracker creates a tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		latencyBuffer: make([]time.Duration, defaultLatencyBufferSize),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) RecordHit(key int, latency time.Duration) {
	t.hits.Add(1)
	t.recordLatency(latency)
	if t.publisher != nil {
		t.publisher.Incr("entries.get", StatusTag("hit"))
		t.publisher.Timing("entries.get.latency", latency, StatusTag("hit"))
	}
}

func (t *Tracker) RecordMiss(key int, latency time.Duration) {
	t.misses.Add(1)
	t.recordLatency(latency)
	if t.publisher != nil {
		t.publisher.Incr("entries.get", StatusTag("miss"))
	}
}

func (t *Tracker) RecordPut(key int, provider string, size int, latency time.Duration) {
	t.putCount.Add(1)
	t.totalBytesWritten.Add(int64(size))
	t.recordLatency(latency)
	if t.publisher != nil {
		t.publisher.Incr("entries.put", ProviderTag(provider))
		t.publisher.Histogram("entries.put.bytes", float64(size), ProviderTag(provider))
		t.publisher.Timing("entries.put.latency", latency, ProviderTag(provider))
	}
}

func (t *Tracker) RecordEviction(key int) {
	t.evictions.Add(1)
	if t.publisher != nil {
		t.publisher.Incr("entries.evicted")
	}
}

func (t *Tracker) RecordStorageError(op string, err error) {
	t.storageErrors.Add(1)
	if t.publisher != nil {
		t.publisher.Incr("storage.errors", OperationTag(op))
	}
}

func (t *Tracker) RecordFetch(name string, attempts int, ok bool, latency time.Duration) {
	t.fetchCount.Add(1)
	t.fetchAttempts.Add(int64(attempts))
	status := "exhausted"
	if ok {
		t.fetchSucceeded.Add(1)
		status = "ok"
	}
	if t.publisher != nil {
		tags := []string{FetchTag(name), StatusTag(status)}
		t.publisher.Incr("fetch.calls", tags...)
		t.publisher.Histogram("fetch.attempts", float64(attempts), tags...)
		t.publisher.Timing("fetch.latency", latency, tags...)
	}
}

func (t *Tracker) RecordCircuitBreakerStateChange(from, to string) {
	t.cbStateChanges.Add(1)
	if t.publisher != nil {
		t.publisher.Event("Storage circuit breaker "+to,
			"circuit moved from "+from+" to "+to,
			alertTypeFor(to), CircuitStateTag(to))
	}
}

func alertTypeFor(state string) string {
	if state == "open" {
		return "warning"
	}
	return "info"
}

// recordLatency adds a latency measurement using a circular buffer.
func (t *Tracker) recordLatency(latency time.Duration) {
	t.latencyMu.Lock()
	t.latencyBuffer[t.latencyIndex] = latency
	t.latencyIndex = (t.latencyIndex + 1) % len(t.latencyBuffer)
	if t.latencyCount < len(t.latencyBuffer) {
		t.latencyCount++
	}
	t.latencyMu.Unlock()
}

// Snapshot returns current metrics snapshot.
func (t *Tracker) Snapshot() types.MetricsSnapshot {
	t.latencyMu.RLock()
	count := t.latencyCount
	latencyCopy := make([]time.Duration, count)
	if count > 0 {
		if count < len(t.latencyBuffer) {
			copy(latencyCopy, t.latencyBuffer[:count])
		} else {
			firstPart := len(t.latencyBuffer) - t.latencyIndex
			copy(latencyCopy[:firstPart], t.latencyBuffer[t.latencyIndex:])
			copy(latencyCopy[firstPart:], t.latencyBuffer[:t.latencyIndex])
		}
	}
	t.latencyMu.RUnlock()

	fetches := t.fetchCount.Load()
	succeeded := t.fetchSucceeded.Load()

	snapshot := types.MetricsSnapshot{
		Timestamp:             time.Now(),
		Hits:                  t.hits.Load(),
		Misses:                t.misses.Load(),
		PutCount:              t.putCount.Load(),
		Evictions:             t.evictions.Load(),
		StorageErrors:         t.storageErrors.Load(),
		BytesWritten:          t.totalBytesWritten.Load(),
		FetchCount:            fetches,
		FetchSucceeded:        succeeded,
		FetchExhausted:        fetches - succeeded,
		FetchAttempts:         t.fetchAttempts.Load(),
		CircuitBreakerChanges: t.cbStateChanges.Load(),
	}

	if len(latencyCopy) > 0 {
		slices.Sort(latencyCopy)
		snapshot.AvgLatencyMs = millis(avgDuration(latencyCopy))
		snapshot.P50LatencyMs = millis(percentile(latencyCopy, 50))
		snapshot.P95LatencyMs = millis(percentile(latencyCopy, 95))
		snapshot.P99LatencyMs = millis(percentile(latencyCopy, 99))
	}

	return snapshot
}

// Reset clears all metrics.
func (t *Tracker) Reset() {
	t.hits.Store(0)
	t.misses.Store(0)
	t.putCount.Store(0)
	t.evictions.Store(0)
	t.storageErrors.Store(0)
	t.fetchCount.Store(0)
	t.fetchSucceeded.Store(0)
	t.fetchAttempts.Store(0)
	t.totalBytesWritten.Store(0)
	t.cbStateChanges.Store(0)

	t.latencyMu.Lock()
	t.latencyIndex = 0
	t.latencyCount = 0
	t.latencyMu.Unlock()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func avgDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

var _ types.MetricsRecorder = (*Tracker)(nil)
