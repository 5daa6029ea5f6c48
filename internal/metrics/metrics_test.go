package metrics

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/types"
)

// trackingPublisher records what the tracker forwards.
type trackingPublisher struct {
	NoOpPublisher
	mu           sync.Mutex
	names        []string
	events       []string
	publishCount atomic.Int32
}

func (p *trackingPublisher) Incr(name string, tags ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = append(p.names, name+"|"+strings.Join(tags, ","))
}

func (p *trackingPublisher) Event(title, text, alertType string, tags ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, alertType+":"+title)
}

func (p *trackingPublisher) PublishHealthMetrics(*types.PublisherHealthMetrics) {
	p.publishCount.Add(1)
}

func (p *trackingPublisher) incrs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.names...)
}

func TestNewTracker(t *testing.T) {
	tracker := NewTracker()

	snapshot := tracker.Snapshot()
	if snapshot.Hits != 0 || snapshot.FetchCount != 0 {
		t.Errorf("initial snapshot not empty: %+v", snapshot)
	}
}

func TestTrackerEntryEvents(t *testing.T) {
	tracker := NewTracker()

	tracker.RecordHit(1, 2*time.Millisecond)
	tracker.RecordHit(2, 2*time.Millisecond)
	tracker.RecordMiss(3, time.Millisecond)
	tracker.RecordPut(1, "shikimori", 128, 4*time.Millisecond)
	tracker.RecordPut(1, "kodik", 64, 4*time.Millisecond)
	tracker.RecordEviction(9)
	tracker.RecordStorageError("save", errors.New("disk full"))

	s := tracker.Snapshot()
	if s.Hits != 2 {
		t.Errorf("Hits = %d, want 2", s.Hits)
	}
	if s.Misses != 1 {
		t.Errorf("Misses = %d, want 1", s.Misses)
	}
	if s.PutCount != 2 {
		t.Errorf("PutCount = %d, want 2", s.PutCount)
	}
	if s.BytesWritten != 192 {
		t.Errorf("BytesWritten = %d, want 192", s.BytesWritten)
	}
	if s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
	if s.StorageErrors != 1 {
		t.Errorf("StorageErrors = %d, want 1", s.StorageErrors)
	}
	if ratio := s.HitRatio(); ratio < 0.66 || ratio > 0.67 {
		t.Errorf("HitRatio() = %f, want ~0.667", ratio)
	}
}

func TestTrackerFetchEvents(t *testing.T) {
	tracker := NewTracker()

	tracker.RecordFetch("anime", 1, true, time.Millisecond)
	tracker.RecordFetch("anime", 3, true, time.Millisecond)
	tracker.RecordFetch("sources", 10, false, time.Millisecond)

	s := tracker.Snapshot()
	if s.FetchCount != 3 {
		t.Errorf("FetchCount = %d, want 3", s.FetchCount)
	}
	if s.FetchSucceeded != 2 {
		t.Errorf("FetchSucceeded = %d, want 2", s.FetchSucceeded)
	}
	if s.FetchExhausted != 1 {
		t.Errorf("FetchExhausted = %d, want 1", s.FetchExhausted)
	}
	if s.FetchAttempts != 14 {
		t.Errorf("FetchAttempts = %d, want 14", s.FetchAttempts)
	}
	if s.Retries() != 11 {
		t.Errorf("Retries() = %d, want 11", s.Retries())
	}
}

func TestTrackerForwardsToPublisher(t *testing.T) {
	pub := &trackingPublisher{}
	tracker := NewTracker(WithPublisher(pub))

	tracker.RecordHit(1, time.Millisecond)
	tracker.RecordMiss(2, time.Millisecond)
	tracker.RecordPut(1, "kodik", 10, time.Millisecond)
	tracker.RecordEviction(3)
	tracker.RecordStorageError("load", errors.New("x"))
	tracker.RecordFetch("anime", 2, true, time.Millisecond)
	tracker.RecordCircuitBreakerStateChange("closed", "open")

	want := []string{
		"entries.get|status:hit",
		"entries.get|status:miss",
		"entries.put|provider:kodik",
		"entries.evicted|",
		"storage.errors|operation:load",
		"fetch.calls|fetch:anime,status:ok",
	}
	got := pub.incrs()
	if len(got) != len(want) {
		t.Fatalf("forwarded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("incr[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if len(pub.events) != 1 || pub.events[0] != "warning:Storage circuit breaker open" {
		t.Errorf("events = %v", pub.events)
	}
}

func TestTrackerRecordCircuitBreakerStateChange(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordCircuitBreakerStateChange("closed", "open")
	tracker.RecordCircuitBreakerStateChange("open", "half-open")

	if got := tracker.Snapshot().CircuitBreakerChanges; got != 2 {
		t.Errorf("CircuitBreakerChanges = %d, want 2", got)
	}
}

func TestTrackerLatencyPercentiles(t *testing.T) {
	tracker := NewTracker()

	for i := 1; i <= 100; i++ {
		tracker.RecordHit(i, time.Duration(i)*time.Millisecond)
	}

	s := tracker.Snapshot()
	if s.P50LatencyMs < 49 || s.P50LatencyMs > 51 {
		t.Errorf("P50LatencyMs = %f, want ~50", s.P50LatencyMs)
	}
	if s.P95LatencyMs < 94 || s.P95LatencyMs > 96 {
		t.Errorf("P95LatencyMs = %f, want ~95", s.P95LatencyMs)
	}
	if s.P99LatencyMs < 98 || s.P99LatencyMs > 100 {
		t.Errorf("P99LatencyMs = %f, want ~99", s.P99LatencyMs)
	}
	if s.AvgLatencyMs < 50 || s.AvgLatencyMs > 51 {
		t.Errorf("AvgLatencyMs = %f, want ~50.5", s.AvgLatencyMs)
	}
}

func TestTrackerSubMillisecondLatency(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordHit(1, 500*time.Microsecond)

	if got := tracker.Snapshot().AvgLatencyMs; got != 0.5 {
		t.Errorf("AvgLatencyMs = %f, want 0.5", got)
	}
}

func TestTrackerReset(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordHit(1, time.Millisecond)
	tracker.RecordPut(1, "kodik", 10, time.Millisecond)
	tracker.RecordFetch("anime", 2, false, time.Millisecond)

	tracker.Reset()

	s := tracker.Snapshot()
	if s.Hits != 0 || s.PutCount != 0 || s.FetchCount != 0 || s.BytesWritten != 0 {
		t.Errorf("counters not reset: %+v", s)
	}
	if s.AvgLatencyMs != 0 {
		t.Errorf("AvgLatencyMs = %f after reset, want 0", s.AvgLatencyMs)
	}
}

func TestTrackerLatencyCircularBuffer(t *testing.T) {
	tracker := NewTracker()

	for i := 0; i < defaultLatencyBufferSize; i++ {
		tracker.RecordHit(1, time.Hour)
	}
	for i := 0; i < defaultLatencyBufferSize; i++ {
		tracker.RecordHit(1, time.Millisecond)
	}

	if got := tracker.Snapshot().P99LatencyMs; got != 1 {
		t.Errorf("P99LatencyMs = %f, want 1 once old samples are overwritten", got)
	}
}

func TestTrackerConcurrency(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tracker.RecordHit(i+1, time.Microsecond)
				tracker.RecordFetch("anime", 1, true, time.Microsecond)
				_ = tracker.Snapshot()
			}
		}()
	}
	wg.Wait()

	s := tracker.Snapshot()
	if s.Hits != 1000 {
		t.Errorf("Hits = %d, want 1000", s.Hits)
	}
	if s.FetchCount != 1000 {
		t.Errorf("FetchCount = %d, want 1000", s.FetchCount)
	}
}

func TestLoggingPublisher(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	publisher := NewLoggingPublisher(log, "env:test")

	publisher.Incr("entries.get", StatusTag("hit"))
	publisher.PublishHealthMetrics(&types.PublisherHealthMetrics{
		TotalEntries:      12,
		Capacity:          25,
		UsagePercentage:   48,
		HitRatio:          0.85,
		FetchSuccessRatio: 0.9,
		StorageAvailable:  true,
	})
	publisher.PublishHealthMetrics(nil)

	out := buf.String()
	for _, want := range []string{
		`"name":"entries.get"`,
		`"tags":["env:test","status:hit"]`,
		`"total_entries":12`,
		`"capacity":25`,
		`"storage_available":true`,
		`"message":"health_metrics"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "health_metrics"); n != 1 {
		t.Errorf("health_metrics logged %d times, want 1", n)
	}
	if err := publisher.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestLoggingPublisherDoesNotAliasBaseTags(t *testing.T) {
	base := make([]string, 1, 4)
	base[0] = "env:test"
	publisher := NewLoggingPublisher(zerolog.Nop(), base...)

	first := publisher.mergeTags([]string{"a:1"})
	second := publisher.mergeTags([]string{"b:2"})

	if first[1] != "a:1" || second[1] != "b:2" {
		t.Errorf("merged tags alias each other: %v %v", first, second)
	}
}

func TestBackgroundPublisher(t *testing.T) {
	health := func() *types.PublisherHealthMetrics {
		return &types.PublisherHealthMetrics{TotalEntries: 1, StorageAvailable: true}
	}

	t.Run("start and stop", func(t *testing.T) {
		publisher := &trackingPublisher{}
		bg := NewBackgroundPublisher(publisher, 10*time.Millisecond, health, zerolog.Nop())

		bg.Start(context.Background())
		time.Sleep(50 * time.Millisecond)
		bg.Stop()

		if publisher.publishCount.Load() < 1 {
			t.Error("expected at least one publish before stop")
		}
	})

	t.Run("publishes on stop", func(t *testing.T) {
		publisher := &trackingPublisher{}
		bg := NewBackgroundPublisher(publisher, time.Hour, health, zerolog.Nop())

		bg.Start(context.Background())
		before := publisher.publishCount.Load()
		bg.Stop()

		if publisher.publishCount.Load() <= before {
			t.Error("expected publish on stop")
		}
	})

	t.Run("publish now", func(t *testing.T) {
		publisher := &trackingPublisher{}
		bg := NewBackgroundPublisher(publisher, time.Hour, health, zerolog.Nop())

		bg.Start(context.Background())
		bg.PublishNow()
		bg.Stop()

		if publisher.publishCount.Load() < 2 {
			t.Error("expected at least 2 publishes (PublishNow + Stop)")
		}
	})

	t.Run("recovers from panic", func(t *testing.T) {
		publisher := &trackingPublisher{}
		bg := NewBackgroundPublisher(publisher, time.Hour, func() *types.PublisherHealthMetrics {
			panic("boom")
		}, zerolog.Nop())

		bg.PublishNow()

		if publisher.publishCount.Load() != 0 {
			t.Error("panicking health func must not publish")
		}
	})

	t.Run("nil health func", func(t *testing.T) {
		publisher := &trackingPublisher{}
		bg := NewBackgroundPublisher(publisher, time.Hour, nil, zerolog.Nop())
		bg.PublishNow()

		if publisher.publishCount.Load() != 0 {
			t.Error("nil health func must not publish")
		}
	})
}

func TestNoOp(t *testing.T) {
	tracker := NewNoOpTracker()
	tracker.RecordHit(1, time.Millisecond)
	tracker.RecordFetch("anime", 1, true, time.Millisecond)
	if s := tracker.Snapshot(); s.Hits != 0 {
		t.Errorf("NoOpTracker recorded hits: %+v", s)
	}

	publisher := NewNoOpPublisher()
	publisher.Gauge("x", 1)
	publisher.PublishHealthMetrics(&types.PublisherHealthMetrics{})
	if err := publisher.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p    int
		want time.Duration
	}{
		{p: 0, want: 1},
		{p: 50, want: 5},
		{p: 90, want: 9},
		{p: 100, want: 10},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%d) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if got := percentile(nil, 50); got != 0 {
		t.Errorf("percentile(nil) = %v, want 0", got)
	}
	if got := avgDuration(nil); got != 0 {
		t.Errorf("avgDuration(nil) = %v, want 0", got)
	}
}

func TestTagHelpers(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{Tag("a", "b"), "a:b"},
		{OperationTag("save"), "operation:save"},
		{StatusTag("hit"), "status:hit"},
		{ProviderTag("kodik"), "provider:kodik"},
		{FetchTag("anime"), "fetch:anime"},
		{BackendTag("sqlite"), "backend:sqlite"},
		{CircuitStateTag("open"), "circuit_state:open"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

type timingPublisher struct {
	NoOpPublisher
	name string
	d    time.Duration
}

func (p *timingPublisher) Timing(name string, d time.Duration, _ ...string) {
	p.name = name
	p.d = d
}

func TestTimer(t *testing.T) {
	publisher := &timingPublisher{}
	timer := NewTimer(publisher, "catalog.details", FetchTag("anime"))

	time.Sleep(5 * time.Millisecond)
	if timer.Elapsed() < 5*time.Millisecond {
		t.Error("Elapsed() shorter than sleep")
	}

	d := timer.Stop()
	if publisher.name != "catalog.details" {
		t.Errorf("timing name = %q", publisher.name)
	}
	if publisher.d != d || d < 5*time.Millisecond {
		t.Errorf("recorded %v, returned %v", publisher.d, d)
	}
}
