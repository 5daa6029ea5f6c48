package metrics

import (
	"time"

	"github.com/LavishGent/nekocache/internal/types"
)

// NoOpTracker discards everything.
type NoOpTracker struct{}

// NewNoOpTracker creates a new no-op tracker.
func NewNoOpTracker() *NoOpTracker {
	return &NoOpTracker{}
}

func (t *NoOpTracker) RecordHit(int, time.Duration) {}

func (t *NoOpTracker) RecordMiss(int, time.Duration) {}

func (t *NoOpTracker) RecordPut(int, string, int, time.Duration) {}

func (t *NoOpTracker) RecordEviction(int) {}

func (t *NoOpTracker) RecordStorageError(string, error) {}

func (t *NoOpTracker) RecordFetch(string, int, bool, time.Duration) {}

func (t *NoOpTracker) RecordCircuitBreakerStateChange(string, string) {}

// Snapshot returns empty metrics.
func (t *NoOpTracker) Snapshot() types.MetricsSnapshot { return types.MetricsSnapshot{} }

// Reset does nothing.
func (t *NoOpTracker) Reset() {}

// NoOpPublisher is used when publishing is disabled.
type NoOpPublisher struct{}

// NewNoOpPublisher creates a new no-op publisher.
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

func (p *NoOpPublisher) Gauge(string, float64, ...string) {}

func (p *NoOpPublisher) Incr(string, ...string) {}

func (p *NoOpPublisher) Count(string, int64, ...string) {}

func (p *NoOpPublisher) Histogram(string, float64, ...string) {}

func (p *NoOpPublisher) Timing(string, time.Duration, ...string) {}

func (p *NoOpPublisher) Event(string, string, string, ...string) {}

func (p *NoOpPublisher) PublishHealthMetrics(*types.PublisherHealthMetrics) {}

func (p *NoOpPublisher) Close() error { return nil }

var (
	_ types.MetricsRecorder = (*NoOpTracker)(nil)
	_ types.Publisher       = (*NoOpPublisher)(nil)
)
