package datadog

import (
	"time"

	"github.com/LavishGent/nekocache/internal/types"
)

// NoOpPublisher is returned when DataDog is disabled.
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

var _ types.Publisher = (*NoOpPublisher)(nil)
