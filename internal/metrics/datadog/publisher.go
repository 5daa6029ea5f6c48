// Package datadog provides a DataDog StatsD metrics publisher.
package datadog

import (
	"fmt"
	"slices"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/types"
)

// Publisher implements types.Publisher using the DataDog StatsD client.
//
//nolint:govet // Small struct - minimal alignment benefit
type Publisher struct {
	baseTags []string
	client   statsd.ClientInterface
	log      zerolog.Logger
}

// NewPublisher creates a new DataDog publisher from config.
// If DataDog is not enabled, returns a NoOpPublisher instead.
func NewPublisher(cfg config.DataDogConfig, log zerolog.Logger) (types.Publisher, error) {
	if !cfg.Enabled {
		return &NoOpPublisher{}, nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.AgentHost, cfg.Port)

	client, err := statsd.New(addr,
		statsd.WithNamespace(cfg.Prefix+"."),
		statsd.WithTags(cfg.Tags),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create statsd client: %w", err)
	}

	log.Info().
		Str("address", addr).
		Str("prefix", cfg.Prefix).
		Strs("tags", cfg.Tags).
		Msg("DataDog publisher initialized")

	return newPublisher(client, nil, log), nil
}

// newPublisher wraps an existing client. Tags already set on the client
// through statsd.WithTags are not repeated here.
func newPublisher(client statsd.ClientInterface, baseTags []string, log zerolog.Logger) *Publisher {
	return &Publisher{
		client:   client,
		baseTags: baseTags,
		log:      log.With().Str("component", "datadog").Logger(),
	}
}

// Gauge records a gauge metric (value at a point in time).
func (p *Publisher) Gauge(name string, value float64, tags ...string) {
	if err := p.client.Gauge(name, value, p.mergeTags(tags), 1); err != nil {
		p.log.Debug().Err(err).Str("name", name).Msg("Failed to send gauge metric")
	}
}

// Incr increments a counter by 1.
func (p *Publisher) Incr(name string, tags ...string) {
	if err := p.client.Incr(name, p.mergeTags(tags), 1); err != nil {
		p.log.Debug().Err(err).Str("name", name).Msg("Failed to send incr metric")
	}
}

// Count increments a counter by a specified amount.
func (p *Publisher) Count(name string, value int64, tags ...string) {
	if err := p.client.Count(name, value, p.mergeTags(tags), 1); err != nil {
		p.log.Debug().Err(err).Str("name", name).Msg("Failed to send count metric")
	}
}

// Histogram records a distribution of values.
func (p *Publisher) Histogram(name string, value float64, tags ...string) {
	if err := p.client.Histogram(name, value, p.mergeTags(tags), 1); err != nil {
		p.log.Debug().Err(err).Str("name", name).Msg("Failed to send histogram metric")
	}
}

// Timing records a timing metric.
func (p *Publisher) Timing(name string, duration time.Duration, tags ...string) {
	if err := p.client.Timing(name, duration, p.mergeTags(tags), 1); err != nil {
		p.log.Debug().Err(err).Str("name", name).Msg("Failed to send timing metric")
	}
}

// Event sends a DataDog event.
func (p *Publisher) Event(title, text, alertType string, tags ...string) {
	event := &statsd.Event{
		Title:     title,
		Text:      text,
		AlertType: statsd.EventAlertType(alertType),
		Tags:      p.mergeTags(tags),
	}
	if err := p.client.Event(event); err != nil {
		p.log.Debug().Err(err).Str("title", title).Msg("Failed to send event")
	}
}

// PublishHealthMetrics publishes a batch of health metrics.
func (p *Publisher) PublishHealthMetrics(m *types.PublisherHealthMetrics) {
	if m == nil {
		return
	}

	p.Gauge("entries.total", float64(m.TotalEntries))
	p.Gauge("entries.capacity", float64(m.Capacity))
	p.Gauge("entries.usage_percentage", clamp(m.UsagePercentage, 0, 100))
	p.Gauge("performance.hit_ratio", clamp(m.HitRatio, 0, 1))
	p.Gauge("performance.fetch_success_ratio", clamp(m.FetchSuccessRatio, 0, 1))
	p.Gauge("performance.average_latency_ms", max(0, m.AverageLatencyMs))

	available := 0.0
	if m.StorageAvailable {
		available = 1.0
	}
	p.Gauge("storage.available", available)
}

// Close flushes and releases the client.
func (p *Publisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func (p *Publisher) mergeTags(tags []string) []string {
	if len(tags) == 0 {
		return p.baseTags
	}
	if len(p.baseTags) == 0 {
		return tags
	}
	return slices.Concat(p.baseTags, tags)
}

func clamp(val, minVal, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

var _ types.Publisher = (*Publisher)(nil)
