package metrics

import (
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/types"
)

// LoggingPublisher writes metrics to a zerolog logger. Point metrics go out at
// debug level, health batches and events at info.
type LoggingPublisher struct {
	log      zerolog.Logger
	baseTags []string
}

// NewLoggingPublisher creates a new logging publisher.
func NewLoggingPublisher(log zerolog.Logger, baseTags ...string) *LoggingPublisher {
	return &LoggingPublisher{
		log:      log.With().Str("component", "metrics").Logger(),
		baseTags: baseTags,
	}
}

func (p *LoggingPublisher) Gauge(name string, value float64, tags ...string) {
	p.log.Debug().Str("name", name).Float64("value", value).Strs("tags", p.mergeTags(tags)).Msg("gauge")
}

func (p *LoggingPublisher) Incr(name string, tags ...string) {
	p.log.Debug().Str("name", name).Strs("tags", p.mergeTags(tags)).Msg("incr")
}

func (p *LoggingPublisher) Count(name string, value int64, tags ...string) {
	p.log.Debug().Str("name", name).Int64("value", value).Strs("tags", p.mergeTags(tags)).Msg("count")
}

func (p *LoggingPublisher) Histogram(name string, value float64, tags ...string) {
	p.log.Debug().Str("name", name).Float64("value", value).Strs("tags", p.mergeTags(tags)).Msg("histogram")
}

func (p *LoggingPublisher) Timing(name string, duration time.Duration, tags ...string) {
	p.log.Debug().Str("name", name).Int64("duration_ms", duration.Milliseconds()).Strs("tags", p.mergeTags(tags)).Msg("timing")
}

func (p *LoggingPublisher) Event(title, text, alertType string, tags ...string) {
	p.log.Info().
		Str("title", title).
		Str("text", text).
		Str("alert_type", alertType).
		Strs("tags", p.mergeTags(tags)).
		Msg("event")
}

// PublishHealthMetrics logs a batch of health metrics.
func (p *LoggingPublisher) PublishHealthMetrics(m *types.PublisherHealthMetrics) {
	if m == nil {
		return
	}

	p.log.Info().
		Int64("total_entries", m.TotalEntries).
		Int64("capacity", m.Capacity).
		Float64("usage_pct", m.UsagePercentage).
		Float64("hit_ratio", m.HitRatio).
		Float64("fetch_success_ratio", m.FetchSuccessRatio).
		Float64("avg_latency_ms", m.AverageLatencyMs).
		Bool("storage_available", m.StorageAvailable).
		Msg("health_metrics")
}

// Close does nothing for logging publisher.
func (p *LoggingPublisher) Close() error {
	return nil
}

func (p *LoggingPublisher) mergeTags(tags []string) []string {
	if len(tags) == 0 {
		return p.baseTags
	}
	if len(p.baseTags) == 0 {
		return tags
	}
	return slices.Concat(p.baseTags, tags)
}

var _ types.Publisher = (*LoggingPublisher)(nil)
