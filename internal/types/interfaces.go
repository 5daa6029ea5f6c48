package types

import (
	"time"
)

type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, dest interface{}) error
}

// MetricsRecorder receives entry cache, storage and fetch events.
type MetricsRecorder interface {
	RecordHit(key int, latency time.Duration)
	RecordMiss(key int, latency time.Duration)
	RecordPut(key int, provider string, size int, latency time.Duration)
	RecordEviction(key int)
	RecordStorageError(op string, err error)
	RecordFetch(name string, attempts int, ok bool, latency time.Duration)
	RecordCircuitBreakerStateChange(from, to string)
}

// FetchRecorder is the subset of MetricsRecorder used by the retry loop.
type FetchRecorder interface {
	RecordFetch(name string, attempts int, ok bool, latency time.Duration)
}

type Publisher interface {
	Gauge(name string, value float64, tags ...string)
	Incr(name string, tags ...string)
	Count(name string, value int64, tags ...string)
	Histogram(name string, value float64, tags ...string)
	Timing(name string, duration time.Duration, tags ...string)
	Event(title, text string, alertType string, tags ...string)
	PublishHealthMetrics(metrics *PublisherHealthMetrics)
	Close() error
}

type PublisherHealthMetrics struct {
	TotalEntries      int64
	Capacity          int64
	UsagePercentage   float64
	HitRatio          float64
	FetchSuccessRatio float64
	AverageLatencyMs  float64
	StorageAvailable  bool
}
