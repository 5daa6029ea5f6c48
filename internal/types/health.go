package types

import "time"

// HealthStatus represents the overall health state.
type HealthStatus int

const (
	// HealthStatusHealthy indicates all systems operating normally.
	HealthStatusHealthy HealthStatus = iota + 1
	// HealthStatusDegraded indicates partial functionality (e.g., storage unavailable).
	HealthStatusDegraded
	// HealthStatusUnhealthy indicates critical failure.
	HealthStatusUnhealthy
)

// String returns the string representation of health status.
func (s HealthStatus) String() string {
	switch s {
	case HealthStatusHealthy:
		return "healthy"
	case HealthStatusDegraded:
		return "degraded"
	case HealthStatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HealthMetrics contains overall client health information.
type HealthMetrics struct {
	Timestamp time.Time
	Storage   StorageHealthMetrics
	Entries   EntryHealthMetrics
	Lists     ListHealthMetrics
	Status    HealthStatus
}

// StorageHealthMetrics describes the backend holding the entry table.
//
//nolint:govet // Metrics struct - logical grouping prioritized for readability
type StorageHealthMetrics struct {
	LastErrorTime       time.Time
	Backend             string
	CircuitBreakerState string
	LastError           string
	Status              HealthStatus
	Available           bool
	Durable             bool
}

// EntryHealthMetrics describes the bounded entry table.
type EntryHealthMetrics struct {
	Status          HealthStatus
	Count           int
	Capacity        int
	UsagePercentage float64
	HitCount        int64
	MissCount       int64
	HitRatio        float64
	EvictionCount   int64
}

// ListHealthMetrics contains feed list cache details.
type ListHealthMetrics struct {
	Status          HealthStatus
	Available       bool
	EntryCount      int
	SizeBytes       int64
	MaxSizeBytes    int64
	UsagePercentage float64
	HitCount        int64
	MissCount       int64
	HitRatio        float64
	EvictionCount   int64
}

// MetricsSnapshot contains a point-in-time view of client metrics.
//
//nolint:govet // Metrics struct with many counters - grouping by category improves readability
type MetricsSnapshot struct {
	Timestamp time.Time
	// Entry cache counters
	Hits          int64
	Misses        int64
	PutCount      int64
	Evictions     int64
	StorageErrors int64
	BytesWritten  int64

	// Fetch counters
	FetchCount     int64
	FetchSucceeded int64
	FetchExhausted int64
	FetchAttempts  int64

	// Latency metrics (milliseconds)
	AvgLatencyMs float64
	P50LatencyMs float64
	P95LatencyMs float64
	P99LatencyMs float64

	CircuitBreakerChanges int64
}

// HitRatio calculates the entry cache hit ratio.
func (s *MetricsSnapshot) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// FetchSuccessRatio is the share of fetches that produced a result.
func (s *MetricsSnapshot) FetchSuccessRatio() float64 {
	if s.FetchCount == 0 {
		return 0
	}
	return float64(s.FetchSucceeded) / float64(s.FetchCount)
}

// Retries is the number of attempts beyond the first, across all fetches.
func (s *MetricsSnapshot) Retries() int64 {
	r := s.FetchAttempts - s.FetchCount
	if r < 0 {
		return 0
	}
	return r
}
