package nekocache

import (
	"github.com/LavishGent/nekocache/internal/types"
)

// Re-export health types from internal/types.
type (
	// HealthStatus represents the overall health state.
	HealthStatus = types.HealthStatus

	// HealthMetrics contains overall client health information.
	HealthMetrics = types.HealthMetrics

	// StorageHealthMetrics describes the backend holding the entry table.
	StorageHealthMetrics = types.StorageHealthMetrics

	// EntryHealthMetrics describes the entry table.
	EntryHealthMetrics = types.EntryHealthMetrics

	// ListHealthMetrics describes the feed list cache.
	ListHealthMetrics = types.ListHealthMetrics

	// MetricsSnapshot contains a point-in-time view of client metrics.
	MetricsSnapshot = types.MetricsSnapshot
)

// Re-export health status constants.
const (
	HealthStatusHealthy   = types.HealthStatusHealthy
	HealthStatusDegraded  = types.HealthStatusDegraded
	HealthStatusUnhealthy = types.HealthStatusUnhealthy
)
