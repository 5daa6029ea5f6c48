package listcache

import (
	"context"

	"github.com/LavishGent/nekocache/internal/types"
)

// Disabled never stores anything; every Get misses.
type Disabled struct{}

// NewDisabled creates a disabled list cache.
func NewDisabled() *Disabled {
	return &Disabled{}
}

func (Disabled) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (Disabled) Set(context.Context, string, []byte) error { return nil }

func (Disabled) Delete(context.Context, string) error { return nil }

func (Disabled) ClearByPattern(context.Context, string) error { return nil }

func (Disabled) Health() types.ListHealthMetrics {
	return types.ListHealthMetrics{Status: types.HealthStatusHealthy}
}

func (Disabled) Close() error { return nil }

var _ Store = (*Disabled)(nil)
