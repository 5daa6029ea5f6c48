package resilience

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/LavishGent/nekocache/internal/config"
)

// Limiter bounds concurrent calls to a dependency.
type Limiter interface {
	Do(ctx context.Context, fn func(context.Context) error) error
	Stats() BulkheadStats
}

// Bulkhead admits at most maxConcurrent callers, parks up to maxQueue more
// for acquireTimeout, and rejects the rest.
type Bulkhead struct {
	slots   chan struct{}
	waiting chan struct{}

	acquireTimeout time.Duration
	maxConcurrent  int
	maxQueue       int

	active   atomic.Int32
	rejected atomic.Int64
	executed atomic.Int64
}

// NewBulkhead creates a bulkhead from config, filling in defaults.
func NewBulkhead(cfg config.BulkheadConfig) *Bulkhead {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	maxQueue := cfg.MaxQueue
	if maxQueue < 0 {
		maxQueue = 0
	}
	acquireTimeout := cfg.AcquireTimeout
	if acquireTimeout <= 0 {
		acquireTimeout = time.Second
	}

	return &Bulkhead{
		maxConcurrent:  maxConcurrent,
		maxQueue:       maxQueue,
		acquireTimeout: acquireTimeout,
		slots:          make(chan struct{}, maxConcurrent),
		waiting:        make(chan struct{}, maxQueue),
	}
}

// Do runs fn once a slot is free.
func (b *Bulkhead) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-b.slots }()

	b.active.Add(1)
	defer b.active.Add(-1)

	err := fn(ctx)
	b.executed.Add(1)
	return err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
	}

	select {
	case b.waiting <- struct{}{}:
	default:
		b.rejected.Add(1)
		return ErrBulkheadFull
	}
	defer func() { <-b.waiting }()

	timer := time.NewTimer(b.acquireTimeout)
	defer timer.Stop()

	select {
	case b.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		b.rejected.Add(1)
		return ctx.Err()
	case <-timer.C:
		b.rejected.Add(1)
		return ErrBulkheadTimeout
	}
}

// Stats returns bulkhead statistics.
func (b *Bulkhead) Stats() BulkheadStats {
	return BulkheadStats{
		MaxConcurrent: b.maxConcurrent,
		MaxQueue:      b.maxQueue,
		Active:        int(b.active.Load()),
		Queued:        len(b.waiting),
		TotalExecuted: b.executed.Load(),
		TotalRejected: b.rejected.Load(),
	}
}

// BulkheadStats contains bulkhead statistics.
type BulkheadStats struct {
	MaxConcurrent int
	MaxQueue      int
	Active        int
	Queued        int
	TotalExecuted int64
	TotalRejected int64
}

// DisabledBulkhead runs every call immediately.
type DisabledBulkhead struct {
	executed atomic.Int64
}

// NewDisabledBulkhead creates a disabled bulkhead.
func NewDisabledBulkhead() *DisabledBulkhead {
	return &DisabledBulkhead{}
}

func (b *DisabledBulkhead) Do(ctx context.Context, fn func(context.Context) error) error {
	b.executed.Add(1)
	return fn(ctx)
}

func (b *DisabledBulkhead) Stats() BulkheadStats {
	return BulkheadStats{TotalExecuted: b.executed.Load()}
}

// NewLimiter returns a Bulkhead, or a DisabledBulkhead when cfg is off.
func NewLimiter(cfg config.BulkheadConfig) Limiter {
	if !cfg.Enabled {
		return NewDisabledBulkhead()
	}
	return NewBulkhead(cfg)
}

var (
	_ Limiter = (*Bulkhead)(nil)
	_ Limiter = (*DisabledBulkhead)(nil)
)
