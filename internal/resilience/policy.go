package resilience

import (
	"context"

	"github.com/LavishGent/nekocache/internal/config"
)

// Guard wraps calls to a remote dependency.
type Guard interface {
	Execute(ctx context.Context, fn func(context.Context) error) error
	CircuitState() State
	SetOnCircuitStateChange(fn func(from, to State))
}

// Policy guards a remote store: a bulkhead caps in-flight calls and a circuit
// breaker fails fast while the store is down. Calls are not retried; a lost
// write is reported to the caller instead.
type Policy struct {
	breaker  *CircuitBreaker
	limiter  Limiter
	breakers bool
}

// NewPolicy builds a guard for the named dependency.
func NewPolicy(name string, cfg *config.Config) Guard {
	if !cfg.CircuitBreaker.Enabled && !cfg.Bulkhead.Enabled {
		return NewDisabledPolicy()
	}
	return &Policy{
		breaker:  NewCircuitBreaker(name, cfg.CircuitBreaker),
		breakers: cfg.CircuitBreaker.Enabled,
		limiter:  NewLimiter(cfg.Bulkhead),
	}
}

// Execute runs fn inside the bulkhead, then through the breaker.
// Bulkhead rejections never count as breaker failures.
func (p *Policy) Execute(ctx context.Context, fn func(context.Context) error) error {
	return p.limiter.Do(ctx, func(ctx context.Context) error {
		if !p.breakers {
			return fn(ctx)
		}
		return p.breaker.Execute(ctx, fn)
	})
}

// CircuitState returns the current circuit breaker state.
func (p *Policy) CircuitState() State {
	if !p.breakers {
		return StateClosed
	}
	return p.breaker.State()
}

// SetOnCircuitStateChange sets a callback for circuit state changes.
func (p *Policy) SetOnCircuitStateChange(fn func(from, to State)) {
	p.breaker.SetOnStateChange(fn)
}

// BulkheadStats returns bulkhead statistics.
func (p *Policy) BulkheadStats() BulkheadStats {
	return p.limiter.Stats()
}

// DisabledPolicy calls straight through.
type DisabledPolicy struct{}

// NewDisabledPolicy creates a disabled policy.
func NewDisabledPolicy() *DisabledPolicy {
	return &DisabledPolicy{}
}

func (p *DisabledPolicy) Execute(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (p *DisabledPolicy) CircuitState() State { return StateClosed }

func (p *DisabledPolicy) SetOnCircuitStateChange(fn func(from, to State)) {}

var (
	_ Guard = (*Policy)(nil)
	_ Guard = (*DisabledPolicy)(nil)
)
