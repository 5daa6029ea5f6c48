package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/types"
)

// DelaySchedule returns how long to wait after the given failed attempt.
// Attempts are numbered from 1.
type DelaySchedule func(attempt int) time.Duration

// FixedDelay waits d after every failed attempt.
func FixedDelay(d time.Duration) DelaySchedule {
	return func(int) time.Duration { return d }
}

// ExponentialDelay grows the wait by multiplier per attempt, capped at maxDelay,
// with optional ±25% jitter.
func ExponentialDelay(initial time.Duration, multiplier float64, maxDelay time.Duration, jitter bool) DelaySchedule {
	if multiplier < 1 {
		multiplier = 1
	}
	return func(attempt int) time.Duration {
		backoff := float64(initial) * math.Pow(multiplier, float64(attempt-1))
		if maxDelay > 0 && backoff > float64(maxDelay) {
			backoff = float64(maxDelay)
		}
		if jitter {
			jitterRange := backoff * 0.25
			backoff += (rand.Float64() * 2 * jitterRange) - jitterRange
		}
		return time.Duration(backoff)
	}
}

// RetryPolicy bounds how often and how patiently an operation is retried.
// It is a value: copies are independent and it holds no state between calls.
type RetryPolicy struct {
	Delay       DelaySchedule
	MaxAttempts int
}

// DefaultRetryPolicy makes up to 10 attempts, 2s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: config.DefaultMaxAttempts,
		Delay:       FixedDelay(config.DefaultDelay),
	}
}

// NewRetryPolicy builds a policy from the fetch config.
func NewRetryPolicy(cfg config.FetchConfig) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       FixedDelay(cfg.Delay),
	}
	if cfg.Backoff.Enabled {
		p.Delay = ExponentialDelay(cfg.Backoff.Initial, cfg.Backoff.Multiplier, cfg.Backoff.Max, cfg.Backoff.Jitter)
	}
	return p
}

// Validate rejects policies that can never invoke the operation.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: maxAttempts must be at least 1, got %d", p.MaxAttempts)
	}
	return nil
}

// attempts is MaxAttempts with anything below one treated as a single attempt.
func (p RetryPolicy) attempts() int {
	return max(p.MaxAttempts, 1)
}

func (p RetryPolicy) wait(attempt int) time.Duration {
	if p.Delay == nil {
		return 0
	}
	if d := p.Delay(attempt); d > 0 {
		return d
	}
	return 0
}

// attemptLog is the state carried through one retry loop.
type attemptLog[T any] struct {
	value    T
	lastErr  error
	attempts int
	ok       bool
}

// run drives the attempt loop: call, and on failure either stop (budget spent
// or context done) or sleep for the scheduled delay and call again.
// No delay follows the final attempt.
func run[T any](
	ctx context.Context,
	p RetryPolicy,
	op func(context.Context) (T, error),
	onFailure func(attempt int, err error, wait time.Duration),
) attemptLog[T] {
	var state attemptLog[T]
	maxAttempts := p.attempts()

	for state.attempts < maxAttempts {
		if ctx.Err() != nil {
			break
		}

		state.attempts++
		v, err := invoke(ctx, op)
		if err == nil {
			state.value = v
			state.ok = true
			state.lastErr = nil
			return state
		}
		state.lastErr = err

		if state.attempts == maxAttempts {
			break
		}

		wait := p.wait(state.attempts)
		if onFailure != nil {
			onFailure(state.attempts, err, wait)
		}
		if !sleep(ctx, wait) {
			break
		}
	}

	return state
}

// invoke calls op, turning a panic into an ordinary failed attempt.
func invoke[T any](ctx context.Context, op func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Fetch runs op under policy. It returns the first successful value and true,
// or the zero value and false once every attempt has failed or ctx is done.
// A policy with MaxAttempts below one still makes a single attempt.
// Failures are never returned: every error is retried the same way.
func Fetch[T any](ctx context.Context, policy RetryPolicy, op func(context.Context) (T, error)) (T, bool) {
	state := run(ctx, policy, op, nil)
	return state.value, state.ok
}

// FetchWithRetry is Fetch with a fixed delay. Zero maxAttempts or delay select
// the defaults of 10 attempts and 2s; build a RetryPolicy for a zero delay.
func FetchWithRetry[T any](ctx context.Context, op func(context.Context) (T, error), maxAttempts int, delay time.Duration) (T, bool) {
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultMaxAttempts
	}
	if delay <= 0 {
		delay = config.DefaultDelay
	}
	return Fetch(ctx, RetryPolicy{MaxAttempts: maxAttempts, Delay: FixedDelay(delay)}, op)
}

// Fetcher applies one RetryPolicy to named upstream calls, logging each
// failed attempt and reporting the outcome to a FetchRecorder.
type Fetcher struct {
	recorder types.FetchRecorder
	log      zerolog.Logger
	policy   RetryPolicy
}

// NewFetcher creates a Fetcher. A nil recorder disables metrics.
func NewFetcher(policy RetryPolicy, log zerolog.Logger, recorder types.FetchRecorder) *Fetcher {
	return &Fetcher{
		policy:   policy,
		log:      log.With().Str("component", "fetcher").Logger(),
		recorder: recorder,
	}
}

// Policy returns the retry policy in use.
func (f *Fetcher) Policy() RetryPolicy {
	return f.policy
}

// FetchWith runs op through f. name identifies the call in logs and metrics.
func FetchWith[T any](ctx context.Context, f *Fetcher, name string, op func(context.Context) (T, error)) (T, bool) {
	start := time.Now()

	state := run(ctx, f.policy, op, func(attempt int, err error, wait time.Duration) {
		f.log.Debug().
			Str("fetch", name).
			Int("attempt", attempt).
			Int("max_attempts", f.policy.attempts()).
			Dur("retry_in", wait).
			Err(err).
			Msg("Fetch attempt failed")
	})

	if f.recorder != nil {
		f.recorder.RecordFetch(name, state.attempts, state.ok, time.Since(start))
	}

	if !state.ok {
		f.log.Warn().
			Str("fetch", name).
			Int("attempts", state.attempts).
			AnErr("last_error", state.lastErr).
			Msg("Fetch gave up without a result")
	}

	return state.value, state.ok
}
