package nekocache

import (
	"context"
	"time"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/resilience"
)

// NewFromFile creates a client from a JSON config file with NEKOCACHE_*
// environment overrides applied.
func NewFromFile(path string, opts ...Option) (*Client, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Config returns a default configuration that can be modified before creating a client.
func Config() *config.Config {
	return config.DefaultConfig()
}

// TestConfig returns a configuration suitable for unit tests.
func TestConfig() *config.Config {
	return config.ForTesting()
}

// FetchWithRetry calls op until it succeeds or maxAttempts calls have failed,
// waiting delay between attempts. Errors are never returned: ok is false when
// no attempt produced a value. Zero maxAttempts or delay mean 10 and 2s.
func FetchWithRetry[T any](ctx context.Context, op func(context.Context) (T, error), maxAttempts int, delay time.Duration) (T, bool) {
	return resilience.FetchWithRetry(ctx, op, maxAttempts, delay)
}
