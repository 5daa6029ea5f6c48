package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/resilience"
	"github.com/LavishGent/nekocache/internal/types"
)

const (
	disconnectErrorThreshold = 5
)

// RedisStore keeps records as plain Redis strings under a key prefix.
// Records never expire.
type RedisStore struct {
	client *redis.Client
	guard  resilience.Guard
	config config.RedisConfig
	log    zerolog.Logger

	mu            sync.RWMutex
	connected     atomic.Bool
	lastError     error
	lastErrorTime time.Time
	errorCount    atomic.Int64

	onCircuitChange func(from, to resilience.State)

	healthCheckStopCh chan struct{}
	healthCheckWg     sync.WaitGroup
	closeOnce         sync.Once
}

// NewRedisStore connects to Redis. A failed initial ping is not an error:
// the store starts unavailable and the health check reconnects it.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, guard resilience.Guard, log zerolog.Logger) (*RedisStore, error) {
	if guard == nil {
		guard = resilience.NewDisabledPolicy()
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
	}

	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in via config
		}
		if cfg.TLSSkipVerify {
			log.Warn().Msg("TLS certificate verification is disabled - this is insecure for production use")
		}
	}

	s := &RedisStore{
		client:            redis.NewClient(opts),
		guard:             guard,
		config:            cfg,
		log:               log,
		healthCheckStopCh: make(chan struct{}),
	}

	guard.SetOnCircuitStateChange(func(from, to resilience.State) {
		s.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Redis circuit state changed")
		s.mu.RLock()
		fn := s.onCircuitChange
		s.mu.RUnlock()
		if fn != nil {
			fn(from, to)
		}
	})

	pingCtx, cancel := context.WithTimeout(ctx, s.dialTimeout())
	defer cancel()

	if err := s.client.Ping(pingCtx).Err(); err != nil {
		s.log.Warn().Err(err).Str("address", cfg.Address).Msg("Redis initial connection failed")
		s.setError(err)
	} else {
		s.connected.Store(true)
		s.log.Info().Str("address", cfg.Address).Msg("Redis connected")
	}

	if cfg.HealthCheckInterval > 0 {
		s.healthCheckWg.Add(1)
		go s.healthCheckWorker()
	}

	return s, nil
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Available() bool {
	return s.connected.Load()
}

// CircuitState reports the guard's breaker state.
func (s *RedisStore) CircuitState() resilience.State {
	return s.guard.CircuitState()
}

// SetOnCircuitStateChange registers fn to run after each breaker transition.
func (s *RedisStore) SetOnCircuitStateChange(fn func(from, to resilience.State)) {
	s.mu.Lock()
	s.onCircuitChange = fn
	s.mu.Unlock()
}

func (s *RedisStore) dialTimeout() time.Duration {
	if s.config.DialTimeout > 0 {
		return s.config.DialTimeout
	}
	return 5 * time.Second
}

func (s *RedisStore) prefixKey(record string) string {
	return s.config.KeyPrefix + record
}

func (s *RedisStore) Load(ctx context.Context, record string) ([]byte, error) {
	if !s.connected.Load() {
		return nil, types.ErrStorageUnavailable
	}

	var data []byte
	found := true
	err := s.guard.Execute(ctx, func(ctx context.Context) error {
		b, err := s.client.Get(ctx, s.prefixKey(record)).Bytes()
		if errors.Is(err, redis.Nil) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		s.handleError(err)
		return nil, types.NewStorageError("load", record, s.Name(), err)
	}

	s.clearError()
	if !found {
		return nil, types.ErrRecordNotFound
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, record string, data []byte) error {
	if !s.connected.Load() {
		return types.NewStorageError("save", record, s.Name(), types.ErrStorageUnavailable)
	}

	err := s.guard.Execute(ctx, func(ctx context.Context) error {
		return s.client.Set(ctx, s.prefixKey(record), data, 0).Err()
	})
	if err != nil {
		s.handleError(err)
		return types.NewStorageError("save", record, s.Name(), err)
	}

	s.clearError()
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, record string) error {
	if !s.connected.Load() {
		return types.NewStorageError("delete", record, s.Name(), types.ErrStorageUnavailable)
	}

	err := s.guard.Execute(ctx, func(ctx context.Context) error {
		return s.client.Del(ctx, s.prefixKey(record)).Err()
	})
	if err != nil {
		s.handleError(err)
		return types.NewStorageError("delete", record, s.Name(), err)
	}

	s.clearError()
	return nil
}

func (s *RedisStore) healthCheckWorker() {
	defer s.healthCheckWg.Done()

	ticker := time.NewTicker(s.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.healthCheckStopCh:
			return
		case <-ticker.C:
			s.performHealthCheck()
		}
	}
}

func (s *RedisStore) performHealthCheck() {
	wasConnected := s.connected.Load()

	ctx, cancel := context.WithTimeout(context.Background(), s.dialTimeout())
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		if wasConnected {
			s.log.Warn().Err(err).Msg("Redis health check failed")
			s.setError(err)
		}
		return
	}

	if !wasConnected {
		s.connected.Store(true)
		s.errorCount.Store(0)
		s.log.Info().Msg("Redis connection restored via health check")
	}
}

func (s *RedisStore) handleError(err error) {
	// Rejections from the guard say nothing about the connection.
	if resilience.IsRejected(err) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastError = err
	s.lastErrorTime = time.Now()
	count := s.errorCount.Add(1)

	if count >= disconnectErrorThreshold {
		if s.connected.CompareAndSwap(true, false) {
			s.log.Warn().Int64("error_count", count).AnErr("last_error", err).Msg("Redis marked as disconnected after errors")
		}
	}
}

func (s *RedisStore) clearError() {
	if s.errorCount.Swap(0) > 0 {
		if s.connected.CompareAndSwap(false, true) {
			s.log.Info().Msg("Redis connection restored")
		}
	}
}

func (s *RedisStore) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
	s.lastErrorTime = time.Now()
	s.connected.Store(false)
}

// LastError returns the most recent failure and when it happened.
func (s *RedisStore) LastError() (error, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError, s.lastErrorTime
}

// Reconnect pings Redis and marks the store available on success.
func (s *RedisStore) Reconnect(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return err
	}
	s.connected.Store(true)
	s.errorCount.Store(0)
	s.log.Info().Msg("Redis reconnected successfully")
	return nil
}

func (s *RedisStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.connected.Store(false)
		close(s.healthCheckStopCh)
		s.healthCheckWg.Wait()
		err = s.client.Close()
	})
	return err
}

var (
	_ BlobStore       = (*RedisStore)(nil)
	_ ErrorReporter   = (*RedisStore)(nil)
	_ CircuitReporter = (*RedisStore)(nil)
	_ CircuitObserver = (*RedisStore)(nil)
)
