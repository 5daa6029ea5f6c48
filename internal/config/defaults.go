package config

import "time"

const (
	DefaultCapacity    = 25
	DefaultRecordName  = "anime-entries"
	DefaultMaxAttempts = 10
	DefaultDelay       = 2 * time.Second

	DefaultLibraryRecord   = "anime-library"
	DefaultWatchTimeRecord = "watch-time"
	DefaultHistoryLimit    = 100
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Cache: EntryCacheConfig{
			RecordName: DefaultRecordName,
			Capacity:   DefaultCapacity,
		},
		Library: LibraryConfig{
			RecordName:      DefaultLibraryRecord,
			WatchTimeRecord: DefaultWatchTimeRecord,
			HistoryLimit:    DefaultHistoryLimit,
		},
		Fetch: FetchConfig{
			MaxAttempts: DefaultMaxAttempts,
			Delay:       DefaultDelay,
			Backoff: BackoffConfig{
				Enabled:    false,
				Initial:    500 * time.Millisecond,
				Max:        10 * time.Second,
				Multiplier: 2.0,
				Jitter:     true,
			},
		},
		Storage: StorageConfig{
			Backend: "file",
			File: FileConfig{
				Dir: ".nekocache",
			},
			SQLite: SQLiteConfig{
				Path:        ".nekocache/nekocache.db",
				BusyTimeout: time.Second,
			},
			Memory: MemoryConfig{
				MaxSizeMB:    16,
				Shards:       16,
				MaxEntrySize: 1024 * 1024,
			},
			Redis: RedisConfig{
				Address:             "localhost:6379",
				Password:            SecretString{},
				DB:                  0,
				KeyPrefix:           "nekocache:",
				PoolSize:            10,
				MinIdleConns:        1,
				DialTimeout:         5 * time.Second,
				ReadTimeout:         3 * time.Second,
				WriteTimeout:        3 * time.Second,
				PoolTimeout:         4 * time.Second,
				HealthCheckInterval: 5 * time.Second,
			},
		},
		Upstream: UpstreamConfig{
			Metadata: EndpointConfig{
				BaseURL: "https://shikimori.one/api",
				SiteURL: "https://shikimori.one",
			},
			Sources: EndpointConfig{
				BaseURL: "http://neko-kodik.deno.dev",
			},
			UserAgent:         "nekocache/1.0",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 3,
			Burst:             1,
		},
		Lists: ListsConfig{
			Enabled:      true,
			TTL:          10 * time.Minute,
			MaxSizeMB:    32,
			Shards:       64,
			MaxEntrySize: 2 * 1024 * 1024,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:             true,
			FailureThreshold:    5,
			SuccessThreshold:    2,
			OpenDuration:        30 * time.Second,
			HalfOpenMaxRequests: 1,
		},
		Bulkhead: BulkheadConfig{
			Enabled:        true,
			MaxConcurrent:  4,
			MaxQueue:       32,
			AcquireTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			PublishInterval: 30 * time.Second,
			DataDog: DataDogConfig{
				Enabled:   false,
				AgentHost: "127.0.0.1",
				Port:      8125,
				Prefix:    "nekocache",
				Tags:      []string{},
			},
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests:
// in-memory storage, millisecond retry delays and no rate limiting.
func ForTesting() *Config {
	cfg := DefaultConfig()
	cfg.Fetch.MaxAttempts = 3
	cfg.Fetch.Delay = 5 * time.Millisecond
	cfg.Fetch.Backoff.Initial = 5 * time.Millisecond
	cfg.Fetch.Backoff.Max = 20 * time.Millisecond
	cfg.Fetch.Backoff.Jitter = false
	cfg.Storage.Backend = "memory"
	cfg.Storage.Redis.KeyPrefix = "test:"
	cfg.Storage.Redis.DialTimeout = time.Second
	cfg.Storage.Redis.ReadTimeout = time.Second
	cfg.Storage.Redis.WriteTimeout = time.Second
	cfg.Storage.Redis.PoolTimeout = time.Second
	cfg.Storage.Redis.HealthCheckInterval = 0
	cfg.Upstream.Timeout = 2 * time.Second
	cfg.Upstream.RequestsPerSecond = 0
	cfg.Lists.TTL = time.Minute
	cfg.Lists.MaxSizeMB = 4
	cfg.Lists.Shards = 4
	cfg.CircuitBreaker.Enabled = false
	cfg.CircuitBreaker.FailureThreshold = 3
	cfg.CircuitBreaker.SuccessThreshold = 1
	cfg.CircuitBreaker.OpenDuration = time.Second
	cfg.Bulkhead.Enabled = false
	cfg.Bulkhead.AcquireTimeout = 50 * time.Millisecond
	cfg.Metrics.Enabled = false
	cfg.Metrics.PublishInterval = time.Second
	cfg.Logging.Level = "disabled"
	return cfg
}

// ForTestingWithRedis returns a test config persisting to Redis at addr.
func ForTestingWithRedis(addr string) *Config {
	cfg := ForTesting()
	cfg.Storage.Backend = "redis"
	cfg.Storage.Redis.Address = addr
	cfg.CircuitBreaker.Enabled = true
	return cfg
}
