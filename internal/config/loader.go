package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/types"
)

const envPrefix = "NEKOCACHE_"

// Load loads configuration from a JSON file.
// If the file doesn't exist, returns default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a JSON file and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func env(name string) string {
	return os.Getenv(envPrefix + name)
}

//nolint:gocyclo // Environment variable parsing requires many conditional checks
func applyEnvOverrides(cfg *Config) {
	if v := env("CACHE_CAPACITY"); v != "" {
		cfg.Cache.Capacity = parseInt(v, cfg.Cache.Capacity)
	}
	if v := env("CACHE_RECORD_NAME"); v != "" {
		cfg.Cache.RecordName = v
	}

	if v := env("LIBRARY_RECORD_NAME"); v != "" {
		cfg.Library.RecordName = v
	}
	if v := env("LIBRARY_WATCH_TIME_RECORD"); v != "" {
		cfg.Library.WatchTimeRecord = v
	}
	if v := env("LIBRARY_HISTORY_LIMIT"); v != "" {
		cfg.Library.HistoryLimit = parseInt(v, cfg.Library.HistoryLimit)
	}

	if v := env("FETCH_MAX_ATTEMPTS"); v != "" {
		cfg.Fetch.MaxAttempts = parseInt(v, cfg.Fetch.MaxAttempts)
	}
	if v := env("FETCH_DELAY"); v != "" {
		cfg.Fetch.Delay = parseDuration(v, cfg.Fetch.Delay)
	}
	if v := env("FETCH_BACKOFF_ENABLED"); v != "" {
		cfg.Fetch.Backoff.Enabled = parseBool(v)
	}

	if v := env("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := env("STORAGE_FILE_DIR"); v != "" {
		cfg.Storage.File.Dir = v
	}
	if v := env("STORAGE_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLite.Path = v
	}

	if v := env("REDIS_ADDRESS"); v != "" {
		cfg.Storage.Redis.Address = v
	}
	if v := env("REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = NewSecretString(v)
	}
	if v := env("REDIS_DB"); v != "" {
		cfg.Storage.Redis.DB = parseInt(v, cfg.Storage.Redis.DB)
	}
	if v := env("REDIS_KEY_PREFIX"); v != "" {
		cfg.Storage.Redis.KeyPrefix = v
	}
	if v := env("REDIS_ENABLE_TLS"); v != "" {
		cfg.Storage.Redis.EnableTLS = parseBool(v)
	}

	if v := env("METADATA_BASE_URL"); v != "" {
		cfg.Upstream.Metadata.BaseURL = v
	}
	if v := env("SOURCES_BASE_URL"); v != "" {
		cfg.Upstream.Sources.BaseURL = v
	}
	if v := env("USER_AGENT"); v != "" {
		cfg.Upstream.UserAgent = v
	}
	if v := env("UPSTREAM_TIMEOUT"); v != "" {
		cfg.Upstream.Timeout = parseDuration(v, cfg.Upstream.Timeout)
	}
	if v := env("UPSTREAM_RPS"); v != "" {
		cfg.Upstream.RequestsPerSecond = parseFloat(v, cfg.Upstream.RequestsPerSecond)
	}

	if v := env("LISTS_ENABLED"); v != "" {
		cfg.Lists.Enabled = parseBool(v)
	}
	if v := env("LISTS_TTL"); v != "" {
		cfg.Lists.TTL = parseDuration(v, cfg.Lists.TTL)
	}

	if v := env("CIRCUIT_BREAKER_ENABLED"); v != "" {
		cfg.CircuitBreaker.Enabled = parseBool(v)
	}
	if v := env("CIRCUIT_BREAKER_FAILURE_THRESHOLD"); v != "" {
		cfg.CircuitBreaker.FailureThreshold = parseInt(v, cfg.CircuitBreaker.FailureThreshold)
	}
	if v := env("CIRCUIT_BREAKER_OPEN_DURATION"); v != "" {
		cfg.CircuitBreaker.OpenDuration = parseDuration(v, cfg.CircuitBreaker.OpenDuration)
	}

	if v := env("BULKHEAD_ENABLED"); v != "" {
		cfg.Bulkhead.Enabled = parseBool(v)
	}
	if v := env("BULKHEAD_MAX_CONCURRENT"); v != "" {
		cfg.Bulkhead.MaxConcurrent = parseInt(v, cfg.Bulkhead.MaxConcurrent)
	}

	if v := env("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := env("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := env("LOG_CONSOLE"); v != "" {
		cfg.Logging.Console = parseBool(v)
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.Metrics.DataDog.AgentHost = v
		cfg.Metrics.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.Metrics.DataDog.Port = parseInt(v, cfg.Metrics.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.Metrics.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "env:"+v)
	}
	if v := os.Getenv("DD_VERSION"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "version:"+v)
	}
	if v := env("DATADOG_ENABLED"); v != "" && os.Getenv("DD_AGENT_HOST") == "" {
		cfg.Metrics.DataDog.Enabled = parseBool(v)
	}
}

// Validate checks if the configuration is valid.
//
//nolint:gocyclo // One check per field keeps error messages precise
func (c *Config) Validate() error {
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be positive")
	}
	if strings.TrimSpace(c.Cache.RecordName) == "" {
		return fmt.Errorf("cache.recordName is required")
	}

	if c.Library.HistoryLimit <= 0 {
		return fmt.Errorf("library.historyLimit must be positive")
	}
	if strings.TrimSpace(c.Library.RecordName) == "" {
		return fmt.Errorf("library.recordName is required")
	}
	if strings.TrimSpace(c.Library.WatchTimeRecord) == "" {
		return fmt.Errorf("library.watchTimeRecord is required")
	}
	records := map[string]bool{c.Cache.RecordName: true}
	for _, name := range []string{c.Library.RecordName, c.Library.WatchTimeRecord} {
		if records[name] {
			return fmt.Errorf("record name %q is used twice", name)
		}
		records[name] = true
	}

	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch.maxAttempts must be at least 1")
	}
	if c.Fetch.Delay < 0 {
		return fmt.Errorf("fetch.delay must not be negative")
	}
	if c.Fetch.Backoff.Enabled {
		if c.Fetch.Backoff.Initial <= 0 {
			return fmt.Errorf("fetch.backoff.initial must be positive")
		}
		if c.Fetch.Backoff.Multiplier < 1 {
			return fmt.Errorf("fetch.backoff.multiplier must be at least 1")
		}
	}

	backend, err := types.ParseStorageBackend(c.Storage.Backend)
	if err != nil {
		return fmt.Errorf("storage.backend: %w", err)
	}
	switch backend {
	case types.BackendFile:
		if c.Storage.File.Dir == "" {
			return fmt.Errorf("storage.file.dir is required for the file backend")
		}
	case types.BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite backend")
		}
	case types.BackendRedis:
		if c.Storage.Redis.Address == "" {
			return fmt.Errorf("storage.redis.address is required for the redis backend")
		}
		if c.Storage.Redis.PoolSize <= 0 {
			return fmt.Errorf("storage.redis.poolSize must be positive")
		}
	case types.BackendMemory:
		if err := validateShards("storage.memory.shards", c.Storage.Memory.Shards); err != nil {
			return err
		}
		if c.Storage.Memory.MaxSizeMB <= 0 {
			return fmt.Errorf("storage.memory.maxSizeMB must be positive")
		}
	}

	for name, endpoint := range map[string]string{
		"upstream.metadata.baseURL": c.Upstream.Metadata.BaseURL,
		"upstream.sources.baseURL":  c.Upstream.Sources.BaseURL,
	} {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL", name)
		}
	}
	if c.Upstream.RequestsPerSecond < 0 {
		return fmt.Errorf("upstream.requestsPerSecond must not be negative")
	}

	if c.Lists.Enabled {
		if c.Lists.TTL <= 0 {
			return fmt.Errorf("lists.ttl must be positive")
		}
		if err := validateShards("lists.shards", c.Lists.Shards); err != nil {
			return err
		}
	}

	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.FailureThreshold <= 0 {
			return fmt.Errorf("circuitBreaker.failureThreshold must be positive")
		}
		if c.CircuitBreaker.OpenDuration <= 0 {
			return fmt.Errorf("circuitBreaker.openDuration must be positive")
		}
	}

	if c.Bulkhead.Enabled {
		if c.Bulkhead.MaxConcurrent <= 0 {
			return fmt.Errorf("bulkhead.maxConcurrent must be positive")
		}
	}

	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("logging.level: %w", err)
		}
	}

	return nil
}

// StorageBackend returns the parsed storage backend.
func (c *Config) StorageBackend() types.StorageBackend {
	b, err := types.ParseStorageBackend(c.Storage.Backend)
	if err != nil {
		return types.BackendDisabled
	}
	return b
}

func validateShards(field string, shards int) error {
	if shards <= 0 || (shards&(shards-1)) != 0 {
		return fmt.Errorf("%s must be a positive power of 2", field)
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseFloat(s string, defaultVal float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}
