package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LavishGent/nekocache/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("entry cache defaults", func(t *testing.T) {
		if cfg.Cache.Capacity != 25 {
			t.Errorf("Cache.Capacity = %d, want 25", cfg.Cache.Capacity)
		}
		if cfg.Cache.RecordName != "anime-entries" {
			t.Errorf("Cache.RecordName = %s, want anime-entries", cfg.Cache.RecordName)
		}
	})

	t.Run("library defaults", func(t *testing.T) {
		if cfg.Library.HistoryLimit != 100 {
			t.Errorf("Library.HistoryLimit = %d, want 100", cfg.Library.HistoryLimit)
		}
		if cfg.Library.RecordName != "anime-library" || cfg.Library.WatchTimeRecord != "watch-time" {
			t.Errorf("Library records = %s, %s", cfg.Library.RecordName, cfg.Library.WatchTimeRecord)
		}
	})

	t.Run("fetch defaults", func(t *testing.T) {
		if cfg.Fetch.MaxAttempts != 10 {
			t.Errorf("Fetch.MaxAttempts = %d, want 10", cfg.Fetch.MaxAttempts)
		}
		if cfg.Fetch.Delay != 2*time.Second {
			t.Errorf("Fetch.Delay = %v, want 2s", cfg.Fetch.Delay)
		}
		if cfg.Fetch.Backoff.Enabled {
			t.Error("Fetch.Backoff.Enabled = true, want fixed delay by default")
		}
	})

	t.Run("storage defaults", func(t *testing.T) {
		if cfg.StorageBackend() != types.BackendFile {
			t.Errorf("StorageBackend() = %v, want file", cfg.StorageBackend())
		}
		if cfg.Storage.Redis.KeyPrefix != "nekocache:" {
			t.Errorf("Redis.KeyPrefix = %s, want nekocache:", cfg.Storage.Redis.KeyPrefix)
		}
	})

	t.Run("upstream defaults", func(t *testing.T) {
		if cfg.Upstream.Metadata.BaseURL != "https://shikimori.one/api" {
			t.Errorf("Metadata.BaseURL = %s", cfg.Upstream.Metadata.BaseURL)
		}
		if cfg.Upstream.Sources.BaseURL != "http://neko-kodik.deno.dev" {
			t.Errorf("Sources.BaseURL = %s", cfg.Upstream.Sources.BaseURL)
		}
		if cfg.Upstream.UserAgent == "" {
			t.Error("Upstream.UserAgent should not be empty")
		}
	})

	t.Run("circuit breaker defaults", func(t *testing.T) {
		if !cfg.CircuitBreaker.Enabled {
			t.Error("CircuitBreaker.Enabled = false, want true")
		}
		if cfg.CircuitBreaker.FailureThreshold != 5 {
			t.Errorf("CircuitBreaker.FailureThreshold = %d, want 5", cfg.CircuitBreaker.FailureThreshold)
		}
	})

	t.Run("defaults validate", func(t *testing.T) {
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestForTesting(t *testing.T) {
	cfg := ForTesting()

	if cfg.StorageBackend() != types.BackendMemory {
		t.Errorf("StorageBackend() = %v, want memory", cfg.StorageBackend())
	}
	if cfg.Fetch.Delay > 10*time.Millisecond {
		t.Errorf("Fetch.Delay = %v, want a millisecond-scale delay", cfg.Fetch.Delay)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestForTestingWithRedis(t *testing.T) {
	cfg := ForTestingWithRedis("localhost:6390")

	if cfg.StorageBackend() != types.BackendRedis {
		t.Errorf("StorageBackend() = %v, want redis", cfg.StorageBackend())
	}
	if cfg.Storage.Redis.Address != "localhost:6390" {
		t.Errorf("Redis.Address = %s, want localhost:6390", cfg.Storage.Redis.Address)
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Cache.Capacity != DefaultCapacity {
			t.Errorf("Cache.Capacity = %d, want %d", cfg.Cache.Capacity, DefaultCapacity)
		}
	})

	t.Run("non-existent file returns defaults", func(t *testing.T) {
		cfg, err := Load("/non/existent/path/config.json")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Fetch.MaxAttempts != DefaultMaxAttempts {
			t.Errorf("Fetch.MaxAttempts = %d, want %d", cfg.Fetch.MaxAttempts, DefaultMaxAttempts)
		}
	})

	t.Run("loads valid JSON file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")

		jsonContent := `{
			"cache": {"capacity": 50},
			"fetch": {"maxAttempts": 4, "delay": 250000000},
			"storage": {"backend": "sqlite", "sqlite": {"path": "/tmp/neko.db"}}
		}`
		if err := os.WriteFile(configPath, []byte(jsonContent), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := Load(configPath)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Cache.Capacity != 50 {
			t.Errorf("Cache.Capacity = %d, want 50", cfg.Cache.Capacity)
		}
		if cfg.Cache.RecordName != DefaultRecordName {
			t.Errorf("Cache.RecordName = %s, want default preserved", cfg.Cache.RecordName)
		}
		if cfg.Fetch.MaxAttempts != 4 || cfg.Fetch.Delay != 250*time.Millisecond {
			t.Errorf("Fetch = %+v, want 4 attempts at 250ms", cfg.Fetch)
		}
		if cfg.StorageBackend() != types.BackendSQLite {
			t.Errorf("StorageBackend() = %v, want sqlite", cfg.StorageBackend())
		}
	})

	t.Run("returns error for invalid JSON", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.json")
		if err := os.WriteFile(configPath, []byte("not valid json"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := Load(configPath); err == nil {
			t.Error("Load() error = nil, want error")
		}
	})

	t.Run("returns error for invalid config values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid-values.json")
		if err := os.WriteFile(configPath, []byte(`{"fetch": {"maxAttempts": 0}}`), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := Load(configPath); err == nil {
			t.Error("Load() error = nil, want validation error")
		}
	})
}

func TestLoadWithEnv(t *testing.T) {
	t.Run("applies environment overrides", func(t *testing.T) {
		t.Setenv("NEKOCACHE_STORAGE_BACKEND", "redis")
		t.Setenv("NEKOCACHE_REDIS_ADDRESS", "redis.env:6380")
		t.Setenv("NEKOCACHE_FETCH_MAX_ATTEMPTS", "7")
		t.Setenv("NEKOCACHE_FETCH_DELAY", "150ms")

		cfg, err := LoadWithEnv("")
		if err != nil {
			t.Fatalf("LoadWithEnv() error = %v", err)
		}

		if cfg.StorageBackend() != types.BackendRedis {
			t.Errorf("StorageBackend() = %v, want redis", cfg.StorageBackend())
		}
		if cfg.Storage.Redis.Address != "redis.env:6380" {
			t.Errorf("Redis.Address = %s, want redis.env:6380", cfg.Storage.Redis.Address)
		}
		if cfg.Fetch.MaxAttempts != 7 {
			t.Errorf("Fetch.MaxAttempts = %d, want 7", cfg.Fetch.MaxAttempts)
		}
		if cfg.Fetch.Delay != 150*time.Millisecond {
			t.Errorf("Fetch.Delay = %v, want 150ms", cfg.Fetch.Delay)
		}
	})

	t.Run("env overrides JSON file values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(configPath, []byte(`{"cache": {"capacity": 40}}`), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		t.Setenv("NEKOCACHE_CACHE_CAPACITY", "12")

		cfg, err := LoadWithEnv(configPath)
		if err != nil {
			t.Fatalf("LoadWithEnv() error = %v", err)
		}
		if cfg.Cache.Capacity != 12 {
			t.Errorf("Cache.Capacity = %d, want 12", cfg.Cache.Capacity)
		}
	})

	t.Run("invalid override fails validation", func(t *testing.T) {
		t.Setenv("NEKOCACHE_STORAGE_BACKEND", "floppy")

		if _, err := LoadWithEnv(""); err == nil {
			t.Error("LoadWithEnv() error = nil, want unknown backend error")
		}
	})
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NEKOCACHE_REDIS_PASSWORD", "secret123")
	t.Setenv("NEKOCACHE_REDIS_DB", "5")
	t.Setenv("NEKOCACHE_USER_AGENT", "test-agent/2")
	t.Setenv("NEKOCACHE_UPSTREAM_RPS", "0.5")
	t.Setenv("NEKOCACHE_LISTS_TTL", "90")
	t.Setenv("NEKOCACHE_LOG_LEVEL", "debug")
	t.Setenv("NEKOCACHE_LIBRARY_HISTORY_LIMIT", "40")
	t.Setenv("DD_AGENT_HOST", "dd.local")
	t.Setenv("DD_ENV", "staging")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Storage.Redis.Password.Value() != "secret123" {
		t.Error("Redis.Password not applied")
	}
	if cfg.Storage.Redis.DB != 5 {
		t.Errorf("Redis.DB = %d, want 5", cfg.Storage.Redis.DB)
	}
	if cfg.Upstream.UserAgent != "test-agent/2" {
		t.Errorf("UserAgent = %s, want test-agent/2", cfg.Upstream.UserAgent)
	}
	if cfg.Upstream.RequestsPerSecond != 0.5 {
		t.Errorf("RequestsPerSecond = %v, want 0.5", cfg.Upstream.RequestsPerSecond)
	}
	if cfg.Lists.TTL != 90*time.Second {
		t.Errorf("Lists.TTL = %v, want 90s", cfg.Lists.TTL)
	}
	if cfg.Library.HistoryLimit != 40 {
		t.Errorf("Library.HistoryLimit = %d, want 40", cfg.Library.HistoryLimit)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if !cfg.Metrics.DataDog.Enabled || cfg.Metrics.DataDog.AgentHost != "dd.local" {
		t.Error("DD_AGENT_HOST should enable DataDog")
	}
	found := false
	for _, tag := range cfg.Metrics.DataDog.Tags {
		if tag == "env:staging" {
			found = true
		}
	}
	if !found {
		t.Errorf("DataDog.Tags = %v, want env:staging", cfg.Metrics.DataDog.Tags)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero capacity", func(c *Config) { c.Cache.Capacity = 0 }, "cache.capacity"},
		{"blank record name", func(c *Config) { c.Cache.RecordName = " " }, "cache.recordName"},
		{"zero history limit", func(c *Config) { c.Library.HistoryLimit = 0 }, "library.historyLimit"},
		{"blank library record", func(c *Config) { c.Library.RecordName = "" }, "library.recordName"},
		{"shared record name", func(c *Config) { c.Library.WatchTimeRecord = c.Cache.RecordName }, "used twice"},
		{"zero attempts", func(c *Config) { c.Fetch.MaxAttempts = 0 }, "fetch.maxAttempts"},
		{"negative delay", func(c *Config) { c.Fetch.Delay = -time.Second }, "fetch.delay"},
		{"backoff multiplier", func(c *Config) {
			c.Fetch.Backoff.Enabled = true
			c.Fetch.Backoff.Multiplier = 0.5
		}, "fetch.backoff.multiplier"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "tape" }, "storage.backend"},
		{"file without dir", func(c *Config) { c.Storage.File.Dir = "" }, "storage.file.dir"},
		{"sqlite without path", func(c *Config) {
			c.Storage.Backend = "sqlite"
			c.Storage.SQLite.Path = ""
		}, "storage.sqlite.path"},
		{"redis without address", func(c *Config) {
			c.Storage.Backend = "redis"
			c.Storage.Redis.Address = ""
		}, "storage.redis.address"},
		{"memory shards", func(c *Config) {
			c.Storage.Backend = "memory"
			c.Storage.Memory.Shards = 100
		}, "storage.memory.shards"},
		{"relative metadata url", func(c *Config) { c.Upstream.Metadata.BaseURL = "/api" }, "upstream.metadata.baseURL"},
		{"list shards", func(c *Config) { c.Lists.Shards = 3 }, "lists.shards"},
		{"circuit threshold", func(c *Config) { c.CircuitBreaker.FailureThreshold = 0 }, "circuitBreaker.failureThreshold"},
		{"bulkhead", func(c *Config) { c.Bulkhead.MaxConcurrent = 0 }, "bulkhead.maxConcurrent"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}

	t.Run("disabled sections skip checks", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Lists.Enabled = false
		cfg.Lists.Shards = 3
		cfg.CircuitBreaker.Enabled = false
		cfg.CircuitBreaker.FailureThreshold = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})
}

func TestParseHelpers(t *testing.T) {
	for _, in := range []string{"true", "1", "YES", " on "} {
		if !parseBool(in) {
			t.Errorf("parseBool(%q) = false, want true", in)
		}
	}
	if parseBool("nope") {
		t.Error("parseBool(nope) = true, want false")
	}
	if got := parseInt("x", 3); got != 3 {
		t.Errorf("parseInt(x, 3) = %d, want 3", got)
	}
	if got := parseFloat("2.5", 1); got != 2.5 {
		t.Errorf("parseFloat(2.5) = %v, want 2.5", got)
	}
	if got := parseDuration("2m", 0); got != 2*time.Minute {
		t.Errorf("parseDuration(2m) = %v, want 2m", got)
	}
	if got := parseDuration("30", 0); got != 30*time.Second {
		t.Errorf("parseDuration(30) = %v, want 30s", got)
	}
	if got := parseDuration("soon", time.Hour); got != time.Hour {
		t.Errorf("parseDuration(soon) = %v, want fallback", got)
	}
}

func TestRedisPasswordRedactedInJSON(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Redis.Password = NewSecretString("hunter2")

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Error("config JSON leaked the redis password")
	}
}
