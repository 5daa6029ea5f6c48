// Package config provides configuration management for nekocache.
package config

import (
	"time"

	"github.com/LavishGent/nekocache/internal/types"
)

// SecretString is a string type that redacts its value when marshaled to JSON.
type SecretString = types.SecretString

// NewSecretString creates a new SecretString with the provided value.
func NewSecretString(value string) SecretString {
	return types.NewSecretString(value)
}

// Config contains all configuration for a nekocache client.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type Config struct {
	Cache          EntryCacheConfig     `json:"cache"`
	Library        LibraryConfig        `json:"library"`
	Fetch          FetchConfig          `json:"fetch"`
	Storage        StorageConfig        `json:"storage"`
	Upstream       UpstreamConfig       `json:"upstream"`
	Lists          ListsConfig          `json:"lists"`
	CircuitBreaker CircuitBreakerConfig `json:"circuitBreaker"`
	Bulkhead       BulkheadConfig       `json:"bulkhead"`
	Metrics        MetricsConfig        `json:"metrics"`
	Logging        LoggingConfig        `json:"logging"`
}

// EntryCacheConfig controls the bounded entry table.
type EntryCacheConfig struct {
	// RecordName is the name of the single persisted record holding the table.
	RecordName string `json:"recordName"`
	Capacity   int    `json:"capacity"`
}

// LibraryConfig controls the user's persisted favorites, watch history and
// watch time.
type LibraryConfig struct {
	// RecordName holds favorites and history together.
	RecordName      string `json:"recordName"`
	WatchTimeRecord string `json:"watchTimeRecord"`
	HistoryLimit    int    `json:"historyLimit"`
}

// FetchConfig controls the retry loop wrapped around upstream calls.
type FetchConfig struct {
	Backoff     BackoffConfig `json:"backoff"`
	Delay       time.Duration `json:"delay"`
	MaxAttempts int           `json:"maxAttempts"`
}

// BackoffConfig switches the fixed delay to an exponential schedule.
type BackoffConfig struct {
	Initial    time.Duration `json:"initial"`
	Max        time.Duration `json:"max"`
	Multiplier float64       `json:"multiplier"`
	Enabled    bool          `json:"enabled"`
	Jitter     bool          `json:"jitter"`
}

// StorageConfig selects and configures the backend holding the entry table.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type StorageConfig struct {
	Backend string       `json:"backend"`
	File    FileConfig   `json:"file"`
	SQLite  SQLiteConfig `json:"sqlite"`
	Redis   RedisConfig  `json:"redis"`
	Memory  MemoryConfig `json:"memory"`
}

// FileConfig configures the file backend.
type FileConfig struct {
	Dir string `json:"dir"`
}

// SQLiteConfig configures the sqlite backend.
type SQLiteConfig struct {
	Path        string        `json:"path"`
	BusyTimeout time.Duration `json:"busyTimeout"`
}

// MemoryConfig configures the bigcache-backed memory backend.
type MemoryConfig struct {
	MaxSizeMB    int `json:"maxSizeMB"`
	Shards       int `json:"shards"`
	MaxEntrySize int `json:"maxEntrySize"`
}

// RedisConfig contains configuration for the Redis backend.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type RedisConfig struct {
	DialTimeout         time.Duration `json:"dialTimeout"`
	ReadTimeout         time.Duration `json:"readTimeout"`
	WriteTimeout        time.Duration `json:"writeTimeout"`
	PoolTimeout         time.Duration `json:"poolTimeout"`
	HealthCheckInterval time.Duration `json:"healthCheckInterval"`
	Password            SecretString  `json:"password"`
	Address             string        `json:"address"`
	KeyPrefix           string        `json:"keyPrefix"`
	DB                  int           `json:"db"`
	PoolSize            int           `json:"poolSize"`
	MinIdleConns        int           `json:"minIdleConns"`
	EnableTLS           bool          `json:"enableTLS"`
	TLSSkipVerify       bool          `json:"tlsSkipVerify"`
}

// UpstreamConfig configures the metadata and video-source HTTP clients.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type UpstreamConfig struct {
	Metadata          EndpointConfig `json:"metadata"`
	Sources           EndpointConfig `json:"sources"`
	UserAgent         string         `json:"userAgent"`
	Timeout           time.Duration  `json:"timeout"`
	RequestsPerSecond float64        `json:"requestsPerSecond"`
	Burst             int            `json:"burst"`
}

// EndpointConfig points at one upstream service.
type EndpointConfig struct {
	BaseURL string `json:"baseURL"`
	// SiteURL resolves relative asset paths (poster images) in responses.
	SiteURL string `json:"siteURL"`
}

// ListsConfig controls the TTL cache in front of home-screen feeds.
type ListsConfig struct {
	TTL          time.Duration `json:"ttl"`
	MaxSizeMB    int           `json:"maxSizeMB"`
	Shards       int           `json:"shards"`
	MaxEntrySize int           `json:"maxEntrySize"`
	Enabled      bool          `json:"enabled"`
}

// CircuitBreakerConfig contains configuration for the circuit breaker guarding remote storage.
type CircuitBreakerConfig struct {
	Enabled             bool          `json:"enabled"`
	FailureThreshold    int           `json:"failureThreshold"`
	SuccessThreshold    int           `json:"successThreshold"`
	OpenDuration        time.Duration `json:"openDuration"`
	HalfOpenMaxRequests int           `json:"halfOpenMaxRequests"`
}

// BulkheadConfig bounds concurrent upstream requests.
type BulkheadConfig struct {
	Enabled        bool          `json:"enabled"`
	MaxConcurrent  int           `json:"maxConcurrent"`
	MaxQueue       int           `json:"maxQueue"`
	AcquireTimeout time.Duration `json:"acquireTimeout"`
}

// MetricsConfig contains configuration for metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type MetricsConfig struct {
	PublishInterval time.Duration `json:"publishInterval"`
	DataDog         DataDogConfig `json:"datadog"`
	Enabled         bool          `json:"enabled"`
}

// DataDogConfig contains configuration for DataDog metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type DataDogConfig struct {
	Tags      []string `json:"tags"`
	AgentHost string   `json:"agentHost"`
	Prefix    string   `json:"prefix"`
	Port      int      `json:"port"`
	Enabled   bool     `json:"enabled"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level   string `json:"level"`
	Console bool   `json:"console"`
}
