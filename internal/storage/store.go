// Package storage persists named records for the entry cache. Every backend
// stores an opaque byte blob per record name and reports a missing record
// with types.ErrRecordNotFound.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/resilience"
	"github.com/LavishGent/nekocache/internal/types"
)

// BlobStore reads and writes whole records.
type BlobStore interface {
	Name() string
	Available() bool
	Load(ctx context.Context, record string) ([]byte, error)
	Save(ctx context.Context, record string, data []byte) error
	Delete(ctx context.Context, record string) error
	Close() error
}

// ErrorReporter is implemented by backends that track their last failure.
type ErrorReporter interface {
	LastError() (error, time.Time)
}

// CircuitReporter is implemented by backends guarded by a circuit breaker.
type CircuitReporter interface {
	CircuitState() resilience.State
}

// CircuitObserver is implemented by backends that report breaker transitions.
type CircuitObserver interface {
	SetOnCircuitStateChange(fn func(from, to resilience.State))
}

// Open builds the backend selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (BlobStore, error) {
	backend, err := types.ParseStorageBackend(cfg.Storage.Backend)
	if err != nil {
		return nil, err
	}

	log = log.With().Str("component", "storage").Str("backend", backend.String()).Logger()

	switch backend {
	case types.BackendFile:
		return NewFileStore(afero.NewOsFs(), cfg.Storage.File.Dir, log)
	case types.BackendSQLite:
		return OpenSQLite(ctx, cfg.Storage.SQLite, log)
	case types.BackendRedis:
		return NewRedisStore(ctx, cfg.Storage.Redis, resilience.NewPolicy("redis", cfg), log)
	case types.BackendMemory:
		return NewMemoryStore(cfg.Storage.Memory, log)
	case types.BackendDisabled:
		return NewDisabledStore(), nil
	default:
		return nil, fmt.Errorf("storage backend %s is not supported", backend)
	}
}

// validateRecord keeps record names usable as file names and Redis keys.
func validateRecord(record string) error {
	if record == "" {
		return fmt.Errorf("record name cannot be empty")
	}
	if strings.ContainsAny(record, `/\`) || record == "." || record == ".." {
		return fmt.Errorf("record name %q contains a path separator", record)
	}
	return nil
}
