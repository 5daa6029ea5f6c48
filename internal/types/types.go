// Package types provides shared types for the nekocache library.
// This package breaks import cycles between pkg/nekocache and the internal layers.
package types

import (
	"fmt"
	"strings"
)

// StorageBackend selects where the entry table is persisted.
type StorageBackend int

const (
	BackendFile StorageBackend = iota + 1
	BackendSQLite
	BackendRedis
	BackendMemory
	BackendDisabled
)

func (b StorageBackend) String() string {
	switch b {
	case BackendFile:
		return "file"
	case BackendSQLite:
		return "sqlite"
	case BackendRedis:
		return "redis"
	case BackendMemory:
		return "memory"
	case BackendDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Durable reports whether records survive a process restart.
func (b StorageBackend) Durable() bool {
	return b == BackendFile || b == BackendSQLite || b == BackendRedis
}

// ParseStorageBackend converts a config value into a StorageBackend.
func ParseStorageBackend(s string) (StorageBackend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file", "":
		return BackendFile, nil
	case "sqlite":
		return BackendSQLite, nil
	case "redis":
		return BackendRedis, nil
	case "memory":
		return BackendMemory, nil
	case "disabled", "none":
		return BackendDisabled, nil
	default:
		return 0, fmt.Errorf("unknown storage backend %q", s)
	}
}

// EntryCacheStats is a point-in-time view of entry cache activity.
type EntryCacheStats struct {
	Hits          int64
	Misses        int64
	Puts          int64
	Evictions     int64
	StorageErrors int64
}
