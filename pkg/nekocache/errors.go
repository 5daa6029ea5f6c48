package nekocache

import (
	"github.com/LavishGent/nekocache/internal/types"
)

// StorageError reports a failed read or write of the persisted entry table.
type StorageError = types.StorageError

var (
	// ErrNoResult indicates that every fetch attempt failed.
	ErrNoResult = types.ErrNoResult
	// ErrRecordNotFound indicates that the storage backend holds no such record.
	ErrRecordNotFound = types.ErrRecordNotFound
	// ErrStorageUnavailable indicates that the storage backend cannot be reached.
	ErrStorageUnavailable = types.ErrStorageUnavailable
	// ErrCircuitOpen indicates that the storage circuit breaker is open.
	ErrCircuitOpen = types.ErrCircuitOpen
	// ErrClosed indicates that the client has been closed.
	ErrClosed = types.ErrClosed
	// ErrBulkheadFull indicates that the bulkhead is at capacity.
	ErrBulkheadFull = types.ErrBulkheadFull
	// ErrBulkheadTimeout indicates that the bulkhead acquisition timed out.
	ErrBulkheadTimeout = types.ErrBulkheadTimeout
	// ErrSerializationFailed indicates that a payload could not be encoded.
	ErrSerializationFailed = types.ErrSerializationFailed
	// ErrInvalidKey indicates a non-positive title id.
	ErrInvalidKey = types.ErrInvalidKey
	// ErrInvalidProvider indicates an unusable provider name.
	ErrInvalidProvider = types.ErrInvalidProvider
)

// IsNoResult returns true if the error means every fetch attempt failed.
func IsNoResult(err error) bool {
	return types.IsNoResult(err)
}

// IsStorageError returns true if the error carries a *StorageError.
func IsStorageError(err error) bool {
	return types.IsStorageError(err)
}

// IsInvalidKey returns true if the error indicates an invalid title id.
func IsInvalidKey(err error) bool {
	return types.IsInvalidKey(err)
}

// IsCircuitOpen returns true if the error indicates the circuit breaker is open.
func IsCircuitOpen(err error) bool {
	return types.IsCircuitOpen(err)
}
