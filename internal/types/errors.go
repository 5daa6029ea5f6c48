package types

import (
	"errors"
	"fmt"
)

var (
	ErrNoResult            = errors.New("nekocache: no result after retries")
	ErrRecordNotFound      = errors.New("nekocache: record not found")
	ErrStorageUnavailable  = errors.New("nekocache: storage unavailable")
	ErrCircuitOpen         = errors.New("nekocache: circuit breaker open")
	ErrClosed              = errors.New("nekocache: client closed")
	ErrBulkheadFull        = errors.New("nekocache: bulkhead at capacity")
	ErrBulkheadTimeout     = errors.New("nekocache: bulkhead timeout")
	ErrSerializationFailed = errors.New("nekocache: serialization failed")
	ErrInvalidKey          = errors.New("nekocache: invalid key")
	ErrInvalidProvider     = errors.New("nekocache: invalid provider name")
)

// StorageError reports a failed read or write of a persisted record.
type StorageError struct {
	Op      string
	Record  string
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Record != "" {
		return fmt.Sprintf("storage %s on %s [%s]: %v", e.Op, e.Backend, e.Record, e.Err)
	}
	return fmt.Sprintf("storage %s on %s: %v", e.Op, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op, record, backend string, err error) *StorageError {
	return &StorageError{
		Op:      op,
		Record:  record,
		Backend: backend,
		Err:     err,
	}
}

func IsNoResult(err error) bool {
	return errors.Is(err, ErrNoResult)
}

func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// IsStorageError reports whether err carries a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
