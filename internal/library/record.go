package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/storage"
	"github.com/LavishGent/nekocache/internal/types"
)

// record is one JSON-encoded value kept under a single storage record.
type record[T any] struct {
	store   storage.BlobStore
	metrics types.MetricsRecorder
	log     zerolog.Logger
	name    string
}

// load decodes the record. An absent, unreadable or corrupt record yields
// the zero value; the next successful save overwrites it.
func (r record[T]) load(ctx context.Context) T {
	var v T

	data, err := r.store.Load(ctx, r.name)
	if err != nil {
		if !types.IsRecordNotFound(err) {
			r.log.Warn().Err(err).Msg("Failed to read record, starting empty")
			r.storageError(asStorageError("load", r.name, r.store.Name(), err))
		}
		return v
	}

	if err := json.Unmarshal(data, &v); err != nil {
		r.log.Warn().Err(err).Int("bytes", len(data)).Msg("Record is corrupt, starting empty")
		r.storageError(types.NewStorageError("decode", r.name, r.store.Name(), err))
		var zero T
		return zero
	}
	return v
}

func (r record[T]) save(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return r.storageError(types.NewStorageError("serialize", r.name, r.store.Name(),
			fmt.Errorf("%w: %v", types.ErrSerializationFailed, err)))
	}
	if err := r.store.Save(ctx, r.name, data); err != nil {
		return r.storageError(asStorageError("save", r.name, r.store.Name(), err))
	}
	return nil
}

func (r record[T]) storageError(err *types.StorageError) *types.StorageError {
	if r.metrics != nil {
		r.metrics.RecordStorageError(err.Op, err)
	}
	return err
}

func asStorageError(op, name, backend string, err error) *types.StorageError {
	var se *types.StorageError
	if errors.As(err, &se) {
		return se
	}
	return types.NewStorageError(op, name, backend, err)
}
