package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/logger"
	"github.com/LavishGent/nekocache/internal/types"
)

// Records in the memory store live for the life of the process.
const memoryLifeWindow = 100 * 365 * 24 * time.Hour

// MemoryStore keeps records in a bigcache instance. Nothing survives a restart.
type MemoryStore struct {
	cache  *bigcache.BigCache
	log    zerolog.Logger
	closed atomic.Bool
}

// NewMemoryStore creates a process-local store.
func NewMemoryStore(cfg config.MemoryConfig, log zerolog.Logger) (*MemoryStore, error) {
	shards := cfg.Shards
	if shards <= 0 {
		shards = 16
	}

	bcConfig := bigcache.Config{
		Shards:             shards,
		LifeWindow:         memoryLifeWindow,
		CleanWindow:        0,
		MaxEntriesInWindow: 64,
		MaxEntrySize:       cfg.MaxEntrySize,
		HardMaxCacheSize:   cfg.MaxSizeMB,
		Logger:             logger.Printf{Log: log},
		OnRemoveWithReason: func(key string, entry []byte, reason bigcache.RemoveReason) {
			if reason == bigcache.NoSpace {
				log.Warn().Str("record", key).Int("bytes", len(entry)).Msg("Record dropped from memory store for lack of space")
			}
		},
	}

	bc, err := bigcache.New(context.Background(), bcConfig)
	if err != nil {
		return nil, types.NewStorageError("open", "", "memory", err)
	}

	return &MemoryStore{cache: bc, log: log}, nil
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Available() bool { return !s.closed.Load() }

func (s *MemoryStore) Load(_ context.Context, record string) ([]byte, error) {
	if s.closed.Load() {
		return nil, types.ErrClosed
	}

	data, err := s.cache.Get(record)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, types.ErrRecordNotFound
		}
		return nil, types.NewStorageError("load", record, s.Name(), err)
	}
	return data, nil
}

func (s *MemoryStore) Save(_ context.Context, record string, data []byte) error {
	if s.closed.Load() {
		return types.NewStorageError("save", record, s.Name(), types.ErrClosed)
	}

	if err := s.cache.Set(record, data); err != nil {
		return types.NewStorageError("save", record, s.Name(), err)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, record string) error {
	if s.closed.Load() {
		return types.NewStorageError("delete", record, s.Name(), types.ErrClosed)
	}

	if err := s.cache.Delete(record); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return types.NewStorageError("delete", record, s.Name(), err)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.cache.Close()
}

var _ BlobStore = (*MemoryStore)(nil)
