// Package entrycache keeps a small, recency-ordered table of catalog entries
// in a single persisted record. Each entry holds one payload per provider and
// later writes for other providers merge into it instead of replacing it.
package entrycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/storage"
	"github.com/LavishGent/nekocache/internal/types"
)

// Cache is a bounded key -> {provider -> payload} table. The persisted record
// is the only state: every operation loads it, and every mutation writes it
// back whole. Mutations are serialized so concurrent puts never drop keys.
type Cache struct {
	store      storage.BlobStore
	serializer types.Serializer
	metrics    types.MetricsRecorder
	validator  *types.ProviderValidator
	log        zerolog.Logger
	record     string
	capacity   int

	mu sync.Mutex

	hits          atomic.Int64
	misses        atomic.Int64
	puts          atomic.Int64
	evictions     atomic.Int64
	storageErrors atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics records hits, misses, puts, evictions and storage errors.
func WithMetrics(m types.MetricsRecorder) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithSerializer replaces the JSON serializer. Payloads are kept as raw JSON,
// so the replacement must produce JSON.
func WithSerializer(s types.Serializer) Option {
	return func(c *Cache) { c.serializer = s }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithProviderValidator replaces the default provider name rules.
func WithProviderValidator(v *types.ProviderValidator) Option {
	return func(c *Cache) { c.validator = v }
}

// New creates a cache over store.
func New(store storage.BlobStore, cfg config.EntryCacheConfig, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("entry cache needs a store")
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("entry cache capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.RecordName == "" {
		cfg.RecordName = config.DefaultRecordName
	}

	c := &Cache{
		store:      store,
		serializer: NewJSONSerializer(),
		validator:  types.DefaultProviderValidator,
		log:        zerolog.Nop(),
		record:     cfg.RecordName,
		capacity:   cfg.Capacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "entrycache").Str("record", c.record).Logger()

	return c, nil
}

// Capacity returns the maximum number of entries kept.
func (c *Cache) Capacity() int { return c.capacity }

// Get returns the entry for key and marks it most recently used.
// A miss writes nothing. If the reordered table cannot be written the entry
// is still returned.
func (c *Cache) Get(ctx context.Context, key int) (Entry, bool) {
	start := time.Now()
	if types.ValidateEntityID(key) != nil {
		return Entry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.load(ctx)
	i := t.index(key)
	if i < 0 {
		c.misses.Add(1)
		if c.metrics != nil {
			c.metrics.RecordMiss(key, time.Since(start))
		}
		return Entry{}, false
	}

	entry := t[i].clone()
	if i != len(t)-1 {
		if err := c.save(ctx, t.touch(i)); err != nil {
			c.log.Warn().Err(err).Int("key", key).Msg("Failed to persist entry touch")
		}
	}

	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.RecordHit(key, time.Since(start))
	}
	return entry, true
}

// Peek returns the entry for key without changing its position.
func (c *Cache) Peek(ctx context.Context, key int) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.load(ctx)
	if i := t.index(key); i >= 0 {
		return t[i].clone(), true
	}
	return Entry{}, false
}

// Put stores payload under provider for key, keeping the entry's other
// provider payloads. The entry becomes most recently used and the oldest
// entries are evicted past capacity. json.RawMessage and []byte payloads are
// stored as-is and must be valid JSON. A returned *types.StorageError means the
// table was not written; callers may ignore it.
func (c *Cache) Put(ctx context.Context, key int, provider string, payload any) error {
	start := time.Now()
	if err := types.ValidateEntityID(key); err != nil {
		return err
	}
	if err := c.validator.Validate(provider); err != nil {
		return err
	}

	data, err := c.encodePayload(payload)
	if err != nil {
		return c.storageError(types.NewStorageError("serialize", c.record, c.store.Name(),
			fmt.Errorf("%w: %v", types.ErrSerializationFailed, err)))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.load(ctx)
	if i := t.index(key); i >= 0 {
		fields := make(map[string]json.RawMessage, len(t[i].Fields)+1)
		for k, v := range t[i].Fields {
			fields[k] = v
		}
		fields[provider] = data
		t[i].Fields = fields
		t = t.touch(i)
	} else {
		t = append(t, Entry{Key: key, Fields: map[string]json.RawMessage{provider: data}})
	}

	for len(t) > c.capacity {
		evicted := t[0]
		t = t[1:]
		c.evictions.Add(1)
		if c.metrics != nil {
			c.metrics.RecordEviction(evicted.Key)
		}
		c.log.Debug().Int("key", evicted.Key).Msg("Evicted least recently used entry")
	}

	if err := c.save(ctx, t); err != nil {
		return err
	}

	c.puts.Add(1)
	if c.metrics != nil {
		c.metrics.RecordPut(key, provider, len(data), time.Since(start))
	}
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(ctx, c.record); err != nil {
		return c.storageError(asStorageError("delete", c.record, c.store.Name(), err))
	}
	c.log.Info().Msg("Entry cache cleared")
	return nil
}

// Keys returns the cached ids, least recently used first.
func (c *Cache) Keys(ctx context.Context) []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.load(ctx)
	keys := make([]int, len(t))
	for i, e := range t {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the table, least recently used first.
func (c *Cache) Entries(ctx context.Context) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.load(ctx)
	out := make([]Entry, len(t))
	for i, e := range t {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.load(ctx))
}

// Stats returns activity counters.
func (c *Cache) Stats() types.EntryCacheStats {
	return types.EntryCacheStats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Puts:          c.puts.Load(),
		Evictions:     c.evictions.Load(),
		StorageErrors: c.storageErrors.Load(),
	}
}

func (c *Cache) encodePayload(payload any) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	switch p := payload.(type) {
	case json.RawMessage:
		data = p
	case []byte:
		data = p
	default:
		data, err = c.serializer.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return json.RawMessage(data), nil
}

// load reads the table. An absent, unreadable or corrupt record is an empty
// table; the next successful put overwrites it.
func (c *Cache) load(ctx context.Context) table {
	data, err := c.store.Load(ctx, c.record)
	if err != nil {
		if !types.IsRecordNotFound(err) {
			c.log.Warn().Err(err).Msg("Failed to read entry table, starting empty")
			c.storageError(asStorageError("load", c.record, c.store.Name(), err))
		}
		return table{}
	}

	t, err := decodeTable(c.serializer, data)
	if err != nil {
		c.log.Warn().Err(err).Int("bytes", len(data)).Msg("Entry table is corrupt, starting empty")
		c.storageError(types.NewStorageError("decode", c.record, c.store.Name(), err))
		return table{}
	}
	return t
}

func (c *Cache) save(ctx context.Context, t table) error {
	data, err := c.serializer.Marshal(t.rows())
	if err != nil {
		return c.storageError(types.NewStorageError("serialize", c.record, c.store.Name(),
			fmt.Errorf("%w: %v", types.ErrSerializationFailed, err)))
	}
	if err := c.store.Save(ctx, c.record, data); err != nil {
		return c.storageError(asStorageError("save", c.record, c.store.Name(), err))
	}
	return nil
}

func (c *Cache) storageError(err *types.StorageError) *types.StorageError {
	c.storageErrors.Add(1)
	if c.metrics != nil {
		c.metrics.RecordStorageError(err.Op, err)
	}
	return err
}

func asStorageError(op, record, backend string, err error) *types.StorageError {
	var se *types.StorageError
	if errors.As(err, &se) {
		return se
	}
	return types.NewStorageError(op, record, backend, err)
}
