// Package listcache holds short-lived copies of catalog list responses
// (home feeds, genres) in a bigcache instance with a fixed TTL.
package listcache

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/allegro/bigcache/v3"
	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/logger"
	"github.com/LavishGent/nekocache/internal/types"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("listcache: miss")

// Store is the list cache contract used by the catalog.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	ClearByPattern(ctx context.Context, pattern string) error
	Health() types.ListHealthMetrics
	Close() error
}

// Cache is a TTL byte cache backed by bigcache.
type Cache struct {
	cache  *bigcache.BigCache
	config config.ListsConfig
	log    zerolog.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64

	closed atomic.Bool
}

// New returns a disabled store when cfg.Enabled is false.
func New(cfg config.ListsConfig, log zerolog.Logger) (Store, error) {
	if !cfg.Enabled {
		return NewDisabled(), nil
	}
	return NewCache(cfg, log)
}

// NewCache creates a list cache with the given configuration.
func NewCache(cfg config.ListsConfig, log zerolog.Logger) (*Cache, error) {
	c := &Cache{
		config: cfg,
		log:    log.With().Str("component", "listcache").Logger(),
	}

	bcConfig := bigcache.Config{
		Shards:             cfg.Shards,
		LifeWindow:         cfg.TTL,
		CleanWindow:        cfg.TTL / 2,
		MaxEntriesInWindow: 1024,
		MaxEntrySize:       cfg.MaxEntrySize,
		HardMaxCacheSize:   cfg.MaxSizeMB,
		Logger:             logger.Printf{Log: c.log},
		OnRemoveWithReason: func(key string, entry []byte, reason bigcache.RemoveReason) {
			if reason == bigcache.NoSpace || reason == bigcache.Expired {
				c.evictions.Add(1)
			}
		},
	}

	bc, err := bigcache.New(context.Background(), bcConfig)
	if err != nil {
		return nil, err
	}

	c.cache = bc
	return c, nil
}

// Get returns the cached bytes for key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}

	data, err := c.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			c.misses.Add(1)
			return nil, ErrMiss
		}
		return nil, err
	}

	c.hits.Add(1)
	return data, nil
}

// Set stores value under key for the configured TTL.
func (c *Cache) Set(_ context.Context, key string, value []byte) error {
	if c.closed.Load() {
		return types.ErrClosed
	}

	if err := c.cache.Set(key, value); err != nil {
		return err
	}

	c.sets.Add(1)
	return nil
}

// Delete removes key.
func (c *Cache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return types.ErrClosed
	}

	if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return err
	}
	return nil
}

// ClearByPattern removes entries whose key matches a glob with at most one '*'.
func (c *Cache) ClearByPattern(_ context.Context, pattern string) error {
	if c.closed.Load() {
		return types.ErrClosed
	}

	if pattern == "*" {
		return c.cache.Reset()
	}

	var keys []string
	iter := c.cache.Iterator()
	for iter.SetNext() {
		entry, err := iter.Value()
		if err != nil {
			continue
		}
		if matchPattern(entry.Key(), pattern) {
			keys = append(keys, entry.Key())
		}
	}

	for _, key := range keys {
		_ = c.cache.Delete(key)
	}

	c.log.Debug().Str("pattern", pattern).Int("deleted", len(keys)).Msg("Cleared lists by pattern")
	return nil
}

// Close releases the cache.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.cache.Close()
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Health summarizes usage and hit ratio.
func (c *Cache) Health() types.ListHealthMetrics {
	size := int64(c.cache.Capacity())
	maxSize := int64(c.config.MaxSizeMB) * 1024 * 1024

	var usage float64
	if maxSize > 0 {
		usage = float64(size) / float64(maxSize) * 100
	}

	hits, misses := c.hits.Load(), c.misses.Load()
	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	status := types.HealthStatusHealthy
	switch {
	case c.closed.Load():
		status = types.HealthStatusUnhealthy
	case usage > 90:
		status = types.HealthStatusDegraded
	}

	return types.ListHealthMetrics{
		Status:          status,
		Available:       !c.closed.Load(),
		EntryCount:      c.cache.Len(),
		SizeBytes:       size,
		MaxSizeBytes:    maxSize,
		UsagePercentage: usage,
		HitCount:        hits,
		MissCount:       misses,
		HitRatio:        ratio,
		EvictionCount:   c.evictions.Load(),
	}
}

func matchPattern(key, pattern string) bool {
	if pattern == "*" {
		return true
	}

	before, after, found := strings.Cut(pattern, "*")
	if !found {
		return key == pattern
	}
	if strings.Contains(after, "*") {
		return false
	}
	return len(key) >= len(before)+len(after) &&
		strings.HasPrefix(key, before) &&
		strings.HasSuffix(key, after)
}

var _ Store = (*Cache)(nil)
