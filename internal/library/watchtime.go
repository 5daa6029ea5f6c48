package library

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/storage"
)

// ErrAlreadyTracking is returned by Track while another Track call is running.
var ErrAlreadyTracking = errors.New("library: watch time is already being tracked")

type watchState struct {
	TotalMinutes int `json:"totalMinutes"`
}

// WatchTime is a persisted counter of minutes spent watching.
type WatchTime struct {
	rec      record[watchState]
	tracking atomic.Bool

	mu sync.Mutex
}

// NewWatchTime creates a WatchTime over store.
func NewWatchTime(store storage.BlobStore, cfg config.LibraryConfig, opts ...Option) (*WatchTime, error) {
	if store == nil {
		return nil, fmt.Errorf("watch time needs a store")
	}
	if cfg.WatchTimeRecord == "" {
		cfg.WatchTimeRecord = config.DefaultWatchTimeRecord
	}

	o := newOptions(opts)
	return &WatchTime{
		rec: record[watchState]{
			store:   store,
			metrics: o.metrics,
			log:     o.log.With().Str("component", "watchtime").Str("record", cfg.WatchTimeRecord).Logger(),
			name:    cfg.WatchTimeRecord,
		},
	}, nil
}

// Minutes returns the total minutes watched.
func (w *WatchTime) Minutes(ctx context.Context) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return max(w.rec.load(ctx).TotalMinutes, 0)
}

// Add adds minutes to the total.
func (w *WatchTime) Add(ctx context.Context, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("watch time: minutes must be positive, got %d", minutes)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.rec.load(ctx)
	s.TotalMinutes = max(s.TotalMinutes, 0) + minutes
	return w.rec.save(ctx, s)
}

// Reset sets the total back to zero.
func (w *WatchTime) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rec.save(ctx, watchState{})
}

// Track adds a minute every interval until ctx is done, then returns nil.
// A zero interval means one minute. Only one Track runs at a time. A failed
// write is logged and tracking goes on.
func (w *WatchTime) Track(ctx context.Context, interval time.Duration) error {
	if !w.tracking.CompareAndSwap(false, true) {
		return ErrAlreadyTracking
	}
	defer w.tracking.Store(false)

	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Add(context.WithoutCancel(ctx), 1); err != nil {
				w.rec.log.Warn().Err(err).Msg("Failed to record watch time")
			}
		}
	}
}

// Tracking reports whether Track is running.
func (w *WatchTime) Tracking() bool {
	return w.tracking.Load()
}
