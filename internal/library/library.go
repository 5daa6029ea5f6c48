// Package library keeps the user's own lists: favorite titles, the watch
// history and the total time spent watching. Each lives in a persisted
// record on the same BlobStore as the entry cache, and like the entry cache a
// missing or corrupt record reads as empty.
package library

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/storage"
	"github.com/LavishGent/nekocache/internal/types"
)

// HistoryItem is one watched title.
type HistoryItem struct {
	LastWatched time.Time `json:"lastWatched"`
	Title       string    `json:"title"`
	Image       string    `json:"image"`
	AnimeID     int       `json:"animeId"`
}

// shelf is the persisted shape of the library record.
type shelf struct {
	Favorites []int         `json:"favorites"`
	History   []HistoryItem `json:"watchHistory"`
}

// Option configures a Library or WatchTime.
type Option func(*options)

type options struct {
	metrics types.MetricsRecorder
	log     zerolog.Logger
	now     func() time.Time
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics records storage errors.
func WithMetrics(m types.MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Library holds favorites and the watch history in one record. Mutations
// load the record, change it and write it back under one lock.
type Library struct {
	rec          record[shelf]
	now          func() time.Time
	historyLimit int

	mu sync.Mutex
}

// New creates a Library over store.
func New(store storage.BlobStore, cfg config.LibraryConfig, opts ...Option) (*Library, error) {
	if store == nil {
		return nil, fmt.Errorf("library needs a store")
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("library history limit must be positive, got %d", cfg.HistoryLimit)
	}
	if cfg.RecordName == "" {
		cfg.RecordName = config.DefaultLibraryRecord
	}

	o := newOptions(opts)
	return &Library{
		rec: record[shelf]{
			store:   store,
			metrics: o.metrics,
			log:     o.log.With().Str("component", "library").Str("record", cfg.RecordName).Logger(),
			name:    cfg.RecordName,
		},
		now:          o.now,
		historyLimit: cfg.HistoryLimit,
	}, nil
}

// HistoryLimit returns the maximum number of history items kept.
func (l *Library) HistoryLimit() int { return l.historyLimit }

// load reads the record and repairs what a hand-edited or older blob may
// contain: invalid or repeated ids and an over-long history.
func (l *Library) load(ctx context.Context) shelf {
	s := l.rec.load(ctx)

	favs := make([]int, 0, len(s.Favorites))
	for _, id := range s.Favorites {
		if id > 0 && !slices.Contains(favs, id) {
			favs = append(favs, id)
		}
	}
	s.Favorites = favs

	history := make([]HistoryItem, 0, len(s.History))
	for _, h := range s.History {
		if h.AnimeID > 0 && indexOf(history, h.AnimeID) < 0 {
			history = append(history, h)
		}
	}
	if len(history) > l.historyLimit {
		history = history[:l.historyLimit]
	}
	s.History = history
	return s
}

// AddFavorite marks id as a favorite. Adding an existing favorite writes nothing.
func (l *Library) AddFavorite(ctx context.Context, id int) error {
	if err := types.ValidateEntityID(id); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.load(ctx)
	if slices.Contains(s.Favorites, id) {
		return nil
	}
	s.Favorites = append(s.Favorites, id)
	return l.rec.save(ctx, s)
}

// RemoveFavorite unmarks id. Removing an id that is not a favorite writes nothing.
func (l *Library) RemoveFavorite(ctx context.Context, id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.load(ctx)
	i := slices.Index(s.Favorites, id)
	if i < 0 {
		return nil
	}
	s.Favorites = slices.Delete(s.Favorites, i, i+1)
	return l.rec.save(ctx, s)
}

// IsFavorite reports whether id is a favorite.
func (l *Library) IsFavorite(ctx context.Context, id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.load(ctx).Favorites, id)
}

// Favorites returns the favorite ids in the order they were added.
func (l *Library) Favorites(ctx context.Context) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx).Favorites
}

// AddToHistory puts the title at the front of the history, dropping its
// previous position, and trims the oldest items past the history limit.
func (l *Library) AddToHistory(ctx context.Context, id int, title, image string) error {
	if err := types.ValidateEntityID(id); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.load(ctx)
	if i := indexOf(s.History, id); i >= 0 {
		s.History = slices.Delete(s.History, i, i+1)
	}
	item := HistoryItem{AnimeID: id, Title: title, Image: image, LastWatched: l.now()}
	s.History = append([]HistoryItem{item}, s.History...)
	if len(s.History) > l.historyLimit {
		s.History = s.History[:l.historyLimit]
	}
	return l.rec.save(ctx, s)
}

// TouchHistory refreshes the watch time of a title already in the history
// without moving it. It reports false when the title is not there.
func (l *Library) TouchHistory(ctx context.Context, id int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.load(ctx)
	i := indexOf(s.History, id)
	if i < 0 {
		return false, nil
	}
	s.History[i].LastWatched = l.now()
	return true, l.rec.save(ctx, s)
}

// History returns the watch history, most recent first.
func (l *Library) History(ctx context.Context) []HistoryItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx).History
}

// ClearHistory empties the history and keeps the favorites.
func (l *Library) ClearHistory(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.load(ctx)
	s.History = []HistoryItem{}
	if err := l.rec.save(ctx, s); err != nil {
		return err
	}
	l.rec.log.Info().Msg("Watch history cleared")
	return nil
}

func indexOf(history []HistoryItem, id int) int {
	return slices.IndexFunc(history, func(h HistoryItem) bool { return h.AnimeID == id })
}
