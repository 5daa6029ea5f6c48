package nekocache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/catalog"
	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/entrycache"
	"github.com/LavishGent/nekocache/internal/library"
	"github.com/LavishGent/nekocache/internal/listcache"
	"github.com/LavishGent/nekocache/internal/logger"
	"github.com/LavishGent/nekocache/internal/metrics"
	"github.com/LavishGent/nekocache/internal/metrics/datadog"
	"github.com/LavishGent/nekocache/internal/resilience"
	"github.com/LavishGent/nekocache/internal/storage"
	"github.com/LavishGent/nekocache/internal/types"
	"github.com/LavishGent/nekocache/internal/upstream"
)

// Client is the entry point: catalog lookups backed by the entry cache,
// the list cache and the retrying upstream fetcher.
type Client struct {
	config     *config.Config
	log        zerolog.Logger
	store      storage.BlobStore
	entries    *entrycache.Cache
	library    *library.Library
	watchTime  *library.WatchTime
	lists      listcache.Store
	catalog    *catalog.Service
	tracker    *metrics.Tracker
	publisher  types.Publisher
	background *metrics.BackgroundPublisher
	backend    types.StorageBackend
	closeMu    sync.Mutex
	closed     atomic.Bool
}

// New creates a client. A nil cfg uses the defaults.
//
//nolint:gocyclo // Wiring every layer requires multiple conditional checks
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	c := *cfg
	cfg = &c
	if o.backend != "" {
		cfg.Storage.Backend = o.backend
	}
	if o.redisAddress != "" {
		cfg.Storage.Redis.Address = o.redisAddress
	}
	if o.noResilience {
		cfg.CircuitBreaker.Enabled = false
		cfg.Bulkhead.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(cfg.Logging)
	if o.logger != nil {
		log = *o.logger
	}

	client := &Client{
		config:  cfg,
		log:     logger.Component(log, "client"),
		backend: cfg.StorageBackend(),
	}

	publisher, err := newPublisher(cfg, o, log)
	if err != nil {
		return nil, err
	}
	client.publisher = publisher
	client.tracker = metrics.NewTracker(metrics.WithPublisher(publisher))

	var recorder types.MetricsRecorder = client.tracker
	if o.metrics != nil {
		recorder = o.metrics
	}

	store := o.store
	if store == nil {
		store, err = storage.Open(context.Background(), cfg, log)
		if err != nil {
			_ = publisher.Close()
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}
	client.store = store

	if observer, ok := store.(storage.CircuitObserver); ok {
		observer.SetOnCircuitStateChange(func(from, to resilience.State) {
			recorder.RecordCircuitBreakerStateChange(from.String(), to.String())
		})
	}

	entryOpts := []entrycache.Option{
		entrycache.WithMetrics(recorder),
		entrycache.WithLogger(log),
	}
	if o.serializer != nil {
		entryOpts = append(entryOpts, entrycache.WithSerializer(o.serializer))
	}
	entries, err := entrycache.New(store, cfg.Cache, entryOpts...)
	if err != nil {
		client.closeResources()
		return nil, err
	}
	client.entries = entries

	libOpts := []library.Option{
		library.WithMetrics(recorder),
		library.WithLogger(log),
	}
	if client.library, err = library.New(store, cfg.Library, libOpts...); err != nil {
		client.closeResources()
		return nil, err
	}
	if client.watchTime, err = library.NewWatchTime(store, cfg.Library, libOpts...); err != nil {
		client.closeResources()
		return nil, err
	}

	lists, err := listcache.New(cfg.Lists, log)
	if err != nil {
		client.closeResources()
		return nil, fmt.Errorf("create list cache: %w", err)
	}
	client.lists = lists

	meta, sources, err := newProviders(cfg, o, publisher, log)
	if err != nil {
		client.closeResources()
		return nil, err
	}

	fetcher := resilience.NewFetcher(resilience.NewRetryPolicy(cfg.Fetch), log, recorder)
	svc, err := catalog.New(meta, sources, entries, lists, fetcher, log)
	if err != nil {
		client.closeResources()
		return nil, err
	}
	client.catalog = svc

	if cfg.Metrics.Enabled && cfg.Metrics.PublishInterval > 0 {
		client.background = metrics.NewBackgroundPublisher(publisher, cfg.Metrics.PublishInterval, client.publisherHealth, log)
		client.background.Start(context.Background())
	}

	client.log.Info().
		Str("storage", store.Name()).
		Int("capacity", cfg.Cache.Capacity).
		Bool("lists", cfg.Lists.Enabled).
		Msg("Client ready")

	return client, nil
}

func newPublisher(cfg *config.Config, o *clientOptions, log zerolog.Logger) (types.Publisher, error) {
	switch {
	case o.publisher != nil:
		return o.publisher, nil
	case !cfg.Metrics.Enabled:
		return metrics.NewNoOpPublisher(), nil
	case cfg.Metrics.DataDog.Enabled:
		p, err := datadog.NewPublisher(cfg.Metrics.DataDog, log)
		if err != nil {
			return nil, fmt.Errorf("create datadog publisher: %w", err)
		}
		return p, nil
	default:
		return metrics.NewLoggingPublisher(log, metrics.BackendTag(cfg.Storage.Backend)), nil
	}
}

func newProviders(cfg *config.Config, o *clientOptions, publisher types.Publisher, log zerolog.Logger) (*upstream.MetadataProvider, *upstream.SourceProvider, error) {
	clientOpts := []upstream.ClientOption{
		upstream.WithBulkhead(resilience.NewLimiter(cfg.Bulkhead)),
		upstream.WithLogger(log.With().Str("component", "upstream").Logger()),
		upstream.WithPublisher(publisher),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, upstream.WithHTTPClient(o.httpClient))
	}

	metaClient, err := upstream.NewClient(cfg.Upstream.Metadata.BaseURL, cfg.Upstream, clientOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("metadata client: %w", err)
	}
	meta, err := upstream.NewMetadataProvider(metaClient, cfg.Upstream.Metadata.SiteURL)
	if err != nil {
		return nil, nil, fmt.Errorf("metadata provider: %w", err)
	}

	sourceClient, err := upstream.NewClient(cfg.Upstream.Sources.BaseURL, cfg.Upstream, clientOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("sources client: %w", err)
	}

	return meta, upstream.NewSourceProvider(sourceClient), nil
}

// Details returns metadata and sources for a title, fetching only what the
// entry cache lacks.
func (c *Client) Details(ctx context.Context, id int) (*Details, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}
	return c.catalog.Details(ctx, id)
}

// Refresh refetches a title from both providers.
func (c *Client) Refresh(ctx context.Context, id int) (*Details, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}
	return c.catalog.Refresh(ctx, id)
}

// Search finds listable titles by name.
func (c *Client) Search(ctx context.Context, query string, page, limit int) ([]Anime, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}
	return c.catalog.Search(ctx, query, page, limit)
}

// Feed returns a home-screen list.
func (c *Client) Feed(ctx context.Context, feed Feed) ([]Anime, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}
	return c.catalog.Feed(ctx, feed)
}

// ClearFeeds drops every cached feed so the next Feed call refetches.
func (c *Client) ClearFeeds(ctx context.Context) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	return c.catalog.ClearFeeds(ctx)
}

func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}
	return c.catalog.Genres(ctx)
}

func (c *Client) Related(ctx context.Context, id int) ([]Anime, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}
	return c.catalog.Related(ctx, id)
}

// EntryCache exposes the entry table for direct Get and Put.
func (c *Client) EntryCache() *EntryCache {
	return c.entries
}

// Entries returns the cached titles, least recently used first.
func (c *Client) Entries(ctx context.Context) []Entry {
	if c.closed.Load() {
		return nil
	}
	return c.entries.Entries(ctx)
}

// Entry returns a cached title without changing its recency.
func (c *Client) Entry(ctx context.Context, id int) (Entry, bool) {
	if c.closed.Load() {
		return Entry{}, false
	}
	return c.entries.Peek(ctx, id)
}

// ClearEntries empties the entry table.
func (c *Client) ClearEntries(ctx context.Context) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	return c.entries.Clear(ctx)
}

// AddFavorite marks a title as a favorite.
func (c *Client) AddFavorite(ctx context.Context, id int) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	return c.library.AddFavorite(ctx, id)
}

// RemoveFavorite unmarks a favorite title.
func (c *Client) RemoveFavorite(ctx context.Context, id int) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	return c.library.RemoveFavorite(ctx, id)
}

// IsFavorite reports whether a title is a favorite.
func (c *Client) IsFavorite(ctx context.Context, id int) bool {
	if c.closed.Load() {
		return false
	}
	return c.library.IsFavorite(ctx, id)
}

// Favorites returns the favorite title ids in the order they were added.
func (c *Client) Favorites(ctx context.Context) []int {
	if c.closed.Load() {
		return nil
	}
	return c.library.Favorites(ctx)
}

// AddToHistory records that a title was watched. The title moves to the
// front of the history, which keeps the configured number of items.
func (c *Client) AddToHistory(ctx context.Context, id int, title, image string) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	return c.library.AddToHistory(ctx, id, title, image)
}

// MarkWatched adds a title to the history under its cached or fetched name
// and poster.
func (c *Client) MarkWatched(ctx context.Context, id int) error {
	d, err := c.Details(ctx, id)
	if err != nil {
		return err
	}
	var title, image string
	if d.Anime != nil {
		title, image = d.Anime.Name, d.Anime.Poster()
	}
	return c.AddToHistory(ctx, id, title, image)
}

// TouchHistory refreshes the watch time of a title already in the history.
func (c *Client) TouchHistory(ctx context.Context, id int) (bool, error) {
	if c.closed.Load() {
		return false, types.ErrClosed
	}
	return c.library.TouchHistory(ctx, id)
}

// History returns the watch history, most recent first.
func (c *Client) History(ctx context.Context) []HistoryItem {
	if c.closed.Load() {
		return nil
	}
	return c.library.History(ctx)
}

// ClearHistory empties the watch history.
func (c *Client) ClearHistory(ctx context.Context) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	return c.library.ClearHistory(ctx)
}

// WatchMinutes returns the total minutes spent watching.
func (c *Client) WatchMinutes(ctx context.Context) int {
	if c.closed.Load() {
		return 0
	}
	return c.watchTime.Minutes(ctx)
}

// AddWatchMinutes adds to the watch time total.
func (c *Client) AddWatchMinutes(ctx context.Context, minutes int) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	return c.watchTime.Add(ctx, minutes)
}

// ResetWatchTime sets the watch time total to zero.
func (c *Client) ResetWatchTime(ctx context.Context) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	return c.watchTime.Reset(ctx)
}

// TrackWatchTime adds a minute to the total every minute until ctx is done.
func (c *Client) TrackWatchTime(ctx context.Context) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	return c.watchTime.Track(ctx, time.Minute)
}

// Metrics returns the built-in tracker's counters.
func (c *Client) Metrics() MetricsSnapshot {
	return c.tracker.Snapshot()
}

// Health reports storage, entry table and list cache state.
func (c *Client) Health(ctx context.Context) (*HealthMetrics, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}

	h := &types.HealthMetrics{
		Timestamp: time.Now(),
		Storage:   c.storageHealth(),
		Lists:     c.lists.Health(),
	}

	count := c.entries.Len(ctx)
	stats := c.entries.Stats()
	h.Entries = types.EntryHealthMetrics{
		Status:          types.HealthStatusHealthy,
		Count:           count,
		Capacity:        c.entries.Capacity(),
		UsagePercentage: float64(count) / float64(c.entries.Capacity()) * 100,
		HitCount:        stats.Hits,
		MissCount:       stats.Misses,
		EvictionCount:   stats.Evictions,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		h.Entries.HitRatio = float64(stats.Hits) / float64(total)
	}

	switch h.Storage.Status {
	case types.HealthStatusHealthy:
		h.Status = types.HealthStatusHealthy
	default:
		// Titles still resolve from upstream without storage.
		h.Status = types.HealthStatusDegraded
	}

	return h, nil
}

// IsHealthy returns true if the entry table can be persisted.
func (c *Client) IsHealthy(ctx context.Context) bool {
	h, err := c.Health(ctx)
	return err == nil && h.Status == types.HealthStatusHealthy
}

func (c *Client) storageHealth() types.StorageHealthMetrics {
	h := types.StorageHealthMetrics{
		Backend:             c.store.Name(),
		Available:           c.store.Available(),
		Durable:             c.backend.Durable(),
		CircuitBreakerState: resilience.StateClosed.String(),
		Status:              types.HealthStatusHealthy,
	}

	if r, ok := c.store.(storage.CircuitReporter); ok {
		h.CircuitBreakerState = r.CircuitState().String()
	}
	if r, ok := c.store.(storage.ErrorReporter); ok {
		if err, at := r.LastError(); err != nil {
			h.LastError = err.Error()
			h.LastErrorTime = at
		}
	}

	switch {
	case c.backend == types.BackendDisabled:
		h.Status = types.HealthStatusDegraded
	case !h.Available:
		h.Status = types.HealthStatusUnhealthy
	}
	return h
}

func (c *Client) publisherHealth() *types.PublisherHealthMetrics {
	snap := c.tracker.Snapshot()
	count := c.entries.Len(context.Background())

	return &types.PublisherHealthMetrics{
		TotalEntries:      int64(count),
		Capacity:          int64(c.entries.Capacity()),
		UsagePercentage:   float64(count) / float64(c.entries.Capacity()) * 100,
		HitRatio:          snap.HitRatio(),
		FetchSuccessRatio: snap.FetchSuccessRatio(),
		AverageLatencyMs:  snap.AvgLatencyMs,
		StorageAvailable:  c.store.Available(),
	}
}

// Close stops background publishing and releases storage, the list cache
// and the metrics publisher. Calls after the first return nil.
func (c *Client) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}

	c.log.Info().Msg("Closing client")
	return c.closeResources()
}

func (c *Client) closeResources() error {
	if c.background != nil {
		c.background.Stop()
	}

	var errs []error
	if c.lists != nil {
		if err := c.lists.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
