// Package catalog answers the app's questions about titles: details pages,
// search, home-screen feeds and genres. Upstream calls go through the retrying
// Fetcher; details are kept in the entry cache and lists in the list cache.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/LavishGent/nekocache/internal/entrycache"
	"github.com/LavishGent/nekocache/internal/listcache"
	"github.com/LavishGent/nekocache/internal/resilience"
	"github.com/LavishGent/nekocache/internal/types"
	"github.com/LavishGent/nekocache/internal/upstream"
)

// Provider names under which entry payloads are stored.
const (
	ProviderMetadata = "shikimori"
	ProviderSources  = "kodik"
)

const (
	feedKeyPrefix = "feed:"
	genresKey     = "genres"
)

// MetadataSource is the title metadata API.
type MetadataSource interface {
	Anime(ctx context.Context, id int) (*upstream.Anime, error)
	Search(ctx context.Context, query string, page, limit int) ([]upstream.Anime, error)
	List(ctx context.Context, q upstream.ListQuery) ([]upstream.Anime, error)
	Related(ctx context.Context, id int) ([]upstream.Anime, error)
	Genres(ctx context.Context) ([]upstream.Genre, error)
}

// VideoSource is the playable-release API.
type VideoSource interface {
	Sources(ctx context.Context, id int) ([]upstream.Source, error)
}

// Details is everything the details screen shows for one title.
// Anime is nil and Sources is nil when that provider gave no result.
type Details struct {
	Anime   *upstream.Anime   `json:"anime,omitempty"`
	Sources []upstream.Source `json:"sources"`
	Cached  CachedFields      `json:"cached"`
	ID      int               `json:"id"`
}

// CachedFields tells which parts of Details were served from the entry cache.
type CachedFields struct {
	Metadata bool `json:"metadata"`
	Sources  bool `json:"sources"`
}

// HasSources reports whether the source provider answered, possibly with no releases.
func (d *Details) HasSources() bool {
	return d.Sources != nil
}

// Service coordinates the providers and both caches.
type Service struct {
	meta    MetadataSource
	sources VideoSource
	entries *entrycache.Cache
	lists   listcache.Store
	fetcher *resilience.Fetcher
	log     zerolog.Logger
	sfGroup singleflight.Group
}

// New creates a Service. A nil lists store disables list caching.
func New(
	meta MetadataSource,
	sources VideoSource,
	entries *entrycache.Cache,
	lists listcache.Store,
	fetcher *resilience.Fetcher,
	log zerolog.Logger,
) (*Service, error) {
	if meta == nil || sources == nil {
		return nil, errors.New("catalog needs both a metadata and a video source")
	}
	if entries == nil {
		return nil, errors.New("catalog needs an entry cache")
	}
	if fetcher == nil {
		return nil, errors.New("catalog needs a fetcher")
	}
	if lists == nil {
		lists = listcache.NewDisabled()
	}

	return &Service{
		meta:    meta,
		sources: sources,
		entries: entries,
		lists:   lists,
		fetcher: fetcher,
		log:     log.With().Str("component", "catalog").Logger(),
	}, nil
}

// Details returns the title's metadata and sources, fetching and caching
// whichever provider payload the entry cache lacks. Concurrent calls for the
// same id share one resolution, which runs to completion even if the caller
// that started it gives up. types.ErrNoResult means neither provider
// produced anything.
func (s *Service) Details(ctx context.Context, id int) (*Details, error) {
	return s.details(ctx, id, false)
}

// Refresh refetches both providers, ignoring cached payloads. A provider that
// fails keeps its cached payload.
func (s *Service) Refresh(ctx context.Context, id int) (*Details, error) {
	return s.details(ctx, id, true)
}

func (s *Service) details(ctx context.Context, id int, refresh bool) (*Details, error) {
	if err := types.ValidateEntityID(id); err != nil {
		return nil, err
	}

	key := "details:" + strconv.Itoa(id)
	if refresh {
		key = "refresh:" + strconv.Itoa(id)
	}

	// The resolution is shared, so one caller cancelling must not cut it
	// short for the others. Each caller still stops waiting on its own ctx.
	ch := s.sfGroup.DoChan(key, func() (any, error) {
		return s.resolve(context.WithoutCancel(ctx), id, refresh)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.log.Trace().Int("id", id).Msg("Details resolution shared")
		}
		d := *res.Val.(*Details)
		return &d, nil
	}
}

// resolve assembles Details from the entry cache and the providers.
//
//nolint:gocyclo // Two providers, each with cached, fetched and fallback paths
func (s *Service) resolve(ctx context.Context, id int, refresh bool) (*Details, error) {
	var (
		entry  entrycache.Entry
		cached bool
	)
	if refresh {
		entry, cached = s.entries.Peek(ctx, id)
	} else {
		entry, cached = s.entries.Get(ctx, id)
	}

	d := &Details{ID: id}
	if cached {
		var a upstream.Anime
		if err := s.decodeCached(entry, ProviderMetadata, &a); err == nil {
			d.Anime = &a
			d.Cached.Metadata = true
		}
		var src []upstream.Source
		if err := s.decodeCached(entry, ProviderSources, &src); err == nil {
			if src == nil {
				src = []upstream.Source{}
			}
			d.Sources = src
			d.Cached.Sources = true
		}
	}

	needMeta := refresh || !d.Cached.Metadata
	needSources := refresh || !d.Cached.Sources
	if !needMeta && !needSources {
		return d, nil
	}

	var (
		anime    *upstream.Anime
		sources  []upstream.Source
		metaOK   bool
		sourceOK bool
	)

	var g errgroup.Group
	if needMeta {
		g.Go(func() error {
			anime, metaOK = resilience.FetchWith(ctx, s.fetcher, "anime", func(ctx context.Context) (*upstream.Anime, error) {
				return s.meta.Anime(ctx, id)
			})
			return nil
		})
	}
	if needSources {
		g.Go(func() error {
			sources, sourceOK = resilience.FetchWith(ctx, s.fetcher, "sources", func(ctx context.Context) ([]upstream.Source, error) {
				return s.sources.Sources(ctx, id)
			})
			return nil
		})
	}
	_ = g.Wait()

	if metaOK && anime != nil {
		d.Anime = anime
		d.Cached.Metadata = false
		s.store(ctx, id, ProviderMetadata, anime)
	}
	if sourceOK {
		if sources == nil {
			sources = []upstream.Source{}
		}
		d.Sources = sources
		d.Cached.Sources = false
		s.store(ctx, id, ProviderSources, sources)
	}

	if d.Anime == nil && d.Sources == nil {
		return nil, fmt.Errorf("details for %d: %w", id, types.ErrNoResult)
	}
	return d, nil
}

func (s *Service) decodeCached(entry entrycache.Entry, provider string, dest any) error {
	if !entry.Has(provider) {
		return types.ErrNoResult
	}
	if err := entry.Decode(provider, dest); err != nil {
		s.log.Warn().Err(err).Int("id", entry.Key).Str("provider", provider).Msg("Discarding undecodable cached payload")
		return err
	}
	return nil
}

// store writes a provider payload. Failures are logged and otherwise ignored:
// the fetched value is still served.
func (s *Service) store(ctx context.Context, id int, provider string, payload any) {
	if err := s.entries.Put(ctx, id, provider, payload); err != nil {
		s.log.Warn().Err(err).Int("id", id).Str("provider", provider).Msg("Failed to cache payload")
	}
}

// Search returns the visible titles matching query. A blank query returns
// nothing without a request.
func (s *Service) Search(ctx context.Context, query string, page, limit int) ([]upstream.Anime, error) {
	if strings.TrimSpace(query) == "" {
		return []upstream.Anime{}, nil
	}

	list, ok := resilience.FetchWith(ctx, s.fetcher, "search", func(ctx context.Context) ([]upstream.Anime, error) {
		return s.meta.Search(ctx, query, page, limit)
	})
	if !ok {
		return nil, fmt.Errorf("search %q: %w", query, types.ErrNoResult)
	}
	return upstream.Visible(list), nil
}

// Feed returns the named home-screen list, from the list cache when fresh.
func (s *Service) Feed(ctx context.Context, f Feed) ([]upstream.Anime, error) {
	if _, err := ParseFeed(string(f)); err != nil {
		return nil, err
	}

	key := f.cacheKey()
	var list []upstream.Anime
	if s.cachedList(ctx, key, &list) {
		return list, nil
	}

	list, ok := resilience.FetchWith(ctx, s.fetcher, "feed", func(ctx context.Context) ([]upstream.Anime, error) {
		return s.meta.List(ctx, f.Query())
	})
	if !ok {
		return nil, fmt.Errorf("feed %s: %w", f, types.ErrNoResult)
	}

	list = upstream.Visible(list)
	s.cacheList(ctx, key, list)
	return list, nil
}

// ClearFeeds drops every cached feed.
func (s *Service) ClearFeeds(ctx context.Context) error {
	return s.lists.ClearByPattern(ctx, feedKeyPrefix+"*")
}

// Genres returns every genre, from the list cache when fresh.
func (s *Service) Genres(ctx context.Context) ([]upstream.Genre, error) {
	var genres []upstream.Genre
	if s.cachedList(ctx, genresKey, &genres) {
		return genres, nil
	}

	genres, ok := resilience.FetchWith(ctx, s.fetcher, "genres", s.meta.Genres)
	if !ok {
		return nil, fmt.Errorf("genres: %w", types.ErrNoResult)
	}

	s.cacheList(ctx, genresKey, genres)
	return genres, nil
}

// Related returns the visible titles related to id.
func (s *Service) Related(ctx context.Context, id int) ([]upstream.Anime, error) {
	if err := types.ValidateEntityID(id); err != nil {
		return nil, err
	}

	list, ok := resilience.FetchWith(ctx, s.fetcher, "related", func(ctx context.Context) ([]upstream.Anime, error) {
		return s.meta.Related(ctx, id)
	})
	if !ok {
		return nil, fmt.Errorf("related to %d: %w", id, types.ErrNoResult)
	}
	return upstream.Visible(list), nil
}

func (s *Service) cachedList(ctx context.Context, key string, dest any) bool {
	start := time.Now()
	data, err := s.lists.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, listcache.ErrMiss) {
			s.log.Debug().Err(err).Str("list", key).Msg("List cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.log.Warn().Err(err).Str("list", key).Msg("Dropping undecodable cached list")
		_ = s.lists.Delete(ctx, key)
		return false
	}
	s.log.Trace().Str("list", key).Dur("latency", time.Since(start)).Msg("List cache hit")
	return true
}

func (s *Service) cacheList(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn().Err(err).Str("list", key).Msg("Failed to encode list")
		return
	}
	if err := s.lists.Set(ctx, key, data); err != nil {
		s.log.Debug().Err(err).Str("list", key).Msg("Failed to cache list")
	}
}
