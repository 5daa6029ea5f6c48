package nekocache

import (
	"github.com/LavishGent/nekocache/internal/catalog"
	"github.com/LavishGent/nekocache/internal/entrycache"
	"github.com/LavishGent/nekocache/internal/library"
	"github.com/LavishGent/nekocache/internal/storage"
	"github.com/LavishGent/nekocache/internal/types"
	"github.com/LavishGent/nekocache/internal/upstream"
)

type (
	// Anime is a title's metadata.
	Anime = upstream.Anime
	// Genre is a catalog genre.
	Genre = upstream.Genre
	// Source is one playable release of a title.
	Source = upstream.Source
	// Score is a title's rating; upstream sends it as a string, a number or null.
	Score = upstream.Score
	// Details is everything known about one title.
	Details = catalog.Details
	// CachedFields tells which parts of Details came from the entry cache.
	CachedFields = catalog.CachedFields
	// Feed names a home-screen list.
	Feed = catalog.Feed
	// Entry is one cached title with a payload per provider.
	Entry = entrycache.Entry
	// EntryCache is the bounded, persisted table of recently opened titles.
	EntryCache = entrycache.Cache
	// HistoryItem is one watched title in the watch history.
	HistoryItem = library.HistoryItem
	// BlobStore persists the entry table.
	BlobStore = storage.BlobStore
	// Serializer encodes provider payloads. It must produce JSON.
	Serializer = types.Serializer
	// MetricsRecorder receives entry cache, storage and fetch events.
	MetricsRecorder = types.MetricsRecorder
	// Publisher sends metrics to a backend.
	Publisher = types.Publisher
	// PublisherHealthMetrics is the periodic health batch sent to a Publisher.
	PublisherHealthMetrics = types.PublisherHealthMetrics
	// StorageBackend selects where the entry table is persisted.
	StorageBackend = types.StorageBackend
)

const (
	FeedPopular = catalog.FeedPopular
	FeedLatest  = catalog.FeedLatest
	FeedOngoing = catalog.FeedOngoing
	FeedAnons   = catalog.FeedAnons
)

// Provider names under which entry payloads are stored.
const (
	ProviderMetadata = catalog.ProviderMetadata
	ProviderSources  = catalog.ProviderSources
)

// Feeds lists every feed in display order.
var Feeds = catalog.Feeds

// ParseFeed converts a feed name.
func ParseFeed(s string) (Feed, error) {
	return catalog.ParseFeed(s)
}

// Visible filters out kinds that are never listed.
func Visible(list []Anime) []Anime {
	return upstream.Visible(list)
}
