package catalog

import (
	"fmt"
	"strings"

	"github.com/LavishGent/nekocache/internal/upstream"
)

// FeedLimit is the number of titles requested for every home-screen feed.
const FeedLimit = 25

// Feed names a home-screen list.
type Feed string

const (
	FeedPopular Feed = "popular"
	FeedLatest  Feed = "latest"
	FeedOngoing Feed = "ongoing"
	FeedAnons   Feed = "anons"
)

// Feeds lists every known feed in display order.
var Feeds = []Feed{FeedPopular, FeedLatest, FeedOngoing, FeedAnons}

// ParseFeed converts a feed name, case-insensitively.
func ParseFeed(s string) (Feed, error) {
	f := Feed(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FeedPopular, FeedLatest, FeedOngoing, FeedAnons:
		return f, nil
	default:
		return "", fmt.Errorf("unknown feed %q", s)
	}
}

// Query returns the listing query behind the feed.
func (f Feed) Query() upstream.ListQuery {
	q := upstream.ListQuery{Page: 1, Limit: FeedLimit}
	switch f {
	case FeedPopular:
		q.Order = "popularity"
	case FeedLatest:
		q.Order = "ranked_shiki"
		q.Status = "latest"
	case FeedOngoing:
		q.Order = "ranked"
		q.Status = "ongoing"
	case FeedAnons:
		q.Order = "aired_on"
		q.Status = "anons"
	}
	return q
}

func (f Feed) cacheKey() string {
	return feedKeyPrefix + string(f)
}
