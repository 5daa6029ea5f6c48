package upstream

import (
	"context"
	"net/url"
	"strconv"

	"github.com/LavishGent/nekocache/internal/types"
)

// SourceProvider looks up playable sources through the Kodik proxy.
type SourceProvider struct {
	client *Client
}

// NewSourceProvider creates a provider on client.
func NewSourceProvider(client *Client) *SourceProvider {
	return &SourceProvider{client: client}
}

type sourcesResponse struct {
	Results []Source `json:"results"`
}

// Sources returns the releases for a metadata id. No match is an empty
// slice, not an error. Links point at the proxy's player page.
func (p *SourceProvider) Sources(ctx context.Context, id int) ([]Source, error) {
	if err := types.ValidateEntityID(id); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("shikimori_id", strconv.Itoa(id))

	var resp sourcesResponse
	if err := p.client.getJSON(ctx, "/api/anime/", q, &resp); err != nil {
		return nil, err
	}

	out := make([]Source, 0, len(resp.Results))
	for _, s := range resp.Results {
		s.Link = p.PlayerURL(s.ID)
		out = append(out, s)
	}
	return out, nil
}

// PlayerURL is the absolute player page for a source id.
func (p *SourceProvider) PlayerURL(id string) string {
	return p.client.endpoint("/api/player/", url.Values{"id": {id}})
}
