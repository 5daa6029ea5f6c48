package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/LavishGent/nekocache/internal/types"
)

// DefaultPageSize is used when a query asks for zero results per page.
const DefaultPageSize = 20

// MetadataProvider reads titles from the Shikimori REST API.
type MetadataProvider struct {
	client  *Client
	siteURL *url.URL
}

// NewMetadataProvider resolves relative image paths against siteURL.
func NewMetadataProvider(client *Client, siteURL string) (*MetadataProvider, error) {
	var site *url.URL
	if siteURL != "" {
		u, err := url.Parse(siteURL)
		if err != nil {
			return nil, fmt.Errorf("parse site url: %w", err)
		}
		site = u
	}
	return &MetadataProvider{client: client, siteURL: site}, nil
}

// Anime returns the detailed record for id.
func (p *MetadataProvider) Anime(ctx context.Context, id int) (*Anime, error) {
	if err := types.ValidateEntityID(id); err != nil {
		return nil, err
	}

	var a Anime
	if err := p.client.getJSON(ctx, "/animes/"+strconv.Itoa(id), nil, &a); err != nil {
		return nil, err
	}
	p.resolve(&a)
	return &a, nil
}

// Search finds titles by name. A blank query returns nothing without a request.
func (p *MetadataProvider) Search(ctx context.Context, query string, page, limit int) ([]Anime, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Anime{}, nil
	}

	q := pageValues(page, limit)
	q.Set("search", query)
	return p.list(ctx, q)
}

// List returns a page of the catalog.
func (p *MetadataProvider) List(ctx context.Context, lq ListQuery) ([]Anime, error) {
	q := pageValues(lq.Page, lq.Limit)
	if lq.Order != "" {
		q.Set("order", lq.Order)
	}
	if lq.Kind != "" {
		q.Set("kind", lq.Kind)
	}
	if lq.Status != "" {
		q.Set("status", lq.Status)
	}
	if lq.Season != "" {
		q.Set("season", lq.Season)
	}
	if lq.Score > 0 {
		q.Set("score", strconv.Itoa(lq.Score))
	}
	return p.list(ctx, q)
}

// Related returns the titles related to id, skipping manga relations.
func (p *MetadataProvider) Related(ctx context.Context, id int) ([]Anime, error) {
	if err := types.ValidateEntityID(id); err != nil {
		return nil, err
	}

	var rels []Relation
	if err := p.client.getJSON(ctx, "/animes/"+strconv.Itoa(id)+"/related", nil, &rels); err != nil {
		return nil, err
	}

	out := make([]Anime, 0, len(rels))
	for _, r := range rels {
		if r.Anime == nil {
			continue
		}
		p.resolve(r.Anime)
		out = append(out, *r.Anime)
	}
	return out, nil
}

// Genres returns every genre.
func (p *MetadataProvider) Genres(ctx context.Context) ([]Genre, error) {
	var genres []Genre
	if err := p.client.getJSON(ctx, "/genres", nil, &genres); err != nil {
		return nil, err
	}
	return genres, nil
}

func (p *MetadataProvider) list(ctx context.Context, q url.Values) ([]Anime, error) {
	var list []Anime
	if err := p.client.getJSON(ctx, "/animes", q, &list); err != nil {
		return nil, err
	}
	for i := range list {
		p.resolve(&list[i])
	}
	return list, nil
}

func (p *MetadataProvider) resolve(a *Anime) {
	if p.siteURL == nil {
		return
	}
	a.Image.Original = p.absolute(a.Image.Original)
	a.Image.Preview = p.absolute(a.Image.Preview)
	a.Image.X96 = p.absolute(a.Image.X96)
	a.Image.X48 = p.absolute(a.Image.X48)
	a.URL = p.absolute(a.URL)
}

func (p *MetadataProvider) absolute(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return p.siteURL.ResolveReference(u).String()
}

func pageValues(page, limit int) url.Values {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}
