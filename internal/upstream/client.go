// Package upstream talks to the two remote catalogs: the Shikimori REST API
// for metadata and the Kodik proxy for video sources.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/metrics"
	"github.com/LavishGent/nekocache/internal/resilience"
	"github.com/LavishGent/nekocache/internal/types"
)

const maxErrorBody = 4 << 10

// Client is the HTTP plumbing shared by both providers: headers, request
// spacing, a cap on in-flight requests and status handling.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    *rate.Limiter
	bulkhead   resilience.Limiter
	publisher  types.Publisher
	log        zerolog.Logger
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBulkhead bounds concurrent requests.
func WithBulkhead(l resilience.Limiter) ClientOption {
	return func(c *Client) { c.bulkhead = l }
}

// WithPublisher reports each request's duration as "upstream.request".
func WithPublisher(p types.Publisher) ClientOption {
	return func(c *Client) { c.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, cfg config.UpstreamConfig, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    u,
		limiter:    rate.NewLimiter(limit, burst),
		bulkhead:   resilience.NewDisabledBulkhead(),
		publisher:  metrics.NewNoOpPublisher(),
		log:        zerolog.Nop(),
		userAgent:  cfg.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the root every request path is joined to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// getJSON performs a GET and decodes a 2xx JSON body into dest.
// Non-2xx responses become *StatusError.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	endpoint := c.endpoint(path, query)

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	return c.bulkhead.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create http request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		hostTag := metrics.Tag("host", c.baseURL.Host)
		timer := metrics.NewTimer(c.publisher, "upstream.request", hostTag)
		resp, err := c.httpClient.Do(req)
		elapsed := timer.Stop()
		if err != nil {
			c.publisher.Incr("upstream.responses", hostTag, metrics.StatusTag("error"))
			return fmt.Errorf("execute http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		c.publisher.Incr("upstream.responses", hostTag, metrics.StatusTag(strconv.Itoa(resp.StatusCode)))
		c.log.Debug().
			Str("url", endpoint).
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Msg("Upstream request")

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return &StatusError{Code: resp.StatusCode, URL: endpoint, Body: string(body)}
		}

		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("decode %s: %w", endpoint, err)
		}
		return nil
	})
}
