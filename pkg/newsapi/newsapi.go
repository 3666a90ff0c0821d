// Package newsapi is a small client for the news backend REST API.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultUserAgent = "newsportal-edge/1.0 (+https://backend.ascww.org)"

// ErrNotFound is returned when no item matches a requested id.
var ErrNotFound = errors.New("news item not found")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s responded with status %d", e.URL, e.StatusCode)
}

// Client fetches news from the backend. It keeps no state between calls.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds every backend request. Zero means no client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d, Transport: c.httpClient.Transport}
	}
}

// WithUserAgent sets the User-Agent sent to the backend.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a Client for the news list endpoint, e.g.
// https://backend.ascww.org/api/news.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the list endpoint the client reads from.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// ListNews fetches the full news list. A non-2xx answer yields a
// *StatusError; transport and decoding failures are returned wrapped.
func (c *Client) ListNews(ctx context.Context) ([]NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error building news request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching news list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: c.endpoint, StatusCode: resp.StatusCode}
	}

	var items []NewsItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("error decoding news list: %w", err)
	}
	return items, nil
}

// GetNews returns the item whose id loosely equals id.
func (c *Client) GetNews(ctx context.Context, id string) (*NewsItem, error) {
	items, err := c.ListNews(ctx)
	if err != nil {
		return nil, err
	}
	item := FindByID(items, id)
	if item == nil {
		return nil, fmt.Errorf("news %q: %w", id, ErrNotFound)
	}
	return item, nil
}
