// Package llama provides a client for the DeFiLlama protocol TVL API.
package llama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"protocol-pulse/internal/provider"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.llama.fi"
	DefaultTimeout = 15 * time.Second

	// Bound on concurrent protocol fetches per batch.
	defaultMaxConcurrency = 5
)

// Client calls the DeFiLlama HTTP API.
type Client struct {
	baseURL        string
	client         *http.Client
	maxConcurrency int
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a new DeFiLlama client. No API key is required.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        DefaultBaseURL,
		client:         &http.Client{Timeout: DefaultTimeout},
		maxConcurrency: defaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProtocolTVL is one protocol's current TVL. TVLUSD is nil when the fetch for
// that protocol failed; the batch always returns one entry per requested slug.
type ProtocolTVL struct {
	Protocol string
	TVLUSD   *float64
	Err      error
}

// FetchTVL fetches one protocol's current TVL in USD.
// The /tvl/{slug} endpoint returns a bare JSON number.
func (c *Client) FetchTVL(ctx context.Context, slug string) (float64, error) {
	url := fmt.Sprintf("%s/tvl/%s", c.baseURL, slug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("llama request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read llama response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &provider.StatusError{Provider: "llama", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tvl float64
	if err := json.Unmarshal(body, &tvl); err != nil {
		return 0, fmt.Errorf("decode llama tvl: %w", err)
	}
	return tvl, nil
}

// FetchProtocolTVLs fetches TVL for each slug concurrently. One protocol's
// failure becomes a nil TVLUSD on its entry; the batch never fails as a
// whole. Entries are returned in input order.
func (c *Client) FetchProtocolTVLs(ctx context.Context, slugs []string) []ProtocolTVL {
	results := make([]ProtocolTVL, len(slugs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)

	for i, slug := range slugs {
		results[i].Protocol = slug
		g.Go(func() error {
			tvl, err := c.FetchTVL(gctx, slug)
			if err != nil {
				results[i].Err = err
				return nil // tolerate individual failures
			}
			results[i].TVLUSD = &tvl
			return nil
		})
	}

	// Goroutines never return errors; Wait only synchronizes.
	_ = g.Wait()
	return results
}
