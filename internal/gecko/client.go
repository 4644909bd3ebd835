// Package gecko provides a client for the GeckoTerminal API: per-token pool
// market data (price, market cap, volume, liquidity, 24h change).
package gecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"protocol-pulse/internal/provider"
)

// Default configuration values.
const (
	DefaultBaseURL       = "https://api.geckoterminal.com/api/v2"
	DefaultTimeout       = 15 * time.Second
	DefaultRetryAttempts = 3
	DefaultMaxRetryWait  = 30 * time.Second
	DefaultPageDelay     = 500 * time.Millisecond

	// Public API allows 30 calls/minute.
	defaultRequestsPerMinute = 30

	// Multi-token endpoint accepts up to 30 addresses per call.
	maxAddressesPerPage = 30
)

// TokenData is market data for one token. Numeric fields are nil when the
// provider omits or fails to parse them.
type TokenData struct {
	Address      string
	PriceUSD     *float64
	MarketCapUSD *float64
	Volume24hUSD *float64
	LiquidityUSD *float64
	PctChange24h *float64
}

// Client calls the GeckoTerminal HTTP API.
type Client struct {
	baseURL       string
	network       string
	client        *http.Client
	limiter       *rate.Limiter
	retryAttempts int
	maxRetryWait  time.Duration
	pageDelay     time.Duration
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

// WithPageDelay sets the delay between result pages.
func WithPageDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.pageDelay = d }
}

// NewClient creates a new GeckoTerminal client for one network.
func NewClient(network string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		network:       network,
		client:        &http.Client{Timeout: DefaultTimeout},
		limiter:       rate.NewLimiter(rate.Limit(defaultRequestsPerMinute)/60, 5),
		retryAttempts: DefaultRetryAttempts,
		maxRetryWait:  DefaultMaxRetryWait,
		pageDelay:     DefaultPageDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// multiTokenResponse mirrors the provider's JSON:API envelope. Attribute
// numerics arrive as strings.
type multiTokenResponse struct {
	Data []struct {
		Attributes struct {
			Address           string  `json:"address"`
			PriceUSD          *string `json:"price_usd"`
			MarketCapUSD      *string `json:"market_cap_usd"`
			Volume24h         *string `json:"volume_usd_24h"`
			TotalReserveUSD   *string `json:"total_reserve_in_usd"`
			PriceChange24hPct *string `json:"price_change_percentage_24h"`
		} `json:"attributes"`
	} `json:"data"`
}

// FetchTokens fetches market data for the given token addresses, paging
// through the multi-token endpoint with a fixed inter-page delay. A page that
// stays rate-limited after the retry budget is reported via err but earlier
// pages' data is still returned.
func (c *Client) FetchTokens(ctx context.Context, addresses []string) ([]TokenData, error) {
	var result []TokenData

	for start := 0; start < len(addresses); start += maxAddressesPerPage {
		end := start + maxAddressesPerPage
		if end > len(addresses) {
			end = len(addresses)
		}

		if start > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}

		page, err := c.fetchPage(ctx, addresses[start:end])
		if err != nil {
			return result, err
		}
		result = append(result, page...)
	}

	return result, nil
}

func (c *Client) fetchPage(ctx context.Context, addresses []string) ([]TokenData, error) {
	url := fmt.Sprintf("%s/networks/%s/tokens/multi/%s",
		c.baseURL, c.network, strings.Join(addresses, ","))

	var resp multiTokenResponse
	if err := c.do(ctx, url, &resp); err != nil {
		return nil, err
	}

	tokens := make([]TokenData, 0, len(resp.Data))
	for _, d := range resp.Data {
		tokens = append(tokens, TokenData{
			Address:      d.Attributes.Address,
			PriceUSD:     parseNumeric(d.Attributes.PriceUSD),
			MarketCapUSD: parseNumeric(d.Attributes.MarketCapUSD),
			Volume24hUSD: parseNumeric(d.Attributes.Volume24h),
			LiquidityUSD: parseNumeric(d.Attributes.TotalReserveUSD),
			PctChange24h: parseNumeric(d.Attributes.PriceChange24hPct),
		})
	}
	return tokens, nil
}

// do performs one GET with rate limiting and bounded 429 retries.
func (c *Client) do(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("gecko request: %w", err)
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("read gecko response: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := c.retryWait(resp.Header.Get("Retry-After"))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &provider.StatusError{Provider: "gecko", StatusCode: resp.StatusCode, Body: string(body)}
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode gecko response: %w", err)
		}
		return nil
	}
	return provider.ErrRateLimited
}

func (c *Client) retryWait(hint string) time.Duration {
	wait := 2 * time.Second
	if secs, err := strconv.Atoi(hint); err == nil && secs > 0 {
		wait = time.Duration(secs) * time.Second
	}
	if wait > c.maxRetryWait {
		wait = c.maxRetryWait
	}
	return wait
}

// parseNumeric converts a provider string field to a float. Malformed or
// missing values yield nil, never an error.
func parseNumeric(s *string) *float64 {
	if s == nil || *s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil
	}
	return &f
}
