// Package dune provides a client for the Dune Analytics API: triggering
// query executions and fetching their results.
package dune

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"protocol-pulse/internal/provider"
)

// Default configuration values.
const (
	DefaultBaseURL       = "https://api.dune.com/api/v1"
	DefaultTimeout       = 30 * time.Second
	DefaultRetryAttempts = 3
	DefaultMaxRetryWait  = 30 * time.Second

	// Dune free tier allows bursts but sustained calls should stay slow.
	defaultRequestsPerSecond = 2
)

// Provider state strings. Anything else is treated as still running.
const (
	StateCompleted = "QUERY_STATE_COMPLETED"
	StateFailed    = "QUERY_STATE_FAILED"
	StateCancelled = "QUERY_STATE_CANCELLED"
)

// Client calls the Dune Analytics HTTP API.
type Client struct {
	baseURL       string
	apiKey        string
	client        *http.Client
	limiter       *rate.Limiter
	retryAttempts int
	maxRetryWait  time.Duration
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

// WithRetryAttempts sets the rate-limit retry budget.
func WithRetryAttempts(n int) ClientOption {
	return func(c *Client) { c.retryAttempts = n }
}

// WithMaxRetryWait caps the wait derived from a Retry-After hint.
func WithMaxRetryWait(d time.Duration) ClientOption {
	return func(c *Client) { c.maxRetryWait = d }
}

// NewClient creates a new Dune API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		apiKey:        apiKey,
		client:        &http.Client{Timeout: DefaultTimeout},
		limiter:       rate.NewLimiter(defaultRequestsPerSecond, 2*defaultRequestsPerSecond),
		retryAttempts: DefaultRetryAttempts,
		maxRetryWait:  DefaultMaxRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// executeResponse is the body of a successful execute call.
type executeResponse struct {
	ExecutionID string `json:"execution_id"`
	State       string `json:"state"`
}

// ResultsResponse is the body of a results call.
type ResultsResponse struct {
	State  string `json:"state"`
	Result struct {
		Rows []map[string]any `json:"rows"`
	} `json:"result"`
}

// ExecuteQuery submits an execution of the given query and returns the
// provider-issued execution ID. Any non-2xx response is a hard error.
func (c *Client) ExecuteQuery(ctx context.Context, queryID int64) (string, error) {
	url := fmt.Sprintf("%s/query/%d/execute", c.baseURL, queryID)

	var resp executeResponse
	if err := c.do(ctx, http.MethodPost, url, &resp); err != nil {
		return "", fmt.Errorf("execute query %d: %w", queryID, err)
	}
	if resp.ExecutionID == "" {
		return "", fmt.Errorf("execute query %d: response missing execution_id", queryID)
	}
	return resp.ExecutionID, nil
}

// GetResults fetches the state and, when completed, the result rows of an
// execution.
func (c *Client) GetResults(ctx context.Context, executionID string) (*ResultsResponse, error) {
	url := fmt.Sprintf("%s/execution/%s/results", c.baseURL, executionID)

	var resp ResultsResponse
	if err := c.do(ctx, http.MethodGet, url, &resp); err != nil {
		return nil, fmt.Errorf("get results for %s: %w", executionID, err)
	}
	return &resp, nil
}

// do performs one API call with rate limiting and bounded 429 retries.
func (c *Client) do(ctx context.Context, method, url string, out any) error {
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("X-Dune-API-Key", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("dune request: %w", err)
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("read dune response: %w", readErr)
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
			return &provider.StatusError{Provider: "dune", StatusCode: resp.StatusCode, Body: string(body)}
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode dune response: %w", err)
		}
		return nil
	}
	return provider.ErrRateLimited
}

// retryWait derives a wait from the provider's Retry-After hint, capped at
// maxRetryWait. Missing or malformed hints fall back to one second.
func (c *Client) retryWait(hint string) time.Duration {
	wait := 1 * time.Second
	if secs, err := strconv.Atoi(hint); err == nil && secs > 0 {
		wait = time.Duration(secs) * time.Second
	}
	if wait > c.maxRetryWait {
		wait = c.maxRetryWait
	}
	return wait
}
