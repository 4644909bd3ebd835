package dune

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocol-pulse/internal/provider"
)

func TestClient_ExecuteQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/query/5184581/execute", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Dune-API-Key"))
		w.Write([]byte(`{"execution_id": "E1", "state": "QUERY_STATE_PENDING"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))

	executionID, err := client.ExecuteQuery(context.Background(), 5184581)
	require.NoError(t, err)
	assert.Equal(t, "E1", executionID)
}

func TestClient_ExecuteQuery_MissingExecutionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state": "QUERY_STATE_PENDING"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))

	_, err := client.ExecuteQuery(context.Background(), 5184581)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing execution_id")
}

func TestClient_GetResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/execution/E1/results", r.URL.Path)
		w.Write([]byte(`{
			"state": "QUERY_STATE_COMPLETED",
			"result": {"rows": [
				{"block_day": "2025-05-01 00:00:00", "address_count": 150},
				{"block_day": "2025-05-02 00:00:00", "address_count": 175}
			]}
		}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))

	res, err := client.GetResults(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	require.Len(t, res.Result.Rows, 2)
	assert.Equal(t, "2025-05-01 00:00:00", res.Result.Rows[0]["block_day"])
}

func TestClient_RetriesOn429(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"state": "QUERY_STATE_COMPLETED", "result": {"rows": []}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithMaxRetryWait(10*time.Millisecond))

	res, err := client.GetResults(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 2, calls)
}

func TestClient_RateLimitExhaustion(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithRetryAttempts(3),
		WithMaxRetryWait(time.Millisecond))

	_, err := client.GetResults(context.Background(), "E1")
	assert.ErrorIs(t, err, provider.ErrRateLimited)
	assert.Equal(t, 3, calls)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "query not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))

	_, err := client.ExecuteQuery(context.Background(), 999)
	require.Error(t, err)

	var statusErr *provider.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "dune", statusErr.Provider)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
