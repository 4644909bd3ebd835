package llama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchTVL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tvl/aave", r.URL.Path)
		w.Write([]byte("12345678.9"))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))

	tvl, err := client.FetchTVL(context.Background(), "aave")
	require.NoError(t, err)
	assert.Equal(t, 12345678.9, tvl)
}

func TestClient_FetchProtocolTVLs_ToleratesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tvl/aave":
			w.Write([]byte("100"))
		case "/tvl/uniswap":
			w.Write([]byte("200"))
		default:
			http.Error(w, "unknown protocol", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))

	results := client.FetchProtocolTVLs(context.Background(), []string{"aave", "missing", "uniswap"})
	require.Len(t, results, 3)

	// Input order preserved
	assert.Equal(t, "aave", results[0].Protocol)
	require.NotNil(t, results[0].TVLUSD)
	assert.Equal(t, 100.0, *results[0].TVLUSD)

	assert.Equal(t, "missing", results[1].Protocol)
	assert.Nil(t, results[1].TVLUSD)
	assert.Error(t, results[1].Err)

	assert.Equal(t, "uniswap", results[2].Protocol)
	require.NotNil(t, results[2].TVLUSD)
	assert.Equal(t, 200.0, *results[2].TVLUSD)
}
