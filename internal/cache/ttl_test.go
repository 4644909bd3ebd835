package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_GetSet(t *testing.T) {
	c, err := NewTTLCache[string](4)
	require.NoError(t, err)

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	c.WithClock(func() time.Time { return now })

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "value", time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestTTLCache_Expiry(t *testing.T) {
	c, err := NewTTLCache[int](4)
	require.NoError(t, err)

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	c.WithClock(func() time.Time { return now })

	c.Set("k", 42, time.Minute)

	now = now.Add(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "still fresh just before the TTL")

	now = now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "expired exactly at the TTL")

	// A fresh Set revives the key
	c.Set("k", 43, time.Minute)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 43, got)
}

func TestTTLCache_EvictsBeyondCapacity(t *testing.T) {
	c, err := NewTTLCache[int](2)
	require.NoError(t, err)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("c", 3, time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry evicted")
	_, ok = c.Get("c")
	assert.True(t, ok)
}
