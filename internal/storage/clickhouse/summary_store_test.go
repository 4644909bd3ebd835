package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

func TestSummaryStore_InsertAndLatest(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryStore(conn)
	ctx := context.Background()

	avg := 2.5
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, &domain.MemeMetricsSnapshot{
		RecordedAt:        base,
		TotalMarketCapUSD: 100,
		VisibleTokenCount: 1,
	}))
	require.NoError(t, store.Insert(ctx, &domain.MemeMetricsSnapshot{
		RecordedAt:          base.Add(time.Hour),
		TotalMarketCapUSD:   600,
		TotalVolumeUSD:      40,
		TotalLiquidityUSD:   75,
		MarketCapCount:      3,
		VolumeCount:         2,
		LiquidityCount:      2,
		AvgPctChange24h:     &avg,
		VisibleMarketCapUSD: 400,
		VisibleTokenCount:   2,
	}))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), latest.RecordedAt.UTC())
	assert.Equal(t, 600.0, latest.TotalMarketCapUSD)
	assert.Equal(t, int64(3), latest.MarketCapCount)
	require.NotNil(t, latest.AvgPctChange24h)
	assert.Equal(t, 2.5, *latest.AvgPctChange24h)
	assert.Equal(t, 400.0, latest.VisibleMarketCapUSD)
	assert.Equal(t, int64(2), latest.VisibleTokenCount)
}

func TestSummaryStore_NullableAverage(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.MemeMetricsSnapshot{
		RecordedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest.AvgPctChange24h)
}

func TestSummaryStore_LatestEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryStore(conn)

	_, err := store.Latest(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
