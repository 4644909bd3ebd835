package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocol-pulse/internal/domain"
)

func ptr[T any](v T) *T {
	return &v
}

func TestComputeRollup_SumsAndCounts(t *testing.T) {
	snaps := []*domain.TokenSnapshot{
		{Address: "a", MarketCapUSD: ptr(100.0), Volume24hUSD: ptr(10.0), LiquidityUSD: ptr(50.0)},
		{Address: "b", MarketCapUSD: ptr(200.0), Volume24hUSD: nil, LiquidityUSD: ptr(0.0)},
		{Address: "c", MarketCapUSD: nil, Volume24hUSD: ptr(30.0), LiquidityUSD: ptr(25.0)},
	}

	r := computeRollup(snaps)
	assert.Equal(t, 300.0, r.marketCapUSD)
	assert.Equal(t, 40.0, r.volumeUSD)
	assert.Equal(t, 75.0, r.liquidityUSD)

	// Null and zero values do not count as contributors
	assert.Equal(t, int64(2), r.marketCapCount)
	assert.Equal(t, int64(2), r.volumeCount)
	assert.Equal(t, int64(2), r.liquidityCount)
}

func TestComputeRollup_AvgExcludesNulls(t *testing.T) {
	snaps := []*domain.TokenSnapshot{
		{Address: "a", PctChange24h: ptr(5.0)},
		{Address: "b", PctChange24h: nil},
		{Address: "c", PctChange24h: ptr(-3.0)},
	}

	r := computeRollup(snaps)
	require.NotNil(t, r.avgPctChange)
	assert.Equal(t, 1.0, *r.avgPctChange, "null entries are excluded from numerator and denominator")
}

func TestComputeRollup_AllNullAvgIsNil(t *testing.T) {
	snaps := []*domain.TokenSnapshot{
		{Address: "a"},
		{Address: "b"},
	}

	r := computeRollup(snaps)
	assert.Nil(t, r.avgPctChange)
}

func TestComputeRollup_Empty(t *testing.T) {
	r := computeRollup(nil)
	assert.Zero(t, r.marketCapUSD)
	assert.Zero(t, r.marketCapCount)
	assert.Nil(t, r.avgPctChange)
}
