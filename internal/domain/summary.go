package domain

import "time"

// MemeMetricsSnapshot is one aggregation run's output over the tracked token
// set. Corresponds to the meme_metrics table in ClickHouse. Append-only time
// series: identity is RecordedAt, rows are never mutated.
//
// The Total* fields cover all enabled tokens; the Visible* fields cover the
// enabled-and-not-hidden subset. *Count fields count tokens that contributed
// a non-null, non-zero value to the matching sum. AvgPctChange24h averages
// only tokens with a non-null percentage change.
type MemeMetricsSnapshot struct {
	RecordedAt time.Time

	TotalMarketCapUSD float64
	TotalVolumeUSD    float64
	TotalLiquidityUSD float64
	MarketCapCount    int64
	VolumeCount       int64
	LiquidityCount    int64
	AvgPctChange24h   *float64 // nil when no token has a pct-change value

	VisibleMarketCapUSD float64
	VisibleVolumeUSD    float64
	VisibleLiquidityUSD float64
	VisibleTokenCount   int64
}
