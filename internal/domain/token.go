package domain

import "time"

// TrackedToken is a token the dashboard tracks.
// Corresponds to the tracked_tokens table in PostgreSQL.
//
// LowLiquidity and LowVolume are recomputed by the screening job against the
// current FilterThresholds; Hidden is an operator decision and never touched
// by the pipeline.
type TrackedToken struct {
	Address      string // PRIMARY KEY, contract address
	Symbol       string
	Enabled      bool // disabled tokens are ignored by all jobs
	Hidden       bool // excluded from the visible aggregation subset
	LowLiquidity bool
	LowVolume    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time // heartbeat: refreshed on every screening pass
}

// TokenSnapshot is one market-data observation for a tracked token.
// Corresponds to the token_snapshots table. Append-only; the latest snapshot
// per token is what aggregation and screening read.
type TokenSnapshot struct {
	ID           int64 // surrogate, DB-assigned
	Address      string
	PriceUSD     *float64
	MarketCapUSD *float64
	Volume24hUSD *float64
	LiquidityUSD *float64
	PctChange24h *float64 // nullable: provider may omit for thin pools
	RecordedAt   time.Time
}

// FilterThresholds are the inclusion cutoffs read by the screening job.
// A single row in the filter_thresholds table; DefaultThresholds applies
// when the row is absent.
type FilterThresholds struct {
	MinLiquidityUSD float64
	MinVolumeUSD    float64
}

// DefaultThresholds returns the hardcoded fallback cutoffs.
func DefaultThresholds() FilterThresholds {
	return FilterThresholds{
		MinLiquidityUSD: 5000,
		MinVolumeUSD:    1000,
	}
}
