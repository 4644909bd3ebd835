package aggregation

import (
	"context"
	"fmt"
	"log"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// Aggregator rolls the latest token snapshots up into one MemeMetricsSnapshot
// and appends it to the summary series. Each run reads whatever snapshots
// exist at that moment; runs never mutate earlier summary rows.
type Aggregator struct {
	tokens    storage.TokenStore
	snapshots storage.TokenSnapshotStore
	summaries storage.SummaryStore
	logger    *log.Logger
	clock     func() time.Time
}

// NewAggregator creates a new Aggregator.
func NewAggregator(tokens storage.TokenStore, snapshots storage.TokenSnapshotStore, summaries storage.SummaryStore, logger *log.Logger) *Aggregator {
	return &Aggregator{
		tokens:    tokens,
		snapshots: snapshots,
		summaries: summaries,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock. Used by tests.
func (a *Aggregator) WithClock(clock func() time.Time) *Aggregator {
	a.clock = clock
	return a
}

// Result summarizes one aggregation run.
type Result struct {
	EnabledTokens  int
	VisibleTokens  int
	SnapshotsFound int
}

// Run computes and appends one summary row. Enabled tokens without a snapshot
// simply do not contribute; hidden tokens count toward the Total* fields but
// not the Visible* ones.
func (a *Aggregator) Run(ctx context.Context) (*Result, error) {
	tokens, err := a.tokens.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled tokens: %w", err)
	}
	latest, err := a.snapshots.LatestAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshots: %w", err)
	}

	var all, visible []*domain.TokenSnapshot
	for _, t := range tokens {
		snap, ok := latest[t.Address]
		if !ok {
			continue
		}
		all = append(all, snap)
		if !t.Hidden {
			visible = append(visible, snap)
		}
	}

	total := computeRollup(all)
	vis := computeRollup(visible)

	summary := &domain.MemeMetricsSnapshot{
		RecordedAt: a.clock(),

		TotalMarketCapUSD: total.marketCapUSD,
		TotalVolumeUSD:    total.volumeUSD,
		TotalLiquidityUSD: total.liquidityUSD,
		MarketCapCount:    total.marketCapCount,
		VolumeCount:       total.volumeCount,
		LiquidityCount:    total.liquidityCount,
		AvgPctChange24h:   total.avgPctChange,

		VisibleMarketCapUSD: vis.marketCapUSD,
		VisibleVolumeUSD:    vis.volumeUSD,
		VisibleLiquidityUSD: vis.liquidityUSD,
		VisibleTokenCount:   int64(len(visible)),
	}

	if err := a.summaries.Insert(ctx, summary); err != nil {
		return nil, fmt.Errorf("append summary: %w", err)
	}

	a.logger.Printf("aggregated %d/%d enabled tokens (%d visible)",
		len(all), len(tokens), len(visible))
	return &Result{
		EnabledTokens:  len(tokens),
		VisibleTokens:  len(visible),
		SnapshotsFound: len(all),
	}, nil
}
