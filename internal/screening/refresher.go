// Package screening keeps tracked-token market data fresh and recomputes
// the liquidity/volume filter flags against the configured thresholds.
package screening

import (
	"context"
	"fmt"
	"log"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/gecko"
	"protocol-pulse/internal/storage"
)

// TokenFetcher fetches market data for a batch of token addresses.
type TokenFetcher interface {
	FetchTokens(ctx context.Context, addresses []string) ([]gecko.TokenData, error)
}

// Refresher pulls the latest market data for every enabled token and appends
// one snapshot per token that came back.
type Refresher struct {
	fetcher   TokenFetcher
	tokens    storage.TokenStore
	snapshots storage.TokenSnapshotStore
	logger    *log.Logger
	clock     func() time.Time
}

// NewRefresher creates a new Refresher.
func NewRefresher(fetcher TokenFetcher, tokens storage.TokenStore, snapshots storage.TokenSnapshotStore, logger *log.Logger) *Refresher {
	return &Refresher{
		fetcher:   fetcher,
		tokens:    tokens,
		snapshots: snapshots,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock. Used by tests.
func (r *Refresher) WithClock(clock func() time.Time) *Refresher {
	r.clock = clock
	return r
}

// RefreshResult summarizes one refresh run.
type RefreshResult struct {
	Requested int
	Stored    int
	Errors    []string
}

// Run fetches market data for all enabled tokens and stores snapshots.
// Tokens the provider did not return are simply absent from this round; a
// partial fetch still stores what arrived.
func (r *Refresher) Run(ctx context.Context) (*RefreshResult, error) {
	tokens, err := r.tokens.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled tokens: %w", err)
	}

	addresses := make([]string, 0, len(tokens))
	for _, t := range tokens {
		addresses = append(addresses, t.Address)
	}

	out := &RefreshResult{Requested: len(addresses)}
	if len(addresses) == 0 {
		return out, nil
	}

	data, fetchErr := r.fetcher.FetchTokens(ctx, addresses)
	if fetchErr != nil {
		out.Errors = append(out.Errors, fetchErr.Error())
		r.logger.Printf("token fetch incomplete: %v", fetchErr)
	}

	now := r.clock()
	for _, d := range data {
		snap := &domain.TokenSnapshot{
			Address:      d.Address,
			PriceUSD:     d.PriceUSD,
			MarketCapUSD: d.MarketCapUSD,
			Volume24hUSD: d.Volume24hUSD,
			LiquidityUSD: d.LiquidityUSD,
			PctChange24h: d.PctChange24h,
			RecordedAt:   now,
		}
		if err := r.snapshots.Insert(ctx, snap); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", d.Address, err))
			r.logger.Printf("snapshot insert failed for %s: %v", d.Address, err)
			continue
		}
		out.Stored++
	}
	return out, nil
}
