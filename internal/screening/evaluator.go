package screening

import (
	"context"
	"errors"
	"fmt"
	"log"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// Evaluator recomputes the low-liquidity and low-volume flags for every
// enabled token against the current thresholds.
type Evaluator struct {
	tokens     storage.TokenStore
	snapshots  storage.TokenSnapshotStore
	thresholds storage.ThresholdStore
	logger     *log.Logger
}

// NewEvaluator creates a new Evaluator.
func NewEvaluator(tokens storage.TokenStore, snapshots storage.TokenSnapshotStore, thresholds storage.ThresholdStore, logger *log.Logger) *Evaluator {
	return &Evaluator{
		tokens:     tokens,
		snapshots:  snapshots,
		thresholds: thresholds,
		logger:     logger,
	}
}

// EvaluateResult summarizes one screening pass.
type EvaluateResult struct {
	Evaluated int
	Flagged   int
	Updated   int
	Errors    []string
}

// Run evaluates every enabled token against the thresholds. Flags are written
// only when they actually change; updated_at is refreshed on every token as a
// liveness heartbeat regardless. A token without a snapshot, or whose store
// calls fail, still gets the heartbeat and the pass continues.
func (e *Evaluator) Run(ctx context.Context) (*EvaluateResult, error) {
	th, err := e.thresholds.Get(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load thresholds: %w", err)
		}
		fallback := domain.DefaultThresholds()
		th = &fallback
	}

	tokens, err := e.tokens.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled tokens: %w", err)
	}
	latest, err := e.snapshots.LatestAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest snapshots: %w", err)
	}

	result := &EvaluateResult{}
	for _, t := range tokens {
		result.Evaluated++

		snap, ok := latest[t.Address]
		if !ok {
			e.touch(ctx, t.Address, result)
			continue
		}

		lowLiq := belowThreshold(snap.LiquidityUSD, th.MinLiquidityUSD)
		lowVol := belowThreshold(snap.Volume24hUSD, th.MinVolumeUSD)
		if lowLiq || lowVol {
			result.Flagged++
		}

		if lowLiq == t.LowLiquidity && lowVol == t.LowVolume {
			e.touch(ctx, t.Address, result)
			continue
		}

		if err := e.tokens.UpdateFlags(ctx, t.Address, lowLiq, lowVol); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", t.Address, err))
			e.logger.Printf("flag update failed for %s: %v", t.Address, err)
			e.touch(ctx, t.Address, result)
			continue
		}
		result.Updated++
	}
	return result, nil
}

func (e *Evaluator) touch(ctx context.Context, address string, result *EvaluateResult) {
	if err := e.tokens.Touch(ctx, address); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: touch: %v", address, err))
		e.logger.Printf("heartbeat failed for %s: %v", address, err)
	}
}

// belowThreshold treats a missing measurement as below: a token we cannot
// price is not one we can vouch for.
func belowThreshold(value *float64, min float64) bool {
	if value == nil {
		return true
	}
	return *value < min
}
