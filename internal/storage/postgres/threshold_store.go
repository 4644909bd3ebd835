package postgres

import (
	"context"
	"fmt"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// ThresholdStore implements storage.ThresholdStore using PostgreSQL.
// The filter_thresholds table holds at most one row (id = 1).
type ThresholdStore struct {
	pool *Pool
}

// NewThresholdStore creates a new ThresholdStore.
func NewThresholdStore(pool *Pool) *ThresholdStore {
	return &ThresholdStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ThresholdStore = (*ThresholdStore)(nil)

// Get retrieves the current thresholds. Returns ErrNotFound if unset.
func (s *ThresholdStore) Get(ctx context.Context) (*domain.FilterThresholds, error) {
	query := `SELECT min_liquidity_usd, min_volume_usd FROM filter_thresholds WHERE id = 1`

	t := &domain.FilterThresholds{}
	err := s.pool.QueryRow(ctx, query).Scan(&t.MinLiquidityUSD, &t.MinVolumeUSD)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get filter thresholds: %w", err)
	}
	return t, nil
}

// Set replaces the current thresholds.
func (s *ThresholdStore) Set(ctx context.Context, t *domain.FilterThresholds) error {
	if t == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO filter_thresholds (id, min_liquidity_usd, min_volume_usd, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET
			min_liquidity_usd = EXCLUDED.min_liquidity_usd,
			min_volume_usd    = EXCLUDED.min_volume_usd,
			updated_at        = now()
	`

	_, err := s.pool.Exec(ctx, query, t.MinLiquidityUSD, t.MinVolumeUSD)
	if err != nil {
		return fmt.Errorf("set filter thresholds: %w", err)
	}
	return nil
}
