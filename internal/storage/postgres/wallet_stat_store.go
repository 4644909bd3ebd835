package postgres

import (
	"context"
	"fmt"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// WalletStatStore implements storage.WalletStatStore using PostgreSQL.
type WalletStatStore struct {
	pool *Pool
}

// NewWalletStatStore creates a new WalletStatStore.
func NewWalletStatStore(pool *Pool) *WalletStatStore {
	return &WalletStatStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStatStore = (*WalletStatStore)(nil)

// Upsert inserts or updates the row for the stat's day. Re-applying the same
// stat is a no-op value refresh; day uniqueness is enforced by the primary key.
func (s *WalletStatStore) Upsert(ctx context.Context, w *domain.WalletStat) error {
	if w == nil || w.Day == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO wallet_stats (
			day, address_count, inflow_usd, outflow_usd, execution_id, query_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (day) DO UPDATE SET
			address_count = EXCLUDED.address_count,
			inflow_usd    = EXCLUDED.inflow_usd,
			outflow_usd   = EXCLUDED.outflow_usd,
			execution_id  = EXCLUDED.execution_id,
			query_id      = EXCLUDED.query_id,
			updated_at    = now()
	`

	_, err := s.pool.Exec(ctx, query,
		w.Day, w.AddressCount, w.InflowUSD, w.OutflowUSD, w.ExecutionID, w.QueryID,
	)
	if err != nil {
		return fmt.Errorf("upsert wallet stat: %w", err)
	}
	return nil
}

// GetByDay retrieves one row. Returns ErrNotFound if not exists.
func (s *WalletStatStore) GetByDay(ctx context.Context, day string) (*domain.WalletStat, error) {
	query := `
		SELECT day, address_count, inflow_usd, outflow_usd, execution_id, query_id, created_at, updated_at
		FROM wallet_stats
		WHERE day = $1
	`

	w := &domain.WalletStat{}
	err := s.pool.QueryRow(ctx, query, day).Scan(
		&w.Day, &w.AddressCount, &w.InflowUSD, &w.OutflowUSD,
		&w.ExecutionID, &w.QueryID, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet stat by day: %w", err)
	}
	return w, nil
}

// ListRange retrieves rows with day in [from, to], ordered by day ASC.
func (s *WalletStatStore) ListRange(ctx context.Context, from, to string) ([]*domain.WalletStat, error) {
	query := `
		SELECT day, address_count, inflow_usd, outflow_usd, execution_id, query_id, created_at, updated_at
		FROM wallet_stats
		WHERE day >= $1 AND day <= $2
		ORDER BY day ASC
	`

	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list wallet stats: %w", err)
	}
	defer rows.Close()

	var result []*domain.WalletStat
	for rows.Next() {
		w := &domain.WalletStat{}
		if err := rows.Scan(
			&w.Day, &w.AddressCount, &w.InflowUSD, &w.OutflowUSD,
			&w.ExecutionID, &w.QueryID, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan wallet stat: %w", err)
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet stats: %w", err)
	}
	return result, nil
}
