package postgres

import (
	"context"
	"fmt"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// RevenueStatStore implements storage.RevenueStatStore using PostgreSQL.
type RevenueStatStore struct {
	pool *Pool
}

// NewRevenueStatStore creates a new RevenueStatStore.
func NewRevenueStatStore(pool *Pool) *RevenueStatStore {
	return &RevenueStatStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RevenueStatStore = (*RevenueStatStore)(nil)

// Upsert inserts or updates the row for the stat's day.
func (s *RevenueStatStore) Upsert(ctx context.Context, r *domain.RevenueStat) error {
	if r == nil || r.Day == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO revenue_stats (
			day, revenue_usd, fees_usd, execution_id, query_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (day) DO UPDATE SET
			revenue_usd  = EXCLUDED.revenue_usd,
			fees_usd     = EXCLUDED.fees_usd,
			execution_id = EXCLUDED.execution_id,
			query_id     = EXCLUDED.query_id,
			updated_at   = now()
	`

	_, err := s.pool.Exec(ctx, query, r.Day, r.RevenueUSD, r.FeesUSD, r.ExecutionID, r.QueryID)
	if err != nil {
		return fmt.Errorf("upsert revenue stat: %w", err)
	}
	return nil
}

// GetByDay retrieves one row. Returns ErrNotFound if not exists.
func (s *RevenueStatStore) GetByDay(ctx context.Context, day string) (*domain.RevenueStat, error) {
	query := `
		SELECT day, revenue_usd, fees_usd, execution_id, query_id, created_at, updated_at
		FROM revenue_stats
		WHERE day = $1
	`

	r := &domain.RevenueStat{}
	err := s.pool.QueryRow(ctx, query, day).Scan(
		&r.Day, &r.RevenueUSD, &r.FeesUSD, &r.ExecutionID, &r.QueryID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get revenue stat by day: %w", err)
	}
	return r, nil
}

// ListRange retrieves rows with day in [from, to], ordered by day ASC.
func (s *RevenueStatStore) ListRange(ctx context.Context, from, to string) ([]*domain.RevenueStat, error) {
	query := `
		SELECT day, revenue_usd, fees_usd, execution_id, query_id, created_at, updated_at
		FROM revenue_stats
		WHERE day >= $1 AND day <= $2
		ORDER BY day ASC
	`

	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list revenue stats: %w", err)
	}
	defer rows.Close()

	var result []*domain.RevenueStat
	for rows.Next() {
		r := &domain.RevenueStat{}
		if err := rows.Scan(
			&r.Day, &r.RevenueUSD, &r.FeesUSD, &r.ExecutionID, &r.QueryID, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan revenue stat: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revenue stats: %w", err)
	}
	return result, nil
}
