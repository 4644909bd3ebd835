package postgres

import (
	"context"
	"fmt"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// ProtocolTVLStore implements storage.ProtocolTVLStore using PostgreSQL.
type ProtocolTVLStore struct {
	pool *Pool
}

// NewProtocolTVLStore creates a new ProtocolTVLStore.
func NewProtocolTVLStore(pool *Pool) *ProtocolTVLStore {
	return &ProtocolTVLStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProtocolTVLStore = (*ProtocolTVLStore)(nil)

// Upsert inserts or updates the row for (day, protocol).
func (s *ProtocolTVLStore) Upsert(ctx context.Context, p *domain.ProtocolTVL) error {
	if p == nil || p.Day == "" || p.Protocol == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO protocol_tvl (
			day, protocol, tvl_usd, execution_id, query_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (day, protocol) DO UPDATE SET
			tvl_usd      = EXCLUDED.tvl_usd,
			execution_id = EXCLUDED.execution_id,
			query_id     = EXCLUDED.query_id,
			updated_at   = now()
	`

	_, err := s.pool.Exec(ctx, query, p.Day, p.Protocol, p.TVLUSD, p.ExecutionID, p.QueryID)
	if err != nil {
		return fmt.Errorf("upsert protocol tvl: %w", err)
	}
	return nil
}

// GetByKey retrieves one row. Returns ErrNotFound if not exists.
func (s *ProtocolTVLStore) GetByKey(ctx context.Context, day, protocol string) (*domain.ProtocolTVL, error) {
	query := `
		SELECT day, protocol, tvl_usd, execution_id, query_id, created_at, updated_at
		FROM protocol_tvl
		WHERE day = $1 AND protocol = $2
	`

	p := &domain.ProtocolTVL{}
	err := s.pool.QueryRow(ctx, query, day, protocol).Scan(
		&p.Day, &p.Protocol, &p.TVLUSD, &p.ExecutionID, &p.QueryID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get protocol tvl: %w", err)
	}
	return p, nil
}

// ListByDay retrieves all protocol rows for a day, ordered by protocol ASC.
func (s *ProtocolTVLStore) ListByDay(ctx context.Context, day string) ([]*domain.ProtocolTVL, error) {
	query := `
		SELECT day, protocol, tvl_usd, execution_id, query_id, created_at, updated_at
		FROM protocol_tvl
		WHERE day = $1
		ORDER BY protocol ASC
	`

	rows, err := s.pool.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("list protocol tvl by day: %w", err)
	}
	defer rows.Close()

	var result []*domain.ProtocolTVL
	for rows.Next() {
		p := &domain.ProtocolTVL{}
		if err := rows.Scan(
			&p.Day, &p.Protocol, &p.TVLUSD, &p.ExecutionID, &p.QueryID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan protocol tvl: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate protocol tvl: %w", err)
	}
	return result, nil
}
