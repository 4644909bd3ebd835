package postgres

import (
	"context"
	"fmt"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// TokenSnapshotStore implements storage.TokenSnapshotStore using PostgreSQL.
type TokenSnapshotStore struct {
	pool *Pool
}

// NewTokenSnapshotStore creates a new TokenSnapshotStore.
func NewTokenSnapshotStore(pool *Pool) *TokenSnapshotStore {
	return &TokenSnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenSnapshotStore = (*TokenSnapshotStore)(nil)

// Insert appends a new snapshot.
func (s *TokenSnapshotStore) Insert(ctx context.Context, snap *domain.TokenSnapshot) error {
	if snap == nil || snap.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_snapshots (
			address, price_usd, market_cap_usd, volume_24h_usd, liquidity_usd,
			pct_change_24h, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		snap.Address, snap.PriceUSD, snap.MarketCapUSD, snap.Volume24hUSD,
		snap.LiquidityUSD, snap.PctChange24h, snap.RecordedAt,
	).Scan(&snap.ID)
	if err != nil {
		return fmt.Errorf("insert token snapshot: %w", err)
	}
	return nil
}

// LatestByAddress retrieves the most recent snapshot for a token.
func (s *TokenSnapshotStore) LatestByAddress(ctx context.Context, address string) (*domain.TokenSnapshot, error) {
	query := `
		SELECT id, address, price_usd, market_cap_usd, volume_24h_usd, liquidity_usd,
		       pct_change_24h, recorded_at
		FROM token_snapshots
		WHERE address = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`

	snap := &domain.TokenSnapshot{}
	err := s.pool.QueryRow(ctx, query, address).Scan(
		&snap.ID, &snap.Address, &snap.PriceUSD, &snap.MarketCapUSD,
		&snap.Volume24hUSD, &snap.LiquidityUSD, &snap.PctChange24h, &snap.RecordedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest token snapshot: %w", err)
	}
	return snap, nil
}

// LatestAll retrieves the most recent snapshot for every token, keyed by address.
func (s *TokenSnapshotStore) LatestAll(ctx context.Context) (map[string]*domain.TokenSnapshot, error) {
	query := `
		SELECT DISTINCT ON (address)
		       id, address, price_usd, market_cap_usd, volume_24h_usd, liquidity_usd,
		       pct_change_24h, recorded_at
		FROM token_snapshots
		ORDER BY address, recorded_at DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list latest token snapshots: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*domain.TokenSnapshot)
	for rows.Next() {
		snap := &domain.TokenSnapshot{}
		if err := rows.Scan(
			&snap.ID, &snap.Address, &snap.PriceUSD, &snap.MarketCapUSD,
			&snap.Volume24hUSD, &snap.LiquidityUSD, &snap.PctChange24h, &snap.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan token snapshot: %w", err)
		}
		result[snap.Address] = snap
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token snapshots: %w", err)
	}
	return result, nil
}
