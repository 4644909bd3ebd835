package postgres

import (
	"context"
	"fmt"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if address exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.TrackedToken) error {
	if t == nil || t.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tracked_tokens (
			address, symbol, enabled, hidden, low_liquidity, low_volume, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`

	_, err := s.pool.Exec(ctx, query,
		t.Address, t.Symbol, t.Enabled, t.Hidden, t.LowLiquidity, t.LowVolume,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert tracked token: %w", err)
	}
	return nil
}

// GetByAddress retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(ctx context.Context, address string) (*domain.TrackedToken, error) {
	query := `
		SELECT address, symbol, enabled, hidden, low_liquidity, low_volume, created_at, updated_at
		FROM tracked_tokens
		WHERE address = $1
	`

	t := &domain.TrackedToken{}
	err := s.pool.QueryRow(ctx, query, address).Scan(
		&t.Address, &t.Symbol, &t.Enabled, &t.Hidden,
		&t.LowLiquidity, &t.LowVolume, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tracked token: %w", err)
	}
	return t, nil
}

// ListEnabled retrieves all enabled tokens, ordered by address ASC.
func (s *TokenStore) ListEnabled(ctx context.Context) ([]*domain.TrackedToken, error) {
	query := `
		SELECT address, symbol, enabled, hidden, low_liquidity, low_volume, created_at, updated_at
		FROM tracked_tokens
		WHERE enabled = true
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list enabled tokens: %w", err)
	}
	defer rows.Close()

	var result []*domain.TrackedToken
	for rows.Next() {
		t := &domain.TrackedToken{}
		if err := rows.Scan(
			&t.Address, &t.Symbol, &t.Enabled, &t.Hidden,
			&t.LowLiquidity, &t.LowVolume, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan tracked token: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked tokens: %w", err)
	}
	return result, nil
}

// UpdateFlags sets low_liquidity/low_volume and refreshes updated_at.
func (s *TokenStore) UpdateFlags(ctx context.Context, address string, lowLiquidity, lowVolume bool) error {
	query := `
		UPDATE tracked_tokens
		SET low_liquidity = $2, low_volume = $3, updated_at = now()
		WHERE address = $1
	`

	tag, err := s.pool.Exec(ctx, query, address, lowLiquidity, lowVolume)
	if err != nil {
		return fmt.Errorf("update token flags: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Touch refreshes updated_at only, as a liveness heartbeat.
func (s *TokenStore) Touch(ctx context.Context, address string) error {
	query := `UPDATE tracked_tokens SET updated_at = now() WHERE address = $1`

	tag, err := s.pool.Exec(ctx, query, address)
	if err != nil {
		return fmt.Errorf("touch tracked token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
