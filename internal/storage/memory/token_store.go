package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TrackedToken // keyed by address
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.TrackedToken),
	}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if address exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.TrackedToken) error {
	if t == nil || t.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.Address]; exists {
		return storage.ErrDuplicateKey
	}

	now := time.Now().UTC()
	cp := *t
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.data[t.Address] = &cp
	return nil
}

// GetByAddress retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(_ context.Context, address string) (*domain.TrackedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// ListEnabled retrieves all enabled tokens, ordered by address ASC.
func (s *TokenStore) ListEnabled(_ context.Context) ([]*domain.TrackedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrackedToken
	for _, t := range s.data {
		if t.Enabled {
			cp := *t
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Address < result[j].Address })
	return result, nil
}

// UpdateFlags sets low_liquidity/low_volume and refreshes updated_at.
func (s *TokenStore) UpdateFlags(_ context.Context, address string, lowLiquidity, lowVolume bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[address]
	if !exists {
		return storage.ErrNotFound
	}
	t.LowLiquidity = lowLiquidity
	t.LowVolume = lowVolume
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Touch refreshes updated_at only.
func (s *TokenStore) Touch(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[address]
	if !exists {
		return storage.ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}
