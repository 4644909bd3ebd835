package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// WalletStatStore is an in-memory implementation of storage.WalletStatStore.
type WalletStatStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WalletStat // keyed by day
}

// NewWalletStatStore creates a new in-memory wallet stat store.
func NewWalletStatStore() *WalletStatStore {
	return &WalletStatStore{
		data: make(map[string]*domain.WalletStat),
	}
}

// Compile-time interface check.
var _ storage.WalletStatStore = (*WalletStatStore)(nil)

// Upsert inserts or updates the row for the stat's day.
func (s *WalletStatStore) Upsert(_ context.Context, w *domain.WalletStat) error {
	if w == nil || w.Day == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	cp := *w
	if existing, ok := s.data[w.Day]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.data[w.Day] = &cp
	return nil
}

// GetByDay retrieves one row. Returns ErrNotFound if not exists.
func (s *WalletStatStore) GetByDay(_ context.Context, day string) (*domain.WalletStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[day]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

// ListRange retrieves rows with day in [from, to], ordered by day ASC.
func (s *WalletStatStore) ListRange(_ context.Context, from, to string) ([]*domain.WalletStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WalletStat
	for day, w := range s.data {
		if day >= from && day <= to {
			cp := *w
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day < result[j].Day })
	return result, nil
}
