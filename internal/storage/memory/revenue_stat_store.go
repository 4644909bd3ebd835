package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// RevenueStatStore is an in-memory implementation of storage.RevenueStatStore.
type RevenueStatStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RevenueStat // keyed by day
}

// NewRevenueStatStore creates a new in-memory revenue stat store.
func NewRevenueStatStore() *RevenueStatStore {
	return &RevenueStatStore{
		data: make(map[string]*domain.RevenueStat),
	}
}

// Compile-time interface check.
var _ storage.RevenueStatStore = (*RevenueStatStore)(nil)

// Upsert inserts or updates the row for the stat's day.
func (s *RevenueStatStore) Upsert(_ context.Context, r *domain.RevenueStat) error {
	if r == nil || r.Day == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	cp := *r
	if existing, ok := s.data[r.Day]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.data[r.Day] = &cp
	return nil
}

// GetByDay retrieves one row. Returns ErrNotFound if not exists.
func (s *RevenueStatStore) GetByDay(_ context.Context, day string) (*domain.RevenueStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[day]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ListRange retrieves rows with day in [from, to], ordered by day ASC.
func (s *RevenueStatStore) ListRange(_ context.Context, from, to string) ([]*domain.RevenueStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RevenueStat
	for day, r := range s.data {
		if day >= from && day <= to {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day < result[j].Day })
	return result, nil
}
