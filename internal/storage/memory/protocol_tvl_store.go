package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// ProtocolTVLStore is an in-memory implementation of storage.ProtocolTVLStore.
type ProtocolTVLStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ProtocolTVL // keyed by day|protocol
}

// NewProtocolTVLStore creates a new in-memory protocol TVL store.
func NewProtocolTVLStore() *ProtocolTVLStore {
	return &ProtocolTVLStore{
		data: make(map[string]*domain.ProtocolTVL),
	}
}

// Compile-time interface check.
var _ storage.ProtocolTVLStore = (*ProtocolTVLStore)(nil)

func tvlKey(day, protocol string) string {
	return day + "|" + protocol
}

// Upsert inserts or updates the row for (day, protocol).
func (s *ProtocolTVLStore) Upsert(_ context.Context, p *domain.ProtocolTVL) error {
	if p == nil || p.Day == "" || p.Protocol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := tvlKey(p.Day, p.Protocol)
	cp := *p
	if existing, ok := s.data[key]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.data[key] = &cp
	return nil
}

// GetByKey retrieves one row. Returns ErrNotFound if not exists.
func (s *ProtocolTVLStore) GetByKey(_ context.Context, day, protocol string) (*domain.ProtocolTVL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[tvlKey(day, protocol)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListByDay retrieves all protocol rows for a day, ordered by protocol ASC.
func (s *ProtocolTVLStore) ListByDay(_ context.Context, day string) ([]*domain.ProtocolTVL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ProtocolTVL
	for _, p := range s.data {
		if p.Day == day {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Protocol < result[j].Protocol })
	return result, nil
}
