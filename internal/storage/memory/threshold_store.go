package memory

import (
	"context"
	"sync"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// ThresholdStore is an in-memory implementation of storage.ThresholdStore.
type ThresholdStore struct {
	mu  sync.RWMutex
	cur *domain.FilterThresholds
}

// NewThresholdStore creates a new in-memory threshold store with no row set.
func NewThresholdStore() *ThresholdStore {
	return &ThresholdStore{}
}

// Compile-time interface check.
var _ storage.ThresholdStore = (*ThresholdStore)(nil)

// Get retrieves the current thresholds. Returns ErrNotFound if unset.
func (s *ThresholdStore) Get(_ context.Context) (*domain.FilterThresholds, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cur == nil {
		return nil, storage.ErrNotFound
	}
	cp := *s.cur
	return &cp, nil
}

// Set replaces the current thresholds.
func (s *ThresholdStore) Set(_ context.Context, t *domain.FilterThresholds) error {
	if t == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.cur = &cp
	return nil
}
