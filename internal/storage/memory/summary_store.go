package memory

import (
	"context"
	"sync"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
// Append-only, like its ClickHouse counterpart.
type SummaryStore struct {
	mu   sync.RWMutex
	data []*domain.MemeMetricsSnapshot
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// Insert appends a new snapshot row.
func (s *SummaryStore) Insert(_ context.Context, m *domain.MemeMetricsSnapshot) error {
	if m == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *m
	s.data = append(s.data, &cp)
	return nil
}

// Latest retrieves the most recent snapshot. Returns ErrNotFound if empty.
func (s *SummaryStore) Latest(_ context.Context) (*domain.MemeMetricsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.MemeMetricsSnapshot
	for _, m := range s.data {
		if latest == nil || m.RecordedAt.After(latest.RecordedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// All returns every stored snapshot in insertion order. Test helper.
func (s *SummaryStore) All() []*domain.MemeMetricsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MemeMetricsSnapshot, 0, len(s.data))
	for _, m := range s.data {
		cp := *m
		result = append(result, &cp)
	}
	return result
}
