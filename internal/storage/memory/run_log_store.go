package memory

import (
	"context"
	"sort"
	"sync"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// RunLogStore is an in-memory implementation of storage.RunLogStore.
type RunLogStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunLog // keyed by id
}

// NewRunLogStore creates a new in-memory run log store.
func NewRunLogStore() *RunLogStore {
	return &RunLogStore{
		data: make(map[string]*domain.RunLog),
	}
}

// Compile-time interface check.
var _ storage.RunLogStore = (*RunLogStore)(nil)

// Insert adds a new run log row.
func (s *RunLogStore) Insert(_ context.Context, r *domain.RunLog) error {
	if r == nil || r.ID == "" || r.RunType == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	cp.Progress = append([]string(nil), r.Progress...)
	s.data[r.ID] = &cp
	return nil
}

// Update replaces the mutable fields of an existing run log row.
func (s *RunLogStore) Update(_ context.Context, r *domain.RunLog) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[r.ID]
	if !exists {
		return storage.ErrNotFound
	}

	existing.Status = r.Status
	existing.Progress = append([]string(nil), r.Progress...)
	existing.DurationMs = r.DurationMs
	existing.SuccessCount = r.SuccessCount
	existing.ErrorCount = r.ErrorCount
	existing.ErrorMessage = r.ErrorMessage
	existing.FinishedAt = r.FinishedAt
	return nil
}

// ListRecent retrieves the most recent runs of a type, newest first.
func (s *RunLogStore) ListRecent(_ context.Context, runType string, limit int) ([]*domain.RunLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunLog
	for _, r := range s.data {
		if r.RunType == runType {
			cp := *r
			cp.Progress = append([]string(nil), r.Progress...)
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
