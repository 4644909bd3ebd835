package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// ExecutionStore is an in-memory implementation of storage.ExecutionStore.
type ExecutionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ExecutionRecord // keyed by execution_id
}

// NewExecutionStore creates a new in-memory execution store.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{
		data: make(map[string]*domain.ExecutionRecord),
	}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

// Insert adds a new execution. Returns ErrDuplicateKey if execution_id exists.
func (s *ExecutionStore) Insert(_ context.Context, e *domain.ExecutionRecord) error {
	if e == nil || e.ExecutionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ExecutionID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	cp := *e
	s.data[e.ExecutionID] = &cp
	return nil
}

// GetByID retrieves an execution by its ID. Returns ErrNotFound if not exists.
func (s *ExecutionStore) GetByID(_ context.Context, executionID string) (*domain.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[executionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *e
	return &cp, nil
}

// ListUnprocessed retrieves executions with processed=false created after the
// cutoff, oldest first, capped at limit.
func (s *ExecutionStore) ListUnprocessed(_ context.Context, createdAfter time.Time, limit int) ([]*domain.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExecutionRecord
	for _, e := range s.data {
		if !e.Processed && e.CreatedAt.After(createdAfter) {
			cp := *e
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// UpdateStatus sets the status and refreshes updated_at. Returns
// ErrTerminalStatus if the stored status is already terminal.
func (s *ExecutionStore) UpdateStatus(_ context.Context, executionID string, status domain.ExecutionStatus, errorMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[executionID]
	if !exists {
		return storage.ErrNotFound
	}
	if e.Status.IsTerminal() {
		return storage.ErrTerminalStatus
	}

	e.Status = status
	if errorMessage != nil {
		e.ErrorMessage = errorMessage
	}
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted sets status=COMPLETED, row_count and completed_at.
func (s *ExecutionStore) MarkCompleted(_ context.Context, executionID string, rowCount int64, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[executionID]
	if !exists {
		return storage.ErrNotFound
	}
	// Re-completing a COMPLETED row is allowed (crash-recovery re-poll);
	// moving out of FAILED/CANCELLED/TIMEOUT is not.
	if e.Status.IsTerminal() && e.Status != domain.StatusCompleted {
		return storage.ErrTerminalStatus
	}

	e.Status = domain.StatusCompleted
	e.RowCount = &rowCount
	e.CompletedAt = &completedAt
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkProcessed flips processed=true and refreshes updated_at.
func (s *ExecutionStore) MarkProcessed(_ context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[executionID]
	if !exists {
		return storage.ErrNotFound
	}

	e.Processed = true
	e.UpdatedAt = time.Now().UTC()
	return nil
}
