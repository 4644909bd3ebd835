package memory

import (
	"context"
	"sync"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// TokenSnapshotStore is an in-memory implementation of storage.TokenSnapshotStore.
type TokenSnapshotStore struct {
	mu     sync.RWMutex
	data   []*domain.TokenSnapshot
	nextID int64
}

// NewTokenSnapshotStore creates a new in-memory token snapshot store.
func NewTokenSnapshotStore() *TokenSnapshotStore {
	return &TokenSnapshotStore{nextID: 1}
}

// Compile-time interface check.
var _ storage.TokenSnapshotStore = (*TokenSnapshotStore)(nil)

// Insert appends a new snapshot.
func (s *TokenSnapshotStore) Insert(_ context.Context, snap *domain.TokenSnapshot) error {
	if snap == nil || snap.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *snap
	cp.ID = s.nextID
	s.nextID++
	s.data = append(s.data, &cp)
	snap.ID = cp.ID
	return nil
}

// LatestByAddress retrieves the most recent snapshot for a token.
func (s *TokenSnapshotStore) LatestByAddress(_ context.Context, address string) (*domain.TokenSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.TokenSnapshot
	for _, snap := range s.data {
		if snap.Address != address {
			continue
		}
		if latest == nil || snap.RecordedAt.After(latest.RecordedAt) ||
			(snap.RecordedAt.Equal(latest.RecordedAt) && snap.ID > latest.ID) {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// LatestAll retrieves the most recent snapshot per token, keyed by address.
func (s *TokenSnapshotStore) LatestAll(_ context.Context) (map[string]*domain.TokenSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.TokenSnapshot)
	for _, snap := range s.data {
		latest, ok := result[snap.Address]
		if !ok || snap.RecordedAt.After(latest.RecordedAt) ||
			(snap.RecordedAt.Equal(latest.RecordedAt) && snap.ID > latest.ID) {
			cp := *snap
			result[snap.Address] = &cp
		}
	}
	return result, nil
}
