package postgres

import (
	"context"
	"fmt"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// RunLogStore implements storage.RunLogStore using PostgreSQL.
type RunLogStore struct {
	pool *Pool
}

// NewRunLogStore creates a new RunLogStore.
func NewRunLogStore(pool *Pool) *RunLogStore {
	return &RunLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunLogStore = (*RunLogStore)(nil)

// Insert adds a new run log row.
func (s *RunLogStore) Insert(ctx context.Context, r *domain.RunLog) error {
	if r == nil || r.ID == "" || r.RunType == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO run_logs (
			id, run_type, status, progress, duration_ms, success_count, error_count,
			error_message, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.RunType, r.Status, r.Progress, r.DurationMs,
		r.SuccessCount, r.ErrorCount, r.ErrorMessage, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of an existing run log row.
func (s *RunLogStore) Update(ctx context.Context, r *domain.RunLog) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE run_logs
		SET status = $2, progress = $3, duration_ms = $4, success_count = $5,
		    error_count = $6, error_message = $7, finished_at = $8
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		r.ID, r.Status, r.Progress, r.DurationMs,
		r.SuccessCount, r.ErrorCount, r.ErrorMessage, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update run log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListRecent retrieves the most recent runs of a type, newest first.
func (s *RunLogStore) ListRecent(ctx context.Context, runType string, limit int) ([]*domain.RunLog, error) {
	query := `
		SELECT id, run_type, status, progress, duration_ms, success_count, error_count,
		       error_message, started_at, finished_at
		FROM run_logs
		WHERE run_type = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, runType, limit)
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	defer rows.Close()

	var result []*domain.RunLog
	for rows.Next() {
		r := &domain.RunLog{}
		if err := rows.Scan(
			&r.ID, &r.RunType, &r.Status, &r.Progress, &r.DurationMs,
			&r.SuccessCount, &r.ErrorCount, &r.ErrorMessage, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run log: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run logs: %w", err)
	}
	return result, nil
}
