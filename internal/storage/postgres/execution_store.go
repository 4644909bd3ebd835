package postgres

import (
	"context"
	"fmt"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// ExecutionStore implements storage.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

// Insert adds a new execution. Returns ErrDuplicateKey if execution_id exists.
func (s *ExecutionStore) Insert(ctx context.Context, e *domain.ExecutionRecord) error {
	query := `
		INSERT INTO executions (
			execution_id, query_id, status, processed, row_count, error_message,
			created_at, completed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		e.ExecutionID,
		e.QueryID,
		e.Status,
		e.Processed,
		e.RowCount,
		e.ErrorMessage,
		e.CreatedAt,
		e.CompletedAt,
		e.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID retrieves an execution by its ID. Returns ErrNotFound if not exists.
func (s *ExecutionStore) GetByID(ctx context.Context, executionID string) (*domain.ExecutionRecord, error) {
	query := `
		SELECT execution_id, query_id, status, processed, row_count, error_message,
		       created_at, completed_at, updated_at
		FROM executions
		WHERE execution_id = $1
	`

	e := &domain.ExecutionRecord{}
	err := s.pool.QueryRow(ctx, query, executionID).Scan(
		&e.ExecutionID, &e.QueryID, &e.Status, &e.Processed, &e.RowCount,
		&e.ErrorMessage, &e.CreatedAt, &e.CompletedAt, &e.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get execution by id: %w", err)
	}
	return e, nil
}

// ListUnprocessed retrieves executions with processed=false created after the
// cutoff, oldest first, capped at limit.
func (s *ExecutionStore) ListUnprocessed(ctx context.Context, createdAfter time.Time, limit int) ([]*domain.ExecutionRecord, error) {
	query := `
		SELECT execution_id, query_id, status, processed, row_count, error_message,
		       created_at, completed_at, updated_at
		FROM executions
		WHERE processed = false AND created_at > $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, createdAfter, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed executions: %w", err)
	}
	defer rows.Close()

	var result []*domain.ExecutionRecord
	for rows.Next() {
		e := &domain.ExecutionRecord{}
		if err := rows.Scan(
			&e.ExecutionID, &e.QueryID, &e.Status, &e.Processed, &e.RowCount,
			&e.ErrorMessage, &e.CreatedAt, &e.CompletedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return result, nil
}

// UpdateStatus sets the status and refreshes updated_at. The WHERE clause
// excludes terminal rows, which is what makes status monotonic: an update
// matching zero rows is either a missing execution or a terminal one.
func (s *ExecutionStore) UpdateStatus(ctx context.Context, executionID string, status domain.ExecutionStatus, errorMessage *string) error {
	query := `
		UPDATE executions
		SET status = $2, error_message = COALESCE($3, error_message), updated_at = now()
		WHERE execution_id = $1
		  AND status NOT IN ('COMPLETED', 'FAILED', 'CANCELLED', 'TIMEOUT')
	`

	tag, err := s.pool.Exec(ctx, query, executionID, status, errorMessage)
	if err != nil {
		return fmt.Errorf("update execution status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, err := s.GetByID(ctx, executionID)
		if err != nil {
			return err
		}
		if existing.Status.IsTerminal() {
			return storage.ErrTerminalStatus
		}
		return storage.ErrNotFound
	}
	return nil
}

// MarkCompleted sets status=COMPLETED, row_count and completed_at.
func (s *ExecutionStore) MarkCompleted(ctx context.Context, executionID string, rowCount int64, completedAt time.Time) error {
	query := `
		UPDATE executions
		SET status = 'COMPLETED', row_count = $2, completed_at = $3, updated_at = now()
		WHERE execution_id = $1
		  AND status NOT IN ('FAILED', 'CANCELLED', 'TIMEOUT')
	`

	tag, err := s.pool.Exec(ctx, query, executionID, rowCount, completedAt)
	if err != nil {
		return fmt.Errorf("mark execution completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, err := s.GetByID(ctx, executionID)
		if err != nil {
			return err
		}
		if existing.Status.IsTerminal() {
			return storage.ErrTerminalStatus
		}
		return storage.ErrNotFound
	}
	return nil
}

// MarkProcessed flips processed=true and refreshes updated_at.
func (s *ExecutionStore) MarkProcessed(ctx context.Context, executionID string) error {
	query := `
		UPDATE executions
		SET processed = true, updated_at = now()
		WHERE execution_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, executionID)
	if err != nil {
		return fmt.Errorf("mark execution processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
