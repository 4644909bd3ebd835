package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// Trigger submits provider query executions and records them in the ledger.
type Trigger struct {
	client     ExecutionClient
	executions storage.ExecutionStore
	logger     *log.Logger
	clock      func() time.Time
}

// NewTrigger creates a new Trigger.
func NewTrigger(client ExecutionClient, executions storage.ExecutionStore, logger *log.Logger) *Trigger {
	return &Trigger{
		client:     client,
		executions: executions,
		logger:     logger,
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock. Used by tests.
func (t *Trigger) WithClock(clock func() time.Time) *Trigger {
	t.clock = clock
	return t
}

// Run submits one execution of the given query and inserts a PENDING ledger
// row for it. Exactly one row is created per successful call.
//
// If the ledger insert fails after the provider call succeeded, the
// provider-side job is untracked; the orphan execution ID is logged so an
// operator can re-attach it by hand.
func (t *Trigger) Run(ctx context.Context, queryID int64) (string, error) {
	executionID, err := t.client.ExecuteQuery(ctx, queryID)
	if err != nil {
		return "", fmt.Errorf("trigger query %d: %w", queryID, err)
	}

	now := t.clock()
	record := &domain.ExecutionRecord{
		ExecutionID: executionID,
		QueryID:     queryID,
		Status:      domain.StatusPending,
		Processed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := t.executions.Insert(ctx, record); err != nil {
		t.logger.Printf("ledger insert failed for execution %s (query %d): %v; execution is untracked at provider",
			executionID, queryID, err)
		return "", fmt.Errorf("record execution %s: %w", executionID, err)
	}

	t.logger.Printf("triggered query %d, execution %s", queryID, executionID)
	return executionID, nil
}
