package domain

import "time"

// ExecutionStatus is the lifecycle status of a provider query execution.
// Non-terminal values other than PENDING/RUNNING carry the raw provider state
// string so operators can see exactly what the provider last reported.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "PENDING"
	StatusRunning   ExecutionStatus = "RUNNING"
	StatusCompleted ExecutionStatus = "COMPLETED"
	StatusFailed    ExecutionStatus = "FAILED"
	StatusCancelled ExecutionStatus = "CANCELLED"
	StatusTimeout   ExecutionStatus = "TIMEOUT"
)

// IsTerminal reports whether no further status transition can occur.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimeout:
		return true
	}
	return false
}

// ExecutionRecord represents one submitted provider query execution.
// Corresponds to the executions table in PostgreSQL.
//
// Status tracks what the provider says about the execution; Processed tracks
// whether we have durably stored its result rows. The two are deliberately
// separate: a FAILED execution is legitimately never processed, and a
// COMPLETED-but-unprocessed one can be retried without re-triggering the
// provider job.
type ExecutionRecord struct {
	ExecutionID  string          // PRIMARY KEY, provider-issued
	QueryID      int64           // which analytics query this execution belongs to
	Status       ExecutionStatus // monotonic toward a terminal state
	Processed    bool            // true once result rows are durably stored
	RowCount     *int64          // rows returned on completion (nullable)
	ErrorMessage *string         // provider failure detail (nullable)
	CreatedAt    time.Time
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}
