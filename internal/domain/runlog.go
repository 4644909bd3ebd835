package domain

import "time"

// Run types recorded by the run logger, one per pipeline stage.
const (
	RunTypeTrigger   = "trigger"
	RunTypePoll      = "poll"
	RunTypeTVL       = "tvl"
	RunTypeTokens    = "tokens"
	RunTypeAggregate = "aggregate"
	RunTypeScreen    = "screen"
)

// Run statuses.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
)

// RunLog records one scheduled or manual invocation of a pipeline stage.
// Corresponds to the run_logs table in PostgreSQL.
type RunLog struct {
	ID           string // uuid
	RunType      string
	Status       string
	Progress     []string // ordered human-readable progress lines
	DurationMs   int64
	SuccessCount int64
	ErrorCount   int64
	ErrorMessage *string
	StartedAt    time.Time
	FinishedAt   *time.Time
}
