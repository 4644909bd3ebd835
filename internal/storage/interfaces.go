package storage

import (
	"context"
	"time"

	"protocol-pulse/internal/domain"
)

// ExecutionStore provides access to the executions ledger.
type ExecutionStore interface {
	// Insert adds a new execution. Returns ErrDuplicateKey if execution_id exists.
	Insert(ctx context.Context, e *domain.ExecutionRecord) error

	// GetByID retrieves an execution by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, executionID string) (*domain.ExecutionRecord, error)

	// ListUnprocessed retrieves executions with processed=false created after
	// the cutoff, oldest first, capped at limit.
	ListUnprocessed(ctx context.Context, createdAfter time.Time, limit int) ([]*domain.ExecutionRecord, error)

	// UpdateStatus sets the status and refreshes updated_at. Returns
	// ErrTerminalStatus if the stored status is already terminal, and
	// ErrNotFound if the execution does not exist.
	UpdateStatus(ctx context.Context, executionID string, status domain.ExecutionStatus, errorMessage *string) error

	// MarkCompleted sets status=COMPLETED, row_count and completed_at.
	// Processed is left untouched; the caller flips it separately once
	// result rows are durably stored.
	MarkCompleted(ctx context.Context, executionID string, rowCount int64, completedAt time.Time) error

	// MarkProcessed flips processed=true and refreshes updated_at.
	MarkProcessed(ctx context.Context, executionID string) error
}

// WalletStatStore provides access to the wallet_stats table.
type WalletStatStore interface {
	// Upsert inserts or updates the row for the stat's day.
	Upsert(ctx context.Context, s *domain.WalletStat) error

	// GetByDay retrieves one row. Returns ErrNotFound if not exists.
	GetByDay(ctx context.Context, day string) (*domain.WalletStat, error)

	// ListRange retrieves rows with day in [from, to], ordered by day ASC.
	ListRange(ctx context.Context, from, to string) ([]*domain.WalletStat, error)
}

// ProtocolTVLStore provides access to the protocol_tvl table.
type ProtocolTVLStore interface {
	// Upsert inserts or updates the row for (day, protocol).
	Upsert(ctx context.Context, p *domain.ProtocolTVL) error

	// GetByKey retrieves one row. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, day, protocol string) (*domain.ProtocolTVL, error)

	// ListByDay retrieves all protocol rows for a day, ordered by protocol ASC.
	ListByDay(ctx context.Context, day string) ([]*domain.ProtocolTVL, error)
}

// RevenueStatStore provides access to the revenue_stats table.
type RevenueStatStore interface {
	// Upsert inserts or updates the row for the stat's day.
	Upsert(ctx context.Context, r *domain.RevenueStat) error

	// GetByDay retrieves one row. Returns ErrNotFound if not exists.
	GetByDay(ctx context.Context, day string) (*domain.RevenueStat, error)

	// ListRange retrieves rows with day in [from, to], ordered by day ASC.
	ListRange(ctx context.Context, from, to string) ([]*domain.RevenueStat, error)
}

// TokenStore provides access to the tracked_tokens table.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if address exists.
	Insert(ctx context.Context, t *domain.TrackedToken) error

	// GetByAddress retrieves a token. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.TrackedToken, error)

	// ListEnabled retrieves all enabled tokens, ordered by address ASC.
	ListEnabled(ctx context.Context) ([]*domain.TrackedToken, error)

	// UpdateFlags sets low_liquidity/low_volume and refreshes updated_at.
	UpdateFlags(ctx context.Context, address string, lowLiquidity, lowVolume bool) error

	// Touch refreshes updated_at only, as a liveness heartbeat.
	Touch(ctx context.Context, address string) error
}

// TokenSnapshotStore provides access to the token_snapshots table.
type TokenSnapshotStore interface {
	// Insert appends a new snapshot.
	Insert(ctx context.Context, s *domain.TokenSnapshot) error

	// LatestByAddress retrieves the most recent snapshot for a token.
	// Returns ErrNotFound if the token has no snapshots yet.
	LatestByAddress(ctx context.Context, address string) (*domain.TokenSnapshot, error)

	// LatestAll retrieves the most recent snapshot for every token that has
	// one, keyed by address.
	LatestAll(ctx context.Context) (map[string]*domain.TokenSnapshot, error)
}

// ThresholdStore provides access to the filter_thresholds table.
type ThresholdStore interface {
	// Get retrieves the current thresholds. Returns ErrNotFound if unset.
	Get(ctx context.Context) (*domain.FilterThresholds, error)

	// Set replaces the current thresholds.
	Set(ctx context.Context, t *domain.FilterThresholds) error
}

// SummaryStore provides access to the meme_metrics table. Append-only.
type SummaryStore interface {
	// Insert appends a new snapshot row.
	Insert(ctx context.Context, s *domain.MemeMetricsSnapshot) error

	// Latest retrieves the most recent snapshot. Returns ErrNotFound if empty.
	Latest(ctx context.Context) (*domain.MemeMetricsSnapshot, error)
}

// RunLogStore provides access to the run_logs table.
type RunLogStore interface {
	// Insert adds a new run log row with status RUNNING.
	Insert(ctx context.Context, r *domain.RunLog) error

	// Update replaces the mutable fields of an existing run log row.
	Update(ctx context.Context, r *domain.RunLog) error

	// ListRecent retrieves the most recent runs of a type, newest first.
	ListRecent(ctx context.Context, runType string, limit int) ([]*domain.RunLog, error)
}
