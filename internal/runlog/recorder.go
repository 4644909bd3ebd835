// Package runlog records one run_logs row per pipeline stage invocation.
package runlog

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// Recorder writes run logs. Logging failures are reported to the logger but
// never fail the stage itself; the run log is observability, not state.
type Recorder struct {
	store  storage.RunLogStore
	logger *log.Logger
	clock  func() time.Time
}

// NewRecorder creates a new Recorder.
func NewRecorder(store storage.RunLogStore, logger *log.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock. Used by tests.
func (r *Recorder) WithClock(clock func() time.Time) *Recorder {
	r.clock = clock
	return r
}

// Run is a handle on one in-flight stage invocation.
type Run struct {
	rec *Recorder
	row *domain.RunLog
}

// Start opens a run log row with status RUNNING and returns its handle.
func (r *Recorder) Start(ctx context.Context, runType string) *Run {
	row := &domain.RunLog{
		ID:        uuid.NewString(),
		RunType:   runType,
		Status:    domain.RunStatusRunning,
		StartedAt: r.clock(),
	}
	if err := r.store.Insert(ctx, row); err != nil {
		r.logger.Printf("run log insert failed for %s: %v", runType, err)
	}
	return &Run{rec: r, row: row}
}

// AddProgress appends a progress line and persists the row.
func (run *Run) AddProgress(ctx context.Context, line string) {
	run.row.Progress = append(run.row.Progress, line)
	if err := run.rec.store.Update(ctx, run.row); err != nil {
		run.rec.logger.Printf("run log update failed for %s: %v", run.row.RunType, err)
	}
}

// Finish closes the run. A non-nil err marks the run FAILED and records the
// message; otherwise the run is SUCCEEDED.
func (run *Run) Finish(ctx context.Context, successCount, errorCount int64, err error) {
	now := run.rec.clock()
	run.row.Status = domain.RunStatusSucceeded
	if err != nil {
		run.row.Status = domain.RunStatusFailed
		msg := err.Error()
		run.row.ErrorMessage = &msg
	}
	run.row.SuccessCount = successCount
	run.row.ErrorCount = errorCount
	run.row.DurationMs = now.Sub(run.row.StartedAt).Milliseconds()
	run.row.FinishedAt = &now

	if uerr := run.rec.store.Update(ctx, run.row); uerr != nil {
		run.rec.logger.Printf("run log finish failed for %s: %v", run.row.RunType, uerr)
	}
}
