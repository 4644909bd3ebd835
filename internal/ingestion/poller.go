package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/dune"
	"protocol-pulse/internal/storage"
)

// Poller defaults.
const (
	DefaultRecencyWindow = 24 * time.Hour
	DefaultBatchSize     = 10
)

// Poller scans the execution ledger for unprocessed executions, checks their
// provider state and hands completed result sets to the Processor. Each Run
// is stateless; the ledger is the only memory between runs.
type Poller struct {
	client        ExecutionClient
	executions    storage.ExecutionStore
	processor     *Processor
	logger        *log.Logger
	clock         func() time.Time
	recencyWindow time.Duration
	batchSize     int
}

// PollerOptions contains configuration for creating a Poller.
type PollerOptions struct {
	Client     ExecutionClient
	Executions storage.ExecutionStore
	Processor  *Processor
	Logger     *log.Logger

	// RecencyWindow bounds how far back the ledger scan reaches. Default 24h.
	RecencyWindow time.Duration

	// BatchSize caps provider calls per run. Default 10.
	BatchSize int

	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// NewPoller creates a new Poller.
func NewPoller(opts PollerOptions) *Poller {
	window := opts.RecencyWindow
	if window == 0 {
		window = DefaultRecencyWindow
	}
	batch := opts.BatchSize
	if batch == 0 {
		batch = DefaultBatchSize
	}
	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Poller{
		client:        opts.Client,
		executions:    opts.Executions,
		processor:     opts.Processor,
		logger:        opts.Logger,
		clock:         clock,
		recencyWindow: window,
		batchSize:     batch,
	}
}

// RunResult summarizes one poller run.
type RunResult struct {
	Checked    int
	Completed  int
	Failed     int
	RowsStored int
	Skipped    int
	Errors     []string
}

// Run executes one poll cycle. One execution's failure never aborts the
// batch: the error is recorded in the result and the loop moves on.
func (p *Poller) Run(ctx context.Context) (*RunResult, error) {
	cutoff := p.clock().Add(-p.recencyWindow)
	records, err := p.executions.ListUnprocessed(ctx, cutoff, p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}

	result := &RunResult{}
	for _, rec := range records {
		// FAILED/CANCELLED/TIMEOUT rows stay unprocessed forever by design;
		// only COMPLETED-but-unprocessed rows are worth another look.
		if rec.Status.IsTerminal() && rec.Status != domain.StatusCompleted {
			continue
		}

		result.Checked++
		if err := p.pollOne(ctx, rec, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rec.ExecutionID, err))
			p.logger.Printf("execution %s: poll failed: %v", rec.ExecutionID, err)
		}
	}
	return result, nil
}

// pollOne checks one execution and advances its ledger row.
func (p *Poller) pollOne(ctx context.Context, rec *domain.ExecutionRecord, result *RunResult) error {
	res, err := p.client.GetResults(ctx, rec.ExecutionID)
	if err != nil {
		return err
	}

	switch res.State {
	case dune.StateCompleted:
		return p.complete(ctx, rec, res.Result.Rows, result)

	case dune.StateFailed, dune.StateCancelled:
		status := domain.StatusFailed
		if res.State == dune.StateCancelled {
			status = domain.StatusCancelled
		}
		msg := "provider reported " + res.State
		if err := p.executions.UpdateStatus(ctx, rec.ExecutionID, status, &msg); err != nil {
			// A racing run may have already finalized the row.
			if errors.Is(err, storage.ErrTerminalStatus) {
				return nil
			}
			return err
		}
		result.Failed++
		return nil

	default:
		// Still running at the provider. Store the raw state verbatim so the
		// ledger shows exactly what the provider last said.
		err := p.executions.UpdateStatus(ctx, rec.ExecutionID, domain.ExecutionStatus(res.State), nil)
		if errors.Is(err, storage.ErrTerminalStatus) {
			return nil
		}
		return err
	}
}

// complete processes result rows and finalizes the ledger row. The processed
// flag flips only after rows are durably stored; a crash in between means a
// harmless re-fetch-and-re-upsert next run.
func (p *Poller) complete(ctx context.Context, rec *domain.ExecutionRecord, rows []map[string]any, result *RunResult) error {
	procRes, err := p.processor.Process(ctx, rec.QueryID, rows, rec.ExecutionID)
	if err != nil {
		return err
	}
	result.RowsStored += procRes.Stored
	result.Skipped += procRes.Skipped
	result.Errors = append(result.Errors, procRes.Errors...)

	if err := p.executions.MarkCompleted(ctx, rec.ExecutionID, int64(len(rows)), p.clock()); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if err := p.executions.MarkProcessed(ctx, rec.ExecutionID); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	result.Completed++
	p.logger.Printf("execution %s completed: %d rows stored, %d skipped",
		rec.ExecutionID, procRes.Stored, procRes.Skipped)
	return nil
}
