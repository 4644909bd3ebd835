package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrMissingNaturalKey marks a result row whose natural key is absent or
// unparseable. Such rows are skipped, not fatal.
var ErrMissingNaturalKey = errors.New("row missing natural key")

// Provenance identifies which execution produced a set of rows.
type Provenance struct {
	ExecutionID string
	QueryID     int64
}

// RowHandler stores one provider result row. Implementations extract the
// natural key, parse numeric fields leniently (a malformed field becomes
// null, not an error) and upsert, so re-applying the same row converges to
// the same stored state.
type RowHandler func(ctx context.Context, row map[string]any, prov Provenance) error

// ProcessResult summarizes one processing pass.
type ProcessResult struct {
	Stored  int
	Skipped int
	Errors  []string
}

// Processor routes result rows to per-query handlers.
// Adding a new analytics query is a Register call, not a new conditional.
type Processor struct {
	handlers map[int64]RowHandler
	logger   *log.Logger
}

// NewProcessor creates an empty Processor.
func NewProcessor(logger *log.Logger) *Processor {
	return &Processor{
		handlers: make(map[int64]RowHandler),
		logger:   logger,
	}
}

// Register binds a query ID to its row handler. Last registration wins.
func (p *Processor) Register(queryID int64, h RowHandler) {
	p.handlers[queryID] = h
}

// Process stores all rows of one execution's result set. Rows with a missing
// natural key are skipped and counted; a row that fails to store is logged
// and counted but never aborts its siblings. The only hard error is an
// unregistered query ID.
func (p *Processor) Process(ctx context.Context, queryID int64, rows []map[string]any, executionID string) (*ProcessResult, error) {
	handler, ok := p.handlers[queryID]
	if !ok {
		return nil, fmt.Errorf("no row handler registered for query %d", queryID)
	}

	prov := Provenance{ExecutionID: executionID, QueryID: queryID}
	result := &ProcessResult{}

	for i, row := range rows {
		err := handler(ctx, row, prov)
		if err == nil {
			result.Stored++
			continue
		}
		if errors.Is(err, ErrMissingNaturalKey) {
			result.Skipped++
			p.logger.Printf("execution %s row %d: skipped: %v", executionID, i, err)
			continue
		}
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i, err))
		p.logger.Printf("execution %s row %d: store failed: %v", executionID, i, err)
	}

	return result, nil
}
