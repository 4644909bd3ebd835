package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// Extended-poll defaults. The ladder escalates, then holds at the last step.
var defaultWaitLadder = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
	180 * time.Second,
	300 * time.Second,
}

// DefaultMaxWaitAttempts bounds the blocking poll loop. At the default
// ladder that is a little over two hours of waiting.
const DefaultMaxWaitAttempts = 25

// WaitForCompletion blocks until the execution reaches a terminal state,
// polling with the escalating delay ladder. After maxAttempts polls without
// a terminal state the execution is force-marked TIMEOUT, meaning we stopped
// waiting, as distinct from the provider rejecting it.
//
// This is the manual/synchronous variant; the scheduled Poller never blocks.
func (p *Poller) WaitForCompletion(ctx context.Context, executionID string, maxAttempts int) (*domain.ExecutionRecord, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxWaitAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		rec, err := p.executions.GetByID(ctx, executionID)
		if err != nil {
			return nil, fmt.Errorf("load execution %s: %w", executionID, err)
		}
		if rec.Status.IsTerminal() {
			return rec, nil
		}

		result := &RunResult{}
		if err := p.pollOne(ctx, rec, result); err != nil {
			// Transient provider trouble; the next ladder step retries.
			p.logger.Printf("execution %s: wait poll failed: %v", executionID, err)
		}

		rec, err = p.executions.GetByID(ctx, executionID)
		if err != nil {
			return nil, fmt.Errorf("reload execution %s: %w", executionID, err)
		}
		if rec.Status.IsTerminal() {
			return rec, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(ladderStep(attempt)):
		}
	}

	msg := fmt.Sprintf("no terminal state after %d polls", maxAttempts)
	if err := p.executions.UpdateStatus(ctx, executionID, domain.StatusTimeout, &msg); err != nil {
		if !errors.Is(err, storage.ErrTerminalStatus) {
			return nil, fmt.Errorf("mark timeout: %w", err)
		}
	}
	return p.executions.GetByID(ctx, executionID)
}

// ladderStep returns the delay for the given attempt, holding at the final
// step once the ladder is exhausted.
func ladderStep(attempt int) time.Duration {
	if attempt >= len(defaultWaitLadder) {
		return defaultWaitLadder[len(defaultWaitLadder)-1]
	}
	return defaultWaitLadder[attempt]
}
