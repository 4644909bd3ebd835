package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/llama"
	"protocol-pulse/internal/storage"
)

// TVLJob refreshes the current day's per-protocol TVL rows from DeFiLlama.
// It writes the same protocol_tvl table the Dune flow query feeds; both
// paths converge on the (day, protocol) key.
type TVLJob struct {
	client    *llama.Client
	store     storage.ProtocolTVLStore
	protocols []string
	logger    *log.Logger
	clock     func() time.Time
}

// NewTVLJob creates a new TVLJob for the given protocol slugs.
func NewTVLJob(client *llama.Client, store storage.ProtocolTVLStore, protocols []string, logger *log.Logger) *TVLJob {
	return &TVLJob{
		client:    client,
		store:     store,
		protocols: protocols,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock. Used by tests.
func (j *TVLJob) WithClock(clock func() time.Time) *TVLJob {
	j.clock = clock
	return j
}

// TVLResult summarizes one TVL refresh run.
type TVLResult struct {
	Fetched int
	Stored  int
	Errors  []string
}

// Run fetches all protocol TVLs concurrently and upserts today's rows.
// A protocol whose fetch failed is reported and skipped; re-running the job
// later the same day simply refreshes the rows in place.
func (j *TVLJob) Run(ctx context.Context) (*TVLResult, error) {
	day := j.clock().Format("2006-01-02")
	results := j.client.FetchProtocolTVLs(ctx, j.protocols)

	out := &TVLResult{Fetched: len(results)}
	for _, r := range results {
		if r.Err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", r.Protocol, r.Err))
			j.logger.Printf("tvl fetch failed for %s: %v", r.Protocol, r.Err)
			continue
		}

		row := &domain.ProtocolTVL{
			Day:         day,
			Protocol:    r.Protocol,
			TVLUSD:      r.TVLUSD,
			ExecutionID: "llama", // no provider execution behind this path
			QueryID:     0,
		}
		if err := j.store.Upsert(ctx, row); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", r.Protocol, err))
			j.logger.Printf("tvl upsert failed for %s: %v", r.Protocol, err)
			continue
		}
		out.Stored++
	}
	return out, nil
}
