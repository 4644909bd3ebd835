// Package ingestion implements the provider polling pipeline: triggering
// query executions, polling the ledger for their completion, and processing
// result rows into normalized tables.
package ingestion

import (
	"context"

	"protocol-pulse/internal/dune"
)

// ExecutionClient is the provider surface the pipeline needs. *dune.Client
// satisfies it; tests substitute stubs.
type ExecutionClient interface {
	// ExecuteQuery submits an execution and returns the provider-issued ID.
	ExecuteQuery(ctx context.Context, queryID int64) (string, error)

	// GetResults fetches an execution's state and, when completed, its rows.
	GetResults(ctx context.Context, executionID string) (*dune.ResultsResponse, error)
}

// Registered analytics query IDs.
const (
	QueryWalletStats int64 = 5184581
	QueryRevenue     int64 = 5184602
	QueryFlowTVL     int64 = 5184617
)
