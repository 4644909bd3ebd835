package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage/memory"
)

type pollerFixture struct {
	client      *stubClient
	executions  *memory.ExecutionStore
	walletStats *memory.WalletStatStore
	poller      *Poller
	now         time.Time
}

func newPollerFixture(t *testing.T) *pollerFixture {
	t.Helper()

	client := newStubClient()
	executions := memory.NewExecutionStore()
	walletStats := memory.NewWalletStatStore()

	processor := NewProcessor(testLogger())
	processor.Register(QueryWalletStats, WalletStatHandler(walletStats))

	now := time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)
	poller := NewPoller(PollerOptions{
		Client:     client,
		Executions: executions,
		Processor:  processor,
		Logger:     testLogger(),
		Clock:      func() time.Time { return now },
	})

	return &pollerFixture{
		client:      client,
		executions:  executions,
		walletStats: walletStats,
		poller:      poller,
		now:         now,
	}
}

func (f *pollerFixture) insertPending(t *testing.T, executionID string, age time.Duration) {
	t.Helper()
	createdAt := f.now.Add(-age)
	require.NoError(t, f.executions.Insert(context.Background(), &domain.ExecutionRecord{
		ExecutionID: executionID,
		QueryID:     QueryWalletStats,
		Status:      domain.StatusPending,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}))
}

func walletRows() []map[string]any {
	return []map[string]any{
		{"block_day": "2025-05-01 00:00:00", "address_count": float64(150), "inflow_usd": float64(1000), "outflow_usd": float64(400)},
		{"block_day": "2025-05-02 00:00:00", "address_count": float64(175), "inflow_usd": float64(1200), "outflow_usd": float64(300)},
	}
}

func TestPoller_CompletedExecution(t *testing.T) {
	f := newPollerFixture(t)
	ctx := context.Background()

	f.insertPending(t, "E1", time.Hour)
	f.client.setCompleted("E1", walletRows())

	result, err := f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 2, result.RowsStored)
	assert.Empty(t, result.Errors)

	rec, err := f.executions.GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.True(t, rec.Processed)
	require.NotNil(t, rec.RowCount)
	assert.Equal(t, int64(2), *rec.RowCount)
	require.NotNil(t, rec.CompletedAt)

	stat, err := f.walletStats.GetByDay(ctx, "2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, int64(150), *stat.AddressCount)
	assert.Equal(t, "E1", stat.ExecutionID)

	stat, err = f.walletStats.GetByDay(ctx, "2025-05-02")
	require.NoError(t, err)
	assert.Equal(t, int64(175), *stat.AddressCount)
}

func TestPoller_ProcessedExecutionNotRefetched(t *testing.T) {
	f := newPollerFixture(t)
	ctx := context.Background()

	f.insertPending(t, "E1", time.Hour)
	f.client.setCompleted("E1", walletRows())

	_, err := f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.client.callsFor("E1"))

	// Second run: the processed row is invisible to the scan
	result, err := f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Checked)
	assert.Equal(t, 1, f.client.callsFor("E1"))
}

func TestPoller_ReprocessingConverges(t *testing.T) {
	f := newPollerFixture(t)
	ctx := context.Background()

	f.insertPending(t, "E1", time.Hour)
	f.client.setCompleted("E1", walletRows())

	_, err := f.poller.Run(ctx)
	require.NoError(t, err)

	// Simulate a crash between storing rows and flipping processed: the next
	// run re-fetches and re-upserts without duplicating anything.
	f.insertPending(t, "E2", 30*time.Minute)
	f.client.setCompleted("E2", walletRows())

	result, err := f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsStored)

	stats, err := f.walletStats.ListRange(ctx, "2025-01-01", "2025-12-31")
	require.NoError(t, err)
	assert.Len(t, stats, 2, "re-applied rows must converge, not duplicate")
	assert.Equal(t, "E2", stats[0].ExecutionID)
}

func TestPoller_PartialRowSkipped(t *testing.T) {
	f := newPollerFixture(t)
	ctx := context.Background()

	f.insertPending(t, "E1", time.Hour)
	f.client.setCompleted("E1", []map[string]any{
		{"block_day": "2025-05-01 00:00:00", "address_count": float64(150)},
		{"address_count": float64(99)}, // no natural key
	})

	result, err := f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsStored)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Completed)

	// The execution still completes and is marked processed
	rec, err := f.executions.GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, rec.Processed)
}

func TestPoller_FailedExecution(t *testing.T) {
	f := newPollerFixture(t)
	ctx := context.Background()

	f.insertPending(t, "E1", time.Hour)
	f.client.setState("E1", "QUERY_STATE_FAILED")

	result, err := f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	rec, err := f.executions.GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.False(t, rec.Processed, "failed rows stay unprocessed")
	require.NotNil(t, rec.ErrorMessage)

	// Terminal failures are skipped on later runs without provider calls
	result, err = f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Checked)
	assert.Equal(t, 1, f.client.callsFor("E1"))
}

func TestPoller_CancelledExecution(t *testing.T) {
	f := newPollerFixture(t)
	ctx := context.Background()

	f.insertPending(t, "E1", time.Hour)
	f.client.setState("E1", "QUERY_STATE_CANCELLED")

	_, err := f.poller.Run(ctx)
	require.NoError(t, err)

	rec, err := f.executions.GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, rec.Status)
	assert.False(t, rec.Processed)
}

func TestPoller_RunningStateStoredVerbatim(t *testing.T) {
	f := newPollerFixture(t)
	ctx := context.Background()

	f.insertPending(t, "E1", time.Hour)
	f.client.setState("E1", "QUERY_STATE_EXECUTING")

	result, err := f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 0, result.Completed)

	rec, err := f.executions.GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatus("QUERY_STATE_EXECUTING"), rec.Status)
	assert.False(t, rec.Processed)
}

func TestPoller_RecencyWindow(t *testing.T) {
	f := newPollerFixture(t)
	ctx := context.Background()

	f.insertPending(t, "E-old", 48*time.Hour)
	f.insertPending(t, "E-new", time.Hour)
	f.client.setState("E-old", "QUERY_STATE_EXECUTING")
	f.client.setState("E-new", "QUERY_STATE_EXECUTING")

	result, err := f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 0, f.client.callsFor("E-old"))
	assert.Equal(t, 1, f.client.callsFor("E-new"))
}

func TestPoller_OneFailureDoesNotAbortBatch(t *testing.T) {
	f := newPollerFixture(t)
	ctx := context.Background()

	f.insertPending(t, "E1", 2*time.Hour)
	f.insertPending(t, "E2", time.Hour)
	f.client.resultErrs["E1"] = assert.AnError
	f.client.setCompleted("E2", walletRows())

	result, err := f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 1, result.Completed)
	assert.Len(t, result.Errors, 1)

	rec, err := f.executions.GetByID(ctx, "E2")
	require.NoError(t, err)
	assert.True(t, rec.Processed)
}
