package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocol-pulse/internal/aggregation"
	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/dune"
	"protocol-pulse/internal/gecko"
	"protocol-pulse/internal/ingestion"
	"protocol-pulse/internal/llama"
	"protocol-pulse/internal/runlog"
	"protocol-pulse/internal/screening"
	"protocol-pulse/internal/storage/memory"
)

const (
	testCronSecret = "cron-secret"
	testDebugKey   = "debug-key"
)

// stubExec is a canned ExecutionClient.
type stubExec struct {
	executionID string
	executeErr  error
	results     map[string]*dune.ResultsResponse
}

func (c *stubExec) ExecuteQuery(_ context.Context, _ int64) (string, error) {
	return c.executionID, c.executeErr
}

func (c *stubExec) GetResults(_ context.Context, executionID string) (*dune.ResultsResponse, error) {
	if res, ok := c.results[executionID]; ok {
		return res, nil
	}
	return &dune.ResultsResponse{State: "QUERY_STATE_PENDING"}, nil
}

type stubFetcher struct{}

func (stubFetcher) FetchTokens(_ context.Context, _ []string) ([]gecko.TokenData, error) {
	return nil, nil
}

type testEnv struct {
	server      *Server
	client      *stubExec
	executions  *memory.ExecutionStore
	walletStats *memory.WalletStatStore
	runLogs     *memory.RunLogStore
	now         time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	client := &stubExec{results: make(map[string]*dune.ResultsResponse)}

	executions := memory.NewExecutionStore()
	walletStats := memory.NewWalletStatStore()
	protocolTVLs := memory.NewProtocolTVLStore()
	revenueStats := memory.NewRevenueStatStore()
	tokens := memory.NewTokenStore()
	snapshots := memory.NewTokenSnapshotStore()
	thresholds := memory.NewThresholdStore()
	summaries := memory.NewSummaryStore()
	runLogs := memory.NewRunLogStore()

	processor := ingestion.NewProcessor(logger)
	processor.Register(ingestion.QueryWalletStats, ingestion.WalletStatHandler(walletStats))

	now := time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	srv, err := New(Options{
		Trigger: ingestion.NewTrigger(client, executions, logger).WithClock(clock),
		Poller: ingestion.NewPoller(ingestion.PollerOptions{
			Client:     client,
			Executions: executions,
			Processor:  processor,
			Logger:     logger,
			Clock:      clock,
		}),
		TVLJob:       ingestion.NewTVLJob(llama.NewClient(), protocolTVLs, nil, logger),
		Refresher:    screening.NewRefresher(stubFetcher{}, tokens, snapshots, logger),
		Aggregator:   aggregation.NewAggregator(tokens, snapshots, summaries, logger),
		Evaluator:    screening.NewEvaluator(tokens, snapshots, thresholds, logger),
		Recorder:     runlog.NewRecorder(runLogs, logger),
		WalletStats:  walletStats,
		ProtocolTVLs: protocolTVLs,
		RevenueStats: revenueStats,
		Summaries:    summaries,
		CronSecret:   testCronSecret,
		DebugKey:     testDebugKey,
		Logger:       logger,
		Clock:        clock,
	})
	require.NoError(t, err)

	return &testEnv{
		server:      srv,
		client:      client,
		executions:  executions,
		walletStats: walletStats,
		runLogs:     runLogs,
		now:         now,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, authorize bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authorize {
		req.Header.Set("Authorization", "Bearer "+testCronSecret)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestServer_AuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/jobs/poll", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestServer_DebugKeyAccepted(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/jobs/poll", nil)
	req.Header.Set("X-Debug-Key", testDebugKey)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_WrongSecretRejected(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/jobs/poll", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	req.Header.Set("X-Debug-Key", "also-wrong")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_HealthzIsOpen(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/healthz", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_TriggerEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.client.executionID = "E1"

	rec := env.request(t, http.MethodPost, "/jobs/trigger/5184581", true)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "E1", body["execution_id"])
	assert.Equal(t, float64(5184581), body["query_id"])
	assert.Contains(t, body, "duration_ms")

	// Ledger row and run log both exist
	execRec, err := env.executions.GetByID(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, execRec.Status)

	logs, err := env.runLogs.ListRecent(context.Background(), domain.RunTypeTrigger, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.RunStatusSucceeded, logs[0].Status)
}

func TestServer_TriggerEndpoint_BadQueryID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/jobs/trigger/not-a-number", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestServer_PollEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.executions.Insert(ctx, &domain.ExecutionRecord{
		ExecutionID: "E1",
		QueryID:     ingestion.QueryWalletStats,
		Status:      domain.StatusPending,
		CreatedAt:   env.now.Add(-time.Hour),
	}))
	res := &dune.ResultsResponse{State: dune.StateCompleted}
	res.Result.Rows = []map[string]any{
		{"block_day": "2025-05-01 00:00:00", "address_count": float64(150)},
	}
	env.client.results["E1"] = res

	rec := env.request(t, http.MethodPost, "/jobs/poll", true)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["checked"])
	assert.Equal(t, float64(1), body["completed"])
	assert.Equal(t, float64(1), body["rows_stored"])

	_, err := env.walletStats.GetByDay(ctx, "2025-05-01")
	assert.NoError(t, err)
}

func TestServer_CombinedMetricsCached(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.walletStats.Upsert(ctx, &domain.WalletStat{
		Day:         "2025-05-01",
		ExecutionID: "E1",
		QueryID:     ingestion.QueryWalletStats,
	}))

	first := env.request(t, http.MethodGet, "/metrics/combined", true)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	body := decodeBody(t, first)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Len(t, data["wallet_stats"], 1)

	// A second read inside the TTL hits the cache even after new writes
	require.NoError(t, env.walletStats.Upsert(ctx, &domain.WalletStat{
		Day:         "2025-05-02",
		ExecutionID: "E2",
		QueryID:     ingestion.QueryWalletStats,
	}))

	second := env.request(t, http.MethodGet, "/metrics/combined", true)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
}
