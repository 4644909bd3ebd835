package ingestion

import (
	"context"
	"io"
	"log"
	"sync"

	"protocol-pulse/internal/dune"
)

// stubClient is an in-memory ExecutionClient for tests.
type stubClient struct {
	mu sync.Mutex

	executionID string
	executeErr  error

	results    map[string]*dune.ResultsResponse
	resultErrs map[string]error

	executeCalls int
	resultCalls  map[string]int
}

func newStubClient() *stubClient {
	return &stubClient{
		results:     make(map[string]*dune.ResultsResponse),
		resultErrs:  make(map[string]error),
		resultCalls: make(map[string]int),
	}
}

func (c *stubClient) ExecuteQuery(_ context.Context, _ int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executeCalls++
	if c.executeErr != nil {
		return "", c.executeErr
	}
	return c.executionID, nil
}

func (c *stubClient) GetResults(_ context.Context, executionID string) (*dune.ResultsResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resultCalls[executionID]++
	if err, ok := c.resultErrs[executionID]; ok {
		return nil, err
	}
	if res, ok := c.results[executionID]; ok {
		return res, nil
	}
	return &dune.ResultsResponse{State: "QUERY_STATE_PENDING"}, nil
}

func (c *stubClient) setCompleted(executionID string, rows []map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := &dune.ResultsResponse{State: dune.StateCompleted}
	res.Result.Rows = rows
	c.results[executionID] = res
}

func (c *stubClient) setState(executionID, state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[executionID] = &dune.ResultsResponse{State: state}
}

func (c *stubClient) callsFor(executionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resultCalls[executionID]
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
