package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/observability"
)

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	queryID, err := strconv.ParseInt(chi.URLParam(r, "queryID"), 10, 64)
	if err != nil || queryID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid query ID")
		return
	}

	ctx := r.Context()
	start := s.clock()
	run := s.recorder.Start(ctx, domain.RunTypeTrigger)

	executionID, err := s.trigger.Run(ctx, queryID)
	duration := s.clock().Sub(start)
	observability.RecordStageDuration("trigger", duration.Seconds())

	if err != nil {
		run.Finish(ctx, 0, 1, err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	observability.RecordExecutionTriggered()
	run.AddProgress(ctx, fmt.Sprintf("triggered query %d as %s", queryID, executionID))
	run.Finish(ctx, 1, 0, nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"execution_id": executionID,
		"query_id":     queryID,
		"duration_ms":  duration.Milliseconds(),
	})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := s.clock()
	run := s.recorder.Start(ctx, domain.RunTypePoll)

	result, err := s.poller.Run(ctx)
	duration := s.clock().Sub(start)
	observability.RecordStageDuration("poll", duration.Seconds())

	if err != nil {
		observability.RecordPollRun("error", 0)
		run.Finish(ctx, 0, 1, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	observability.RecordPollRun("ok", result.Checked)
	run.AddProgress(ctx, fmt.Sprintf("checked %d, completed %d, failed %d, rows %d",
		result.Checked, result.Completed, result.Failed, result.RowsStored))
	run.Finish(ctx, int64(result.Completed), int64(len(result.Errors)), nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"checked":     result.Checked,
		"completed":   result.Completed,
		"failed":      result.Failed,
		"rows_stored": result.RowsStored,
		"skipped":     result.Skipped,
		"errors":      result.Errors,
		"duration_ms": duration.Milliseconds(),
	})
}

func (s *Server) handleTVL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := s.clock()
	run := s.recorder.Start(ctx, domain.RunTypeTVL)

	result, err := s.tvlJob.Run(ctx)
	duration := s.clock().Sub(start)
	observability.RecordStageDuration("tvl", duration.Seconds())

	if err != nil {
		run.Finish(ctx, 0, 1, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	observability.RecordRowsUpserted("protocol_tvl", result.Stored)
	run.AddProgress(ctx, fmt.Sprintf("fetched %d, stored %d", result.Fetched, result.Stored))
	run.Finish(ctx, int64(result.Stored), int64(len(result.Errors)), nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"fetched":     result.Fetched,
		"stored":      result.Stored,
		"errors":      result.Errors,
		"duration_ms": duration.Milliseconds(),
	})
}

func (s *Server) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := s.clock()
	run := s.recorder.Start(ctx, domain.RunTypeTokens)

	result, err := s.refresher.Run(ctx)
	duration := s.clock().Sub(start)
	observability.RecordStageDuration("tokens", duration.Seconds())

	if err != nil {
		run.Finish(ctx, 0, 1, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	observability.RecordRowsUpserted("token_snapshots", result.Stored)
	run.AddProgress(ctx, fmt.Sprintf("requested %d, stored %d", result.Requested, result.Stored))
	run.Finish(ctx, int64(result.Stored), int64(len(result.Errors)), nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"requested":   result.Requested,
		"stored":      result.Stored,
		"errors":      result.Errors,
		"duration_ms": duration.Milliseconds(),
	})
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := s.clock()
	run := s.recorder.Start(ctx, domain.RunTypeAggregate)

	result, err := s.aggregator.Run(ctx)
	duration := s.clock().Sub(start)
	observability.RecordStageDuration("aggregate", duration.Seconds())

	if err != nil {
		run.Finish(ctx, 0, 1, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	observability.DefaultMetrics.LastSuccessfulAggregate.Set(float64(s.clock().Unix()))
	run.AddProgress(ctx, fmt.Sprintf("aggregated %d snapshots (%d visible)",
		result.SnapshotsFound, result.VisibleTokens))
	run.Finish(ctx, int64(result.SnapshotsFound), 0, nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"enabled_tokens": result.EnabledTokens,
		"visible_tokens": result.VisibleTokens,
		"snapshots":      result.SnapshotsFound,
		"duration_ms":    duration.Milliseconds(),
	})
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := s.clock()
	run := s.recorder.Start(ctx, domain.RunTypeScreen)

	result, err := s.evaluator.Run(ctx)
	duration := s.clock().Sub(start)
	observability.RecordStageDuration("screen", duration.Seconds())

	if err != nil {
		run.Finish(ctx, 0, 1, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run.AddProgress(ctx, fmt.Sprintf("evaluated %d, flagged %d, updated %d",
		result.Evaluated, result.Flagged, result.Updated))
	run.Finish(ctx, int64(result.Evaluated), int64(len(result.Errors)), nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"evaluated":   result.Evaluated,
		"flagged":     result.Flagged,
		"updated":     result.Updated,
		"errors":      result.Errors,
		"duration_ms": duration.Milliseconds(),
	})
}
