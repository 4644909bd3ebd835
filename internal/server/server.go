// Package server exposes the pipeline stages as scheduler-invoked HTTP
// endpoints plus a cached read endpoint for the dashboard.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"protocol-pulse/internal/aggregation"
	"protocol-pulse/internal/cache"
	"protocol-pulse/internal/ingestion"
	"protocol-pulse/internal/runlog"
	"protocol-pulse/internal/screening"
	"protocol-pulse/internal/storage"
)

// Server wires the pipeline stages behind HTTP handlers.
type Server struct {
	trigger    *ingestion.Trigger
	poller     *ingestion.Poller
	tvlJob     *ingestion.TVLJob
	refresher  *screening.Refresher
	aggregator *aggregation.Aggregator
	evaluator  *screening.Evaluator
	recorder   *runlog.Recorder

	walletStats  storage.WalletStatStore
	protocolTVLs storage.ProtocolTVLStore
	revenueStats storage.RevenueStatStore
	summaries    storage.SummaryStore

	combinedCache *cache.TTLCache[json.RawMessage]
	cronSecret    string
	debugKey      string
	logger        *log.Logger
	clock         func() time.Time
}

// Options contains configuration for creating a Server.
type Options struct {
	Trigger    *ingestion.Trigger
	Poller     *ingestion.Poller
	TVLJob     *ingestion.TVLJob
	Refresher  *screening.Refresher
	Aggregator *aggregation.Aggregator
	Evaluator  *screening.Evaluator
	Recorder   *runlog.Recorder

	WalletStats  storage.WalletStatStore
	ProtocolTVLs storage.ProtocolTVLStore
	RevenueStats storage.RevenueStatStore
	Summaries    storage.SummaryStore

	// CronSecret authorizes scheduled invocations via Authorization: Bearer.
	CronSecret string

	// DebugKey authorizes manual invocations via X-Debug-Key. Optional.
	DebugKey string

	Logger *log.Logger

	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// New creates a new Server.
func New(opts Options) (*Server, error) {
	combined, err := cache.NewTTLCache[json.RawMessage](16)
	if err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Server{
		trigger:       opts.Trigger,
		poller:        opts.Poller,
		tvlJob:        opts.TVLJob,
		refresher:     opts.Refresher,
		aggregator:    opts.Aggregator,
		evaluator:     opts.Evaluator,
		recorder:      opts.Recorder,
		walletStats:   opts.WalletStats,
		protocolTVLs:  opts.ProtocolTVLs,
		revenueStats:  opts.RevenueStats,
		summaries:     opts.Summaries,
		combinedCache: combined,
		cronSecret:    opts.CronSecret,
		debugKey:      opts.DebugKey,
		logger:        opts.Logger,
		clock:         clock,
	}, nil
}

// Router builds the HTTP routes. Job endpoints require authorization; health
// stays open for load balancer probes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/jobs/trigger/{queryID}", s.handleTrigger)
		r.Post("/jobs/poll", s.handlePoll)
		r.Post("/jobs/tvl", s.handleTVL)
		r.Post("/jobs/tokens/refresh", s.handleTokenRefresh)
		r.Post("/jobs/aggregate", s.handleAggregate)
		r.Post("/jobs/screen", s.handleScreen)

		r.Get("/metrics/combined", s.handleCombinedMetrics)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are gone; nothing left to do.
		return
	}
}

// writeError writes the standard failure envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
