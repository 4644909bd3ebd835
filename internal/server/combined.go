package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// combinedTTL bounds how stale the dashboard read can be.
const combinedTTL = 60 * time.Second

// combinedWindowDays is how far back the daily series reach.
const combinedWindowDays = 30

// combinedMetrics is the dashboard read payload: the daily series, today's
// per-protocol TVL and the latest token summary in one response.
type combinedMetrics struct {
	GeneratedAt  time.Time                   `json:"generated_at"`
	WalletStats  []*domain.WalletStat        `json:"wallet_stats"`
	RevenueStats []*domain.RevenueStat       `json:"revenue_stats"`
	ProtocolTVL  []*domain.ProtocolTVL       `json:"protocol_tvl"`
	TokenSummary *domain.MemeMetricsSnapshot `json:"token_summary,omitempty"`
}

func (s *Server) handleCombinedMetrics(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.combinedCache.Get("combined"); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.WriteHeader(http.StatusOK)
		w.Write(cached)
		return
	}

	payload, err := s.buildCombined(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	body, err := json.Marshal(map[string]any{"success": true, "data": payload})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.combinedCache.Set("combined", body, combinedTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) buildCombined(ctx context.Context) (*combinedMetrics, error) {
	now := s.clock()
	today := now.Format("2006-01-02")
	from := now.AddDate(0, 0, -combinedWindowDays).Format("2006-01-02")

	wallet, err := s.walletStats.ListRange(ctx, from, today)
	if err != nil {
		return nil, fmt.Errorf("load wallet stats: %w", err)
	}
	revenue, err := s.revenueStats.ListRange(ctx, from, today)
	if err != nil {
		return nil, fmt.Errorf("load revenue stats: %w", err)
	}
	tvl, err := s.protocolTVLs.ListByDay(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("load protocol tvl: %w", err)
	}

	summary, err := s.summaries.Latest(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load token summary: %w", err)
	}

	return &combinedMetrics{
		GeneratedAt:  now,
		WalletStats:  wallet,
		RevenueStats: revenue,
		ProtocolTVL:  tvl,
		TokenSummary: summary,
	}, nil
}
