package clickhouse

import (
	"context"
	"fmt"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// SummaryStore implements storage.SummaryStore using ClickHouse.
// meme_metrics is a plain MergeTree ordered by recorded_at; rows are appended
// once per aggregation run and never mutated.
type SummaryStore struct {
	conn *Conn
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(conn *Conn) *SummaryStore {
	return &SummaryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// Insert appends a new snapshot row.
func (s *SummaryStore) Insert(ctx context.Context, m *domain.MemeMetricsSnapshot) error {
	if m == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO meme_metrics (
			recorded_at,
			total_market_cap_usd, total_volume_usd, total_liquidity_usd,
			market_cap_count, volume_count, liquidity_count, avg_pct_change_24h,
			visible_market_cap_usd, visible_volume_usd, visible_liquidity_usd,
			visible_token_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		m.RecordedAt,
		m.TotalMarketCapUSD, m.TotalVolumeUSD, m.TotalLiquidityUSD,
		m.MarketCapCount, m.VolumeCount, m.LiquidityCount, m.AvgPctChange24h,
		m.VisibleMarketCapUSD, m.VisibleVolumeUSD, m.VisibleLiquidityUSD,
		m.VisibleTokenCount,
	)
	if err != nil {
		return fmt.Errorf("insert meme metrics snapshot: %w", err)
	}
	return nil
}

// Latest retrieves the most recent snapshot. Returns ErrNotFound if empty.
func (s *SummaryStore) Latest(ctx context.Context) (*domain.MemeMetricsSnapshot, error) {
	query := `
		SELECT recorded_at,
		       total_market_cap_usd, total_volume_usd, total_liquidity_usd,
		       market_cap_count, volume_count, liquidity_count, avg_pct_change_24h,
		       visible_market_cap_usd, visible_volume_usd, visible_liquidity_usd,
		       visible_token_count
		FROM meme_metrics
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest meme metrics: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, storage.ErrNotFound
	}

	m := &domain.MemeMetricsSnapshot{}
	if err := rows.Scan(
		&m.RecordedAt,
		&m.TotalMarketCapUSD, &m.TotalVolumeUSD, &m.TotalLiquidityUSD,
		&m.MarketCapCount, &m.VolumeCount, &m.LiquidityCount, &m.AvgPctChange24h,
		&m.VisibleMarketCapUSD, &m.VisibleVolumeUSD, &m.VisibleLiquidityUSD,
		&m.VisibleTokenCount,
	); err != nil {
		return nil, fmt.Errorf("scan meme metrics snapshot: %w", err)
	}
	return m, nil
}
