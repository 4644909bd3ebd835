package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"protocol-pulse/internal/domain"
	"protocol-pulse/internal/storage"
)

// WalletStatHandler maps wallet analytics rows into the wallet_stats table.
// Expected row shape: {block_day, address_count, inflow_usd, outflow_usd}.
func WalletStatHandler(store storage.WalletStatStore) RowHandler {
	return func(ctx context.Context, row map[string]any, prov Provenance) error {
		day, ok := dayField(row, "block_day")
		if !ok {
			return fmt.Errorf("%w: block_day=%v", ErrMissingNaturalKey, row["block_day"])
		}

		return store.Upsert(ctx, &domain.WalletStat{
			Day:          day,
			AddressCount: intField(row, "address_count"),
			InflowUSD:    floatField(row, "inflow_usd"),
			OutflowUSD:   floatField(row, "outflow_usd"),
			ExecutionID:  prov.ExecutionID,
			QueryID:      prov.QueryID,
		})
	}
}

// RevenueHandler maps revenue rows into the revenue_stats table.
// Expected row shape: {block_day, revenue_usd, fees_usd}.
func RevenueHandler(store storage.RevenueStatStore) RowHandler {
	return func(ctx context.Context, row map[string]any, prov Provenance) error {
		day, ok := dayField(row, "block_day")
		if !ok {
			return fmt.Errorf("%w: block_day=%v", ErrMissingNaturalKey, row["block_day"])
		}

		return store.Upsert(ctx, &domain.RevenueStat{
			Day:         day,
			RevenueUSD:  floatField(row, "revenue_usd"),
			FeesUSD:     floatField(row, "fees_usd"),
			ExecutionID: prov.ExecutionID,
			QueryID:     prov.QueryID,
		})
	}
}

// ProtocolTVLHandler maps per-protocol flow rows into the protocol_tvl table.
// Expected row shape: {block_day, protocol, tvl_usd}. The TVL job writes the
// same table for the current day; both paths share the (day, protocol) key.
func ProtocolTVLHandler(store storage.ProtocolTVLStore) RowHandler {
	return func(ctx context.Context, row map[string]any, prov Provenance) error {
		day, ok := dayField(row, "block_day")
		if !ok {
			return fmt.Errorf("%w: block_day=%v", ErrMissingNaturalKey, row["block_day"])
		}
		protocol, ok := row["protocol"].(string)
		if !ok || protocol == "" {
			return fmt.Errorf("%w: protocol=%v", ErrMissingNaturalKey, row["protocol"])
		}

		return store.Upsert(ctx, &domain.ProtocolTVL{
			Day:         day,
			Protocol:    protocol,
			TVLUSD:      floatField(row, "tvl_usd"),
			ExecutionID: prov.ExecutionID,
			QueryID:     prov.QueryID,
		})
	}
}

// Timestamp layouts the provider emits for day columns.
var dayLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.000 MST",
}

// dayField extracts a UTC calendar day ("2006-01-02") from a row column.
func dayField(row map[string]any, key string) (string, bool) {
	s, ok := row[key].(string)
	if !ok || s == "" {
		return "", false
	}
	for _, layout := range dayLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC().Format("2006-01-02"), true
		}
	}
	return "", false
}

// floatField leniently parses a numeric column. JSON numbers, numeric
// strings and json.Number all work; anything else yields nil.
func floatField(row map[string]any, key string) *float64 {
	switch v := row[key].(type) {
	case float64:
		return &v
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}

// intField leniently parses an integer column.
func intField(row map[string]any, key string) *int64 {
	switch v := row[key].(type) {
	case float64:
		n := int64(v)
		return &n
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return &n
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return &n
		}
	}
	return nil
}
