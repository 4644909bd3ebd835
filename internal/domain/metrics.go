package domain

import "time"

// WalletStat holds per-day wallet activity figures produced by the wallet
// analytics query. Corresponds to the wallet_stats table.
// Natural key: Day (UTC calendar day, "2006-01-02").
type WalletStat struct {
	Day          string   // natural key
	AddressCount *int64   // distinct active addresses (nullable)
	InflowUSD    *float64 // bridged-in volume (nullable)
	OutflowUSD   *float64 // bridged-out volume (nullable)
	ExecutionID  string   // provenance: execution that last wrote this row
	QueryID      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProtocolTVL holds one protocol's TVL for one day.
// Corresponds to the protocol_tvl table. Natural key: (Day, Protocol).
type ProtocolTVL struct {
	Day         string // natural key part 1
	Protocol    string // natural key part 2
	TVLUSD      *float64
	ExecutionID string
	QueryID     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RevenueStat holds per-day protocol revenue and fees.
// Corresponds to the revenue_stats table. Natural key: Day.
type RevenueStat struct {
	Day         string
	RevenueUSD  *float64
	FeesUSD     *float64
	ExecutionID string
	QueryID     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
