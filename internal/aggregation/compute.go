package aggregation

import "protocol-pulse/internal/domain"

// rollup holds the sums and counts computed over one token subset.
type rollup struct {
	marketCapUSD   float64
	volumeUSD      float64
	liquidityUSD   float64
	marketCapCount int64
	volumeCount    int64
	liquidityCount int64
	avgPctChange   *float64
}

// computeRollup sums measures across the given snapshots.
//
// A token contributes to a sum's count only with a non-null, non-zero value.
// The percentage-change average excludes tokens without the field from both
// numerator and denominator; a missing value is never treated as zero.
func computeRollup(snaps []*domain.TokenSnapshot) rollup {
	var r rollup
	var pctSum float64
	var pctCount int64

	for _, s := range snaps {
		if s == nil {
			continue
		}
		if s.MarketCapUSD != nil && *s.MarketCapUSD != 0 {
			r.marketCapUSD += *s.MarketCapUSD
			r.marketCapCount++
		}
		if s.Volume24hUSD != nil && *s.Volume24hUSD != 0 {
			r.volumeUSD += *s.Volume24hUSD
			r.volumeCount++
		}
		if s.LiquidityUSD != nil && *s.LiquidityUSD != 0 {
			r.liquidityUSD += *s.LiquidityUSD
			r.liquidityCount++
		}
		if s.PctChange24h != nil {
			pctSum += *s.PctChange24h
			pctCount++
		}
	}

	if pctCount > 0 {
		avg := pctSum / float64(pctCount)
		r.avgPctChange = &avg
	}
	return r
}
