package pricing

import "github.com/bryanzk/MarketMakerDemo-sub001/internal/market"

// FixedSpread quotes a symmetric spread around the mid price.
type FixedSpread struct {
	paramSet
}

// NewFixedSpread builds a fixed-spread pricer, capturing params as the safe
// defaults.
func NewFixedSpread(p Params) *FixedSpread {
	return &FixedSpread{paramSet: newParamSet(p)}
}

// Name returns the human-readable pricer name.
func (s *FixedSpread) Name() string { return "Fixed Spread" }

// Compute returns the bid/ask pair around mid, or nothing when the snapshot
// is unusable. The funding rate is ignored.
func (s *FixedSpread) Compute(snap market.Snapshot, _ float64) []market.Quote {
	return quotePair(snap, s.params, 0)
}
