package pricing

import "github.com/bryanzk/MarketMakerDemo-sub001/internal/market"

// FundingSkew quotes a symmetric spread shifted by the funding rate. Positive
// funding (longs pay shorts) biases toward net-short inventory, so both
// quotes move down.
type FundingSkew struct {
	paramSet
}

// NewFundingSkew builds a funding-skew pricer, capturing params as the safe
// defaults.
func NewFundingSkew(p Params) *FundingSkew {
	return &FundingSkew{paramSet: newParamSet(p)}
}

// Name returns the human-readable pricer name.
func (s *FundingSkew) Name() string { return "Funding Rate Skew" }

// Compute returns the skew-shifted bid/ask pair, or nothing when the snapshot
// is unusable or the shift pushed a rounded price to zero or below.
func (s *FundingSkew) Compute(snap market.Snapshot, fundingRate float64) []market.Quote {
	skewOffset := fundingRate * s.params.SkewFactor * snap.MidPrice
	return quotePair(snap, s.params, skewOffset)
}
