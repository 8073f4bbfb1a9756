// Package pricing contains the quote models that turn a market snapshot and a
// funding rate into a bid/ask pair.
package pricing

import (
	"strings"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/market"
)

// Venue step fallback when the snapshot does not carry one.
const defaultStepSize = 0.001

// Params bundles the tunable knobs shared by every pricer.
type Params struct {
	Spread     float64
	Quantity   float64
	Leverage   int
	SkewFactor float64 // only read by the funding-skew pricer
}

// Proposal is a candidate parameter delta produced by an advisor. It is never
// applied without risk approval.
type Proposal struct {
	Spread     float64
	SkewFactor *float64 // nil when the advisor leaves skew untouched
}

// Pricer turns a snapshot into target quotes. Implementations that do not use
// the funding rate simply ignore the argument.
type Pricer interface {
	Name() string
	Compute(snap market.Snapshot, fundingRate float64) []market.Quote
	Params() Params
	Apply(p Params)
	SafeDefaults() Params
	Reset() Params
}

// Build returns a pricer implementation matching the configured kind.
func Build(kind string, params Params) Pricer {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "funding_rate", "funding_skew", "funding":
		return NewFundingSkew(params)
	default:
		return NewFixedSpread(params)
	}
}

// paramSet holds current parameters next to the immutable safe-defaults
// snapshot captured at construction.
type paramSet struct {
	params   Params
	defaults Params
}

func newParamSet(p Params) paramSet {
	return paramSet{params: p, defaults: p}
}

// Params returns the current parameter values.
func (s *paramSet) Params() Params { return s.params }

// Apply replaces the current parameters, leaving the safe defaults untouched.
func (s *paramSet) Apply(p Params) { s.params = p }

// SafeDefaults returns the snapshot captured at construction.
func (s *paramSet) SafeDefaults() Params { return s.defaults }

// Reset restores the safe defaults and returns them. Called on risk rejection.
func (s *paramSet) Reset() Params {
	s.params = s.defaults
	return s.defaults
}

// quotePair derives the rounded bid/ask pair around mid, shifted down by
// skewOffset. Returns nil when there is nothing safe to quote.
func quotePair(snap market.Snapshot, p Params, skewOffset float64) []market.Quote {
	mid := snap.MidPrice
	if mid <= 0 {
		return nil
	}

	bid := mid*(1-p.Spread/2) - skewOffset
	ask := mid*(1+p.Spread/2) - skewOffset

	// Never cross the visible book: pull a crossing quote back inside.
	if snap.BestAsk > 0 && bid >= snap.BestAsk {
		bid = snap.BestAsk * 0.9995
	}
	if snap.BestBid > 0 && ask <= snap.BestBid {
		ask = snap.BestBid * 1.0005
	}

	tick := snap.TickSize
	if tick <= 0 {
		tick = market.AdaptiveTick(mid)
	}
	step := snap.StepSize
	if step <= 0 {
		step = defaultStepSize
	}

	finalBid := market.FloorToTick(bid, tick)
	finalAsk := market.FloorToTick(ask, tick)
	qty := market.FloorToStep(p.Quantity, step)

	if finalBid <= 0 || finalAsk <= 0 || qty <= 0 {
		return nil
	}
	// Extreme skew can push both clamps onto the same side of the book;
	// an inverted or zero-width pair is never emitted.
	if finalBid >= finalAsk {
		return nil
	}

	return []market.Quote{
		{Side: market.Buy, Price: finalBid, Quantity: qty},
		{Side: market.Sell, Price: finalAsk, Quantity: qty},
	}
}
