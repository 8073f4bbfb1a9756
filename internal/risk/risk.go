// Package risk encodes the guard-rails between advisors and live parameters:
// position-limit side blocking and proposal-bounds validation.
package risk

import (
	"fmt"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/market"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/pricing"
)

// Limits bounds what a proposal may change and how large a position may grow.
type Limits struct {
	MinSpread     float64
	MaxSpread     float64
	MaxSkewFactor float64
	MaxPosition   float64 // absolute position cap in base asset
}

// DefaultLimits returns the stock production bounds.
func DefaultLimits() Limits {
	return Limits{
		MinSpread:     0.001,
		MaxSpread:     0.05,
		MaxSkewFactor: 500,
		MaxPosition:   0.5,
	}
}

// Gate validates proposals and blocks quoting sides at the position cap. It
// never mutates caller state; rejection handling is the caller's job.
type Gate struct {
	limits Limits
}

// NewGate builds a gate; a zero Limits value falls back to DefaultLimits.
func NewGate(limits Limits) *Gate {
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}
	return &Gate{limits: limits}
}

// Limits returns the configured bounds.
func (g *Gate) Limits() Limits { return g.limits }

// AllowedSides returns the quoting sides permitted at the given position.
// Buy is blocked at or above +MaxPosition, Sell at or below -MaxPosition.
// Advisory input for the caller, not a rejection by itself.
func (g *Gate) AllowedSides(positionAmt float64) []market.Side {
	switch {
	case g.limits.MaxPosition > 0 && positionAmt >= g.limits.MaxPosition:
		return []market.Side{market.Sell}
	case g.limits.MaxPosition > 0 && positionAmt <= -g.limits.MaxPosition:
		return []market.Side{market.Buy}
	default:
		return []market.Side{market.Buy, market.Sell}
	}
}

// ValidateProposal checks a candidate parameter change against the bounds.
// The reason names the violated bound and the offending value; "Approved" on
// success.
func (g *Gate) ValidateProposal(p pricing.Proposal) (bool, string) {
	if p.Spread < g.limits.MinSpread {
		return false, fmt.Sprintf("Spread %.2f%% is too tight (Min %.2f%%)",
			p.Spread*100, g.limits.MinSpread*100)
	}
	if p.Spread > g.limits.MaxSpread {
		return false, fmt.Sprintf("Spread %.2f%% is too wide (Max %.2f%%)",
			p.Spread*100, g.limits.MaxSpread*100)
	}
	if p.SkewFactor != nil {
		if *p.SkewFactor < 0 {
			return false, fmt.Sprintf("Skew factor %.2f cannot be negative", *p.SkewFactor)
		}
		if *p.SkewFactor > g.limits.MaxSkewFactor {
			return false, fmt.Sprintf("Skew factor %.2f is too high (Max %.2f)",
				*p.SkewFactor, g.limits.MaxSkewFactor)
		}
	}
	return true, "Approved"
}
