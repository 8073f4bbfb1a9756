// Package advisor produces candidate parameter changes for running units.
// Implementations must resolve to a single proposal per request; fanning out
// to external providers happens behind this boundary.
package advisor

import (
	"github.com/rs/zerolog"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/pricing"
)

// Stats is the performance view an advisor reasons over.
type Stats struct {
	RealizedPnL float64
	WinRate     float64 // percentage
	SharpeRatio float64
	MidPrice    float64
	Position    float64
	FundingRate float64
}

// Advisor proposes a parameter change. Nil means "no change recommended";
// that is the common case, not an error.
type Advisor interface {
	Propose(current pricing.Params, stats Stats) *pricing.Proposal
}

// Noop never proposes anything. Used when advisory tuning is disabled.
type Noop struct{}

// Propose implements Advisor.
func (Noop) Propose(pricing.Params, Stats) *pricing.Proposal { return nil }

// RuleBased widens the spread when performance is poor and tightens it when
// performance is strong.
type RuleBased struct {
	log zerolog.Logger
}

// NewRuleBased builds the rule-based advisor.
func NewRuleBased(log zerolog.Logger) *RuleBased {
	return &RuleBased{log: log}
}

// Propose implements Advisor. Thresholds: sharpe < 1.0 or win rate < 45%
// widens by 10%; win rate > 55% and sharpe > 2.0 tightens by 10%; anything in
// between leaves the spread alone.
func (a *RuleBased) Propose(current pricing.Params, stats Stats) *pricing.Proposal {
	switch {
	case stats.SharpeRatio < 1.0 || stats.WinRate < 45:
		proposed := current.Spread * 1.1
		a.log.Info().Float64("spread", proposed).Msg("metrics weak, proposing wider spread")
		return &pricing.Proposal{Spread: proposed}
	case stats.WinRate > 55 && stats.SharpeRatio > 2.0:
		proposed := current.Spread * 0.9
		a.log.Info().Float64("spread", proposed).Msg("metrics strong, proposing tighter spread")
		return &pricing.Proposal{Spread: proposed}
	default:
		return nil
	}
}
