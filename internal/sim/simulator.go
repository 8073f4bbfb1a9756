// Package sim provides a synthetic venue that exercises a quote model against a
// random-walk market, used for offline evaluation and as a fallback data source
// when no live exchange is configured.
package sim

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/market"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/position"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/pricing"
)

const (
	defaultStartPrice = 2000.0
	defaultSigma      = 2.0
	defaultBookSpread = 0.5
)

// Simulator walks a mid price and fills resting quotes whose price the walk crosses.
type Simulator struct {
	rng        *rand.Rand
	price      float64
	sigma      float64
	bookSpread float64
	funding    float64
	tracker    *position.Tracker
	pricer     pricing.Pricer
	log        zerolog.Logger
	now        func() time.Time
}

// Stats summarizes a simulation run.
type Stats struct {
	Cycles        int
	Fills         int
	FinalPrice    float64
	FinalPosition float64
	RealizedPnL   float64
	TotalTrades   int
	WinRate       float64
	SharpeRatio   float64
	History       []position.PnLPoint
}

// Option mutates a Simulator before the first step.
type Option func(*Simulator)

// WithSeed makes the walk deterministic.
func WithSeed(seed int64) Option {
	return func(s *Simulator) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithStartPrice overrides the initial mid price.
func WithStartPrice(price float64) Option {
	return func(s *Simulator) { s.price = price }
}

// WithSigma overrides the per-step standard deviation of the walk.
func WithSigma(sigma float64) Option {
	return func(s *Simulator) { s.sigma = sigma }
}

// WithFundingRate fixes the funding rate fed to the quote model.
func WithFundingRate(rate float64) Option {
	return func(s *Simulator) { s.funding = rate }
}

// New builds a simulator around the given quote model.
func New(pricer pricing.Pricer, log zerolog.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		price:      defaultStartPrice,
		sigma:      defaultSigma,
		bookSpread: defaultBookSpread,
		tracker:    position.NewTracker(0),
		pricer:     pricer,
		log:        log.With().Str("component", "sim").Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current synthetic book.
func (s *Simulator) Snapshot() market.Snapshot {
	half := s.bookSpread / 2
	return market.Snapshot{
		MidPrice:   s.price,
		BestBid:    s.price - half,
		BestAsk:    s.price + half,
		TickSize:   0.01,
		StepSize:   0.001,
		ObservedAt: s.now(),
	}
}

// FundingRate returns the configured funding rate.
func (s *Simulator) FundingRate() float64 { return s.funding }

// Step quotes against the current book, advances the walk, and fills any quote
// the new price crosses. It returns the number of fills.
func (s *Simulator) Step() int {
	quotes := s.pricer.Compute(s.Snapshot(), s.funding)

	s.price += s.rng.NormFloat64() * s.sigma
	if s.price < 1 {
		s.price = 1
	}

	fills := 0
	for _, q := range quotes {
		switch {
		case q.Side == market.Buy && s.price <= q.Price:
			s.tracker.Update(s.tracker.Position()+q.Quantity, q.Price)
			fills++
		case q.Side == market.Sell && s.price >= q.Price:
			s.tracker.Update(s.tracker.Position()-q.Quantity, q.Price)
			fills++
		}
	}
	return fills
}

// Run executes the given number of cycles and reports aggregate results.
func (s *Simulator) Run(cycles int) Stats {
	fills := 0
	for i := 0; i < cycles; i++ {
		fills += s.Step()
	}

	ts := s.tracker.Stats()
	out := Stats{
		Cycles:        cycles,
		Fills:         fills,
		FinalPrice:    s.price,
		FinalPosition: s.tracker.Position(),
		RealizedPnL:   ts.RealizedPnL,
		TotalTrades:   ts.TotalTrades,
		WinRate:       ts.WinRate,
		SharpeRatio:   position.SharpeRatio(ts.History),
		History:       ts.History,
	}
	s.log.Info().
		Int("cycles", out.Cycles).
		Int("fills", out.Fills).
		Float64("realized_pnl", out.RealizedPnL).
		Float64("win_rate", out.WinRate).
		Msg("simulation finished")
	return out
}
