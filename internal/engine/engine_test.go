package engine_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/advisor"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/engine"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/exchange"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/market"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/pricing"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/risk"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/sim"
)

type stubAdvisor struct {
	prop *pricing.Proposal
}

func (s stubAdvisor) Propose(pricing.Params, advisor.Stats) *pricing.Proposal { return s.prop }

func testBook() market.Snapshot {
	return market.Snapshot{
		MidPrice: 1000,
		BestBid:  999.9,
		BestAsk:  1000.1,
		TickSize: 0.01,
		StepSize: 0.001,
	}
}

func newTestVenue(balance float64) *exchange.Paper {
	p := exchange.NewPaper("BTCUSDT", balance, zerolog.Nop())
	p.SetBook(testBook())
	return p
}

func newTestUnit(id string, venue exchange.Client) *engine.Unit {
	u := engine.NewUnit(engine.UnitConfig{
		ID:     id,
		Client: venue,
		Pricer: pricing.NewFixedSpread(pricing.Params{Spread: 0.015, Quantity: 0.02, Leverage: 5}),
	}, zerolog.Nop())
	u.Start()
	return u
}

func TestCyclePlacesBothSides(t *testing.T) {
	venue := newTestVenue(10000)
	u := newTestUnit("alpha", venue)

	require.NoError(t, u.Cycle(context.Background()))

	open, err := venue.FetchOpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 2)
	require.Len(t, u.ActiveOrderIDs(), 2)

	history := u.OrderHistory()
	require.Len(t, history, 2)
	for _, rec := range history {
		require.Equal(t, "placed", rec.Status)
	}
}

func TestCycleIsIdempotentOnStableBook(t *testing.T) {
	venue := newTestVenue(10000)
	u := newTestUnit("alpha", venue)

	require.NoError(t, u.Cycle(context.Background()))
	first := u.ActiveOrderIDs()

	require.NoError(t, u.Cycle(context.Background()))
	require.Equal(t, first, u.ActiveOrderIDs())
	require.Len(t, u.OrderHistory(), 2)
}

func TestCycleRepricesOnBookMove(t *testing.T) {
	venue := newTestVenue(10000)
	u := newTestUnit("alpha", venue)

	require.NoError(t, u.Cycle(context.Background()))
	first := u.ActiveOrderIDs()

	book := testBook()
	book.MidPrice = 1010
	book.BestBid = 1009.9
	book.BestAsk = 1010.1
	venue.SetBook(book)

	require.NoError(t, u.Cycle(context.Background()))
	second := u.ActiveOrderIDs()
	require.Len(t, second, 2)
	require.NotEqual(t, first, second)

	cancelled := 0
	for _, rec := range u.OrderHistory() {
		if rec.Status == "cancelled" {
			cancelled++
		}
	}
	require.Equal(t, 2, cancelled)
}

// flakyCancelVenue fails the next CancelOrders call once, then behaves like
// the underlying paper venue.
type flakyCancelVenue struct {
	*exchange.Paper
	failNext bool
}

func (f *flakyCancelVenue) CancelOrders(ctx context.Context, ids []string) error {
	if f.failNext {
		f.failNext = false
		return exchange.NewExecutionError(exchange.KindNetwork, f.Symbol(), "cancel timed out")
	}
	return f.Paper.CancelOrders(ctx, ids)
}

func TestFailedCancelSkipsPlacement(t *testing.T) {
	venue := &flakyCancelVenue{Paper: newTestVenue(10000)}
	u := newTestUnit("alpha", venue)

	require.NoError(t, u.Cycle(context.Background()))
	first := u.ActiveOrderIDs()
	require.Len(t, first, 2)

	book := testBook()
	book.MidPrice = 1010
	book.BestBid = 1009.9
	book.BestAsk = 1010.1
	venue.SetBook(book)

	// The cancel batch fails: the stale pair must stay resting and tracked,
	// and no replacements may be placed alongside it.
	venue.failNext = true
	require.NoError(t, u.Cycle(context.Background()))

	open, err := venue.FetchOpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 2)
	require.Equal(t, first, u.ActiveOrderIDs())

	history := u.ErrorHistory()
	require.Len(t, history, 1)
	require.Equal(t, exchange.KindNetwork, history[0].Kind)

	// The next healthy cycle retries the cancel and replaces the pair.
	require.NoError(t, u.Cycle(context.Background()))

	open, err = venue.FetchOpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 2)
	second := u.ActiveOrderIDs()
	require.Len(t, second, 2)
	for _, id := range first {
		require.NotContains(t, second, id)
	}
}

func TestStaleMarketDataStillQuoted(t *testing.T) {
	venue := exchange.NewPaper("BTCUSDT", 10000, zerolog.Nop())
	book := testBook()
	book.ObservedAt = time.Now().Add(-time.Minute)
	venue.SetBook(book)

	var buf bytes.Buffer
	u := engine.NewUnit(engine.UnitConfig{
		ID:     "alpha",
		Client: venue,
		Pricer: pricing.NewFixedSpread(pricing.Params{Spread: 0.015, Quantity: 0.02, Leverage: 5}),
	}, zerolog.New(&buf))
	u.Start()

	require.NoError(t, u.Cycle(context.Background()))
	require.Len(t, u.ActiveOrderIDs(), 2)
	require.Contains(t, buf.String(), "stale")
}

func TestRefreshFailureAbortsCycleOnly(t *testing.T) {
	venue := exchange.NewPaper("BTCUSDT", 10000, zerolog.Nop())
	u := newTestUnit("alpha", venue)

	require.Error(t, u.Cycle(context.Background()))
	require.Empty(t, u.ActiveOrderIDs())

	history := u.ErrorHistory()
	require.Len(t, history, 1)
	require.Equal(t, exchange.KindExchange, history[0].Kind)
	require.NotEmpty(t, history[0].TraceID)

	alert := u.Alert()
	require.NotNil(t, alert)
	require.Equal(t, engine.SeverityWarning, alert.Severity)
}

func TestStrategySwitchForcesFullReplace(t *testing.T) {
	venue := newTestVenue(10000)
	u := newTestUnit("alpha", venue)

	require.NoError(t, u.Cycle(context.Background()))
	first := u.ActiveOrderIDs()
	require.Len(t, first, 2)

	u.SwitchStrategy("fixed")
	require.NoError(t, u.Cycle(context.Background()))

	second := u.ActiveOrderIDs()
	require.Len(t, second, 2)
	for _, id := range first {
		require.NotContains(t, second, id)
	}

	open, err := venue.FetchOpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 2)
}

func TestStrategySwitchCarriesTunedParams(t *testing.T) {
	venue := newTestVenue(10000)
	u := newTestUnit("alpha", venue)
	u.ApplyParams(pricing.Params{Spread: 0.02, Quantity: 0.05, Leverage: 3})

	u.SwitchStrategy("funding_skew")

	params := u.Params()
	require.Equal(t, "Funding Rate Skew", u.Name())
	require.Equal(t, 0.02, params.Spread)
	require.Equal(t, 0.05, params.Quantity)
	require.Equal(t, 3, params.Leverage)
}

func TestInsufficientFundsRaisesBlockingAlert(t *testing.T) {
	venue := newTestVenue(10)
	u := newTestUnit("alpha", venue)

	require.NoError(t, u.Cycle(context.Background()))
	require.Empty(t, u.ActiveOrderIDs())

	alert := u.Alert()
	require.NotNil(t, alert)
	require.Equal(t, engine.SeverityError, alert.Severity)

	history := u.ErrorHistory()
	require.Len(t, history, 1)
	require.Equal(t, exchange.KindInsufficientFunds, history[0].Kind)
}

func TestPositionCapBlocksBuySide(t *testing.T) {
	venue := newTestVenue(10000)
	venue.SetPosition(0.6, 1000)
	u := newTestUnit("alpha", venue)

	require.NoError(t, u.Cycle(context.Background()))

	open, err := venue.FetchOpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, market.Sell, open[0].Side)
}

func TestSetSymbolInvalidatesMarketData(t *testing.T) {
	venue := newTestVenue(10000)
	u := newTestUnit("alpha", venue)
	require.NoError(t, u.Cycle(context.Background()))

	require.True(t, u.SetSymbol("ETHUSDT"))
	require.Equal(t, "ETHUSDT", u.Symbol())

	// The venue dropped its book on the switch, so the next refresh fails.
	require.Error(t, u.Cycle(context.Background()))
}

func newTestOrchestrator(adv advisor.Advisor, fallback *sim.Simulator) *engine.Orchestrator {
	return engine.NewOrchestrator(engine.OrchestratorConfig{
		Advisor:  adv,
		Gate:     risk.NewGate(risk.DefaultLimits()),
		Fallback: fallback,
	}, zerolog.Nop())
}

func TestTickContainsUnitFailure(t *testing.T) {
	healthy := newTestVenue(10000)
	broken := exchange.NewPaper("ETHUSDT", 10000, zerolog.Nop())

	o := newTestOrchestrator(nil, nil)
	require.NoError(t, o.Add(newTestUnit("good", healthy)))
	require.NoError(t, o.Add(newTestUnit("bad", broken)))

	o.Tick(context.Background())

	open, err := healthy.FetchOpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 2)

	errs := o.Errors()
	require.Len(t, errs, 1)
	require.Equal(t, "bad", errs[0].StrategyID)
}

func TestProposalApprovedReplacesParams(t *testing.T) {
	venue := newTestVenue(10000)
	u := newTestUnit("alpha", venue)
	u.SetAlert(engine.Alert{Severity: engine.SeverityWarning, Message: "stale"})

	o := newTestOrchestrator(stubAdvisor{prop: &pricing.Proposal{Spread: 0.02}}, nil)
	require.NoError(t, o.Add(u))
	o.Tick(context.Background())

	require.Equal(t, 0.02, u.Params().Spread)
	require.Nil(t, u.Alert())
}

func TestProposalRejectedRestoresSafeDefaults(t *testing.T) {
	venue := newTestVenue(10000)
	u := newTestUnit("alpha", venue)
	u.ApplyParams(pricing.Params{Spread: 0.02, Quantity: 0.02, Leverage: 5})

	o := newTestOrchestrator(stubAdvisor{prop: &pricing.Proposal{Spread: 0.06}}, nil)
	require.NoError(t, o.Add(u))
	o.Tick(context.Background())

	require.Equal(t, 0.015, u.Params().Spread)

	alert := u.Alert()
	require.NotNil(t, alert)
	require.Equal(t, engine.SeverityWarning, alert.Severity)
	require.Contains(t, alert.Message, "too wide")
	require.Contains(t, alert.Suggestion, "1.50%")
}

func TestRemoveCancelsTrackedOrders(t *testing.T) {
	venue := newTestVenue(10000)
	u := newTestUnit("alpha", venue)

	o := newTestOrchestrator(nil, nil)
	require.NoError(t, o.Add(u))
	o.Tick(context.Background())
	require.Len(t, o.ActiveOrders(), 2)

	require.NoError(t, o.Remove(context.Background(), "alpha"))

	open, err := venue.FetchOpenOrders(context.Background())
	require.NoError(t, err)
	require.Empty(t, open)

	_, ok := o.Unit("alpha")
	require.False(t, ok)
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	o := newTestOrchestrator(nil, nil)
	require.NoError(t, o.Add(newTestUnit("alpha", newTestVenue(10000))))
	require.Error(t, o.Add(newTestUnit("alpha", newTestVenue(10000))))
}

func TestSimulatorFallbackWhenNothingRuns(t *testing.T) {
	pricer := pricing.NewFixedSpread(pricing.Params{Spread: 0.015, Quantity: 0.02})
	fallback := sim.New(pricer, zerolog.Nop(), sim.WithSeed(1), sim.WithSigma(0))

	o := newTestOrchestrator(nil, fallback)
	o.Tick(context.Background())

	stages := o.Stages()
	require.Len(t, stages, 1)
	require.Equal(t, "simulation", stages[0].Stage)
}

func TestIdleStageWithoutFallback(t *testing.T) {
	o := newTestOrchestrator(nil, nil)
	u := newTestUnit("alpha", newTestVenue(10000))
	require.NoError(t, o.Add(u))
	require.NoError(t, o.Stop("alpha"))

	o.Tick(context.Background())

	stages := o.Stages()
	require.Len(t, stages, 1)
	require.Equal(t, "idle", stages[0].Stage)
}

func TestStatusAggregatesUnits(t *testing.T) {
	venue := newTestVenue(10000)
	venue.SetFundingRate(0.0001)
	u := newTestUnit("alpha", venue)

	o := newTestOrchestrator(nil, nil)
	require.NoError(t, o.Add(u))
	o.Tick(context.Background())

	status := o.Status()
	require.Len(t, status.Units, 1)
	us := status.Units[0]
	require.Equal(t, "alpha", us.ID)
	require.Equal(t, "BTCUSDT", us.Symbol)
	require.Equal(t, 1000.0, us.MidPrice)
	require.Equal(t, 0.0001, us.FundingRate)
	require.Len(t, us.ActiveOrders, 2)
	require.Len(t, status.Stages, 1)
	require.Equal(t, "execution", status.Stages[0].Stage)
}
