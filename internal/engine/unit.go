// Package engine drives the per-tick quote lifecycle: each execution unit
// owns one venue connection, one quote model, and its own order and error
// state; the orchestrator runs the registered units and applies advisor
// proposals behind the risk gate.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/advisor"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/exchange"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/market"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/metrics"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/position"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/pricing"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/reconcile"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/ring"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/risk"
)

const (
	defaultStaleAfter   = 5 * time.Second
	defaultOrderHistory = 200
	defaultErrorHistory = 200
)

// switchState is the two-state reset machine armed by a strategy switch and
// consumed by the next cycle.
type switchState int

const (
	switchNone switchState = iota
	switchPending
)

// OrderRecord is one order-history entry. Status flips from "placed" to
// "cancelled" when the unit cancels the order.
type OrderRecord struct {
	Timestamp time.Time
	OrderID   string
	Side      market.Side
	Price     float64
	Quantity  float64
	Status    string
}

// UnitConfig assembles an execution unit. Zero history bounds and stale
// threshold fall back to defaults; ID, Client, and Pricer are required.
type UnitConfig struct {
	ID         string
	Client     exchange.Client
	Pricer     pricing.Pricer
	Gate       *risk.Gate
	Tolerance  reconcile.Tolerance
	StaleAfter time.Duration

	OrderHistory int
	ErrorHistory int
	PnLHistory   int
}

// Unit runs the refresh, compute, reconcile, execute lifecycle for one
// instrument on one venue. Not safe for concurrent use; the orchestrator
// serializes access.
type Unit struct {
	id      string
	client  exchange.Client
	pricer  pricing.Pricer
	rec     *reconcile.Reconciler
	gate    *risk.Gate
	tracker *position.Tracker
	log     zerolog.Logger

	running     bool
	resetState  switchState
	tracked     map[string]struct{}
	snap        market.Snapshot
	haveSnap    bool
	funding     float64
	account     market.Account
	haveAccount bool
	alert       *Alert
	staleAfter  time.Duration

	orders *ring.Buffer[OrderRecord]
	errors *ring.Buffer[ErrorRecord]

	now func() time.Time
}

// NewUnit builds a stopped unit from the given configuration.
func NewUnit(cfg UnitConfig, log zerolog.Logger) *Unit {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}
	if cfg.OrderHistory <= 0 {
		cfg.OrderHistory = defaultOrderHistory
	}
	if cfg.ErrorHistory <= 0 {
		cfg.ErrorHistory = defaultErrorHistory
	}
	gate := cfg.Gate
	if gate == nil {
		gate = risk.NewGate(risk.DefaultLimits())
	}
	return &Unit{
		id:         cfg.ID,
		client:     cfg.Client,
		pricer:     cfg.Pricer,
		rec:        reconcile.New(cfg.Tolerance),
		gate:       gate,
		tracker:    position.NewTracker(cfg.PnLHistory),
		log:        log.With().Str("strategy", cfg.ID).Logger(),
		tracked:    make(map[string]struct{}),
		staleAfter: cfg.StaleAfter,
		orders:     ring.New[OrderRecord](cfg.OrderHistory),
		errors:     ring.New[ErrorRecord](cfg.ErrorHistory),
		now:        time.Now,
	}
}

// ID returns the unit identifier used in logs, metrics, and the registry.
func (u *Unit) ID() string { return u.id }

// Name returns the active quote model's display name.
func (u *Unit) Name() string { return u.pricer.Name() }

// Symbol returns the instrument currently quoted.
func (u *Unit) Symbol() string { return u.client.Symbol() }

// Running reports whether Cycle does work.
func (u *Unit) Running() bool { return u.running }

// Start enables the cycle.
func (u *Unit) Start() { u.running = true }

// Stop pauses the cycle, leaving resting orders in place.
func (u *Unit) Stop() { u.running = false }

// Params returns the active pricing parameters.
func (u *Unit) Params() pricing.Params { return u.pricer.Params() }

// ApplyParams installs risk-approved parameters and clears any active alert.
func (u *Unit) ApplyParams(p pricing.Params) {
	u.pricer.Apply(p)
	u.alert = nil
}

// ResetParams restores the safe defaults and returns them.
func (u *Unit) ResetParams() pricing.Params { return u.pricer.Reset() }

// Alert returns the active alert, nil when none.
func (u *Unit) Alert() *Alert {
	if u.alert == nil {
		return nil
	}
	a := *u.alert
	return &a
}

// SetAlert replaces the active alert.
func (u *Unit) SetAlert(a Alert) { u.alert = &a }

// SetSymbol switches the instrument. On success all cached market, funding,
// and account state is invalidated; tracked orders are kept so the next cycle
// cancels them against the new book.
func (u *Unit) SetSymbol(symbol string) bool {
	if !u.client.SetSymbol(symbol) {
		return false
	}
	u.haveSnap = false
	u.haveAccount = false
	u.funding = 0
	u.log.Info().Str("symbol", symbol).Msg("symbol switched")
	return true
}

// SwitchStrategy replaces the quote model, carrying over the tuned spread,
// quantity, and leverage. The skew factor comes from the old model's safe
// defaults. The next cycle skips live-order diffing and performs a full
// cancel and replace.
func (u *Unit) SwitchStrategy(kind string) {
	cur := u.pricer.Params()
	params := pricing.Params{
		Spread:     cur.Spread,
		Quantity:   cur.Quantity,
		Leverage:   cur.Leverage,
		SkewFactor: u.pricer.SafeDefaults().SkewFactor,
	}
	u.pricer = pricing.Build(kind, params)
	u.resetState = switchPending
	u.log.Info().Str("model", u.pricer.Name()).Msg("strategy switched")
}

// OrderHistory returns the bounded order history, oldest first.
func (u *Unit) OrderHistory() []OrderRecord { return u.orders.Items() }

// ErrorHistory returns the bounded error history, oldest first.
func (u *Unit) ErrorHistory() []ErrorRecord { return u.errors.Items() }

// ActiveOrderIDs returns the tracked order ids, sorted.
func (u *Unit) ActiveOrderIDs() []string {
	ids := make([]string, 0, len(u.tracked))
	for id := range u.tracked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AdvisorStats snapshots the performance view an advisor reasons over.
func (u *Unit) AdvisorStats() advisor.Stats {
	ts := u.tracker.Stats()
	return advisor.Stats{
		RealizedPnL: ts.RealizedPnL,
		WinRate:     ts.WinRate,
		SharpeRatio: position.SharpeRatio(ts.History),
		MidPrice:    u.snap.MidPrice,
		Position:    u.tracker.Position(),
		FundingRate: u.funding,
	}
}

// UnitStatus is the per-unit view exposed to the presentation layer.
type UnitStatus struct {
	ID            string
	Model         string
	Symbol        string
	Running       bool
	MidPrice      float64
	FundingRate   float64
	Position      float64
	AvgEntryPrice float64
	RealizedPnL   float64
	UnrealizedPnL float64
	Spread        float64
	Quantity      float64
	Leverage      int
	Alert         *Alert
	ActiveOrders  []string
}

// Status snapshots the unit for display. Unrealized PnL is marked against the
// cached mid price and the tracker's entry price.
func (u *Unit) Status() UnitStatus {
	params := u.pricer.Params()
	ts := u.tracker.Stats()
	unrealized := 0.0
	if u.haveSnap && u.tracker.AvgEntryPrice() > 0 {
		unrealized = (u.snap.MidPrice - u.tracker.AvgEntryPrice()) * u.tracker.Position()
	}
	return UnitStatus{
		ID:            u.id,
		Model:         u.pricer.Name(),
		Symbol:        u.client.Symbol(),
		Running:       u.running,
		MidPrice:      u.snap.MidPrice,
		FundingRate:   u.funding,
		Position:      u.tracker.Position(),
		AvgEntryPrice: u.tracker.AvgEntryPrice(),
		RealizedPnL:   ts.RealizedPnL,
		UnrealizedPnL: unrealized,
		Spread:        params.Spread,
		Quantity:      params.Quantity,
		Leverage:      params.Leverage,
		Alert:         u.Alert(),
		ActiveOrders:  u.ActiveOrderIDs(),
	}
}

// Cycle runs one refresh, compute, reconcile, execute pass. A refresh failure
// aborts only this unit's cycle; execution failures are classified, recorded,
// and do not fail the cycle since the placed subset is already live.
func (u *Unit) Cycle(ctx context.Context) error {
	if !u.running || u.client == nil {
		return nil
	}

	if err := u.refresh(ctx); err != nil {
		u.recordFailure(err)
		metrics.CyclesTotal.WithLabelValues(u.id, "error").Inc()
		return err
	}

	quotes := u.pricer.Compute(u.snap, u.funding)
	quotes = filterSides(quotes, u.gate.AllowedSides(u.account.PositionAmt))

	current, err := u.currentOrders(ctx)
	if err != nil {
		u.recordFailure(err)
		metrics.CyclesTotal.WithLabelValues(u.id, "error").Inc()
		return err
	}

	cancelIDs, place := u.rec.Sync(current, quotes)
	u.execute(ctx, cancelIDs, place)

	metrics.CyclesTotal.WithLabelValues(u.id, "ok").Inc()
	return nil
}

// Close cancels every tracked order and stops the unit. Called on removal.
func (u *Unit) Close(ctx context.Context) error {
	u.running = false
	ids := u.ActiveOrderIDs()
	if len(ids) == 0 {
		return nil
	}
	if err := u.client.CancelOrders(ctx, ids); err != nil {
		return fmt.Errorf("cancel tracked orders: %w", err)
	}
	u.markCancelled(ids)
	u.tracked = make(map[string]struct{})
	return nil
}

// refresh pulls market, funding, and account data. Market data is mandatory;
// funding and account failures degrade to the last known values. Stale market
// data is logged and still used.
func (u *Unit) refresh(ctx context.Context) error {
	snap, err := u.client.FetchMarketData(ctx)
	if err != nil {
		return fmt.Errorf("fetch market data: %w", err)
	}
	if age := snap.Age(u.now()); age > u.staleAfter {
		u.log.Warn().Dur("age", age).Msg("market data is stale, quoting anyway")
	}
	u.snap = snap
	u.haveSnap = true

	if rate, err := u.client.FetchFundingRate(ctx); err != nil {
		u.log.Warn().Err(err).Msg("funding rate unavailable, keeping last value")
	} else {
		u.funding = rate
	}

	if account, err := u.client.FetchAccountData(ctx); err != nil {
		u.log.Warn().Err(err).Msg("account data unavailable, keeping last value")
	} else {
		u.account = account
		u.haveAccount = true
		u.tracker.Update(account.PositionAmt, snap.MidPrice)
	}
	return nil
}

// currentOrders returns the live orders this unit owns. When a strategy
// switch is pending the live view is treated as empty, which forces the
// reconciler to replace everything; the previously tracked ids are cancelled
// here so nothing leaks.
func (u *Unit) currentOrders(ctx context.Context) ([]market.LiveOrder, error) {
	if u.resetState == switchPending {
		u.resetState = switchNone
		stale := u.ActiveOrderIDs()
		if len(stale) > 0 {
			if err := u.client.CancelOrders(ctx, stale); err != nil {
				u.log.Warn().Err(err).Msg("cancel on strategy switch failed")
			} else {
				u.markCancelled(stale)
				metrics.OrdersCancelledTotal.WithLabelValues(u.id).Add(float64(len(stale)))
			}
		}
		u.tracked = make(map[string]struct{})
		return nil, nil
	}

	open, err := u.client.FetchOpenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch open orders: %w", err)
	}
	owned := open[:0:0]
	for _, o := range open {
		if _, ok := u.tracked[o.ID]; ok {
			owned = append(owned, o)
		}
	}
	return owned, nil
}

// execute applies the reconciliation delta: cancels first, then places. A
// failed cancel batch aborts placement, otherwise the still-resting originals
// and their replacements would stack up as double exposure; the stale ids stay
// tracked and the next cycle retries the cancel.
func (u *Unit) execute(ctx context.Context, cancelIDs []string, place []market.Quote) {
	if len(cancelIDs) > 0 {
		if err := u.client.CancelOrders(ctx, cancelIDs); err != nil {
			u.recordFailure(err)
			return
		}
		for _, id := range cancelIDs {
			delete(u.tracked, id)
		}
		u.markCancelled(cancelIDs)
		metrics.OrdersCancelledTotal.WithLabelValues(u.id).Add(float64(len(cancelIDs)))
	}

	if len(place) == 0 {
		return
	}
	placed, err := u.client.PlaceOrders(ctx, place)
	for _, p := range placed {
		u.tracked[p.ID] = struct{}{}
		u.orders.Append(OrderRecord{
			Timestamp: u.now(),
			OrderID:   p.ID,
			Side:      p.Side,
			Price:     p.Price,
			Quantity:  p.Amount,
			Status:    "placed",
		})
		metrics.OrdersPlacedTotal.WithLabelValues(u.id, string(p.Side)).Inc()
	}
	if err != nil {
		u.recordFailure(err)
	}
}

// recordFailure classifies err, appends an error record, raises the mapped
// alert, and bumps the failure counter.
func (u *Unit) recordFailure(err error) {
	kind := exchange.Classify(err)
	rec := newErrorRecord(kind, err.Error(), u.client.Symbol(), u.id)
	u.errors.Append(rec)
	alert := alertFor(kind, err.Error())
	u.alert = &alert
	metrics.ExecutionErrorsTotal.WithLabelValues(u.id, string(kind)).Inc()
	u.log.Error().Err(err).Str("kind", string(kind)).Str("trace_id", rec.TraceID).Msg("cycle failure")
}

func (u *Unit) markCancelled(ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	u.orders.Each(func(r *OrderRecord) {
		if _, ok := set[r.OrderID]; ok && r.Status == "placed" {
			r.Status = "cancelled"
		}
	})
}

func filterSides(quotes []market.Quote, allowed []market.Side) []market.Quote {
	if len(allowed) == 2 {
		return quotes
	}
	set := make(map[market.Side]struct{}, len(allowed))
	for _, s := range allowed {
		set[s] = struct{}{}
	}
	out := quotes[:0:0]
	for _, q := range quotes {
		if _, ok := set[q.Side]; ok {
			out = append(out, q)
		}
	}
	return out
}
