package exchange

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/market"
)

// Paper is an in-memory venue used for dry runs and tests. It enforces the
// same failure surface a real venue has: margin checks, order validation, and
// call rate limiting, all surfaced as classified ExecutionErrors.
type Paper struct {
	mu         sync.Mutex
	name       string
	symbol     string
	snap       market.Snapshot
	haveSnap   bool
	funding    float64
	balance    float64
	position   float64
	entryPrice float64
	orders     map[string]market.LiveOrder
	seq        int
	limiter    *rate.Limiter
	failNext   *ExecutionError
	log        zerolog.Logger
}

// NewPaper creates a paper venue with the given starting balance.
func NewPaper(symbol string, startingBalance float64, log zerolog.Logger) *Paper {
	return &Paper{
		name:    "paper",
		symbol:  symbol,
		balance: startingBalance,
		orders:  make(map[string]market.LiveOrder),
		limiter: rate.NewLimiter(rate.Limit(50), 100),
		log:     log,
	}
}

// SetRateLimit replaces the venue call limiter. A zero limit denies every
// call, which is how tests exercise the rate-limited path.
func (p *Paper) SetRateLimit(limit rate.Limit, burst int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter = rate.NewLimiter(limit, burst)
}

// SetBook installs the current top of book. A zero ObservedAt is stamped now.
func (p *Paper) SetBook(snap market.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if snap.ObservedAt.IsZero() {
		snap.ObservedAt = time.Now()
	}
	p.snap = snap
	p.haveSnap = true
}

// SetFundingRate installs the funding rate returned to units.
func (p *Paper) SetFundingRate(r float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.funding = r
}

// SetPosition overrides the account position, as if fills happened upstream.
func (p *Paper) SetPosition(size, entryPrice float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = size
	p.entryPrice = entryPrice
}

// FailNextPlace arms a one-shot failure for the next PlaceOrders call.
func (p *Paper) FailNextPlace(err *ExecutionError) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = err
}

// Name implements Client.
func (p *Paper) Name() string { return p.name }

// Symbol implements Client.
func (p *Paper) Symbol() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.symbol
}

// SetSymbol switches the instrument and invalidates the cached book.
func (p *Paper) SetSymbol(symbol string) bool {
	if symbol == "" {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.symbol = symbol
	p.haveSnap = false
	return true
}

// FetchMarketData implements Client.
func (p *Paper) FetchMarketData(_ context.Context) (market.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.haveSnap {
		return market.Snapshot{}, NewExecutionError(KindExchange, p.symbol, "no market data available")
	}
	return p.snap, nil
}

// FetchFundingRate implements Client.
func (p *Paper) FetchFundingRate(_ context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.funding, nil
}

// FetchAccountData implements Client.
func (p *Paper) FetchAccountData(_ context.Context) (market.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return market.Account{PositionAmt: p.position, EntryPrice: p.entryPrice, Balance: p.balance}, nil
}

// FetchOpenOrders implements Client. Orders are returned sorted by id for
// deterministic reconciliation.
func (p *Paper) FetchOpenOrders(_ context.Context) ([]market.LiveOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]market.LiveOrder, 0, len(p.orders))
	for _, o := range p.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PlaceOrders implements Client. On a per-order failure the already-placed
// subset is returned alongside the classified error.
func (p *Paper) PlaceOrders(_ context.Context, quotes []market.Quote) ([]market.PlacedOrder, error) {
	if !p.allow() {
		return nil, NewExecutionError(KindRateLimited, p.Symbol(), "venue rate limit exceeded")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return nil, err
	}

	var placed []market.PlacedOrder
	for _, q := range quotes {
		if q.Price <= 0 || q.Quantity <= 0 {
			return placed, NewExecutionError(KindInvalidOrder, p.symbol,
				fmt.Sprintf("order must have positive price and quantity, got px=%.8f qty=%.8f", q.Price, q.Quantity))
		}
		if q.Price*q.Quantity > p.balance {
			return placed, NewExecutionError(KindInsufficientFunds, p.symbol,
				fmt.Sprintf("order notional %.2f exceeds balance %.2f", q.Price*q.Quantity, p.balance))
		}
		p.seq++
		id := fmt.Sprintf("paper-%d", p.seq)
		p.orders[id] = market.LiveOrder{ID: id, Side: q.Side, Price: q.Price, Quantity: q.Quantity}
		placed = append(placed, market.PlacedOrder{ID: id, Side: q.Side, Price: q.Price, Amount: q.Quantity})
		p.log.Debug().Str("id", id).Str("side", string(q.Side)).Float64("px", q.Price).Float64("qty", q.Quantity).Msg("paper order placed")
	}
	return placed, nil
}

// CancelOrders implements Client. Unknown ids are ignored.
func (p *Paper) CancelOrders(_ context.Context, ids []string) error {
	if !p.allow() {
		return NewExecutionError(KindRateLimited, p.Symbol(), "venue rate limit exceeded")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		delete(p.orders, id)
	}
	return nil
}

func (p *Paper) allow() bool {
	p.mu.Lock()
	limiter := p.limiter
	p.mu.Unlock()
	return limiter.Allow()
}
