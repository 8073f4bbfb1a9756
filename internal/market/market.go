// Package market standardizes payloads shared between the pricing, reconciliation,
// and execution layers.
package market

import "time"

// Side labels one direction of a quote or resting order.
type Side string

const (
	// Buy is the bid side.
	Buy Side = "buy"
	// Sell is the ask side.
	Sell Side = "sell"
)

// Quote expresses one side of a market-making order pair produced by a pricer.
type Quote struct {
	Side     Side
	Price    float64
	Quantity float64
}

// Snapshot models the top of book for one instrument. It is replaced wholesale
// on every refresh; there is no history.
type Snapshot struct {
	MidPrice   float64
	BestBid    float64
	BestAsk    float64
	TickSize   float64 // 0 when the venue does not advertise one
	StepSize   float64 // 0 when the venue does not advertise one
	ObservedAt time.Time
}

// Age reports how old the snapshot is relative to now.
func (s Snapshot) Age(now time.Time) time.Duration {
	if s.ObservedAt.IsZero() {
		return 0
	}
	return now.Sub(s.ObservedAt)
}

// LiveOrder is a resting order as reported by the venue. The engine's view of
// it is a read-only per-cycle fetch.
type LiveOrder struct {
	ID       string
	Side     Side
	Price    float64
	Quantity float64
}

// PlacedOrder is the venue's acknowledgement for a single placed quote.
type PlacedOrder struct {
	ID     string
	Side   Side
	Price  float64
	Amount float64
}

// Account carries the per-cycle account view: signed position size, entry
// price, and free balance.
type Account struct {
	PositionAmt float64
	EntryPrice  float64
	Balance     float64
}
