// Package position tracks a running position, its weighted entry price, and
// realized trading performance.
package position

import (
	"math"
	"time"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/ring"
)

const defaultMaxHistory = 100

// PnLPoint is one realized-PnL snapshot, appended whenever size decreases.
type PnLPoint struct {
	Timestamp   int64 // unix milliseconds
	RealizedPnL float64
}

// Stats is the read-only performance view returned by Stats.
type Stats struct {
	RealizedPnL   float64 // rounded to 4 decimals
	TotalTrades   int
	WinningTrades int
	WinRate       float64 // percentage, 0 when no trades
	History       []PnLPoint
}

// Tracker is a state machine over (size, average entry price). It is owned by
// a single execution unit and is not safe for concurrent use.
type Tracker struct {
	realizedPnL   float64
	totalTrades   int
	winningTrades int
	lastPosition  float64
	avgEntryPrice float64
	history       *ring.Buffer[PnLPoint]
	now           func() time.Time
}

// NewTracker creates a tracker with a bounded PnL history.
func NewTracker(maxHistory int) *Tracker {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &Tracker{
		history: ring.New[PnLPoint](maxHistory),
		now:     time.Now,
	}
}

// Update applies a new observed position size at the given price.
//
// A decrease in |size| realizes PnL on the closed portion against the old
// average entry price; an increase re-weights the average entry. A sign flip
// in one update is close-then-open within that call: the realized delta still
// uses the old entry price.
func (t *Tracker) Update(newPosition, price float64) {
	change := newPosition - t.lastPosition

	if math.Abs(newPosition) < math.Abs(t.lastPosition) {
		closed := t.lastPosition - newPosition
		if t.avgEntryPrice > 0 {
			delta := (price - t.avgEntryPrice) * closed
			t.realizedPnL += delta
			t.totalTrades++
			if delta > 0 {
				t.winningTrades++
			}
			t.history.Append(PnLPoint{
				Timestamp:   t.now().UnixMilli(),
				RealizedPnL: round4(t.realizedPnL),
			})
		}
	}

	if math.Abs(newPosition) > math.Abs(t.lastPosition) {
		if t.lastPosition == 0 {
			t.avgEntryPrice = price
		} else {
			total := math.Abs(newPosition)
			oldValue := math.Abs(t.lastPosition) * t.avgEntryPrice
			newValue := math.Abs(change) * price
			t.avgEntryPrice = (oldValue + newValue) / total
		}
	} else if newPosition == 0 {
		t.avgEntryPrice = 0
	}

	t.lastPosition = newPosition
}

// Position returns the last observed signed size.
func (t *Tracker) Position() float64 { return t.lastPosition }

// AvgEntryPrice returns the weighted entry price; exactly 0 iff flat.
func (t *Tracker) AvgEntryPrice() float64 { return t.avgEntryPrice }

// Stats returns the current performance counters and bounded history.
func (t *Tracker) Stats() Stats {
	winRate := 0.0
	if t.totalTrades > 0 {
		winRate = math.Round(float64(t.winningTrades)/float64(t.totalTrades)*100*100) / 100
	}
	return Stats{
		RealizedPnL:   round4(t.realizedPnL),
		TotalTrades:   t.totalTrades,
		WinningTrades: t.winningTrades,
		WinRate:       winRate,
		History:       t.history.Items(),
	}
}

// Reset clears all counters and history.
func (t *Tracker) Reset() {
	t.realizedPnL = 0
	t.totalTrades = 0
	t.winningTrades = 0
	t.lastPosition = 0
	t.avgEntryPrice = 0
	t.history.Clear()
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
