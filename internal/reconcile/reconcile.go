// Package reconcile computes the minimal cancel/place delta between live
// resting orders and target quotes.
package reconcile

import (
	"math"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/market"
)

// Tolerance decides when a resting order is close enough to its target to
// leave alone. An order is kept when |current-target| <= max(Absolute,
// Relative*|target|).
type Tolerance struct {
	Absolute float64
	Relative float64 // fraction of the target price
}

// DefaultTolerance is the fallback used when no per-instrument tolerance is
// configured.
var DefaultTolerance = Tolerance{Absolute: 0.01}

func (t Tolerance) keeps(current, target float64) bool {
	allowed := t.Absolute
	if rel := t.Relative * math.Abs(target); rel > allowed {
		allowed = rel
	}
	return math.Abs(current-target) <= allowed
}

// Reconciler diffs one buy slot and one sell slot independently. It is pure
// and deterministic; re-running on post-apply state yields no actions.
type Reconciler struct {
	tol Tolerance
}

// New builds a reconciler. A zero tolerance falls back to DefaultTolerance.
func New(tol Tolerance) *Reconciler {
	if tol.Absolute <= 0 && tol.Relative <= 0 {
		tol = DefaultTolerance
	}
	return &Reconciler{tol: tol}
}

// Sync compares live orders against target quotes and returns the ids to
// cancel and the quotes to place.
func (r *Reconciler) Sync(current []market.LiveOrder, target []market.Quote) (cancelIDs []string, place []market.Quote) {
	for _, side := range []market.Side{market.Buy, market.Sell} {
		cur, haveCur := firstOrder(current, side)
		tgt, haveTgt := firstQuote(target, side)

		switch {
		case haveTgt && haveCur:
			if !r.tol.keeps(cur.Price, tgt.Price) {
				cancelIDs = append(cancelIDs, cur.ID)
				place = append(place, tgt)
			}
		case haveTgt:
			place = append(place, tgt)
		case haveCur:
			cancelIDs = append(cancelIDs, cur.ID)
		}
	}
	return cancelIDs, place
}

func firstOrder(orders []market.LiveOrder, side market.Side) (market.LiveOrder, bool) {
	for _, o := range orders {
		if o.Side == side {
			return o, true
		}
	}
	return market.LiveOrder{}, false
}

func firstQuote(quotes []market.Quote, side market.Side) (market.Quote, bool) {
	for _, q := range quotes {
		if q.Side == side {
			return q, true
		}
	}
	return market.Quote{}, false
}
