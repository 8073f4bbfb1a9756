package market

import "github.com/shopspring/decimal"

// FloorToTick floors a price to an exact multiple of the venue tick size.
// Decimal arithmetic avoids the float drift a naive Mod would accumulate on
// ticks like 0.0000001.
func FloorToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)
	return p.Div(t).Floor().Mul(t).InexactFloat64()
}

// FloorToStep floors a quantity to an exact multiple of the venue step size.
func FloorToStep(quantity, step float64) float64 {
	if step <= 0 {
		return quantity
	}
	q := decimal.NewFromFloat(quantity)
	s := decimal.NewFromFloat(step)
	return q.Div(s).Floor().Mul(s).InexactFloat64()
}

// AdaptiveTick picks a default tick size scaled to the price magnitude, for
// venues that do not advertise one. Higher-priced instruments get coarser
// ticks.
func AdaptiveTick(mid float64) float64 {
	switch {
	case mid < 0.0001:
		return 0.00000001
	case mid < 0.01:
		return 0.0000001
	case mid < 1:
		return 0.000001
	case mid < 100:
		return 0.0001
	default:
		return 0.01
	}
}
