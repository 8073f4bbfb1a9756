package position

import "math"

// SharpeRatio computes the mean-over-stddev ratio of per-event realized-PnL
// deltas. Returns 0 for fewer than two events or a flat series.
func SharpeRatio(history []PnLPoint) float64 {
	if len(history) < 2 {
		return 0
	}
	deltas := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		deltas = append(deltas, history[i].RealizedPnL-history[i-1].RealizedPnL)
	}
	var sum float64
	for _, d := range deltas {
		sum += d
	}
	mean := sum / float64(len(deltas))
	var variance float64
	for _, d := range deltas {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(deltas))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std
}
