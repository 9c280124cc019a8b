package selection

import (
	"math"

	"gamepicker/internal/model"
)

// Weight scores an item from its counters. Items never picked score 1.0;
// skips push the score up and plays push it down. The result is always > 0.
func Weight(c model.Counters) float64 {
	picks := clamp(c.Picks)
	if picks == 0 {
		return 1.0
	}
	skipped := float64(clamp(c.Skipped))
	played := float64(clamp(c.Played))

	skipBoost := 1 + skipped/float64(picks)
	playPenalty := 1 / (1 + played)
	w := skipBoost * playPenalty
	if math.IsNaN(w) || w <= 0 {
		return math.SmallestNonzeroFloat64
	}
	return w
}

func clamp(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
