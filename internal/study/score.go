package study

// MinHistoryLength is the number of outcomes needed before a history can
// reach full confidence. Shorter histories are scaled down.
const MinHistoryLength = 6

// HistoryScore computes a recall confidence in [0, 1] from a most-recent-first
// outcome history.
//
// Each failure at index i subtracts 0.5/(i+2), so recent failures weigh more
// than old ones. Histories shorter than MinHistoryLength are divided by
// (MinHistoryLength - len + 1). Long failure streaks can push the raw value
// below zero; the result is clamped.
func HistoryScore(history []bool) float64 {
	if len(history) == 0 {
		return 0
	}

	score := 1.0
	for i, passed := range history {
		if !passed {
			score -= 0.5 / float64(i+2)
		}
	}

	if len(history) < MinHistoryLength {
		score /= float64(MinHistoryLength - len(history) + 1)
	}

	return clamp(score, 0, 1)
}

// NextHistoryScore previews the score the history would have after one more
// outcome, without modifying it.
func NextHistoryScore(history []bool, outcome bool, maxSize int) float64 {
	return HistoryScore(PushHistory(history, outcome, maxSize))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
