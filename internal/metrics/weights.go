package metrics

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned when a weight table is not usable for the
// configured number of proficiency levels.
var ErrInvalidWeights = errors.New("metrics: invalid proficiency weights")

// Weights maps a proficiency level (the index) to how much a card at that
// level counts toward overall progress.
type Weights []float64

// DefaultWeights returns the progress weights for levels 0..levels: new and
// level-1 cards count 0, and each level from 2 upward counts half of the
// next, ending at 1.0 for the top level (0, 0, 0.25, 0.5, 1 for 4 levels).
func DefaultWeights(levels int) Weights {
	w := make(Weights, levels+1)
	for l := 2; l <= levels; l++ {
		w[l] = 1 / math.Pow(2, float64(levels-l))
	}
	return w
}

// WeightsFromMap builds a weight table from a level-keyed map, as found in
// configuration files. Every level 0..levels must be present.
func WeightsFromMap(levels int, m map[int]float64) (Weights, error) {
	w := make(Weights, levels+1)
	for l := 0; l <= levels; l++ {
		v, ok := m[l]
		if !ok {
			return nil, fmt.Errorf("%w: no weight for level %d", ErrInvalidWeights, l)
		}
		w[l] = v
	}
	return w, w.Validate(levels)
}

// Validate checks that the table covers 0..levels, stays within [0, 1] and
// never decreases as the level rises.
func (w Weights) Validate(levels int) error {
	if len(w) != levels+1 {
		return fmt.Errorf("%w: have %d weights, want %d", ErrInvalidWeights, len(w), levels+1)
	}
	for l, v := range w {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: weight %v for level %d outside [0, 1]", ErrInvalidWeights, v, l)
		}
		if l > 0 && v < w[l-1] {
			return fmt.Errorf("%w: weight for level %d is lower than level %d", ErrInvalidWeights, l, l-1)
		}
	}
	return nil
}
