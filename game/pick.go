package game

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// PickWeighted draws an index with probability proportional to its weight.
// Weights are walked in the given order; ok is false for an empty slice.
func PickWeighted(rng Rand, weights []float64) (int, bool) {
	if len(weights) == 0 {
		return 0, false
	}

	cumulative := make([]float64, len(weights))
	floats.CumSum(cumulative, weights)
	total := cumulative[len(cumulative)-1]

	pick := rng.Float64() * total
	i := sort.SearchFloat64s(cumulative, pick)
	if i >= len(cumulative) {
		i = len(cumulative) - 1
	}
	return i, true
}
