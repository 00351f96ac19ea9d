package neat

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// clamp restricts a value to a given range [minVal, maxVal].
func clamp(value, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(value, maxVal))
}

// uniform returns a value in [-1, 1).
func uniform(rng *rand.Rand) float64 {
	return rng.Float64()*2 - 1
}

// argmax returns the index of the largest value, preferring the lowest index on ties.
func argmax(values []float64) int {
	if len(values) == 0 {
		return 0
	}
	return floats.MaxIdx(values)
}
