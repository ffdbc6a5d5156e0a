package projection

import (
	"fmt"

	"github.com/soundprediction/cartograph/pkg/types"
)

// NormalizeToRange rescales coordinates in place so that, per axis, the
// minimum and maximum across all points map onto [rangeMin, rangeMax].
// An axis on which every point shares the same value maps to the midpoint
// of the target range.
func NormalizeToRange(coords [][]float64, rangeMin, rangeMax float64) {
	if len(coords) == 0 {
		return
	}
	dims := len(coords[0])
	mid := (rangeMin + rangeMax) / 2

	for d := 0; d < dims; d++ {
		minVal, maxVal := coords[0][d], coords[0][d]
		for _, c := range coords[1:] {
			if c[d] < minVal {
				minVal = c[d]
			}
			if c[d] > maxVal {
				maxVal = c[d]
			}
		}

		span := maxVal - minVal
		if span == 0 {
			for _, c := range coords {
				c[d] = mid
			}
			continue
		}
		scale := (rangeMax - rangeMin) / span
		for _, c := range coords {
			c[d] = rangeMin + (c[d]-minVal)*scale
		}
	}
}

// ZipByID associates coordinate tuples back to node identifiers,
// preserving the identifier ordering supplied by the caller. The two
// slices must have equal length.
func ZipByID(ids []string, coords [][]float64) (map[string][]float64, error) {
	if len(ids) != len(coords) {
		return nil, fmt.Errorf("%w: %d ids for %d coordinate tuples",
			types.ErrDimensionMismatch, len(ids), len(coords))
	}
	out := make(map[string][]float64, len(ids))
	for i, id := range ids {
		out[id] = coords[i]
	}
	return out, nil
}
