package onion

import (
	"sort"

	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// windowMedian returns the median of a window's frame values.
// The median is used instead of the mean because it is more robust
// against outliers inside the window.
func windowMedian(window []float64) float64 {
	scratch := make([]float64, len(window))
	copy(scratch, window)
	sort.Float64s(scratch)
	mid := len(scratch) / 2
	if len(scratch)%2 == 0 {
		return (scratch[mid-1] + scratch[mid]) / 2
	}
	return scratch[mid]
}

// MaxProbAssignment applies a one-step local correction to every
// classified window: when the window median falls below the lower
// threshold of its state the label moves down by one, above the upper
// threshold it moves up by one. The correction is not iterated to a
// fixed point. Relevance fractions are recomputed from the result.
//
// A new label matrix is produced; the input stays untouched.
func MaxProbAssignment(states []Ot.State, m [][]float64, labels [][]int, tauWindow int) ([][]int, []Ot.State) {
	final := make([][]int, len(labels))
	for i, row := range labels {
		final[i] = make([]int, len(row))
		for j, old := range row {
			if old <= 0 {
				continue
			}
			window := m[i][tauWindow*j : tauWindow*(j+1)]
			median := windowMedian(window)
			newLabel := old
			if median < states[old-1].ThInf.Value {
				newLabel--
			} else if median > states[old-1].ThSup.Value {
				newLabel++
			}
			final[i][j] = newLabel
		}
	}
	return final, recomputePerc(states, final)
}
