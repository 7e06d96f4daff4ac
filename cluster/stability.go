package onion

import (
	"log/slog"

	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// FindStableWindows marks the windows that are stable inside the given
// state. A window qualifies only if it is still unclassified AND both
// its minimum and its maximum lie within [ThInf, ThSup] of the state:
// partial or mean-based membership never counts.
//
// The label matrix is the exclusive property of the running search and
// is updated in place; windows that qualify get the label offset+1.
// Already-classified windows are never touched, so a nonzero label can
// never revert to zero within one search pass.
//
// Returned are the still-unclassified windows, collected as independent
// rows of tauWindow frames for the next fit iteration, the fraction of
// all windows newly classified, and whether any unclassified windows
// remain.
func FindStableWindows(m [][]float64, tauWindow int, state Ot.State, labels [][]int, offset int) ([][]float64, float64, bool) {
	numWindows := 0
	if len(labels) > 0 {
		numWindows = len(labels[0])
	}

	counter := 0
	var remaining [][]float64

	for i, row := range m {
		for w := 0; w < numWindows; w++ {
			if labels[i][w] != 0 {
				continue
			}
			win := row[w*tauWindow : (w+1)*tauWindow]
			lo, hi := win[0], win[0]
			for _, v := range win[1:] {
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
			if lo >= state.ThInf.Value && hi <= state.ThSup.Value {
				labels[i][w] = offset + 1
				counter++
			} else {
				remaining = append(remaining, win)
			}
		}
	}

	total := len(labels) * numWindows
	fraction := 0.0
	if total > 0 {
		fraction = float64(counter) / float64(total)
	}

	slog.Info("Stable windows found",
		slog.Int("State", offset+1),
		slog.Float64("Fraction", fraction))

	return remaining, fraction, len(remaining) > 0
}
