package onion

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

// Histogram is a density histogram rescaled to absolute counts,
// so that Counts integrates back to the number of samples binned.
// Edges always holds one more element than Counts.
type Histogram struct {
	Edges  []float64
	Counts []float64
	N      int
}

// BuildHistogram bins a flat sample array into an equal-width density
// histogram over [min, max] of the data. A constant sample array gets
// the degenerate range widened by half a unit on each side so binning
// stays well defined.
func BuildHistogram(samples []float64, bins int) (*Histogram, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples to bin")
	}
	if bins < 1 {
		return nil, errors.New("need at least one bin")
	}

	lo := floats.Min(samples)
	hi := floats.Max(samples)
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	width := (hi - lo) / float64(bins)

	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	raw := make([]float64, bins)
	for _, v := range samples {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		raw[idx]++
	}

	// Density normalization followed by the rescale to absolute counts
	// leaves each bin holding count/width.
	counts := make([]float64, bins)
	for i, c := range raw {
		counts[i] = c / width
	}

	return &Histogram{Edges: edges, Counts: counts, N: len(samples)}, nil
}

// MovingAverage smooths data with a flat kernel of the given width,
// in "valid" mode: the result is shorter by window-1 elements.
// A window of 1 returns a copy.
func MovingAverage(data []float64, window int) []float64 {
	if window < 1 || window > len(data) {
		return nil
	}
	out := make([]float64, len(data)-window+1)
	sum := floats.Sum(data[:window])
	out[0] = sum / float64(window)
	for i := 1; i < len(out); i++ {
		sum += data[i+window-1] - data[i-1]
		out[i] = sum / float64(window)
	}
	return out
}

// MovingAverageRows applies MovingAverage to every row of a matrix,
// producing a new matrix. Rows shrink by window-1 frames.
func MovingAverageRows(m [][]float64, window int) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = MovingAverage(row, window)
	}
	return out
}

// Flatten concatenates the rows of a matrix into one sample array.
func Flatten(m [][]float64) []float64 {
	size := 0
	for _, row := range m {
		size += len(row)
	}
	flat := make([]float64, 0, size)
	for _, row := range m {
		flat = append(flat, row...)
	}
	return flat
}

// MatrixRange returns the global minimum and maximum of a matrix.
func MatrixRange(m [][]float64) (lo, hi float64) {
	first := true
	for _, row := range m {
		if len(row) == 0 {
			continue
		}
		rlo := floats.Min(row)
		rhi := floats.Max(row)
		if first {
			lo, hi = rlo, rhi
			first = false
			continue
		}
		if rlo < lo {
			lo = rlo
		}
		if rhi > hi {
			hi = rhi
		}
	}
	return lo, hi
}
