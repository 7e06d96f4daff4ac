package onion_test

import (
	"math"
	"testing"

	Oc "github.com/GMPavanLab/timeseries-analysis/cluster"
)

func TestBuildHistogram(t *testing.T) {
	t.Run("Returns one more edge than counts", func(t *testing.T) {
		hist, err := Oc.BuildHistogram([]float64{0, 1, 2, 3, 4}, 10)

		assertError(t, err, nil)
		assertInt(t, len(hist.Edges), len(hist.Counts)+1)
		assertInt(t, hist.N, 5)
	})

	t.Run("Counts integrate back to the sample count", func(t *testing.T) {
		samples := []float64{0, 0.1, 0.5, 0.5, 0.9, 1.0, 2.2, 3.3}
		hist, err := Oc.BuildHistogram(samples, 7)
		assertError(t, err, nil)

		width := hist.Edges[1] - hist.Edges[0]
		total := 0.0
		for _, c := range hist.Counts {
			total += c * width
		}
		assertFloatNear(t, total, float64(len(samples)), 1e-9)
	})

	t.Run("Widens the range of constant data", func(t *testing.T) {
		hist, err := Oc.BuildHistogram([]float64{3, 3, 3, 3}, 4)

		assertError(t, err, nil)
		assertFloatNear(t, hist.Edges[0], 2.5, 1e-12)
		assertFloatNear(t, hist.Edges[len(hist.Edges)-1], 3.5, 1e-12)
	})

	t.Run("Errors on empty input", func(t *testing.T) {
		_, err := Oc.BuildHistogram(nil, 10)
		assertGotError(t, err)
	})
}

func TestMovingAverage(t *testing.T) {
	t.Run("Valid mode shrinks by window minus one", func(t *testing.T) {
		got := Oc.MovingAverage([]float64{1, 2, 3, 4, 5}, 3)

		assertInt(t, len(got), 3)
		assertFloatNear(t, got[0], 2, 1e-12)
		assertFloatNear(t, got[1], 3, 1e-12)
		assertFloatNear(t, got[2], 4, 1e-12)
	})

	t.Run("Window of one copies the data", func(t *testing.T) {
		data := []float64{1.5, -2.5, 9}
		got := Oc.MovingAverage(data, 1)

		assertInt(t, len(got), len(data))
		for i := range data {
			assertFloatNear(t, got[i], data[i], 0)
		}
	})

	t.Run("Window wider than the data returns nil", func(t *testing.T) {
		if got := Oc.MovingAverage([]float64{1, 2}, 3); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})
}

func TestMovingAverageRows(t *testing.T) {
	m := [][]float64{{1, 2, 3, 4}, {4, 3, 2, 1}}
	got := Oc.MovingAverageRows(m, 3)

	assertInt(t, len(got), 2)
	assertInt(t, len(got[0]), 2)
	assertFloatNear(t, got[0][0], 2, 1e-12)
	assertFloatNear(t, got[1][1], 2, 1e-12)
}

func TestFlatten(t *testing.T) {
	got := Oc.Flatten([][]float64{{1, 2}, {3}, {4, 5}})

	assertInt(t, len(got), 5)
	assertFloatNear(t, got[2], 3, 0)
	assertFloatNear(t, got[4], 5, 0)
}

func TestMatrixRange(t *testing.T) {
	lo, hi := Oc.MatrixRange([][]float64{{1, -7, 3}, {2, 12, 0}})

	assertFloatNear(t, lo, -7, 0)
	assertFloatNear(t, hi, 12, 0)
}

func assertFloatNear(t testing.TB, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		t.Errorf("got %v, want %v (tolerance %v)", got, want, tol)
	}
}
