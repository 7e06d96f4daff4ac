package onion_test

import (
	"math/rand"
	"testing"

	Oc "github.com/GMPavanLab/timeseries-analysis/cluster"
	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// twoPopulationMatrix builds a matrix where half the entities oscillate
// around one level and half around another, far enough apart that the
// two populations can never be confused.
func twoPopulationMatrix(entities, frames int, loMean, hiMean, noise float64) [][]float64 {
	rng := rand.New(rand.NewSource(99))
	m := make([][]float64, entities)
	for i := range m {
		center := loMean
		if i >= entities/2 {
			center = hiMean
		}
		row := make([]float64, frames)
		for j := range row {
			row[j] = center + noise*rng.NormFloat64()
		}
		m[i] = row
	}
	return m
}

func TestIterativeSearch(t *testing.T) {
	cfg := &Oc.Config{TauWindow: 10, TSmooth: 1, Bins: 50, MaxOverlap: 0.8, SigmaMultiplier: 2.0}

	t.Run("Finds both populations of a bimodal signal", func(t *testing.T) {
		m := twoPopulationMatrix(20, 1000, 0, 10, 0.4)

		res, err := Oc.IterativeSearch(m, cfg)

		assertError(t, err, nil)
		if len(res.States) < 2 {
			t.Fatalf("expected at least 2 states, got %d", len(res.States))
		}
		foundLo, foundHi := false, false
		for _, st := range res.States {
			if almostWithin(st.Mean, 0, 1) {
				foundLo = true
			}
			if almostWithin(st.Mean, 10, 1) {
				foundHi = true
			}
		}
		if !foundLo || !foundHi {
			t.Errorf("missing a population, state means: %v", stateMeans(res.States))
		}
	})

	t.Run("Every kept state classified something", func(t *testing.T) {
		m := twoPopulationMatrix(20, 1000, 0, 10, 0.4)

		res, err := Oc.IterativeSearch(m, cfg)

		assertError(t, err, nil)
		if len(res.States) == 0 {
			t.Fatal("expected states to be found")
		}
		// The last state may be the one that ended the search empty.
		for i, st := range res.States[:len(res.States)-1] {
			if st.Perc <= 0 {
				t.Errorf("state %d carries no windows", i)
			}
		}
	})

	t.Run("Labels stay within the discovered states", func(t *testing.T) {
		m := twoPopulationMatrix(20, 1000, 0, 10, 0.4)

		res, err := Oc.IterativeSearch(m, cfg)
		assertError(t, err, nil)

		for _, row := range res.Labels {
			for _, l := range row {
				if l < 0 || l > len(res.States) {
					t.Fatalf("label %d outside 0..%d", l, len(res.States))
				}
			}
		}
	})

	t.Run("Errors on a matrix shorter than one window", func(t *testing.T) {
		_, err := Oc.IterativeSearch([][]float64{{1, 2, 3}}, cfg)
		assertGotError(t, err)
	})

	t.Run("Errors on a non-positive window", func(t *testing.T) {
		bad := *cfg
		bad.TauWindow = 0
		_, err := Oc.IterativeSearch([][]float64{{1, 2, 3}}, &bad)
		assertGotError(t, err)
	})
}

func TestSummarize(t *testing.T) {
	t.Run("No states means one notional unclassified state", func(t *testing.T) {
		numStates, unclassified := Oc.Summarize(nil, false)

		assertInt(t, numStates, 1)
		assertFloatNear(t, unclassified, 1.0, 0)
	})

	t.Run("Residual windows count as one extra state", func(t *testing.T) {
		states := []Ot.State{{Perc: 0.5}, {Perc: 0.3}}

		numStates, unclassified := Oc.Summarize(states, true)

		assertInt(t, numStates, 3)
		assertFloatNear(t, unclassified, 0.2, 1e-12)
	})

	t.Run("Fully classified runs report their states only", func(t *testing.T) {
		states := []Ot.State{{Perc: 0.6}, {Perc: 0.4}}

		numStates, unclassified := Oc.Summarize(states, false)

		assertInt(t, numStates, 2)
		assertFloatNear(t, unclassified, 0, 1e-12)
	})
}

func almostWithin(got, want, tol float64) bool {
	d := got - want
	return d >= -tol && d <= tol
}

func stateMeans(states []Ot.State) []float64 {
	means := make([]float64, len(states))
	for i, st := range states {
		means[i] = st.Mean
	}
	return means
}
