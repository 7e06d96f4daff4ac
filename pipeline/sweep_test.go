package onion_test

import (
	"testing"

	Oc "github.com/GMPavanLab/timeseries-analysis/cluster"
	Oo "github.com/GMPavanLab/timeseries-analysis/obvy"
	Op "github.com/GMPavanLab/timeseries-analysis/pipeline"
	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// captureRecorder collects everything the sweep reports.
type captureRecorder struct {
	runs []Ot.RunSummary
}

func (c *captureRecorder) RecordRun(rs Ot.RunSummary) {
	c.runs = append(c.runs, rs)
}

func sweepConfig() *Oc.Config {
	cfg := testConfig()
	cfg.MinTauW = 5
	cfg.MaxTauW = 40
	cfg.NumTauW = 4
	cfg.MinTSmooth = 1
	cfg.MaxTSmooth = 3
	cfg.StepTSmooth = 2
	return cfg
}

func TestParamGrid(t *testing.T) {
	t.Run("Window lengths grow geometrically between the bounds", func(t *testing.T) {
		tauWindows, _ := Op.ParamGrid(sweepConfig(), 1000)

		assertInt(t, tauWindows[0], 5)
		assertInt(t, tauWindows[len(tauWindows)-1], 40)
		for i := 1; i < len(tauWindows); i++ {
			if tauWindows[i] <= tauWindows[i-1] {
				t.Errorf("window lengths not strictly increasing: %v", tauWindows)
			}
		}
	})

	t.Run("Duplicate window lengths collapse", func(t *testing.T) {
		cfg := sweepConfig()
		cfg.MinTauW = 2
		cfg.MaxTauW = 4
		cfg.NumTauW = 10

		tauWindows, _ := Op.ParamGrid(cfg, 1000)

		seen := make(map[int]bool)
		for _, tw := range tauWindows {
			if seen[tw] {
				t.Errorf("duplicate window length %d in %v", tw, tauWindows)
			}
			seen[tw] = true
		}
	})

	t.Run("A single point grid keeps the minimum", func(t *testing.T) {
		cfg := sweepConfig()
		cfg.NumTauW = 1

		tauWindows, _ := Op.ParamGrid(cfg, 1000)

		assertInt(t, len(tauWindows), 1)
		assertInt(t, tauWindows[0], 5)
	})

	t.Run("Max of minus one follows the trajectory length", func(t *testing.T) {
		cfg := sweepConfig()
		cfg.MaxTauW = -1

		tauWindows, _ := Op.ParamGrid(cfg, 103)

		assertInt(t, tauWindows[len(tauWindows)-1], 103-cfg.MaxTSmooth)
	})

	t.Run("Smoothing widths step linearly", func(t *testing.T) {
		_, tSmooths := Op.ParamGrid(sweepConfig(), 1000)

		assertInt(t, len(tSmooths), 2)
		assertInt(t, tSmooths[0], 1)
		assertInt(t, tSmooths[1], 3)
	})
}

func TestSweep(t *testing.T) {
	t.Run("Covers the whole grid and reports every cell", func(t *testing.T) {
		raw := bimodalMatrix(10, 200, 0.4)
		cfg := sweepConfig()
		capture := &captureRecorder{}

		results := Op.Sweep(raw, cfg, nil, capture)

		tauWindows, tSmooths := Op.ParamGrid(cfg, 200)
		assertInt(t, len(results), len(tauWindows)*len(tSmooths))
		assertInt(t, len(capture.runs), len(results))
	})

	t.Run("A failing cell records the trivial outcome and the sweep continues", func(t *testing.T) {
		// Windows longer than the series make those cells impossible.
		raw := bimodalMatrix(4, 30, 0.4)
		cfg := sweepConfig()
		cfg.MinTauW = 50
		cfg.MaxTauW = 100
		cfg.NumTauW = 2
		capture := &captureRecorder{}

		results := Op.Sweep(raw, cfg, nil, capture)

		if len(results) == 0 {
			t.Fatal("expected results for every cell")
		}
		for _, rs := range results {
			assertInt(t, rs.NumStates, 1)
			assertFloatNear(t, rs.Unclassified, 1.0, 0)
		}
	})

	t.Run("Feeds the metrics registry", func(t *testing.T) {
		raw := bimodalMatrix(10, 200, 0.4)
		stats := Oo.NewStatsInternal()

		results := Op.Sweep(raw, sweepConfig(), stats)

		if len(results) == 0 {
			t.Fatal("expected sweep results")
		}
	})
}
