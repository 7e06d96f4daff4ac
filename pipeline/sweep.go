package onion

import (
	"log/slog"
	"math"

	Oc "github.com/GMPavanLab/timeseries-analysis/cluster"
	Oo "github.com/GMPavanLab/timeseries-analysis/obvy"
	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// RunRecorder receives the summary of every finished configuration.
// The archive, the serving view and any other observer implement it.
type RunRecorder interface {
	RecordRun(Ot.RunSummary)
}

// ParamGrid builds the parameter grids explored by a sweep: window
// lengths spaced geometrically between the configured bounds, and a
// linear range of smoothing widths. A max window of -1 means "up to
// the trajectory length minus the widest smoothing".
func ParamGrid(cfg *Oc.Config, trjLen int) ([]int, []int) {
	maxTauW := cfg.MaxTauW
	if maxTauW == -1 {
		maxTauW = trjLen - cfg.MaxTSmooth
	}

	var tauWindows []int
	if cfg.NumTauW == 1 {
		tauWindows = []int{cfg.MinTauW}
	} else {
		ratio := float64(maxTauW) / float64(cfg.MinTauW)
		for i := 0; i < cfg.NumTauW; i++ {
			v := float64(cfg.MinTauW) * math.Pow(ratio, float64(i)/float64(cfg.NumTauW-1))
			tw := int(v)
			if len(tauWindows) == 0 || tw != tauWindows[len(tauWindows)-1] {
				tauWindows = append(tauWindows, tw)
			}
		}
	}

	var tSmooths []int
	for t := cfg.MinTSmooth; t <= cfg.MaxTSmooth; t += cfg.StepTSmooth {
		tSmooths = append(tSmooths, t)
	}

	return tauWindows, tSmooths
}

// Sweep explores every (window length, smoothing width) combination
// independently. A configuration that finds no states records its
// outcome and the sweep continues; nothing aborts the grid. Each
// configuration works on fresh intermediate matrices.
func Sweep(raw [][]float64, cfg *Oc.Config, stats *Oo.StatsInternal, recorders ...RunRecorder) []Ot.RunSummary {
	tauWindows, tSmooths := ParamGrid(cfg, len(raw[0]))

	slog.Info("Starting parameter sweep",
		slog.Int("Windows", len(tauWindows)),
		slog.Int("Smoothings", len(tSmooths)))

	var results []Ot.RunSummary
	for _, tauW := range tauWindows {
		for _, tS := range tSmooths {
			cell := cfg.WithWindow(tauW, tS)
			res, err := Analyze(raw, cell, nil)

			var summary Ot.RunSummary
			if err != nil {
				// This cell cannot run (window longer than the series,
				// smoothing wider than the frames). Record the trivial
				// outcome and keep sweeping.
				slog.Warn("Sweep cell failed",
					slog.Int("TauWindow", tauW),
					slog.Int("TSmooth", tS),
					slog.Any("Error", err))
				summary = Ot.RunSummary{TauWindow: tauW, TSmooth: tS, NumStates: 1, Unclassified: 1.0}
			} else {
				summary = res.Summary
				if stats != nil {
					stats.RecFits(res.FitAttempts, res.FitFailed)
				}
			}

			if stats != nil {
				stats.RecRun(summary.NumStates, summary.Unclassified)
			}
			for _, rec := range recorders {
				rec.RecordRun(summary)
			}
			results = append(results, summary)
		}
	}

	slog.Info("Parameter sweep finished", slog.Int("Runs", len(results)))
	return results
}
