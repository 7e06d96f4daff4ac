package onion

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	Oc "github.com/GMPavanLab/timeseries-analysis/cluster"
	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// Result is the complete outcome of one clustering configuration.
type Result struct {
	Labels      [][]int
	States      []Ot.State
	Summary     Ot.RunSummary
	FitAttempts int
	FitFailed   bool
}

// Analyze runs the whole pipeline for one configuration: preparation,
// iterative state search, relabeling, overlap merging, max-probability
// reassignment. A run that discovers zero states is still a well-formed
// result: one notional unclassified state covering everything.
//
// All intermediate matrices are local to the call, so nothing survives
// into the next configuration of a sweep.
func Analyze(raw [][]float64, cfg *Oc.Config, rep Oc.Reporter) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	runID := uuid.New().String()

	clean, srange, err := PrepareData(raw, cfg.TSmooth)
	if err != nil {
		return nil, err
	}
	if len(cfg.RangeOverride) == 2 {
		srange[0], srange[1] = cfg.RangeOverride[0], cfg.RangeOverride[1]
	}

	search, err := Oc.IterativeSearch(clean, cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Labels:      search.Labels,
		States:      search.States,
		FitAttempts: search.FitAttempts,
		FitFailed:   search.Outcome == Oc.DoneNoFit,
	}

	if len(search.States) == 0 {
		slog.Info("No possible classification was found",
			slog.Int("TauWindow", cfg.TauWindow),
			slog.Int("TSmooth", cfg.TSmooth))
		res.Summary = newSummary(runID, cfg, 1, 1.0, start)
		return res, nil
	}

	labels, states := Oc.RelabelStates(search.Labels, search.States)

	states, labels, err = Oc.MergeOverlapping(states, labels, srange[0], srange[1], cfg.MaxOverlap, rep)
	if err != nil {
		return nil, err
	}

	labels, states = Oc.MaxProbAssignment(states, clean, labels, cfg.TauWindow)

	res.Labels = labels
	res.States = states
	numStates, unclassified := Oc.Summarize(states, search.OneLastState)
	res.Summary = newSummary(runID, cfg, numStates, unclassified, start)

	slog.Info("Analysis complete",
		slog.String("RunID", runID),
		slog.Int("TauWindow", cfg.TauWindow),
		slog.Int("TSmooth", cfg.TSmooth),
		slog.Int("States", numStates),
		slog.Float64("Unclassified", unclassified))

	return res, nil
}

func newSummary(runID string, cfg *Oc.Config, numStates int, unclassified float64, start time.Time) Ot.RunSummary {
	return Ot.RunSummary{
		RunID:        runID,
		TauWindow:    cfg.TauWindow,
		TSmooth:      cfg.TSmooth,
		NumStates:    numStates,
		Unclassified: unclassified,
		StartTime:    start,
		Duration:     time.Since(start),
	}
}
