package onion

import (
	"errors"
	"log/slog"

	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// SearchOutcome says how the iterative search terminated.
type SearchOutcome int

const (
	// DoneNoFit: no Gaussian could be fitted over the residual
	// distribution. The states found so far are kept.
	DoneNoFit SearchOutcome = iota
	// DoneNoData: the last fitted state classified nothing further.
	// That state is still kept in the list.
	DoneNoData
)

// SearchResult is the raw product of one iterative search pass,
// before relabeling, merging and reassignment.
type SearchResult struct {
	Labels       [][]int
	States       []Ot.State
	OneLastState bool
	Outcome      SearchOutcome
	FitAttempts  int
}

// IterativeSearch drives the fit engine and the stability classifier in
// a loop over the processed signal matrix. Each round fits one Gaussian
// to the residual distribution (FITTING), then classifies windows of
// the FULL matrix against the new state (STABILIZING). The residual for
// the next round is whatever stayed unclassified.
func IterativeSearch(m [][]float64, cfg *Config) (*SearchResult, error) {
	if cfg.TauWindow <= 0 {
		return nil, errors.New("tau_window must be positive")
	}
	if len(m) == 0 || len(m[0]) < cfg.TauWindow {
		return nil, errors.New("signal matrix shorter than one window")
	}

	numWindows := len(m[0]) / cfg.TauWindow
	labels := make([][]int, len(m))
	for i := range labels {
		labels[i] = make([]int, numWindows)
	}

	res := &SearchResult{Labels: labels}
	residual := m

	for {
		res.FitAttempts++
		state, _, err := GaussFitMax(Flatten(residual), cfg)
		if err != nil {
			slog.Info("Iterations interrupted, unable to fit a Gaussian over the histogram",
				slog.Int("StatesFound", len(res.States)))
			res.Outcome = DoneNoFit
			return res, nil
		}

		remaining, fraction, more := FindStableWindows(m, cfg.TauWindow, state, labels, len(res.States))
		state.Perc = fraction
		res.States = append(res.States, state)
		res.OneLastState = more

		if fraction <= 0 {
			slog.Info("Iterations interrupted, no window assigned to the last state",
				slog.Int("StatesFound", len(res.States)))
			res.Outcome = DoneNoData
			return res, nil
		}
		if !more {
			slog.Info("All windows classified",
				slog.Int("StatesFound", len(res.States)))
			res.Outcome = DoneNoData
			return res, nil
		}
		residual = remaining
	}
}

// Summarize condenses a final state list into the run-level outcome:
// the number of non-trivial states and the fraction left unclassified.
// When the search exited with residual windows still unclassified, that
// residual counts as one extra notional state. Zero states found is a
// well-formed result: one notional unclassified state, fraction 1.0.
func Summarize(states []Ot.State, oneLastState bool) (int, float64) {
	if len(states) == 0 {
		return 1, 1.0
	}
	classified := 0.0
	for _, st := range states {
		classified += st.Perc
	}
	fraction := 1.0 - classified
	if oneLastState {
		return len(states) + 1, fraction
	}
	return len(states), fraction
}
