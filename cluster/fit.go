package onion

import (
	"errors"
	"log/slog"
	"math"

	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// ErrNoConvergentState means both candidate intervals of the same fit
// attempt failed. For the iterative search this is the normal way the
// state discovery completes, not a crash.
var ErrNoConvergentState = errors.New("no convergent state in the distribution")

// NewState builds a state from fitted Gaussian parameters.
// Boundaries start at mean +/- nsigma*sigma with a provisional type (-1)
// until the threshold solver finalizes them.
func NewState(mean, sigma, area, nsigma float64) Ot.State {
	return Ot.State{
		Mean:  mean,
		Sigma: sigma,
		Area:  area,
		Peak:  area / (math.Sqrt(math.Pi) * sigma),
		ThInf: Ot.Threshold{Value: mean - nsigma*sigma, Type: -1},
		ThSup: Ot.Threshold{Value: mean + nsigma*sigma, Type: -1},
	}
}

// fitCandidate is the outcome of one fit attempt on one interval.
type fitCandidate struct {
	converged bool
	goodness  int
	mean      float64
	sigma     float64
	area      float64
}

// performFit fits the Gaussian on the histogram slice [id0:id1).
// xs and ys are the smoothed edges and counts; nData rescales the fitted
// area from density to population. Scoring starts at 5 and each failed
// quality check costs one point.
func performFit(id0, id1, maxInd int, xs, ys []float64, nData, gap int, intervalType string) fitCandidate {
	goodness := 5
	selX := xs[id0:id1]
	selY := ys[id0:id1]

	mu0 := xs[maxInd]
	sigma0 := (xs[id1] - xs[id0]) / 2
	area0 := ys[maxInd] * math.Sqrt(math.Pi) * sigma0

	popt, perr, err := fitGaussian(selX, selY, [3]float64{mu0, sigma0, area0})
	if err != nil {
		slog.Warn("Gaussian fit failed",
			slog.String("Interval", intervalType),
			slog.Any("Error", err))
		return fitCandidate{converged: false}
	}

	if popt[1] < 0 {
		popt[1] = -popt[1]
		popt[2] = -popt[2]
	}

	gaussMax := popt[2] * math.Sqrt(math.Pi) * popt[1]
	if gaussMax < area0/2 {
		goodness--
	}
	popt[2] *= float64(nData)
	if popt[0] < selX[0] || popt[0] > selX[len(selX)-1] {
		goodness--
	}
	if popt[1] > selX[len(selX)-1]-selX[0] {
		goodness--
	}
	for j, parErr := range perr {
		if parErr/popt[j] > 0.5 {
			goodness--
		}
	}
	if id1-id0 <= gap {
		goodness--
	}
	if goodness < 0 {
		goodness = 0
	}

	return fitCandidate{
		converged: true,
		goodness:  goodness,
		mean:      popt[0],
		sigma:     popt[1],
		area:      popt[2],
	}
}

// GaussFitMax performs a best-effort single-Gaussian fit around the
// global peak of the pooled amplitude distribution of the samples.
// Two candidate intervals compete: one bounded by the local minima
// around the peak, one bounded by the half-height crossings. The higher
// goodness wins. When neither candidate converges the attempt fails
// with ErrNoConvergentState.
func GaussFitMax(samples []float64, cfg *Config) (Ot.State, int, error) {
	hist, err := BuildHistogram(samples, cfg.Bins)
	if err != nil {
		return Ot.State{}, 0, err
	}

	gap := 1
	if len(hist.Edges) > 50 {
		gap = 3
	}
	if cfg.MinGap > 0 {
		gap = cfg.MinGap
	}

	xs := MovingAverage(hist.Edges, gap)
	ys := MovingAverage(hist.Counts, gap)
	if len(ys) == 0 {
		slog.Warn("Smoothing gap consumed the whole histogram",
			slog.Int("Gap", gap),
			slog.Int("Bins", cfg.Bins))
		return Ot.State{}, 0, ErrNoConvergentState
	}

	maxInd := 0
	for i, y := range ys {
		if y > ys[maxInd] {
			maxInd = i
		}
	}
	maxVal := ys[maxInd]

	// Candidate 1: expand from the peak to the surrounding local minima.
	minID0 := maxInd - gap
	if minID0 < 0 {
		minID0 = 0
	}
	minID1 := maxInd + gap
	if minID1 > len(ys)-1 {
		minID1 = len(ys) - 1
	}
	for minID0 > 0 && ys[minID0] > ys[minID0-1] {
		minID0--
	}
	for minID1 < len(ys)-1 && ys[minID1] > ys[minID1+1] {
		minID1++
	}
	minCand := performFit(minID0, minID1, maxInd, xs, ys, hist.N, gap, "Min")

	// Candidate 2: expand from the peak down to half the peak height.
	halfID0 := maxInd - gap
	if halfID0 < 0 {
		halfID0 = 0
	}
	halfID1 := maxInd + gap
	if halfID1 > len(ys)-1 {
		halfID1 = len(ys) - 1
	}
	for halfID0 > 0 && ys[halfID0] > maxVal/2 {
		halfID0--
	}
	for halfID1 < len(ys)-1 && ys[halfID1] > maxVal/2 {
		halfID1++
	}
	halfCand := performFit(halfID0, halfID1, maxInd, xs, ys, hist.N, gap, "Half")

	var best fitCandidate
	switch {
	case minCand.converged && !halfCand.converged:
		best = minCand
	case !minCand.converged && halfCand.converged:
		best = halfCand
	case minCand.converged && halfCand.converged:
		if minCand.goodness >= halfCand.goodness {
			best = minCand
		} else {
			best = halfCand
		}
	default:
		slog.Warn("Both fit candidates failed, unable to fit a Gaussian over the histogram")
		return Ot.State{}, 0, ErrNoConvergentState
	}

	state := NewState(best.mean, best.sigma, best.area, cfg.SigmaMultiplier)
	slog.Info("Gaussian fit",
		slog.Float64("Mean", state.Mean),
		slog.Float64("Sigma", state.Sigma),
		slog.Float64("Area", state.Area),
		slog.Int("Goodness", best.goodness))

	return state, best.goodness, nil
}
