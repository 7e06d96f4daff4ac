package onion

import (
	"math"

	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// FindIntersection computes the boundary between two states ordered by
// mean (st0.Mean < st1.Mean).
//
// Equal sigmas give a single crossing in closed form. Otherwise the
// quadratic from equating the log-densities is solved; of the two real
// roots the one with the higher density is the boundary. When no real
// crossing exists, the sigma-weighted average of the two means serves
// as a fallback.
func FindIntersection(st0, st1 Ot.State) Ot.Threshold {
	coeffA := st1.Sigma*st1.Sigma - st0.Sigma*st0.Sigma
	coeffB := -2 * (st0.Mean*st1.Sigma*st1.Sigma - st1.Mean*st0.Sigma*st0.Sigma)
	logTerm := math.Log(st0.Area * st1.Sigma / (st1.Area * st0.Sigma))
	coeffC := (st0.Mean*st1.Sigma)*(st0.Mean*st1.Sigma) -
		(st1.Mean*st0.Sigma)*(st1.Mean*st0.Sigma) -
		(st0.Sigma*st1.Sigma)*(st0.Sigma*st1.Sigma)*logTerm

	if coeffA == 0 {
		only := (st0.Mean+st1.Mean)/2 -
			st0.Sigma*st0.Sigma/(2*(st1.Mean-st0.Mean))*math.Log(st0.Area/st1.Area)
		return Ot.Threshold{Value: only, Type: Ot.ThresholdIntersection}
	}

	delta := coeffB*coeffB - 4*coeffA*coeffC
	if delta >= 0 {
		thPlus := (-coeffB + math.Sqrt(delta)) / (2 * coeffA)
		thMinus := (-coeffB - math.Sqrt(delta)) / (2 * coeffA)
		heightPlus := Gaussian(thPlus, st0.Mean, st0.Sigma, st0.Area)
		heightMinus := Gaussian(thMinus, st0.Mean, st0.Sigma, st0.Area)
		if heightPlus >= heightMinus {
			return Ot.Threshold{Value: thPlus, Type: Ot.ThresholdIntersection}
		}
		return Ot.Threshold{Value: thMinus, Type: Ot.ThresholdIntersection}
	}

	aver := (st0.Mean/st0.Sigma + st1.Mean/st1.Sigma) /
		(1/st0.Sigma + 1/st1.Sigma)
	return Ot.Threshold{Value: aver, Type: Ot.ThresholdWeightedMean}
}

// SetThresholds finalizes all boundaries over a mean-sorted state list.
// Adjacent states always share the same boundary value and type; the
// first lower and last upper thresholds sit on the global data range.
func SetThresholds(states []Ot.State, sigMin, sigMax float64) []Ot.State {
	if len(states) == 0 {
		return states
	}
	states[0].ThInf = Ot.Threshold{Value: sigMin, Type: Ot.ThresholdEdge}
	for i := 0; i < len(states)-1; i++ {
		th := FindIntersection(states[i], states[i+1])
		states[i].ThSup = th
		states[i+1].ThInf = th
	}
	states[len(states)-1].ThSup = Ot.Threshold{Value: sigMax, Type: Ot.ThresholdEdge}
	return states
}
