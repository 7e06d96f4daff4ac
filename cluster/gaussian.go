package onion

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Gaussian evaluates the density convention used throughout:
// area / (sqrt(pi)*sigma) * exp(-((x-mean)/sigma)^2).
// Its integral over the whole real line is exactly area.
func Gaussian(x, mean, sigma, area float64) float64 {
	z := (x - mean) / sigma
	return area / (math.Sqrt(math.Pi) * sigma) * math.Exp(-z*z)
}

// Numerical solver failures on a single candidate interval.
// Both are recovered by the caller, never propagated as a crash.
var (
	ErrFitNonConvergent = errors.New("least-squares did not converge")
	ErrFitDegenerate    = errors.New("degenerate fitting interval")
)

const (
	lmMaxIterations = 200
	lmLambdaInit    = 1e-3
	lmLambdaCeil    = 1e10
	lmCostTol       = 1e-10
)

// fitGaussian runs damped least-squares (Levenberg-Marquardt) of the
// Gaussian density against (xs, ys) starting from p0 = (mean, sigma, area).
// It returns the fitted parameters and their standard errors, scaled by
// the residual variance the way curve-fitting routines conventionally do.
func fitGaussian(xs, ys []float64, p0 [3]float64) (popt, perr [3]float64, err error) {
	n := len(xs)
	if n < 4 || len(ys) != n {
		return popt, perr, ErrFitDegenerate
	}
	if p0[1] == 0 {
		return popt, perr, ErrFitDegenerate
	}
	flat := true
	for _, y := range ys[1:] {
		if y != ys[0] {
			flat = false
			break
		}
	}
	if flat {
		return popt, perr, ErrFitDegenerate
	}

	p := p0
	cost := residualCost(xs, ys, p)
	lambda := lmLambdaInit
	converged := false

	for iter := 0; iter < lmMaxIterations; iter++ {
		jtj, jtr := normalEquations(xs, ys, p)

		// Damp the diagonal, then solve for the step.
		damped := mat.NewDense(3, 3, nil)
		damped.Copy(jtj)
		for k := 0; k < 3; k++ {
			damped.Set(k, k, jtj.At(k, k)*(1+lambda))
		}

		var step mat.VecDense
		if solveErr := step.SolveVec(damped, jtr); solveErr != nil {
			lambda *= 10
			if lambda > lmLambdaCeil {
				return popt, perr, ErrFitNonConvergent
			}
			continue
		}

		trial := [3]float64{
			p[0] + step.AtVec(0),
			p[1] + step.AtVec(1),
			p[2] + step.AtVec(2),
		}
		if trial[1] == 0 || anyNaN(trial[:]) {
			return popt, perr, ErrFitNonConvergent
		}

		trialCost := residualCost(xs, ys, trial)
		if math.IsNaN(trialCost) || math.IsInf(trialCost, 0) {
			return popt, perr, ErrFitNonConvergent
		}

		if trialCost < cost {
			improvement := cost - trialCost
			p = trial
			cost = trialCost
			lambda /= 10
			if lambda < 1e-12 {
				lambda = 1e-12
			}
			if improvement <= lmCostTol*(cost+lmCostTol) {
				converged = true
				break
			}
		} else {
			lambda *= 10
			if lambda > lmLambdaCeil {
				return popt, perr, ErrFitNonConvergent
			}
		}
	}
	if !converged {
		return popt, perr, ErrFitNonConvergent
	}

	// Covariance of the parameters from the unscaled normal equations,
	// multiplied by the residual variance.
	jtj, _ := normalEquations(xs, ys, p)
	var cov mat.Dense
	if invErr := cov.Inverse(jtj); invErr != nil {
		for k := range perr {
			perr[k] = math.Inf(1)
		}
		return p, perr, nil
	}
	s2 := cost / float64(n-3)
	for k := 0; k < 3; k++ {
		perr[k] = math.Sqrt(cov.At(k, k) * s2)
	}
	return p, perr, nil
}

// residualCost is the sum of squared residuals of the model at p.
func residualCost(xs, ys []float64, p [3]float64) float64 {
	var cost float64
	for i, x := range xs {
		r := ys[i] - Gaussian(x, p[0], p[1], p[2])
		cost += r * r
	}
	return cost
}

// normalEquations builds J^T J and J^T r for the current parameters,
// with the analytic Jacobian of the Gaussian density.
func normalEquations(xs, ys []float64, p [3]float64) (*mat.Dense, *mat.VecDense) {
	jtj := mat.NewDense(3, 3, nil)
	jtr := mat.NewVecDense(3, nil)

	mean, sigma, area := p[0], p[1], p[2]
	for i, x := range xs {
		z := (x - mean) / sigma
		base := math.Exp(-z*z) / (math.Sqrt(math.Pi) * sigma)
		f := area * base
		r := ys[i] - f

		j0 := f * 2 * z / sigma
		j1 := f * (2*z*z - 1) / sigma
		j2 := base
		row := [3]float64{j0, j1, j2}

		for a := 0; a < 3; a++ {
			jtr.SetVec(a, jtr.AtVec(a)+row[a]*r)
			for b := 0; b < 3; b++ {
				jtj.Set(a, b, jtj.At(a, b)+row[a]*row[b])
			}
		}
	}
	return jtj, jtr
}

func anyNaN(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
