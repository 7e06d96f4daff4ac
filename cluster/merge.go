package onion

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate/quad"

	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

const sharedMassNodes = 256

// SharedGaussianMass computes the probability mass two states have in
// common: the integral of the pointwise minimum of the two densities,
// normalized by each state's own area.
func SharedGaussianMass(st0, st1 Ot.State) (frac0, frac1 float64) {
	lo := math.Min(st0.Mean-10*st0.Sigma, st1.Mean-10*st1.Sigma)
	hi := math.Max(st0.Mean+10*st0.Sigma, st1.Mean+10*st1.Sigma)
	shared := quad.Fixed(func(x float64) float64 {
		return math.Min(
			Gaussian(x, st0.Mean, st0.Sigma, st0.Area),
			Gaussian(x, st1.Mean, st1.Sigma, st1.Area),
		)
	}, lo, hi, sharedMassNodes, nil, 0)
	return shared / st0.Area, shared / st1.Area
}

// mergePair proposes merging state source into state target.
type mergePair struct {
	source int
	target int
}

// proposeMerges collects every candidate merge over the ordered pairs.
// The overlap rule is always evaluated first and fully; the secondary
// peak/mean-proximity rule is consulted only when neither overlap
// fraction clears the threshold.
func proposeMerges(states []Ot.State, maxOverlap float64) []mergePair {
	var proposed []mergePair
	for i, st0 := range states {
		for j := i + 1; j < len(states); j++ {
			st1 := states[j]
			shared1, shared0 := SharedGaussianMass(st1, st0)
			switch {
			case shared1 > maxOverlap && shared0 <= maxOverlap:
				proposed = append(proposed, mergePair{source: j, target: i})
			case shared0 > maxOverlap && shared1 <= maxOverlap:
				proposed = append(proposed, mergePair{source: i, target: j})
			case shared1 > maxOverlap && shared0 > maxOverlap:
				if shared1 > shared0 {
					proposed = append(proposed, mergePair{source: j, target: i})
				} else {
					proposed = append(proposed, mergePair{source: i, target: j})
				}
			case st0.Peak > st1.Peak &&
				math.Abs(st0.Mean-st1.Mean) < st0.Sigma/math.Sqrt2 &&
				st1.Sigma < 2*st0.Sigma:
				proposed = append(proposed, mergePair{source: j, target: i})
			case st1.Peak > st0.Peak &&
				math.Abs(st0.Mean-st1.Mean) < st1.Sigma/math.Sqrt2 &&
				st0.Sigma < 2*st1.Sigma:
				proposed = append(proposed, mergePair{source: i, target: j})
			}
		}
	}
	return proposed
}

// bestMerges keeps at most one merge target per source. When several
// candidates exist for the same source, the target with the closest
// mean wins. Merge chains are then resolved: if A goes into B and B
// goes into C, A is rewritten to go into C (one transitive pass).
func bestMerges(states []Ot.State, proposed []mergePair) []mergePair {
	sources := make(map[int]bool)
	var order []int
	for _, p := range proposed {
		if !sources[p.source] {
			sources[p.source] = true
			order = append(order, p.source)
		}
	}
	sort.Ints(order)

	var best []mergePair
	for _, src := range order {
		var candidates []mergePair
		for _, p := range proposed {
			if p.source == src {
				candidates = append(candidates, p)
			}
		}
		pick := candidates[0]
		for _, c := range candidates[1:] {
			dPick := math.Abs(states[pick.target].Mean - states[pick.source].Mean)
			dCand := math.Abs(states[c.target].Mean - states[c.source].Mean)
			if dCand < dPick {
				pick = c
			}
		}
		best = append(best, pick)
	}

	// Settle merging chains
	for _, p := range best {
		for k := range best {
			if best[k].target == p.source {
				best[k].target = p.target
			}
		}
	}
	return best
}

// MergeOverlapping detects statistically redundant states, merges them,
// rewrites the label matrix, recomputes relevances and thresholds, and
// emits the final report through the reporter (when one is given).
//
// States whose relevance drops to zero are filtered BEFORE thresholds
// are recomputed, so no zero-population state can carry boundaries.
func MergeOverlapping(states []Ot.State, labels [][]int, sigMin, sigMax, maxOverlap float64, rep Reporter) ([]Ot.State, [][]int, error) {
	if len(states) == 0 {
		return states, labels, nil
	}

	best := bestMerges(states, proposeMerges(states, maxOverlap))

	// Rewrite merged sources into their targets. The unclassified
	// bucket is never remapped.
	bij := NewBijection(len(states))
	for _, p := range best {
		bij[p.source+1] = p.target + 1
	}
	merged := bij.Apply(labels)

	// Compress any gaps in the id space into a dense, contiguous range.
	merged = compressLabels(merged)

	removed := make(map[int]bool)
	for _, p := range best {
		removed[p.source] = true
	}
	var survivors []Ot.State
	for i, st := range states {
		if !removed[i] {
			survivors = append(survivors, st)
		}
	}

	// Relevance from the final label matrix.
	survivors = recomputePerc(survivors, merged)

	// Drop ghosts, then finalize boundaries over the mean-sorted list.
	merged, survivors = RelabelStates(merged, survivors)
	survivors = SetThresholds(survivors, sigMin, sigMax)

	if rep != nil {
		if err := rep.Report(survivors); err != nil {
			return survivors, merged, err
		}
	}
	return survivors, merged, nil
}

// compressLabels maps the labels present in the matrix onto a dense
// range. Zero stays zero whenever it is present.
func compressLabels(labels [][]int) [][]int {
	present := make(map[int]bool)
	maxLabel := 0
	for _, row := range labels {
		for _, l := range row {
			present[l] = true
			if l > maxLabel {
				maxLabel = l
			}
		}
	}
	uniq := make([]int, 0, len(present))
	for l := range present {
		uniq = append(uniq, l)
	}
	sort.Ints(uniq)

	dense := make(Bijection, maxLabel+1)
	next := 0
	if !present[0] {
		next = 1
	}
	for _, l := range uniq {
		dense[l] = next
		next++
	}
	return dense.Apply(labels)
}

// recomputePerc refreshes each state's relevance fraction from the
// label matrix, state i carrying label i+1.
func recomputePerc(states []Ot.State, labels [][]int) []Ot.State {
	total := 0
	counts := make([]int, len(states)+1)
	for _, row := range labels {
		total += len(row)
		for _, l := range row {
			if l > 0 && l <= len(states) {
				counts[l]++
			}
		}
	}
	if total == 0 {
		return states
	}
	for i := range states {
		states[i].Perc = float64(counts[i+1]) / float64(total)
	}
	return states
}
