package onion

import (
	"sort"

	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// Bijection is an array-backed relabeling map over the label domain
// 0..N. The fixed law: index 0 always maps to 0, the unclassified
// bucket is never renamed.
type Bijection []int

// NewBijection returns the identity map over 0..n.
func NewBijection(n int) Bijection {
	b := make(Bijection, n+1)
	for i := range b {
		b[i] = i
	}
	return b
}

// Apply rewrites a label matrix through the bijection in one pass,
// producing a new matrix. The input is left untouched.
func (b Bijection) Apply(labels [][]int) [][]int {
	out := make([][]int, len(labels))
	for i, row := range labels {
		out[i] = make([]int, len(row))
		for j, l := range row {
			out[i][j] = b[l]
		}
	}
	return out
}

// RelabelStates drops states that classified nothing, sorts the
// survivors by ascending mean (stable, so ties keep their discovery
// order) and rewrites the label matrix accordingly. Applying it twice
// gives the same result as applying it once.
func RelabelStates(labels [][]int, states []Ot.State) ([][]int, []Ot.State) {
	type indexed struct {
		orig  int
		state Ot.State
	}
	var survivors []indexed
	for i, st := range states {
		if st.Perc != 0 {
			survivors = append(survivors, indexed{orig: i, state: st})
		}
	}
	sort.SliceStable(survivors, func(a, b int) bool {
		return survivors[a].state.Mean < survivors[b].state.Mean
	})

	// Dropped states map to 0; no window can carry their label, since
	// a state with zero relevance never classified anything.
	bij := make(Bijection, len(states)+1)
	sorted := make([]Ot.State, len(survivors))
	for newIdx, s := range survivors {
		bij[s.orig+1] = newIdx + 1
		sorted[newIdx] = s.state
	}

	return bij.Apply(labels), sorted
}
