package types

/*

	These are the "immutable" core types of the clustering engine,
	provided for cross-package use (e.g. the archive) and testing.

	There are no functions defined here.
	Struct constructors are housed in their own packages.
	Methods taking these types should create local aliases,
	for example: type States []Ot.State

*/

import "time"

// Threshold provenance tags. A boundary either sits on the edge of the
// signal domain, on a true intersection of two Gaussians, or on the
// sigma-weighted average of two means when no intersection exists.
const (
	ThresholdEdge         = 0
	ThresholdIntersection = 1
	ThresholdWeightedMean = 2
)

// Threshold is one boundary of a state, tagged with its provenance.
type Threshold struct {
	Value float64
	Type  int
}

// State is one Gaussian-shaped population in the amplitude distribution,
// representing a recurring regime of the signal.
// Area is the population weight of the component, Peak its density height.
// Perc is the fraction of all windows assigned to the state.
// For a mean-sorted list of states, ThSup of one state and ThInf of the
// next always hold the same value and type.
type State struct {
	Mean  float64
	Sigma float64
	Area  float64
	Peak  float64
	Perc  float64
	ThInf Threshold
	ThSup Threshold
}

// RunSummary is the scalar outcome of one clustering configuration.
// A configuration that finds no states still has a well-formed summary:
// one notional unclassified state covering everything.
type RunSummary struct {
	RunID        string
	TauWindow    int
	TSmooth      int
	NumStates    int
	Unclassified float64
	StartTime    time.Time
	Duration     time.Duration
}

// SweepProgress is the snapshot pushed to websocket clients while a
// parameter sweep is running.
type SweepProgress struct {
	Completed int          `json:"completed"`
	Total     int          `json:"total"`
	Latest    []RunSummary `json:"latest"`
}
