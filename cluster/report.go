package onion

import (
	"fmt"
	"io"

	Ot "github.com/GMPavanLab/timeseries-analysis/types"
)

// Reporter receives the final state list once merging has settled.
// Persistence is the reporter's business, the shape is fixed here.
type Reporter interface {
	Report(states []Ot.State) error
}

// TextReporter writes the persisted text report: one line per state as
// "mean, sigma, area, relevance", then one line per threshold boundary
// as "value, type", with the final upper boundary emitted once at the
// end.
type TextReporter struct {
	W io.Writer
}

func (tr *TextReporter) Report(states []Ot.State) error {
	if _, err := fmt.Fprintln(tr.W, "# mean, sigma, area, relevance"); err != nil {
		return err
	}
	for _, st := range states {
		_, err := fmt.Fprintf(tr.W, "%v, %v, %v, %v\n", st.Mean, st.Sigma, st.Area, st.Perc)
		if err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(tr.W, "# value, type"); err != nil {
		return err
	}
	for _, st := range states {
		if _, err := fmt.Fprintf(tr.W, "%v, %v\n", st.ThInf.Value, st.ThInf.Type); err != nil {
			return err
		}
	}
	if len(states) > 0 {
		last := states[len(states)-1]
		if _, err := fmt.Fprintf(tr.W, "%v, %v\n", last.ThSup.Value, last.ThSup.Type); err != nil {
			return err
		}
	}
	return nil
}
