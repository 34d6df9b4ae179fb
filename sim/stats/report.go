package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/outbreak-sim/outbreak-sim/sim"
)

// GenerationMoments returns the mean and standard deviation of the number of
// infections generated per ended individual, from the NGenInfs histogram.
func (st *Standard) GenerationMoments() (mean, stddev float64) {
	if st.NEnded == 0 {
		return 0, 0
	}
	x := make([]float64, len(st.NGenInfs))
	w := make([]float64, len(st.NGenInfs))
	for k, n := range st.NGenInfs {
		x[k] = float64(k)
		w[k] = float64(n)
	}
	mean, variance := stat.MeanVariance(x, w)
	if st.NEnded < 2 {
		return mean, 0
	}
	return mean, math.Sqrt(variance)
}

// Print writes a plain-text report of the path.
func (st *Standard) Print(w io.Writer) error {
	var sb strings.Builder
	if !st.finalized {
		sb.WriteString("warning: path not finalized\n")
	}
	fmt.Fprintf(&sb, "infections:        %d (%d primary)\n", st.Infections, st.PrimaryInfections)
	fmt.Fprintf(&sb, "attempts:          %d (%d without transmission, %d to non-susceptibles)\n",
		st.Attempts, st.NoTransmissions, st.NotSusceptible)
	if st.Interrupted > 0 {
		fmt.Fprintf(&sb, "interrupted:       %d\n", st.Interrupted)
	}
	fmt.Fprintf(&sb, "ended by tmax:     %d\n", st.NEnded)
	mean, sd := st.GenerationMoments()
	fmt.Fprintf(&sb, "R (mean, stddev):  %.4f, %.4f\n", mean, sd)
	fmt.Fprintf(&sb, "mean comm period:  %.4f\n", st.MeanCommPeriod())
	if st.Extinction {
		fmt.Fprintf(&sb, "extinction:        yes, at %.4f\n", st.ExtinctionTime)
	} else {
		sb.WriteString("extinction:        no\n")
	}
	if st.MaxedOut() {
		fmt.Fprintf(&sb, "maxed out:         bin %d exceeded nimax=%d\n", st.MaxedOutMinTimeIndex, st.NIMax)
	}
	if st.Growths > 0 {
		fmt.Fprintf(&sb, "growth steps:      %d\n", st.Growths)
	}
	for l, n := range st.LayerInfections {
		fmt.Fprintf(&sb, "layer %d infections: %d\n", l, n)
	}
	sb.WriteString("ngeninfs:         ")
	writeInts(&sb, st.NGenInfs)
	sb.WriteString("new infections:   ")
	writeInts(&sb, st.NewInfTimeline)
	sb.WriteString("new alternate:    ")
	writeInts(&sb, st.NewAltTimeline)
	sb.WriteString("infected:         ")
	writeInts(&sb, st.InfTimeline)

	kinds := make([]string, 0, len(st.EventsByKind))
	for k := range st.EventsByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&sb, "events %-16s %d\n", k+":", st.EventsByKind[sim.EventKind(k)])
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeInts(sb *strings.Builder, v []int) {
	for i, n := range v {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(sb, "%d", n)
	}
	sb.WriteByte('\n')
}
