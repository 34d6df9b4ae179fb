package trace

import "github.com/outbreak-sim/outbreak-sim/sim"

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalRecords      int
	Events            int
	Infections        int
	PrimaryInfections int
	Recoveries        int
	NoTransmissions   int
	NotSusceptible    int // subset of NoTransmissions
	Growths           int
	LastClock         float64
	LayerInfections   map[int]int // layer → transmitted infections
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		LayerInfections: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalRecords = len(st.Records)
	for _, r := range st.Records {
		if r.Clock > summary.LastClock {
			summary.LastClock = r.Clock
		}
		switch r.Kind {
		case KindEvent:
			summary.Events++
		case KindInfection:
			summary.Infections++
			if r.Source < 0 {
				summary.PrimaryInfections++
			} else {
				summary.LayerInfections[r.Layer]++
			}
		case KindRecovery:
			summary.Recoveries++
		case KindNoTransmission:
			summary.NoTransmissions++
			if r.Detail == string(sim.ReasonNotSusceptible) {
				summary.NotSusceptible++
			}
		case KindGrowth:
			summary.Growths++
		}
	}
	return summary
}
