package trace

import (
	"fmt"

	"github.com/outbreak-sim/outbreak-sim/sim"
)

// TraceLevel controls the verbosity of tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelOutcomes captures infections, recoveries, failed attempts and growth.
	TraceLevelOutcomes TraceLevel = "outcomes"
	// TraceLevelEvents additionally captures every popped event.
	TraceLevelEvents TraceLevel = "events"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:     true,
	TraceLevelOutcomes: true,
	TraceLevelEvents:   true,
	"":                 true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects records during a simulation.
type SimulationTrace struct {
	Config  TraceConfig
	Records []Record
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:  config,
		Records: make([]Record, 0),
	}
}

// Record appends a record.
func (st *SimulationTrace) Record(r Record) {
	st.Records = append(st.Records, r)
}

// Processors returns the callbacks that fill st. At TraceLevelNone (or "")
// the bundle is empty.
func (st *SimulationTrace) Processors() sim.Processors {
	switch st.Config.Level {
	case TraceLevelNone, "":
		return sim.Processors{}
	}
	p := sim.Processors{
		NewInfection: func(v sim.View, i sim.InfectionInfo) {
			st.Record(Record{
				Kind:    KindInfection,
				Clock:   v.Clock(),
				Subject: i.Subject,
				Source:  i.Source,
				Layer:   i.Layer,
				Detail:  fmt.Sprintf("gen=%d latent=%.6g comm=%.6g period=%s interrupted=%t attempts=%d", i.Generation, i.LatentPeriod, i.CommPeriod, i.PeriodKind, i.Interrupted, i.Attempts),
			})
		},
		EndInfection: func(v sim.View, ind sim.Individual) {
			st.Record(Record{
				Kind:    KindRecovery,
				Clock:   v.Clock(),
				Subject: ind.ID,
				Source:  ind.Source,
				Layer:   ind.Layer,
				Detail:  fmt.Sprintf("infections=%d attempts=%d", ind.Infections, ind.Attempts),
			})
		},
		NoEvent: func(v sim.View, a sim.AttemptInfo) {
			st.Record(Record{
				Kind:    KindNoTransmission,
				Clock:   v.Clock(),
				Subject: a.Target,
				Source:  a.Source,
				Layer:   a.Layer,
				Detail:  string(a.Reason),
			})
		},
		IncreaseLayers: func(v sim.View, g sim.GrowthInfo) {
			st.Record(Record{
				Kind:    KindGrowth,
				Clock:   v.Clock(),
				Subject: -1,
				Source:  -1,
				Layer:   g.Layers - 1,
				Detail:  fmt.Sprintf("population %d->%d layers %d->%d attempts %d", g.PrevPopulation, g.Population, g.PrevLayers, g.Layers, g.Attempts),
			})
		},
	}
	if st.Config.Level == TraceLevelEvents {
		p.NewEvent = func(v sim.View, e sim.EventInfo) {
			st.Record(Record{
				Kind:    KindEvent,
				Clock:   e.Time,
				Subject: e.Subject,
				Source:  e.Source,
				Layer:   e.Layer,
				Detail:  string(e.Kind),
			})
		}
	}
	return p
}
