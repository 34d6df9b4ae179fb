// Package stats implements the standard summary statistics, a simulation
// consumer that aggregates per-individual infection histories into
// population-level timelines. It only ever sees the engine through processor
// callbacks and the read-only sim.View.
package stats

import (
	"math"

	"github.com/outbreak-sim/outbreak-sim/sim"
)

// Standard holds the standard summary statistics of one simulation path.
//
// Time bins are unit intervals [i, i+1). Bins beyond floor(TMax) are never
// filled.
type Standard struct {
	// NIMax caps the number of infected individuals in any time bin; 0 means
	// no cap. Exceeding it marks the path as maxed out (see MaxedOut).
	NIMax int

	TMax float64

	// InfTimeline[i] counts individuals infected (exposed or infectious) at
	// some point in bin i.
	InfTimeline []int
	// NewInfTimeline[i] counts individuals that got infected in bin i.
	NewInfTimeline []int
	// NewAltTimeline[i] counts new infections in bin i whose communicable
	// period was drawn from the alternate distribution.
	NewAltTimeline []int
	// LayerInfections[l] counts transmitted infections on layer l.
	LayerInfections []int
	// NGenInfs[k] counts individuals whose communicable period ended by TMax
	// after generating exactly k infections.
	NGenInfs []int

	RSum       int     // infections generated by individuals ended by TMax
	CommPerSum float64 // communicable periods of individuals ended by TMax
	NEnded     int     // individuals whose communicable period ended by TMax

	Infections        int
	PrimaryInfections int
	Interrupted       int // infections whose communicable period was interrupted
	Attempts          int
	NoTransmissions   int
	NotSusceptible    int
	Growths           int
	EventsByKind      map[sim.EventKind]int

	// Extinction is true when no individual was still active at the end of
	// the path and the path was not maxed out.
	Extinction     bool
	ExtinctionTime float64
	// MaxedOutMinTimeIndex is the lowest bin that exceeded NIMax, -1 if none.
	MaxedOutMinTimeIndex int

	// generated[id] counts infections caused by individual id on this path.
	generated []int
	lastEnd   float64
	finalized bool
}

// Init sizes st from the simulator, resets the path accumulators and
// registers the five standard callbacks on s.
func Init(s *sim.Simulator, st *Standard) {
	st.Prepare(s)
	sim.Register(s, st.Processors())
}

// Free deregisters the standard callbacks from s and releases st's buffers.
func Free(s *sim.Simulator, st *Standard) {
	sim.Register(s, sim.Processors{})
	st.InfTimeline = nil
	st.NewInfTimeline = nil
	st.NewAltTimeline = nil
	st.LayerInfections = nil
	st.NGenInfs = nil
	st.EventsByKind = nil
	st.generated = nil
}

// Prepare sizes st from v without registering anything, for hosts that
// compose st.Processors() with other consumers.
func (st *Standard) Prepare(v sim.View) {
	p := v.Params()
	st.TMax = p.TMax
	st.generated = make([]int, v.PopulationSize(), p.MaxPopSize())
	st.LayerInfections = make([]int, v.NumLayers(), p.MaxLayers())
	st.PathInit()
}

// PathInit resets every per-path accumulator. The per-individual storage
// keeps its size; it grows through the increase-layers callback.
func (st *Standard) PathInit() {
	st.InfTimeline = st.InfTimeline[:0]
	st.NewInfTimeline = st.NewInfTimeline[:0]
	st.NewAltTimeline = st.NewAltTimeline[:0]
	st.NGenInfs = st.NGenInfs[:0]
	clear(st.LayerInfections)
	clear(st.generated)
	st.RSum = 0
	st.CommPerSum = 0
	st.NEnded = 0
	st.Infections = 0
	st.PrimaryInfections = 0
	st.Interrupted = 0
	st.Attempts = 0
	st.NoTransmissions = 0
	st.NotSusceptible = 0
	st.Growths = 0
	st.EventsByKind = make(map[sim.EventKind]int)
	st.Extinction = true
	st.ExtinctionTime = 0
	st.MaxedOutMinTimeIndex = -1
	st.lastEnd = 0
	st.finalized = false
}

// MaxedOut reports whether some bin exceeded NIMax. It has the shape of a
// simulator stop condition.
func (st *Standard) MaxedOut() bool {
	return st.MaxedOutMinTimeIndex >= 0
}

// Processors returns the standard callbacks.
func (st *Standard) Processors() sim.Processors {
	return sim.Processors{
		NewEvent:       st.newEvent,
		NewInfection:   st.newInfection,
		EndInfection:   st.endInfection,
		NoEvent:        st.noEvent,
		IncreaseLayers: st.increaseLayers,
	}
}

func (st *Standard) newEvent(_ sim.View, e sim.EventInfo) {
	st.EventsByKind[e.Kind]++
}

func (st *Standard) newInfection(_ sim.View, i sim.InfectionInfo) {
	st.Infections++
	st.Attempts += i.Attempts
	if i.Interrupted {
		st.Interrupted++
	}
	if i.Primary() {
		st.PrimaryInfections++
	} else {
		st.generated[i.Source]++
		st.LayerInfections[i.Layer]++
	}

	first, ok := st.bin(i.Time)
	if !ok {
		return
	}
	st.NewInfTimeline = grow(st.NewInfTimeline, first)
	st.NewInfTimeline[first]++
	if i.PeriodKind == sim.PeriodAlternate {
		st.NewAltTimeline = grow(st.NewAltTimeline, first)
		st.NewAltTimeline[first]++
	}

	end := i.Time + i.LatentPeriod + i.CommPeriod
	last := first
	if end > i.Time {
		last = int(math.Ceil(end)) - 1
	}
	if st.TMax < math.Inf(1) {
		last = min(last, int(math.Floor(st.TMax)))
	}
	last = max(last, first)
	st.InfTimeline = grow(st.InfTimeline, last)
	for b := first; b <= last; b++ {
		st.InfTimeline[b]++
		if st.NIMax > 0 && st.InfTimeline[b] > st.NIMax {
			if st.MaxedOutMinTimeIndex < 0 || b < st.MaxedOutMinTimeIndex {
				st.MaxedOutMinTimeIndex = b
			}
			st.Extinction = false
		}
	}
}

func (st *Standard) endInfection(_ sim.View, ind sim.Individual) {
	if ind.EndTime > st.lastEnd {
		st.lastEnd = ind.EndTime
	}
	if ind.EndTime > st.TMax {
		return
	}
	k := st.generated[ind.ID]
	st.RSum += k
	st.CommPerSum += ind.CommPeriod
	st.NEnded++
	st.NGenInfs = grow(st.NGenInfs, k)
	st.NGenInfs[k]++
}

func (st *Standard) noEvent(_ sim.View, a sim.AttemptInfo) {
	st.NoTransmissions++
	if a.Reason == sim.ReasonNotSusceptible {
		st.NotSusceptible++
	}
}

func (st *Standard) increaseLayers(_ sim.View, g sim.GrowthInfo) {
	st.Growths++
	st.Attempts += g.Attempts
	for len(st.generated) < g.Population {
		st.generated = append(st.generated, 0)
	}
	for len(st.LayerInfections) < g.Layers {
		st.LayerInfections = append(st.LayerInfections, 0)
	}
}

// Finalize closes the path once Run has returned: extinction holds only if
// nobody is still active and the path did not max out.
func (st *Standard) Finalize(v sim.View) {
	c := v.Counts()
	if c.Exposed+c.Infectious > 0 || st.MaxedOut() {
		st.Extinction = false
	}
	if st.Extinction {
		st.ExtinctionTime = st.lastEnd
	}
	st.finalized = true
}

// MeanR returns the mean number of infections generated per individual
// whose communicable period ended by TMax.
func (st *Standard) MeanR() float64 {
	if st.NEnded == 0 {
		return 0
	}
	return float64(st.RSum) / float64(st.NEnded)
}

// MeanCommPeriod returns the mean communicable period of ended individuals.
func (st *Standard) MeanCommPeriod() float64 {
	if st.NEnded == 0 {
		return 0
	}
	return st.CommPerSum / float64(st.NEnded)
}

// bin maps a time to its bin index; false if t lies after TMax.
func (st *Standard) bin(t float64) (int, bool) {
	if t > st.TMax {
		return 0, false
	}
	return int(math.Floor(t)), true
}

// grow extends s with zeros so that index i is valid.
func grow(s []int, i int) []int {
	for len(s) <= i {
		s = append(s, 0)
	}
	return s
}
