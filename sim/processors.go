package sim

import "github.com/outbreak-sim/outbreak-sim/sim/params"

// View is the read-only window a processor gets onto the running simulation.
// Every value it returns is a copy; nothing a processor does through it can
// change engine state.
type View interface {
	Clock() float64
	PopulationSize() int
	NumLayers() int
	Individual(id int) Individual
	Neighbors(layer, id int) []int
	Counts() Counts
	Params() params.Params
}

// Counts summarizes the record table and the transmission bookkeeping.
type Counts struct {
	Susceptible int
	Exposed     int
	Infectious  int
	Recovered   int

	Infections      int // including primary infections
	Attempts        int // transmission attempts sampled
	NoTransmissions int // attempts resolved without infection
	Events          uint64
}

// EventInfo describes a popped event. Subject is the growth step index for
// layer-growth events; unused fields are -1.
type EventInfo struct {
	Time    float64
	Kind    EventKind
	Subject int
	Source  int
	Layer   int
}

// InfectionInfo describes a new infection. Source and Layer are -1 for
// primary infections. Attempts counts the transmission attempts sampled for
// the new case over all current layers.
type InfectionInfo struct {
	Time         float64
	Subject      int
	Source       int
	Layer        int
	Generation   int
	LatentPeriod float64
	CommPeriod   float64
	PeriodKind   PeriodKind
	Interrupted  bool
	Attempts     int
}

// Primary reports whether the infection was seeded rather than transmitted.
func (i InfectionInfo) Primary() bool {
	return i.Source < 0
}

// NoTransmissionReason says why an attempt did not infect.
type NoTransmissionReason string

const (
	// ReasonRejected: the per-contact transmission draw failed.
	ReasonRejected NoTransmissionReason = "rejected"
	// ReasonNotSusceptible: the target had already been infected when the
	// transmission arrived.
	ReasonNotSusceptible NoTransmissionReason = "not_susceptible"
)

// AttemptInfo describes a transmission attempt that did not infect.
type AttemptInfo struct {
	Time   float64
	Target int
	Source int
	Layer  int
	Reason NoTransmissionReason
}

// GrowthInfo describes an applied growth step. Attempts counts the
// transmission attempts sampled on a new layer for individuals already
// infected.
type GrowthInfo struct {
	Time           float64
	PrevPopulation int
	Population     int
	PrevLayers     int
	Layers         int
	Attempts       int
}

// Processor callback types, one per extension point. Callbacks run inline on
// the simulation goroutine and must not call Run or any Set* method.
type (
	NewEventFunc       func(View, EventInfo)
	NewInfectionFunc   func(View, InfectionInfo)
	EndInfectionFunc   func(View, Individual)
	NoEventFunc        func(View, AttemptInfo)
	IncreaseLayersFunc func(View, GrowthInfo)
)

// Processors bundles one callback per extension point. Nil fields are not
// dispatched.
type Processors struct {
	NewEvent       NewEventFunc
	NewInfection   NewInfectionFunc
	EndInfection   EndInfectionFunc
	NoEvent        NoEventFunc
	IncreaseLayers IncreaseLayersFunc
}

// Register installs every slot of p on s, replacing (or clearing, for nil
// fields) whatever was registered before.
func Register(s *Simulator, p Processors) {
	s.SetNewEventProcFunc(p.NewEvent)
	s.SetNewInfProcFunc(p.NewInfection)
	s.SetEndInfProcFunc(p.EndInfection)
	s.SetInfProcNoEventFunc(p.NoEvent)
	s.SetIncreaseLayersProcFunc(p.IncreaseLayers)
}

// FanOut composes several consumers into one bundle. Each extension point
// forwards to the consumers' callbacks in argument order; a slot with no
// callbacks stays nil.
func FanOut(ps ...Processors) Processors {
	var out Processors
	var (
		newEvent []NewEventFunc
		newInf   []NewInfectionFunc
		endInf   []EndInfectionFunc
		noEvent  []NoEventFunc
		increase []IncreaseLayersFunc
	)
	for _, p := range ps {
		if p.NewEvent != nil {
			newEvent = append(newEvent, p.NewEvent)
		}
		if p.NewInfection != nil {
			newInf = append(newInf, p.NewInfection)
		}
		if p.EndInfection != nil {
			endInf = append(endInf, p.EndInfection)
		}
		if p.NoEvent != nil {
			noEvent = append(noEvent, p.NoEvent)
		}
		if p.IncreaseLayers != nil {
			increase = append(increase, p.IncreaseLayers)
		}
	}
	if len(newEvent) > 0 {
		out.NewEvent = func(v View, e EventInfo) {
			for _, f := range newEvent {
				f(v, e)
			}
		}
	}
	if len(newInf) > 0 {
		out.NewInfection = func(v View, i InfectionInfo) {
			for _, f := range newInf {
				f(v, i)
			}
		}
	}
	if len(endInf) > 0 {
		out.EndInfection = func(v View, ind Individual) {
			for _, f := range endInf {
				f(v, ind)
			}
		}
	}
	if len(noEvent) > 0 {
		out.NoEvent = func(v View, a AttemptInfo) {
			for _, f := range noEvent {
				f(v, a)
			}
		}
	}
	if len(increase) > 0 {
		out.IncreaseLayers = func(v View, g GrowthInfo) {
			for _, f := range increase {
				f(v, g)
			}
		}
	}
	return out
}

// simView forwards the View methods to a Simulator without exposing it.
type simView struct{ s *Simulator }

func (v simView) Clock() float64                { return v.s.Clock() }
func (v simView) PopulationSize() int           { return v.s.PopulationSize() }
func (v simView) NumLayers() int                { return v.s.NumLayers() }
func (v simView) Individual(id int) Individual  { return v.s.Individual(id) }
func (v simView) Neighbors(layer, id int) []int { return v.s.Neighbors(layer, id) }
func (v simView) Counts() Counts                { return v.s.Counts() }
func (v simView) Params() params.Params         { return v.s.Params() }
