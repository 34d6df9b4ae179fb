package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/outbreak-sim/outbreak-sim/sim/params"
	"github.com/outbreak-sim/outbreak-sim/sim/rng"
)

// StopReason says why Run returned.
type StopReason string

const (
	StopQueueExhausted StopReason = "queue_exhausted" // no events left
	StopExtinct        StopReason = "extinct"         // nobody active and no transmission pending
	StopHorizon        StopReason = "horizon"         // next event is after TMax
	StopHalted         StopReason = "halted"          // host stop condition held
)

// Simulator is the epidemic engine. It owns the record table, the event
// queue, a private copy of the parameters, the random adapter and the
// processor registry.
//
// Thread-safety: NOT thread-safe. Run independent simulators, each with its
// own random source, for parallel runs.
type Simulator struct {
	params params.Params
	rng    *rng.Adapter

	table  []Individual
	layers []params.LayerParams

	queue EventQueue
	seq   uint64
	clock float64

	counts Counts
	// pending counts queued infection and no-transmission events.
	pending int

	// primaryWeights are the period category probabilities of primary
	// infections when Params.Primary restricts them.
	primaryWeights params.PeriodWeights

	procs Processors
	view  View
	stop  func() bool

	running bool
	started bool // Run has been called; only deregistration is allowed after
	freed   bool
}

// New builds a simulator: it allocates the record table, wires every contact
// layer, picks NStart distinct primary cases (scheduled at time 0) and
// schedules every growth step. The registry starts empty.
//
// p must have passed Check; New panics otherwise. New returns an error
// wrapping ErrResourceExhausted, and no simulator, when the population or the
// contact layers would exceed MaxIndividuals or MaxEdges.
func New(p *params.Params, src rng.Source) (*Simulator, error) {
	if p == nil || !p.Checked() {
		panic("sim.New: parameters must pass Check before use")
	}
	if err := checkResources(p); err != nil {
		return nil, err
	}
	s := &Simulator{
		params: p.Clone(),
		rng:    rng.NewAdapter(src),
	}
	s.view = simView{s}
	s.primaryWeights, _ = p.PrimaryPeriodWeights()
	s.layers = append(make([]params.LayerParams, 0, p.MaxLayers()), p.Layers...)
	s.table = make([]Individual, p.PopSize, p.MaxPopSize())
	for i := range s.table {
		s.table[i] = newIndividual(i, len(s.layers))
	}
	s.counts.Susceptible = p.PopSize
	for l, lp := range s.layers {
		s.buildLayer(l, lp, p.PopSize)
	}
	for _, id := range s.sampleRange(p.PopSize, p.NStart) {
		s.schedule(&InfectionEvent{time: 0, Target: id, Source: -1, Layer: -1})
		s.pending++
	}
	for i, g := range p.Growth {
		s.schedule(&LayerGrowthEvent{time: g.Time, Index: i})
	}
	logrus.Debugf("simulator ready: popsize=%d layers=%d nstart=%d growth=%d draws=%d",
		p.PopSize, len(s.layers), p.NStart, len(p.Growth), s.rng.Draws())
	return s, nil
}

func (s *Simulator) schedule(e Event) {
	s.queue.schedule(e, &s.seq)
}

func (s *Simulator) mustBeIdle(op string) {
	if s.freed {
		panic(fmt.Sprintf("sim.%s: simulator has been freed", op))
	}
	if s.running {
		panic(fmt.Sprintf("sim.%s: called while the simulation is running", op))
	}
}

// mustAllowRegistration guards the Set* methods. Once Run has been called a
// path is over for registration purposes: clearing a slot is allowed, installing
// a new callback is not.
func (s *Simulator) mustAllowRegistration(op string, isNil bool) {
	s.mustBeIdle(op)
	if s.started && !isNil {
		panic(fmt.Sprintf("sim.%s: cannot register a processor after Run; only nil is allowed", op))
	}
}

// SetNewEventProcFunc registers the processor invoked for every popped event,
// before the event is applied. nil disables it.
func (s *Simulator) SetNewEventProcFunc(f NewEventFunc) {
	s.mustAllowRegistration("SetNewEventProcFunc", f == nil)
	s.procs.NewEvent = f
}

// SetNewInfProcFunc registers the new-infection processor. nil disables it.
func (s *Simulator) SetNewInfProcFunc(f NewInfectionFunc) {
	s.mustAllowRegistration("SetNewInfProcFunc", f == nil)
	s.procs.NewInfection = f
}

// SetEndInfProcFunc registers the end-of-infection processor. nil disables it.
func (s *Simulator) SetEndInfProcFunc(f EndInfectionFunc) {
	s.mustAllowRegistration("SetEndInfProcFunc", f == nil)
	s.procs.EndInfection = f
}

// SetInfProcNoEventFunc registers the processor invoked once per transmission
// attempt that does not infect. nil disables it.
func (s *Simulator) SetInfProcNoEventFunc(f NoEventFunc) {
	s.mustAllowRegistration("SetInfProcNoEventFunc", f == nil)
	s.procs.NoEvent = f
}

// SetIncreaseLayersProcFunc registers the processor invoked after each growth
// step. nil disables it.
func (s *Simulator) SetIncreaseLayersProcFunc(f IncreaseLayersFunc) {
	s.mustAllowRegistration("SetIncreaseLayersProcFunc", f == nil)
	s.procs.IncreaseLayers = f
}

// SetStopCondition installs a host predicate checked before each event.
// When it returns true Run stops with StopHalted. nil removes it.
func (s *Simulator) SetStopCondition(f func() bool) {
	s.mustAllowRegistration("SetStopCondition", f == nil)
	s.stop = f
}

// Run executes events in (time, insertion) order until the queue is empty,
// the epidemic is extinct, the next event lies beyond TMax, or the stop
// condition holds. It panics on a freed simulator, on re-entry from a
// processor, and if the clock would move backwards. Run may be called again
// after StopHalted to resume the same path with the processors already
// registered.
func (s *Simulator) Run() StopReason {
	s.mustBeIdle("Run")
	s.running = true
	s.started = true
	defer func() { s.running = false }()

	logrus.Infof("starting simulation: popsize=%d layers=%d nstart=%d tmax=%v",
		len(s.table), len(s.layers), s.params.NStart, s.params.TMax)
	reason := s.loop()
	logrus.Infof("simulation stopped (%s) at t=%.4f after %d events: %d infections, %d attempts, %d recovered",
		reason, s.clock, s.counts.Events, s.counts.Infections, s.counts.Attempts, s.counts.Recovered)
	return reason
}

func (s *Simulator) loop() StopReason {
	for {
		if s.stop != nil && s.stop() {
			return StopHalted
		}
		if s.counts.Exposed+s.counts.Infectious == 0 && s.pending == 0 {
			return StopExtinct
		}
		next := s.queue.peek()
		if next == nil {
			return StopQueueExhausted
		}
		if next.Timestamp() > s.params.TMax {
			return StopHorizon
		}
		s.queue.popNext()

		if next.Timestamp() < s.clock {
			panic(fmt.Sprintf("Clock went backwards: %v < %v", next.Timestamp(), s.clock))
		}
		s.clock = next.Timestamp()
		s.counts.Events++

		if s.procs.NewEvent != nil {
			s.procs.NewEvent(s.view, eventInfo(next))
		}
		next.Execute(s)
	}
}

// Free releases the record table, the queue and the layers. Registered
// processors are dropped but never invoked or otherwise touched.
func (s *Simulator) Free() {
	if s.running {
		panic("sim.Free: called while the simulation is running")
	}
	s.table = nil
	s.layers = nil
	s.queue = nil
	s.procs = Processors{}
	s.stop = nil
	s.freed = true
}

// infect applies a successful transmission (or a primary infection) to a
// susceptible target.
func (s *Simulator) infect(e *InfectionEvent) {
	ind := &s.table[e.Target]
	t := e.time

	latent := s.rng.GammaPeriod(s.params.Latent.Mean, s.params.Latent.Kappa)
	category := s.periodCategory(e.Source < 0)
	period, kind, interrupted := s.periodOf(category)
	comm := s.rng.GammaPeriod(period.Mean, period.Kappa)

	ind.InfectionTime = t
	ind.LatentPeriod = latent
	ind.CommPeriod = comm
	ind.InfectiousTime = t + latent
	ind.EndTime = t + latent + comm
	ind.PeriodKind = kind
	ind.Interrupted = interrupted
	ind.Source = e.Source
	ind.Layer = e.Layer
	if e.Source >= 0 {
		src := &s.table[e.Source]
		ind.Generation = src.Generation + 1
		src.Infections++
	}
	s.counts.Susceptible--
	s.counts.Infections++

	if latent > 0 {
		ind.Status = StatusExposed
		s.counts.Exposed++
		s.schedule(&OnsetEvent{time: ind.InfectiousTime, Subject: ind.ID})
	} else {
		ind.Status = StatusInfectious
		s.counts.Infectious++
	}
	s.schedule(&EndInfectiousEvent{time: ind.EndTime, Subject: ind.ID})

	attempts := 0
	for l := range s.layers {
		attempts += s.sampleContacts(ind, l, ind.InfectiousTime, comm)
	}

	if s.procs.NewInfection != nil {
		s.procs.NewInfection(s.view, InfectionInfo{
			Time:         t,
			Subject:      ind.ID,
			Source:       e.Source,
			Layer:        e.Layer,
			Generation:   ind.Generation,
			LatentPeriod: latent,
			CommPeriod:   comm,
			PeriodKind:   kind,
			Interrupted:  interrupted,
			Attempts:     attempts,
		})
	}
}

// periodCategory picks the communicable period category of a new case:
// alternate with probability Q, then interrupted with probability PInt (main)
// or PIntAlt (alternate). Each draw is skipped when its probability is zero.
// A restricted primary case takes one draw from the renormalized weights.
func (s *Simulator) periodCategory(primary bool) int {
	if primary && s.params.Primary.Restricted() {
		u := s.rng.Uniform()
		last := params.CategoryMain
		for c, w := range s.primaryWeights {
			if w <= 0 {
				continue
			}
			last = c
			if u < w {
				return c
			}
			u -= w
		}
		return last
	}
	if s.params.Q > 0 && s.rng.Bernoulli(s.params.Q) {
		if s.params.PIntAlt > 0 && s.rng.Bernoulli(s.params.PIntAlt) {
			return params.CategoryAltInterrupted
		}
		return params.CategoryAlt
	}
	if s.params.PInt > 0 && s.rng.Bernoulli(s.params.PInt) {
		return params.CategoryMainInterrupted
	}
	return params.CategoryMain
}

func (s *Simulator) periodOf(category int) (params.PeriodParams, PeriodKind, bool) {
	switch category {
	case params.CategoryAlt:
		return s.params.AltPeriod, PeriodAlternate, false
	case params.CategoryMainInterrupted:
		return s.params.IntPeriod, PeriodMain, true
	case params.CategoryAltInterrupted:
		return s.params.IntAltPeriod, PeriodAlternate, true
	default:
		return s.params.Period, PeriodMain, false
	}
}

// gatheringContacts draws how many distinct neighbours one gathering of the
// infectious individual reaches on a layer whose lp.Group sets the size law.
func (s *Simulator) gatheringContacts(lp *params.LayerParams, degree int) int {
	switch lp.Group {
	case params.GroupAttendees:
		if degree == 0 {
			return 0
		}
		return s.rng.LogarithmicRange(lp.P, 2, degree+1) - 1
	case params.GroupInvitees:
		return s.rng.LogarithmicRange(lp.P, 2, 0) - 1
	default:
		return s.rng.Logarithmic(lp.P)
	}
}

// sampleContacts draws the contact events of ind on one layer over
// [start, start+length]: n ~ Poisson(Lambda*length) gatherings, each at a
// uniform time in the window reaching distinct neighbours in the number set
// by the layer's group model.
// Every neighbour met is one transmission attempt, queued as an infection
// with probability PInf and as a no-transmission otherwise.
func (s *Simulator) sampleContacts(ind *Individual, layer int, start, length float64) int {
	lp := &s.layers[layer]
	n := s.rng.Poisson(lp.Lambda * length)
	made := 0
	for i := 0; i < n; i++ {
		at := start + length*(1-s.rng.Uniform())
		k := s.gatheringContacts(lp, len(ind.neighbors[layer]))
		for _, target := range s.rng.SampleDistinct(ind.neighbors[layer], k) {
			if s.rng.Bernoulli(lp.PInf) {
				s.schedule(&InfectionEvent{time: at, Target: target, Source: ind.ID, Layer: layer})
			} else {
				s.schedule(&NoTransmissionEvent{time: at, Target: target, Source: ind.ID, Layer: layer})
			}
			s.pending++
			made++
		}
	}
	ind.Attempts += made
	s.counts.Attempts += made
	return made
}

func (s *Simulator) resolveNoTransmission(a AttemptInfo) {
	s.counts.NoTransmissions++
	if s.procs.NoEvent != nil {
		s.procs.NoEvent(s.view, a)
	}
}

// Clock returns the time of the last executed event.
func (s *Simulator) Clock() float64 { return s.clock }

// PopulationSize returns the current number of individuals.
func (s *Simulator) PopulationSize() int { return len(s.table) }

// NumLayers returns the current number of contact layers.
func (s *Simulator) NumLayers() int { return len(s.layers) }

// Counts returns the current status and transmission counters.
func (s *Simulator) Counts() Counts { return s.counts }

// Individual returns a snapshot of the individual with the given ID.
// Panics if id is out of range.
func (s *Simulator) Individual(id int) Individual {
	return s.table[id].snapshot()
}

// Neighbors returns a copy of id's neighbor IDs on layer.
func (s *Simulator) Neighbors(layer, id int) []int {
	return append([]int(nil), s.table[id].neighbors[layer]...)
}

// Params returns a copy of the parameters the simulator runs with.
func (s *Simulator) Params() params.Params { return s.params.Clone() }

// Draws returns the number of uniform draws consumed so far.
func (s *Simulator) Draws() uint64 { return s.rng.Draws() }

// PendingTransmissions returns the number of queued transmission attempts,
// including not yet executed primary infections.
func (s *Simulator) PendingTransmissions() int { return s.pending }
