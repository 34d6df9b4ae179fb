package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// EventKind discriminates queued events.
type EventKind string

const (
	KindInfection      EventKind = "infection"       // a transmission reaches its target
	KindOnset          EventKind = "onset"           // exposed -> infectious
	KindEndInfectious  EventKind = "end_infectious"  // infectious -> recovered
	KindNoTransmission EventKind = "no_transmission" // a sampled contact that did not transmit
	KindLayerGrowth    EventKind = "layer_growth"    // population and/or layer structure grows
)

// Event defines the interface for all simulation events.
// Each event has a Timestamp (simulated time) and an Execute method
// that advances simulation state when invoked.
type Event interface {
	Timestamp() float64
	Kind() EventKind
	Execute(*Simulator)
}

// InfectionEvent is a transmission attempt that succeeded the Bernoulli
// draw. It infects Target if Target is still susceptible when it fires;
// otherwise the attempt resolves to no transmission.
// Source and Layer are -1 for primary infections.
type InfectionEvent struct {
	time   float64
	Target int
	Source int
	Layer  int
}

func (e *InfectionEvent) Timestamp() float64 { return e.time }
func (e *InfectionEvent) Kind() EventKind    { return KindInfection }

// Execute infects the target and samples its periods and contacts.
func (e *InfectionEvent) Execute(s *Simulator) {
	logrus.Tracef("<< Infection: %d by %d on layer %d at %.4f", e.Target, e.Source, e.Layer, e.time)
	s.pending--
	target := &s.table[e.Target]
	if target.Status != StatusSusceptible {
		s.resolveNoTransmission(AttemptInfo{
			Time:   e.time,
			Target: e.Target,
			Source: e.Source,
			Layer:  e.Layer,
			Reason: ReasonNotSusceptible,
		})
		return
	}
	s.infect(e)
}

// OnsetEvent ends the latent period of Subject.
type OnsetEvent struct {
	time    float64
	Subject int
}

func (e *OnsetEvent) Timestamp() float64 { return e.time }
func (e *OnsetEvent) Kind() EventKind    { return KindOnset }

// Execute moves the subject from exposed to infectious.
func (e *OnsetEvent) Execute(s *Simulator) {
	logrus.Tracef("<< Onset: %d at %.4f", e.Subject, e.time)
	ind := &s.table[e.Subject]
	if ind.Status != StatusExposed {
		panic(fmt.Sprintf("sim: onset for individual %d in status %s", e.Subject, ind.Status))
	}
	ind.Status = StatusInfectious
	s.counts.Exposed--
	s.counts.Infectious++
}

// EndInfectiousEvent ends the communicable period of Subject.
type EndInfectiousEvent struct {
	time    float64
	Subject int
}

func (e *EndInfectiousEvent) Timestamp() float64 { return e.time }
func (e *EndInfectiousEvent) Kind() EventKind    { return KindEndInfectious }

// Execute recovers the subject and notifies the end-of-infection processor.
func (e *EndInfectiousEvent) Execute(s *Simulator) {
	logrus.Tracef("<< EndInfectious: %d at %.4f", e.Subject, e.time)
	ind := &s.table[e.Subject]
	// Onset is always queued before the matching end, so ties resolve in order.
	if ind.Status != StatusInfectious {
		panic(fmt.Sprintf("sim: end of infectiousness for individual %d in status %s", e.Subject, ind.Status))
	}
	ind.Status = StatusRecovered
	s.counts.Infectious--
	s.counts.Recovered++
	if s.procs.EndInfection != nil {
		s.procs.EndInfection(s.view, ind.snapshot())
	}
}

// NoTransmissionEvent is a sampled contact whose Bernoulli draw failed.
type NoTransmissionEvent struct {
	time   float64
	Target int
	Source int
	Layer  int
}

func (e *NoTransmissionEvent) Timestamp() float64 { return e.time }
func (e *NoTransmissionEvent) Kind() EventKind    { return KindNoTransmission }

// Execute reports the failed attempt.
func (e *NoTransmissionEvent) Execute(s *Simulator) {
	logrus.Tracef("<< NoTransmission: %d -> %d on layer %d at %.4f", e.Source, e.Target, e.Layer, e.time)
	s.pending--
	s.resolveNoTransmission(AttemptInfo{
		Time:   e.time,
		Target: e.Target,
		Source: e.Source,
		Layer:  e.Layer,
		Reason: ReasonRejected,
	})
}

// LayerGrowthEvent applies the Index-th scheduled growth step.
type LayerGrowthEvent struct {
	time  float64
	Index int
}

func (e *LayerGrowthEvent) Timestamp() float64 { return e.time }
func (e *LayerGrowthEvent) Kind() EventKind    { return KindLayerGrowth }

// Execute grows the population and layers, then notifies the increase-layers processor.
func (e *LayerGrowthEvent) Execute(s *Simulator) {
	logrus.Debugf("<< LayerGrowth #%d at %.4f", e.Index, e.time)
	s.grow(e.time, s.params.Growth[e.Index])
}

// eventInfo describes a popped event for the new-event processor.
func eventInfo(e Event) EventInfo {
	info := EventInfo{Time: e.Timestamp(), Kind: e.Kind(), Subject: -1, Source: -1, Layer: -1}
	switch ev := e.(type) {
	case *InfectionEvent:
		info.Subject, info.Source, info.Layer = ev.Target, ev.Source, ev.Layer
	case *NoTransmissionEvent:
		info.Subject, info.Source, info.Layer = ev.Target, ev.Source, ev.Layer
	case *OnsetEvent:
		info.Subject = ev.Subject
	case *EndInfectiousEvent:
		info.Subject = ev.Subject
	case *LayerGrowthEvent:
		info.Subject = ev.Index
	}
	return info
}
