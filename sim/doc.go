// Package sim provides the discrete-event epidemic simulation engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - individual.go: Individual record and status lifecycle (susceptible → exposed → infectious → recovered)
//   - event.go: Event types that drive the simulation (Infection, Onset, EndInfectious, NoTransmission, LayerGrowth)
//   - simulator.go: The event loop, infection sampling and contact generation
//   - network.go: Contact-layer topologies and mid-run growth
//
// # Architecture
//
// The engine consumes randomness only through sim/rng and takes a checked
// parameter set from sim/params. Consumers observe a run through processors:
//   - sim/stats/: standard summary statistics (timelines, generation counts, extinction)
//   - sim/trace/: per-callback record of a run
//
// # Key Interfaces
//
// There is one single-slot extension point per callback kind, registered with
// the Set*ProcFunc methods or all at once with Register:
//   - NewEventFunc: every popped event, before it is applied
//   - NewInfectionFunc: a susceptible individual is infected
//   - EndInfectionFunc: an individual recovers
//   - NoEventFunc: a transmission attempt does not infect
//   - IncreaseLayersFunc: population or layer structure grew
//
// Several consumers are composed with FanOut. Processors receive a View, a
// read-only copy-returning window onto the engine.
package sim
