// Package trace records every processor invocation of a simulation run as a
// flat, comparable list of records. Two runs with the same parameters and
// seed produce identical traces.
package trace

// RecordKind identifies the callback a record came from.
type RecordKind string

const (
	KindEvent          RecordKind = "event"
	KindInfection      RecordKind = "infection"
	KindRecovery       RecordKind = "recovery"
	KindNoTransmission RecordKind = "no_transmission"
	KindGrowth         RecordKind = "growth"
)

// Record captures a single processor invocation.
type Record struct {
	Kind    RecordKind
	Clock   float64
	Subject int // individual ID; -1 for growth records
	Source  int // infector, -1 if none
	Layer   int // layer, -1 if none
	Detail  string
}
