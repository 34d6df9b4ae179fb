package sim

// Status is the infection state of an individual.
type Status string

const (
	StatusSusceptible Status = "susceptible"
	StatusExposed     Status = "exposed"
	StatusInfectious  Status = "infectious"
	StatusRecovered   Status = "recovered"
)

// PeriodKind records which communicable-period distribution was drawn.
type PeriodKind string

const (
	PeriodMain      PeriodKind = "main"
	PeriodAlternate PeriodKind = "alternate"
)

// Individual is one row of the record table. Rows are addressed by ID, a
// stable index that never changes for the lifetime of a simulator; growth only
// appends rows.
//
// Timing fields are meaningful once the individual has been infected:
// InfectionTime <= InfectiousTime <= EndTime.
type Individual struct {
	ID             int
	Status         Status
	InfectionTime  float64
	InfectiousTime float64 // InfectionTime + LatentPeriod
	EndTime        float64 // end of the communicable period
	LatentPeriod   float64
	CommPeriod     float64
	PeriodKind     PeriodKind
	Interrupted    bool // the interrupted variant of PeriodKind was drawn
	Source         int // infector ID, -1 for primary infections
	Layer          int // layer of infection, -1 for primary infections
	Generation     int // 0 for primary infections
	Attempts       int // transmission attempts sampled while infectious
	Infections     int // successful infections caused

	// neighbors[layer] lists neighbor IDs; non-owning index references.
	neighbors [][]int
}

// snapshot returns a copy that shares no memory with the table.
func (ind *Individual) snapshot() Individual {
	c := *ind
	c.neighbors = nil
	return c
}

// Active reports whether the individual is exposed or infectious.
func (ind Individual) Active() bool {
	return ind.Status == StatusExposed || ind.Status == StatusInfectious
}

func newIndividual(id, layers int) Individual {
	return Individual{
		ID:        id,
		Status:    StatusSusceptible,
		Source:    -1,
		Layer:     -1,
		neighbors: make([][]int, layers),
	}
}
