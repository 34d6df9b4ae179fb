// Package params defines the epidemic parameter set: population, contact
// layers, period distributions and scheduled structural growth.
//
// A Params value goes through two steps before a simulator accepts it:
// Solve derives dependent quantities (R0 group, gamma kappa/95th percentile,
// logarithmic p/mu/g_ave), and Check validates every field, reporting the first
// violated constraint. Unset floating-point inputs are NaN.
package params

import "math"

// Topology selects how a contact layer is wired.
type Topology string

const (
	// TopologyRandom draws round(N*MeanDegree/2) distinct edges uniformly (G(n,m)).
	TopologyRandom Topology = "random"
	// TopologyRing links each individual to its round(MeanDegree/2) nearest
	// ring neighbours on each side.
	TopologyRing Topology = "ring"
	// TopologyGroups partitions individuals into consecutive fully connected
	// groups of size round(MeanDegree)+1 (households, classrooms).
	TopologyGroups Topology = "groups"
	// TopologyComplete links every pair of individuals.
	TopologyComplete Topology = "complete"
)

var validTopologies = map[Topology]bool{
	TopologyRandom:   true,
	TopologyRing:     true,
	TopologyGroups:   true,
	TopologyComplete: true,
}

// IsValidTopology reports whether name is a recognized topology.
func IsValidTopology(name string) bool {
	return validTopologies[Topology(name)]
}

// GroupModel selects the law of the number of individuals at one contact
// event (a gathering). Every model puts at least two invitees at an event.
type GroupModel string

const (
	// GroupAttendeesPlusOne: the infectious individual meets k ~ Logarithmic(P)
	// others, so the gathering has k+1 attendees and GAve = Mu + 1.
	GroupAttendeesPlusOne GroupModel = "log_attendees_plus_1"
	// GroupAttendees: the number of attendees, infector included, is
	// logarithmic truncated below 2. On a layer it is also truncated above at
	// the infector's degree + 1, since every attendee must be a neighbour.
	GroupAttendees GroupModel = "log_attendees"
	// GroupInvitees: the number of invitees, infector included, is
	// logarithmic truncated below 2. Invitations beyond the infector's
	// neighbours are lost, so small neighbourhoods give smaller gatherings.
	GroupInvitees GroupModel = "log_invitees"
)

var validGroupModels = map[GroupModel]bool{
	GroupAttendeesPlusOne: true,
	GroupAttendees:        true,
	GroupInvitees:         true,
}

// IsValidGroupModel reports whether name is a recognized group model.
func IsValidGroupModel(name string) bool {
	return validGroupModels[GroupModel(name)]
}

// PeriodParams parameterizes a gamma-distributed duration with shape
// Mean*Kappa and rate Kappa. Kappa = +Inf makes the duration fixed.
// Exactly one of Kappa and X95 (95th percentile) is an input; Solve derives
// the other.
type PeriodParams struct {
	Mean  float64
	Kappa float64
	X95   float64
}

// UnsetPeriod returns a PeriodParams with every field unset.
func UnsetPeriod() PeriodParams {
	return PeriodParams{Mean: math.NaN(), Kappa: math.NaN(), X95: math.NaN()}
}

// FixedPeriod returns a deterministic duration.
func FixedPeriod(mean float64) PeriodParams {
	return PeriodParams{Mean: mean, Kappa: math.Inf(1), X95: mean}
}

// LayerParams describes one contact layer.
//
// The layer's reproduction number is R0 = Lambda * TBar * (GAve - 1) * PInf,
// where TBar is the mean main communicable period and GAve the mean number of
// individuals at a gathering under the layer's group model. P, Mu and GAve
// are three spellings of the gathering-size law: exactly one may be given.
// Exactly two of {Lambda, gathering size, R0} are inputs; Solve derives the
// third.
type LayerParams struct {
	Name       string
	Topology   Topology
	MeanDegree float64
	Group      GroupModel
	Lambda     float64 // contact events per unit time while infectious
	P          float64 // logarithmic gathering-size parameter, 0 <= P < 1
	Mu         float64 // mean of the untruncated logarithmic law, -P/((1-P)*ln(1-P))
	GAve       float64 // mean gathering size, GAve >= 2
	PInf       float64 // per-contact transmission probability
	R0         float64
}

// DefaultLayer returns a random-topology layer with the log_attendees_plus_1
// group model, every rate unset and PInf = 1.
func DefaultLayer(name string) LayerParams {
	return LayerParams{
		Name:     name,
		Topology: TopologyRandom,
		Group:    GroupAttendeesPlusOne,
		Lambda:   math.NaN(),
		P:        math.NaN(),
		Mu:       math.NaN(),
		GAve:     math.NaN(),
		PInf:     1,
		R0:       math.NaN(),
	}
}

// PrimaryPeriods restricts the communicable period of primary infections.
// Each flag excludes one period category; the remaining categories keep
// their relative weights.
type PrimaryPeriods struct {
	NoMain            bool
	NoAlt             bool
	NoMainInterrupted bool
	NoAltInterrupted  bool
}

// Restricted reports whether any category is excluded.
func (pp PrimaryPeriods) Restricted() bool {
	return pp.NoMain || pp.NoAlt || pp.NoMainInterrupted || pp.NoAltInterrupted
}

// Communicable period categories, indexing PeriodWeights.
const (
	CategoryMain = iota
	CategoryAlt
	CategoryMainInterrupted
	CategoryAltInterrupted
	numCategories
)

// PeriodWeights holds the probability of each communicable period category.
type PeriodWeights [numCategories]float64

// GrowthParams schedules a structural change at Time: AddIndividuals new
// susceptible individuals are appended, then Layer (if any) is added over the
// whole population.
type GrowthParams struct {
	Time           float64
	AddIndividuals int
	Layer          *LayerParams
}

// Params is the full parameter set for one simulation.
type Params struct {
	PopSize   int
	NStart    int
	TMax      float64 // events after TMax are not executed; +Inf for no horizon
	Period    PeriodParams
	AltPeriod PeriodParams
	Q         float64 // probability of drawing AltPeriod instead of Period
	Latent    PeriodParams

	// A main period is replaced by IntPeriod with probability PInt, an
	// alternate one by IntAltPeriod with probability PIntAlt. Solve defaults
	// PIntAlt to PInt and IntAltPeriod to IntPeriod.
	PInt         float64
	IntPeriod    PeriodParams
	PIntAlt      float64
	IntAltPeriod PeriodParams
	Primary      PrimaryPeriods

	Layers []LayerParams
	Growth []GrowthParams

	checked bool
}

// DefaultParams returns the defaults used by the CLI: a single initial
// infection, no horizon, no latency, no alternate or interrupted period and
// no layers.
func DefaultParams() Params {
	return Params{
		NStart:       1,
		TMax:         math.Inf(1),
		Period:       UnsetPeriod(),
		AltPeriod:    UnsetPeriod(),
		Latent:       FixedPeriod(0),
		IntPeriod:    UnsetPeriod(),
		PIntAlt:      math.NaN(),
		IntAltPeriod: UnsetPeriod(),
	}
}

// PeriodWeights returns the probability of each communicable period category
// for a transmitted infection.
func (p *Params) PeriodWeights() PeriodWeights {
	var w PeriodWeights
	w[CategoryMain] = (1 - p.Q) * (1 - p.PInt)
	w[CategoryMainInterrupted] = (1 - p.Q) * p.PInt
	if p.Q > 0 {
		pim := p.PIntAlt
		if math.IsNaN(pim) {
			pim = p.PInt
		}
		w[CategoryAlt] = p.Q * (1 - pim)
		w[CategoryAltInterrupted] = p.Q * pim
	}
	return w
}

// PrimaryPeriodWeights returns the category probabilities of a primary
// infection: PeriodWeights with the excluded categories removed and the rest
// renormalized. ok is false when no category remains.
func (p *Params) PrimaryPeriodWeights() (w PeriodWeights, ok bool) {
	w = p.PeriodWeights()
	excluded := [numCategories]bool{
		CategoryMain:            p.Primary.NoMain,
		CategoryAlt:             p.Primary.NoAlt,
		CategoryMainInterrupted: p.Primary.NoMainInterrupted,
		CategoryAltInterrupted:  p.Primary.NoAltInterrupted,
	}
	total := 0.0
	for c := range w {
		if excluded[c] {
			w[c] = 0
		}
		total += w[c]
	}
	if !(total > 0) {
		return PeriodWeights{}, false
	}
	for c := range w {
		w[c] /= total
	}
	return w, true
}

// Checked reports whether Check succeeded on this value since it was last solved.
func (p *Params) Checked() bool {
	return p.checked
}

// Clone returns a deep copy that keeps the checked mark.
func (p *Params) Clone() Params {
	c := *p
	c.Layers = append([]LayerParams(nil), p.Layers...)
	c.Growth = make([]GrowthParams, len(p.Growth))
	for i, g := range p.Growth {
		c.Growth[i] = g
		if g.Layer != nil {
			l := *g.Layer
			c.Growth[i].Layer = &l
		}
	}
	return c
}

// MaxLayers returns the number of contact layers after every growth event.
func (p *Params) MaxLayers() int {
	n := len(p.Layers)
	for _, g := range p.Growth {
		if g.Layer != nil {
			n++
		}
	}
	return n
}

// MaxPopSize returns the population size after every growth event.
func (p *Params) MaxPopSize() int {
	n := p.PopSize
	for _, g := range p.Growth {
		n += g.AddIndividuals
	}
	return n
}
