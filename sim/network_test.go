package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outbreak-sim/outbreak-sim/sim/params"
	"github.com/outbreak-sim/outbreak-sim/sim/rng"
)

// newTestSimulator returns a simulator with the given layers and no growth.
func newTestSimulator(t *testing.T, popsize int, layers ...params.LayerParams) *Simulator {
	t.Helper()
	p := params.DefaultParams()
	p.PopSize = popsize
	p.Period = params.FixedPeriod(3)
	for _, l := range layers {
		if math.IsNaN(l.Lambda) {
			l.Lambda = 0.5
		}
		l.P = 0
		p.Layers = append(p.Layers, l)
	}
	require.NoError(t, p.Solve())
	require.NoError(t, p.Check())
	s, err := New(&p, rng.NewMathSource(11))
	require.NoError(t, err)
	return s
}

func layer(topology params.Topology, degree float64) params.LayerParams {
	l := params.DefaultLayer(string(topology))
	l.Topology = topology
	l.MeanDegree = degree
	return l
}

// edgeSet collects undirected edges of a layer and checks adjacency symmetry.
func edgeSet(t *testing.T, s *Simulator, l int) map[[2]int]bool {
	t.Helper()
	edges := map[[2]int]bool{}
	for id := range s.table {
		for _, nb := range s.table[id].neighbors[l] {
			require.NotEqual(t, id, nb, "self loop on %d", id)
			a, b := min(id, nb), max(id, nb)
			edges[[2]int{a, b}] = true
		}
	}
	total := 0
	for id := range s.table {
		total += len(s.table[id].neighbors[l])
	}
	require.Equal(t, 2*len(edges), total, "adjacency must be symmetric without duplicates")
	return edges
}

func TestBuildLayer_Random_ExactEdgeCount(t *testing.T) {
	s := newTestSimulator(t, 200, layer(params.TopologyRandom, 4))
	assert.Len(t, edgeSet(t, s, 0), 400)
}

func TestBuildLayer_Ring_UniformDegree(t *testing.T) {
	s := newTestSimulator(t, 50, layer(params.TopologyRing, 5)) // rounds to 5, half-width 2
	edgeSet(t, s, 0)
	for id := range s.table {
		assert.Len(t, s.table[id].neighbors[0], 4, "individual %d", id)
	}
}

func TestBuildLayer_Groups_Cliques(t *testing.T) {
	s := newTestSimulator(t, 10, layer(params.TopologyGroups, 3)) // groups of 4: 4+4+2
	edges := edgeSet(t, s, 0)
	assert.Len(t, edges, 6+6+1)
	assert.True(t, edges[[2]int{0, 3}])
	assert.False(t, edges[[2]int{3, 4}], "groups must not be linked to each other")
	assert.True(t, edges[[2]int{8, 9}])
}

func TestBuildLayer_Complete(t *testing.T) {
	s := newTestSimulator(t, 12, layer(params.TopologyComplete, 0))
	assert.Len(t, edgeSet(t, s, 0), 12*11/2)
}

func TestGrow_AppendsIndividualsAndLayer(t *testing.T) {
	// GIVEN a 30-individual ring
	s := newTestSimulator(t, 30, layer(params.TopologyRing, 4))
	school := layer(params.TopologyGroups, 2)
	school.Lambda, school.P, school.Mu, school.PInf = 0.5, 0, 1, 1
	var got []GrowthInfo
	s.SetIncreaseLayersProcFunc(func(v View, g GrowthInfo) {
		got = append(got, g)
		assert.Equal(t, 35, v.PopulationSize())
		assert.Equal(t, 2, v.NumLayers())
	})

	// WHEN 5 individuals and a layer are added
	s.grow(1, params.GrowthParams{Time: 1, AddIndividuals: 5, Layer: &school})

	// THEN IDs are stable, new individuals are attached, and the callback fires once
	require.Len(t, got, 1)
	assert.Equal(t, GrowthInfo{Time: 1, PrevPopulation: 30, Population: 35, PrevLayers: 1, Layers: 2}, got[0])
	for id := 30; id < 35; id++ {
		assert.Equal(t, id, s.table[id].ID)
		assert.Equal(t, StatusSusceptible, s.table[id].Status)
		assert.GreaterOrEqual(t, len(s.table[id].neighbors[0]), 4, "attached to round(4) existing individuals")
	}
	edgeSet(t, s, 0)
	assert.Len(t, edgeSet(t, s, 1), 11*3+1) // 11 groups of 3 + one pair
	assert.Equal(t, 35, s.Counts().Susceptible)
}

func TestGrow_NewLayer_ReportsAttemptsOfActiveCases(t *testing.T) {
	// GIVEN individual 0 infected at t=0 with a fixed period of 3
	s := newTestSimulator(t, 20, layer(params.TopologyRing, 2))
	s.infect(&InfectionEvent{time: 0, Target: 0, Source: -1, Layer: -1})
	before := s.Counts().Attempts
	var got GrowthInfo
	s.SetIncreaseLayersProcFunc(func(v View, g GrowthInfo) { got = g })

	// WHEN a dense complete layer is added at t=1
	dense := layer(params.TopologyComplete, 0)
	dense.Lambda, dense.P, dense.Mu, dense.PInf = 5, 0, 1, 1
	s.grow(1, params.GrowthParams{Time: 1, Layer: &dense})

	// THEN the attempts sampled for the remaining period are reported with the growth
	assert.Positive(t, got.Attempts)
	assert.Equal(t, s.Counts().Attempts-before, got.Attempts)
	assert.Equal(t, s.table[0].Attempts, s.Counts().Attempts)
}

func TestGatheringContacts_GroupModels(t *testing.T) {
	s := newTestSimulator(t, 20, layer(params.TopologyRing, 2))
	lp := params.DefaultLayer("g")
	lp.P = 0.9

	t.Run("attendees bounded by degree", func(t *testing.T) {
		lp.Group = params.GroupAttendees
		for i := 0; i < 500; i++ {
			k := s.gatheringContacts(&lp, 3)
			require.GreaterOrEqual(t, k, 1)
			require.LessOrEqual(t, k, 3)
		}
		before := s.Draws()
		assert.Zero(t, s.gatheringContacts(&lp, 0), "no neighbours, no gathering")
		assert.Equal(t, before, s.Draws())
	})

	t.Run("invitees unbounded", func(t *testing.T) {
		lp.Group = params.GroupInvitees
		largest := 0
		for i := 0; i < 500; i++ {
			k := s.gatheringContacts(&lp, 3)
			require.GreaterOrEqual(t, k, 1)
			largest = max(largest, k)
		}
		assert.Greater(t, largest, 3, "invitations may exceed the neighbourhood")
	})

	t.Run("attendees plus one at p=0", func(t *testing.T) {
		lp.Group = params.GroupAttendeesPlusOne
		lp.P = 0
		assert.Equal(t, 1, s.gatheringContacts(&lp, 3))
	})
}

func TestCheckResources_Limits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *params.Params)
	}{
		{"population", func(p *params.Params) { p.PopSize = MaxIndividuals + 1 }},
		{"complete layer", func(p *params.Params) {
			p.PopSize = 100000
			p.Layers[0].Topology = params.TopologyComplete
		}},
		{"growth", func(p *params.Params) {
			p.Growth = []params.GrowthParams{{Time: 1, AddIndividuals: MaxIndividuals}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params.DefaultParams()
			p.PopSize = 10
			p.Period = params.FixedPeriod(1)
			p.Layers = []params.LayerParams{layer(params.TopologyRandom, 2)}
			tt.mutate(&p)
			err := checkResources(&p)
			assert.True(t, errors.Is(err, ErrResourceExhausted), "got %v", err)
		})
	}
}
