package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/outbreak-sim/outbreak-sim/sim/params"
)

// Resource ceilings checked by New before anything is allocated.
const (
	MaxIndividuals = 1 << 24
	MaxEdges       = 1 << 28
)

// ErrResourceExhausted is returned by New when the population table or the
// contact layers would exceed MaxIndividuals or MaxEdges.
var ErrResourceExhausted = errors.New("simulation resources exhausted")

// checkResources bounds the final population and the total undirected edge
// count, including everything added by scheduled growth.
func checkResources(p *params.Params) error {
	if n := p.MaxPopSize(); n > MaxIndividuals {
		return fmt.Errorf("%w: population of %d exceeds %d individuals", ErrResourceExhausted, n, MaxIndividuals)
	}
	pop := p.PopSize
	layers := append([]params.LayerParams(nil), p.Layers...)
	edges := 0.0
	for _, l := range layers {
		edges += estimateEdges(l, pop)
	}
	for _, g := range p.Growth {
		for _, l := range layers {
			edges += float64(g.AddIndividuals) * float64(roundDegree(l.MeanDegree))
		}
		pop += g.AddIndividuals
		if g.Layer != nil {
			layers = append(layers, *g.Layer)
			edges += estimateEdges(*g.Layer, pop)
		}
	}
	if edges > MaxEdges {
		return fmt.Errorf("%w: contact layers need about %.0f edges, limit is %d", ErrResourceExhausted, edges, MaxEdges)
	}
	return nil
}

// estimateEdges returns an upper bound on the edges buildLayer creates.
func estimateEdges(l params.LayerParams, n int) float64 {
	nf := float64(n)
	switch l.Topology {
	case params.TopologyComplete:
		return nf * (nf - 1) / 2
	case params.TopologyGroups:
		return nf * float64(roundDegree(l.MeanDegree)) / 2
	case params.TopologyRing:
		return nf * float64(ringHalfWidth(l.MeanDegree, n))
	default:
		return math.Round(nf * l.MeanDegree / 2)
	}
}

func roundDegree(d float64) int {
	return int(math.Round(d))
}

// ringHalfWidth is the number of neighbours on each side of a ring node.
func ringHalfWidth(d float64, n int) int {
	half := roundDegree(d) / 2
	if limit := (n - 1) / 2; half > limit {
		half = limit
	}
	return half
}

func (s *Simulator) link(layer, a, b int) {
	s.table[a].neighbors[layer] = append(s.table[a].neighbors[layer], b)
	s.table[b].neighbors[layer] = append(s.table[b].neighbors[layer], a)
}

// buildLayer wires individuals [0, n) on the given layer.
func (s *Simulator) buildLayer(layer int, lp params.LayerParams, n int) {
	switch lp.Topology {
	case params.TopologyComplete:
		s.linkClique(layer, 0, n)
	case params.TopologyGroups:
		size := roundDegree(lp.MeanDegree) + 1
		for start := 0; start < n; start += size {
			s.linkClique(layer, start, min(start+size, n))
		}
	case params.TopologyRing:
		half := ringHalfWidth(lp.MeanDegree, n)
		for i := 0; i < n; i++ {
			for j := 1; j <= half; j++ {
				s.link(layer, i, (i+j)%n)
			}
		}
	default:
		s.linkRandom(layer, lp.MeanDegree, n)
	}
}

func (s *Simulator) linkClique(layer, from, to int) {
	for a := from; a < to; a++ {
		for b := a + 1; b < to; b++ {
			s.link(layer, a, b)
		}
	}
}

// linkRandom draws round(n*d/2) distinct edges uniformly (G(n,m)).
func (s *Simulator) linkRandom(layer int, d float64, n int) {
	m := int(math.Round(float64(n) * d / 2))
	if maxM := n * (n - 1) / 2; m > maxM {
		m = maxM
	}
	seen := make(map[[2]int]struct{}, m)
	for len(seen) < m {
		a, b := s.rng.Intn(n), s.rng.Intn(n)
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		key := [2]int{a, b}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		s.link(layer, a, b)
	}
}

// attach links a newly appended individual to min(round(d), id) existing ones.
func (s *Simulator) attach(layer, id int, lp params.LayerParams) {
	k := min(roundDegree(lp.MeanDegree), id)
	for _, nb := range s.sampleRange(id, k) {
		s.link(layer, id, nb)
	}
}

// sampleRange picks k distinct integers from [0, n).
func (s *Simulator) sampleRange(n, k int) []int {
	if 2*k > n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return s.rng.SampleDistinct(all, k)
	}
	picked := make([]int, 0, k)
	seen := make(map[int]struct{}, k)
	for len(picked) < k {
		v := s.rng.Intn(n)
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		picked = append(picked, v)
	}
	return picked
}

// grow applies one scheduled growth step at time t.
func (s *Simulator) grow(t float64, g params.GrowthParams) {
	info := GrowthInfo{
		Time:           t,
		PrevPopulation: len(s.table),
		PrevLayers:     len(s.layers),
	}
	for i := 0; i < g.AddIndividuals; i++ {
		id := len(s.table)
		s.table = append(s.table, newIndividual(id, len(s.layers)))
		s.counts.Susceptible++
		for l := range s.layers {
			s.attach(l, id, s.layers[l])
		}
	}
	if g.Layer != nil {
		layer := len(s.layers)
		s.layers = append(s.layers, *g.Layer)
		for i := range s.table {
			s.table[i].neighbors = append(s.table[i].neighbors, nil)
		}
		s.buildLayer(layer, *g.Layer, len(s.table))
		// Individuals already infected keep transmitting on the new layer
		// for what remains of their communicable period.
		for i := range s.table {
			ind := &s.table[i]
			if !ind.Active() {
				continue
			}
			start := math.Max(t, ind.InfectiousTime)
			if ind.EndTime <= start {
				continue
			}
			info.Attempts += s.sampleContacts(ind, layer, start, ind.EndTime-start)
		}
	}
	info.Population = len(s.table)
	info.Layers = len(s.layers)
	logrus.Debugf("growth at %.4f: population %d -> %d, layers %d -> %d, %d attempts",
		t, info.PrevPopulation, info.Population, info.PrevLayers, info.Layers, info.Attempts)
	if s.procs.IncreaseLayers != nil {
		s.procs.IncreaseLayers(s.view, info)
	}
}
