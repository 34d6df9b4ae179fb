// Package rng holds the random-source contract consumed by the simulator and
// the adapter that derives every distribution the epidemic model needs from
// uniform draws. The simulator never generates randomness itself.
package rng

import "math"

// poissonChunk bounds the mean handed to the multiplicative Poisson sampler;
// larger means are split into independent chunks.
const poissonChunk = 30.0

// Adapter wraps a Source and counts the uniform draws taken from it.
// All samplers below are built exclusively on Uniform/UniformPos so that the
// number and order of draws depend only on the sampled values.
//
// Thread-safety: NOT thread-safe. One Adapter per simulator.
type Adapter struct {
	src   Source
	draws uint64
}

// NewAdapter wraps src. Panics on a nil source.
func NewAdapter(src Source) *Adapter {
	if src == nil {
		panic("rng.NewAdapter: source must not be nil")
	}
	return &Adapter{src: src}
}

// Draws returns the number of uniform draws consumed so far.
func (a *Adapter) Draws() uint64 {
	return a.draws
}

// Uniform returns a uniform value in [0, 1).
func (a *Adapter) Uniform() float64 {
	a.draws++
	return a.src.Float64()
}

// UniformPos returns a uniform value in (0, 1).
func (a *Adapter) UniformPos() float64 {
	for {
		if u := a.Uniform(); u > 0 {
			return u
		}
	}
}

// Bernoulli returns true with probability p.
func (a *Adapter) Bernoulli(p float64) bool {
	return a.Uniform() < p
}

// Intn returns a uniform integer in [0, n). Panics if n <= 0.
func (a *Adapter) Intn(n int) int {
	if n <= 0 {
		panic("rng.Adapter.Intn: n must be positive")
	}
	i := int(a.Uniform() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Exponential returns an exponential variate with the given mean.
func (a *Adapter) Exponential(mean float64) float64 {
	return -mean * math.Log(a.UniformPos())
}

// Normal returns a standard normal variate (Box-Muller, two draws).
func (a *Adapter) Normal() float64 {
	u1 := a.UniformPos()
	u2 := a.Uniform()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// Gamma returns a gamma variate with the given shape and unit scale
// (Marsaglia-Tsang; shape < 1 uses the boost U^(1/shape)).
func (a *Adapter) Gamma(shape float64) float64 {
	if shape <= 0 {
		return 0
	}
	if shape < 1 {
		g := a.Gamma(1 + shape)
		return g * math.Pow(a.UniformPos(), 1/shape)
	}
	d := shape - 1.0/3
	c := 1 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = a.Normal()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := a.UniformPos()
		x2 := x * x
		if u < 1-0.0331*x2*x2 {
			return d * v
		}
		if math.Log(u) < 0.5*x2+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// GammaPeriod samples a duration with the given mean and kappa, where the
// gamma shape is mean*kappa and the rate is kappa. A zero mean yields zero
// and an infinite kappa yields the mean itself; neither consumes draws.
func (a *Adapter) GammaPeriod(mean, kappa float64) float64 {
	if mean == 0 {
		return 0
	}
	if math.IsInf(kappa, 1) {
		return mean
	}
	return a.Gamma(mean*kappa) / kappa
}

// Poisson returns a Poisson variate with the given mean.
func (a *Adapter) Poisson(mean float64) int {
	if !(mean > 0) {
		return 0
	}
	n := 0
	for mean > poissonChunk {
		n += a.poissonSmall(poissonChunk)
		mean -= poissonChunk
	}
	return n + a.poissonSmall(mean)
}

// poissonSmall is Knuth's multiplicative method.
func (a *Adapter) poissonSmall(mean float64) int {
	limit := math.Exp(-mean)
	k := 0
	prod := 1.0
	for {
		prod *= a.Uniform()
		if prod <= limit {
			return k
		}
		k++
	}
}

// Logarithmic returns a variate of the logarithmic series distribution with
// parameter p in [0, 1), support {1, 2, ...} (Kemp's second accelerated
// generator). p == 0 always yields 1.
func (a *Adapter) Logarithmic(p float64) int {
	v := a.UniformPos()
	if v >= p {
		return 1
	}
	c := math.Log(1 - p)
	u := a.UniformPos()
	q := 1 - math.Exp(c*u)
	switch {
	case v <= q*q:
		return int(1 + math.Log(v)/math.Log(q))
	case v <= q:
		return 2
	default:
		return 1
	}
}

// LogarithmicRange returns a logarithmic variate with parameter p in [0, 1)
// conditioned on lo <= k <= hi, by inversion with a single draw. hi < lo means
// no upper bound. p == 0, the limit of the conditioned law, yields lo without
// drawing. Panics if lo < 1.
func (a *Adapter) LogarithmicRange(p float64, lo, hi int) int {
	if lo < 1 {
		panic("rng.Adapter.LogarithmicRange: lo must be >= 1")
	}
	bounded := hi >= lo
	if p == 0 || (bounded && hi == lo) {
		return lo
	}
	// Unnormalized pmf terms p^k/k.
	first := math.Pow(p, float64(lo)) / float64(lo)
	var mass float64
	if bounded || p <= 0.5 {
		term, pk := first, math.Pow(p, float64(lo))
		for k := lo; ; k++ {
			mass += term
			if (bounded && k == hi) || (!bounded && term < mass*1e-17) {
				break
			}
			pk *= p
			term = pk / float64(k+1)
		}
	} else {
		mass = -math.Log1p(-p)
		pk := 1.0
		for k := 1; k < lo; k++ {
			pk *= p
			mass -= pk / float64(k)
		}
	}
	target := a.Uniform() * mass
	term, pk := first, math.Pow(p, float64(lo))
	for k := lo; ; k++ {
		target -= term
		if target < 0 || (bounded && k == hi) || term < mass*1e-17 {
			return k
		}
		pk *= p
		term = pk / float64(k+1)
	}
}

// SampleDistinct picks k distinct values from items (k capped at len(items))
// with a partial Fisher-Yates shuffle over a copy; items is not modified.
func (a *Adapter) SampleDistinct(items []int, k int) []int {
	if k > len(items) {
		k = len(items)
	}
	if k <= 0 {
		return nil
	}
	pool := make([]int, len(items))
	copy(pool, items)
	for i := 0; i < k; i++ {
		j := i + a.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
