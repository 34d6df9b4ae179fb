package params

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	bisectIterations = 200
	bisectRelTol     = 1e-12

	// The 95th-percentile/mean ratio of a gamma distribution is monotone
	// decreasing in the shape only above a small shape; below it the ratio
	// falls back towards zero. Kappa is searched over shapes in this range.
	minSolvableShape = 0.2
	maxSolvableShape = 1e9
)

// Solve fills in the dependent parameters. For each gamma period it derives
// X95 from Kappa or Kappa from X95; for each layer it derives the spellings
// of the gathering-size law (P, Mu, GAve) from the one given and the missing
// member of the R0 group from the other two. Interrupted periods are solved
// only when their probability is positive.
// Solve expects unsolved inputs: a solved period carries both kappa and x95
// and is rejected. Solve clears the checked mark; call Check afterwards.
func (p *Params) Solve() error {
	p.checked = false
	if err := solvePeriod("period", &p.Period); err != nil {
		return err
	}
	if p.PInt > 0 {
		if err := solvePeriod("int_period", &p.IntPeriod); err != nil {
			return err
		}
	}
	if math.IsNaN(p.PIntAlt) {
		p.PIntAlt = p.PInt
	}
	if p.Q > 0 {
		if err := solvePeriod("alt_period", &p.AltPeriod); err != nil {
			return err
		}
		if p.PIntAlt > 0 {
			if err := p.solveIntAltPeriod(); err != nil {
				return err
			}
		}
	}
	if math.IsNaN(p.Latent.Mean) {
		p.Latent = FixedPeriod(0)
	}
	if err := solvePeriod("latent", &p.Latent); err != nil {
		return err
	}
	tbar := p.Period.Mean
	for i := range p.Layers {
		if err := solveLayer(fmt.Sprintf("layers[%d]", i), &p.Layers[i], tbar); err != nil {
			return err
		}
	}
	for i := range p.Growth {
		if p.Growth[i].Layer == nil {
			continue
		}
		if err := solveLayer(fmt.Sprintf("growth[%d].layer", i), p.Growth[i].Layer, tbar); err != nil {
			return err
		}
	}
	return nil
}

// solveIntAltPeriod fills the interrupted alternate period. With nothing
// given it is the interrupted main period; a missing mean alone is taken
// from the interrupted main period.
func (p *Params) solveIntAltPeriod() error {
	ia := &p.IntAltPeriod
	if math.IsNaN(ia.Mean) && math.IsNaN(ia.Kappa) && math.IsNaN(ia.X95) {
		*ia = p.IntPeriod
		if math.IsNaN(ia.Mean) {
			return configErrorf("int_alt_period.mean", "is required when int_period is not given")
		}
		if !math.IsNaN(ia.Kappa) && !math.IsNaN(ia.X95) {
			return nil
		}
	}
	if math.IsNaN(ia.Mean) {
		ia.Mean = p.IntPeriod.Mean
	}
	return solvePeriod("int_alt_period", ia)
}

func solvePeriod(field string, pp *PeriodParams) error {
	if math.IsNaN(pp.Mean) {
		return configErrorf(field+".mean", "is required")
	}
	if pp.Mean <= 0 {
		// Zero-length periods are fixed. Negative means are left to Check.
		pp.Kappa = math.Inf(1)
		pp.X95 = pp.Mean
		return nil
	}
	haveKappa := !math.IsNaN(pp.Kappa)
	haveX95 := !math.IsNaN(pp.X95)
	switch {
	case haveKappa && haveX95:
		return configErrorf(field, "kappa and x95 are mutually exclusive")
	case haveKappa:
		if !(pp.Kappa > 0) {
			return configErrorf(field+".kappa", "must be positive, got %v", pp.Kappa)
		}
		pp.X95 = GammaX95(pp.Mean, pp.Kappa)
	case haveX95:
		kappa, err := solveKappa(pp.Mean, pp.X95)
		if err != nil {
			return configErrorf(field+".x95", "%v", err)
		}
		pp.Kappa = kappa
	default:
		return configErrorf(field, "one of kappa or x95 is required")
	}
	return nil
}

// GammaX95 returns the 95th percentile of the gamma distribution with the
// given mean and kappa (shape mean*kappa, rate kappa).
func GammaX95(mean, kappa float64) float64 {
	if mean == 0 {
		return 0
	}
	if math.IsInf(kappa, 1) {
		return mean
	}
	return distuv.Gamma{Alpha: mean * kappa, Beta: kappa}.Quantile(0.95)
}

func solveKappa(mean, x95 float64) (float64, error) {
	if math.IsInf(x95, 0) || x95 < mean {
		return 0, fmt.Errorf("must be finite and not smaller than the mean %v, got %v", mean, x95)
	}
	if x95 == mean {
		return math.Inf(1), nil
	}
	ratio := func(shape float64) float64 {
		return distuv.Gamma{Alpha: shape, Beta: shape}.Quantile(0.95)
	}
	target := x95 / mean
	if target > ratio(minSolvableShape) {
		return 0, fmt.Errorf("x95/mean ratio %v is too large for a gamma distribution", target)
	}
	// ratio is decreasing in log(shape); bisect on the log scale.
	lo, hi := math.Log(minSolvableShape), math.Log(maxSolvableShape)
	shape := bisect(func(x float64) float64 { return ratio(math.Exp(x)) - target }, lo, hi, false)
	return math.Exp(shape) / mean, nil
}

// LogarithmicMean returns the mean of the logarithmic series distribution
// with parameter p; LogarithmicMean(0) == 1.
func LogarithmicMean(p float64) float64 {
	if p == 0 {
		return 1
	}
	return -p / ((1 - p) * math.Log(1-p))
}

// LogarithmicP inverts LogarithmicMean for mu >= 1.
func LogarithmicP(mu float64) (float64, error) {
	if math.IsNaN(mu) || math.IsInf(mu, 0) || mu < 1 {
		return 0, fmt.Errorf("logarithmic mean must be finite and >= 1, got %v", mu)
	}
	if mu == 1 {
		return 0, nil
	}
	// LogarithmicMean is increasing in p.
	return bisect(func(p float64) float64 { return LogarithmicMean(p) - mu }, 1e-15, 1-1e-15, true), nil
}

// GroupMean returns the mean gathering size GAve of the group model for the
// logarithmic parameter p. For the truncated models p == 0 is the limit of
// gatherings of exactly two.
func GroupMean(model GroupModel, p float64) float64 {
	switch model {
	case GroupAttendees, GroupInvitees:
		if p == 0 {
			return 2
		}
		return -p * p / ((1 - p) * (math.Log(1-p) + p))
	default:
		return LogarithmicMean(p) + 1
	}
}

// GroupP inverts GroupMean for gAve >= 2.
func GroupP(model GroupModel, gAve float64) (float64, error) {
	if math.IsNaN(gAve) || math.IsInf(gAve, 0) || gAve < 2 {
		return 0, fmt.Errorf("mean gathering size must be finite and >= 2, got %v", gAve)
	}
	switch model {
	case GroupAttendees, GroupInvitees:
		if gAve == 2 {
			return 0, nil
		}
		// The truncated mean is increasing in p.
		return bisect(func(p float64) float64 { return GroupMean(model, p) - gAve }, 1e-15, 1-1e-15, true), nil
	default:
		return LogarithmicP(gAve - 1)
	}
}

func solveLayer(prefix string, l *LayerParams, tbar float64) error {
	if l.Group == "" {
		l.Group = GroupAttendeesPlusOne
	}
	if !validGroupModels[l.Group] {
		return configErrorf(prefix+".group", "unknown group model %q; valid: %s, %s, %s",
			l.Group, GroupAttendeesPlusOne, GroupAttendees, GroupInvitees)
	}
	sizeInputs := 0
	for _, v := range []float64{l.P, l.Mu, l.GAve} {
		if !math.IsNaN(v) {
			sizeInputs++
		}
	}
	if sizeInputs > 1 {
		return configErrorf(prefix, "p, mu and g_ave are mutually exclusive")
	}
	if !math.IsNaN(l.Mu) {
		p, err := LogarithmicP(l.Mu)
		if err != nil {
			return configErrorf(prefix+".mu", "%v", err)
		}
		l.P = p
	}
	if !math.IsNaN(l.P) {
		if l.P < 0 || l.P >= 1 {
			return configErrorf(prefix+".p", "must be in [0, 1), got %v", l.P)
		}
		l.Mu = LogarithmicMean(l.P)
		l.GAve = GroupMean(l.Group, l.P)
	}
	if math.IsNaN(l.PInf) {
		l.PInf = 1
	}

	haveLambda := !math.IsNaN(l.Lambda)
	haveSize := !math.IsNaN(l.GAve)
	haveR0 := !math.IsNaN(l.R0)
	given := 0
	for _, b := range []bool{haveLambda, haveSize, haveR0} {
		if b {
			given++
		}
	}
	if given != 2 {
		return configErrorf(prefix, "exactly two of lambda, p/mu/g_ave and R0 must be given, got %d", given)
	}
	switch {
	case !haveR0:
		l.R0 = l.Lambda * tbar * (l.GAve - 1) * l.PInf
	case !haveLambda:
		denom := tbar * (l.GAve - 1) * l.PInf
		if denom == 0 {
			return configErrorf(prefix+".lambda", "cannot be derived when tbar*(g_ave-1)*pinf is zero")
		}
		l.Lambda = l.R0 / denom
	case !haveSize:
		denom := l.Lambda * tbar * l.PInf
		if denom == 0 {
			return configErrorf(prefix+".g_ave", "cannot be derived when lambda*tbar*pinf is zero")
		}
		l.GAve = 1 + l.R0/denom
	}
	if math.IsNaN(l.P) {
		p, err := GroupP(l.Group, l.GAve)
		if err != nil {
			return configErrorf(prefix+".g_ave", "%v", err)
		}
		l.P = p
		l.Mu = LogarithmicMean(p)
	}
	return nil
}

// bisect finds the root of f in [lo, hi]. increasing tells the direction of f.
func bisect(f func(float64) float64, lo, hi float64, increasing bool) float64 {
	for i := 0; i < bisectIterations; i++ {
		mid := 0.5 * (lo + hi)
		v := f(mid)
		if v == 0 {
			return mid
		}
		if (v > 0) == increasing {
			hi = mid
		} else {
			lo = mid
		}
		if hi-lo <= bisectRelTol*math.Max(math.Abs(lo), math.Abs(hi)) {
			break
		}
	}
	return 0.5 * (lo + hi)
}
