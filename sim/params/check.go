package params

import (
	"fmt"
	"math"
)

// ConfigError identifies the first parameter that violates a constraint.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Check validates p and returns a *ConfigError for the first violated
// constraint, in field order: popsize, nstart, tmax, period, pit,
// int_period, q, alt_period, pim, int_alt_period, primary, latent, layers,
// growth. Values are never clamped. Derived fields must have
// been filled by Solve. On success p is marked checked.
func (p *Params) Check() error {
	p.checked = false
	if p.PopSize <= 0 {
		return configErrorf("popsize", "must be positive, got %d", p.PopSize)
	}
	if p.NStart < 1 || p.NStart > p.PopSize {
		return configErrorf("nstart", "must be in [1, popsize=%d], got %d", p.PopSize, p.NStart)
	}
	if math.IsNaN(p.TMax) || p.TMax <= 0 {
		return configErrorf("tmax", "must be positive, got %v", p.TMax)
	}
	if err := checkPeriod("period", p.Period, false); err != nil {
		return err
	}
	if err := probability("pit", p.PInt); err != nil {
		return err
	}
	if p.PInt > 0 {
		if err := checkPeriod("int_period", p.IntPeriod, false); err != nil {
			return err
		}
	}
	if err := probability("q", p.Q); err != nil {
		return err
	}
	if p.Q > 0 {
		if err := checkPeriod("alt_period", p.AltPeriod, false); err != nil {
			return err
		}
		if err := probability("pim", p.PIntAlt); err != nil {
			return err
		}
		if p.PIntAlt > 0 {
			if err := checkPeriod("int_alt_period", p.IntAltPeriod, false); err != nil {
				return err
			}
		}
	}
	if _, ok := p.PrimaryPeriodWeights(); !ok {
		return configErrorf("primary", "every communicable period category with a positive probability is excluded for primary infections")
	}
	if err := checkPeriod("latent", p.Latent, true); err != nil {
		return err
	}
	if len(p.Layers) == 0 {
		return configErrorf("layers", "at least one contact layer is required")
	}
	pop := p.PopSize
	for i := range p.Layers {
		if err := checkLayer(fmt.Sprintf("layers[%d]", i), &p.Layers[i], pop); err != nil {
			return err
		}
	}
	for i, g := range p.Growth {
		prefix := fmt.Sprintf("growth[%d]", i)
		if math.IsNaN(g.Time) || math.IsInf(g.Time, 0) || g.Time < 0 {
			return configErrorf(prefix+".time", "must be a finite non-negative number, got %v", g.Time)
		}
		if i > 0 && g.Time < p.Growth[i-1].Time {
			return configErrorf(prefix+".time", "growth events must be in time order, %v < %v", g.Time, p.Growth[i-1].Time)
		}
		if g.AddIndividuals < 0 {
			return configErrorf(prefix+".add_individuals", "must be non-negative, got %d", g.AddIndividuals)
		}
		if g.AddIndividuals == 0 && g.Layer == nil {
			return configErrorf(prefix, "must add individuals or a layer")
		}
		pop += g.AddIndividuals
		if g.Layer != nil {
			if err := checkLayer(prefix+".layer", g.Layer, pop); err != nil {
				return err
			}
		}
	}
	p.checked = true
	return nil
}

func checkPeriod(field string, pp PeriodParams, allowZero bool) error {
	if math.IsNaN(pp.Mean) || math.IsInf(pp.Mean, 0) || pp.Mean < 0 {
		return configErrorf(field+".mean", "must be a finite non-negative number, got %v", pp.Mean)
	}
	if pp.Mean == 0 {
		if allowZero {
			return nil
		}
		return configErrorf(field+".mean", "must be positive, got 0")
	}
	if math.IsNaN(pp.Kappa) || pp.Kappa <= 0 {
		return configErrorf(field+".kappa", "must be positive (solved), got %v", pp.Kappa)
	}
	if math.IsNaN(pp.X95) || math.IsInf(pp.X95, 0) || pp.X95 < pp.Mean {
		return configErrorf(field+".x95", "must be finite and not smaller than the mean, got %v", pp.X95)
	}
	return nil
}

func checkLayer(prefix string, l *LayerParams, pop int) error {
	if !validTopologies[l.Topology] {
		return configErrorf(prefix+".topology", "unknown topology %q; valid: random, ring, groups, complete", l.Topology)
	}
	if math.IsNaN(l.MeanDegree) || math.IsInf(l.MeanDegree, 0) || l.MeanDegree < 0 {
		return configErrorf(prefix+".mean_degree", "must be a finite non-negative number, got %v", l.MeanDegree)
	}
	if l.Topology != TopologyComplete && l.MeanDegree > float64(pop-1) {
		return configErrorf(prefix+".mean_degree", "must not exceed popsize-1=%d, got %v", pop-1, l.MeanDegree)
	}
	if !validGroupModels[l.Group] {
		return configErrorf(prefix+".group", "unknown group model %q", l.Group)
	}
	if err := finiteNonNegative(prefix+".lambda", l.Lambda); err != nil {
		return err
	}
	if math.IsNaN(l.P) || l.P < 0 || l.P >= 1 {
		return configErrorf(prefix+".p", "must be in [0, 1), got %v", l.P)
	}
	if math.IsNaN(l.Mu) || math.IsInf(l.Mu, 0) || l.Mu < 1 {
		return configErrorf(prefix+".mu", "must be finite and >= 1, got %v", l.Mu)
	}
	if math.IsNaN(l.GAve) || math.IsInf(l.GAve, 0) || l.GAve < 2 {
		return configErrorf(prefix+".g_ave", "must be finite and >= 2, got %v", l.GAve)
	}
	if math.IsNaN(l.PInf) || l.PInf < 0 || l.PInf > 1 {
		return configErrorf(prefix+".pinf", "must be in [0, 1], got %v", l.PInf)
	}
	return finiteNonNegative(prefix+".r0", l.R0)
}

func probability(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return configErrorf(field, "must be in [0, 1], got %v", v)
	}
	return nil
}

func finiteNonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return configErrorf(field, "must be a finite non-negative number, got %v", v)
	}
	return nil
}
