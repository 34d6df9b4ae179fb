package cmd

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/outbreak-sim/outbreak-sim/sim/params"
)

const (
	defaultLayerName = "community"
	defaultTopology  = params.TopologyRandom
)

// paramFlags holds the values of the per-parameter flags of `run`.
type paramFlags struct {
	PopSize int
	NStart  int
	TMax    float64

	TBar, Kappa, T95     float64 // communicable period
	LBar, KappaL, L95    float64 // latent period
	Q                    float64
	MBar, KappaQ, M95    float64 // alternate communicable period
	PIT                  float64
	ITBar, KappaIT, IT95 float64 // interrupted main period
	PIM                  float64
	IMBar, KappaIM, IM95 float64 // interrupted alternate period

	PriNoMain, PriNoAlt, PriNoMainInt, PriNoAltInt bool

	Topology   string
	MeanDegree float64
	Group      string
	Lambda     float64
	P          float64
	Mu         float64
	GAve       float64
	PInf       float64
	R0         float64
}

// layerFlags are the flags that address the first contact layer.
var layerFlags = []string{"topology", "mean-degree", "group", "lambda", "p", "mu", "g-ave", "pinf", "R0"}

// rateFlags form the R0 group of a layer.
var rateFlags = []string{"lambda", "p", "mu", "g-ave", "R0"}

// resolveParams builds the solved and checked parameter set of a run.
// With a config file the file is the base and only flags reported by changed
// override it; without one the flag values (defaults included) describe a
// single-layer model.
func resolveParams(f *paramFlags, configPath string, changed func(string) bool) (*params.Params, error) {
	var p *params.Params
	if configPath != "" {
		loaded, err := params.LoadParams(configPath)
		if err != nil {
			return nil, err
		}
		p = loaded
	} else {
		p = f.defaults()
	}
	f.apply(p, changed)

	if err := p.Solve(); err != nil {
		return nil, err
	}
	if err := p.Check(); err != nil {
		return nil, err
	}
	logrus.Debugf("resolved params: popsize=%d nstart=%d tmax=%v period=%+v layers=%+v",
		p.PopSize, p.NStart, p.TMax, p.Period, p.Layers)
	return p, nil
}

// defaults is the parameter set described by the flag values alone.
func (f *paramFlags) defaults() *params.Params {
	p := params.DefaultParams()
	p.PopSize = f.PopSize
	p.NStart = f.NStart
	p.TMax = f.TMax
	p.Period = params.PeriodParams{Mean: f.TBar, Kappa: f.Kappa, X95: math.NaN()}
	p.Latent = params.PeriodParams{Mean: f.LBar, Kappa: f.KappaL, X95: math.NaN()}
	p.Q = f.Q
	p.AltPeriod = params.PeriodParams{Mean: f.MBar, Kappa: f.KappaQ, X95: math.NaN()}
	p.PInt = f.PIT
	p.IntPeriod = params.PeriodParams{Mean: f.ITBar, Kappa: f.KappaIT, X95: math.NaN()}
	p.PIntAlt = f.PIM
	p.IntAltPeriod = params.PeriodParams{Mean: f.IMBar, Kappa: f.KappaIM, X95: math.NaN()}
	p.Primary = params.PrimaryPeriods{
		NoMain:            f.PriNoMain,
		NoAlt:             f.PriNoAlt,
		NoMainInterrupted: f.PriNoMainInt,
		NoAltInterrupted:  f.PriNoAltInt,
	}

	l := params.DefaultLayer(defaultLayerName)
	l.Topology = params.Topology(f.Topology)
	l.MeanDegree = f.MeanDegree
	l.Group = params.GroupModel(f.Group)
	l.Lambda = f.Lambda
	l.P = f.P
	l.PInf = f.PInf
	p.Layers = []params.LayerParams{l}
	return &p
}

// apply overwrites p with every flag that changed reports as set.
func (f *paramFlags) apply(p *params.Params, changed func(string) bool) {
	if changed("popsize") {
		p.PopSize = f.PopSize
	}
	if changed("nstart") {
		p.NStart = f.NStart
	}
	if changed("tmax") {
		p.TMax = f.TMax
	}
	applyPeriod(&p.Period, f.TBar, f.Kappa, f.T95, changed, "tbar", "kappa", "t95")
	applyPeriod(&p.Latent, f.LBar, f.KappaL, f.L95, changed, "lbar", "kappal", "l95")
	if changed("q") {
		p.Q = f.Q
	}
	applyPeriod(&p.AltPeriod, f.MBar, f.KappaQ, f.M95, changed, "mbar", "kappaq", "m95")
	if changed("pit") {
		p.PInt = f.PIT
	}
	applyPeriod(&p.IntPeriod, f.ITBar, f.KappaIT, f.IT95, changed, "itbar", "kappait", "it95")
	if changed("pim") {
		p.PIntAlt = f.PIM
	}
	applyPeriod(&p.IntAltPeriod, f.IMBar, f.KappaIM, f.IM95, changed, "imbar", "kappaim", "im95")
	if changed("pri-no-main-period") {
		p.Primary.NoMain = f.PriNoMain
	}
	if changed("pri-no-alt-period") {
		p.Primary.NoAlt = f.PriNoAlt
	}
	if changed("pri-no-main-period-int") {
		p.Primary.NoMainInterrupted = f.PriNoMainInt
	}
	if changed("pri-no-alt-period-int") {
		p.Primary.NoAltInterrupted = f.PriNoAltInt
	}

	if !anyChanged(changed, layerFlags) {
		return
	}
	if len(p.Layers) == 0 {
		p.Layers = append(p.Layers, params.DefaultLayer(defaultLayerName))
	}
	l := &p.Layers[0]
	if changed("topology") {
		l.Topology = params.Topology(f.Topology)
	}
	if changed("mean-degree") {
		l.MeanDegree = f.MeanDegree
	}
	if changed("group") {
		l.Group = params.GroupModel(f.Group)
	}
	if changed("pinf") {
		l.PInf = f.PInf
	}
	if anyChanged(changed, rateFlags) {
		l.Lambda = ifChanged(changed, "lambda", f.Lambda)
		l.P = ifChanged(changed, "p", f.P)
		l.Mu = ifChanged(changed, "mu", f.Mu)
		l.GAve = ifChanged(changed, "g-ave", f.GAve)
		l.R0 = ifChanged(changed, "R0", f.R0)
	}
}

// applyPeriod overrides a period. A shape flag (kappa or x95) replaces the
// other shape input; a new mean alone keeps kappa and drops a stale x95.
func applyPeriod(pp *params.PeriodParams, mean, kappa, x95 float64, changed func(string) bool, meanFlag, kappaFlag, x95Flag string) {
	if changed(meanFlag) {
		pp.Mean = mean
		if !math.IsNaN(pp.Kappa) {
			pp.X95 = math.NaN()
		}
	}
	switch {
	case changed(kappaFlag) && changed(x95Flag):
		pp.Kappa, pp.X95 = kappa, x95
	case changed(kappaFlag):
		pp.Kappa, pp.X95 = kappa, math.NaN()
	case changed(x95Flag):
		pp.Kappa, pp.X95 = math.NaN(), x95
	}
}

func anyChanged(changed func(string) bool, names []string) bool {
	for _, n := range names {
		if changed(n) {
			return true
		}
	}
	return false
}

func ifChanged(changed func(string) bool, name string, v float64) float64 {
	if changed(name) {
		return v
	}
	return math.NaN()
}
