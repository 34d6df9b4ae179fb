package params

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// File is the YAML form of Params. Optional numeric fields are pointers so
// that an absent key stays unset and is derived by Solve.
type File struct {
	PopSize      int          `yaml:"popsize"`
	NStart       *int         `yaml:"nstart,omitempty"`
	TMax         *float64     `yaml:"tmax,omitempty"`
	Period       PeriodFile   `yaml:"period"`
	AltPeriod    *PeriodFile  `yaml:"alt_period,omitempty"`
	Q            float64      `yaml:"q,omitempty"`
	Latent       *PeriodFile  `yaml:"latent,omitempty"`
	PInt         float64      `yaml:"pit,omitempty"`
	IntPeriod    *PeriodFile  `yaml:"int_period,omitempty"`
	PIntAlt      *float64     `yaml:"pim,omitempty"`
	IntAltPeriod *PeriodFile  `yaml:"int_alt_period,omitempty"`
	Primary      PrimaryFile  `yaml:"primary,omitempty"`
	Layers       []LayerFile  `yaml:"layers"`
	Growth       []GrowthFile `yaml:"growth,omitempty"`
}

// PrimaryFile is the YAML form of PrimaryPeriods.
type PrimaryFile struct {
	NoMain            bool `yaml:"no_main,omitempty"`
	NoAlt             bool `yaml:"no_alt,omitempty"`
	NoMainInterrupted bool `yaml:"no_main_interrupted,omitempty"`
	NoAltInterrupted  bool `yaml:"no_alt_interrupted,omitempty"`
}

// PeriodFile is the YAML form of PeriodParams.
type PeriodFile struct {
	Mean  *float64 `yaml:"mean"`
	Kappa *float64 `yaml:"kappa,omitempty"`
	X95   *float64 `yaml:"x95,omitempty"`
}

// LayerFile is the YAML form of LayerParams.
type LayerFile struct {
	Name       string   `yaml:"name"`
	Topology   string   `yaml:"topology,omitempty"`
	MeanDegree float64  `yaml:"mean_degree"`
	Group      string   `yaml:"group,omitempty"`
	Lambda     *float64 `yaml:"lambda,omitempty"`
	P          *float64 `yaml:"p,omitempty"`
	Mu         *float64 `yaml:"mu,omitempty"`
	GAve       *float64 `yaml:"g_ave,omitempty"`
	PInf       *float64 `yaml:"pinf,omitempty"`
	R0         *float64 `yaml:"r0,omitempty"`
}

// GrowthFile is the YAML form of GrowthParams.
type GrowthFile struct {
	Time           float64    `yaml:"time"`
	AddIndividuals int        `yaml:"add_individuals,omitempty"`
	Layer          *LayerFile `yaml:"layer,omitempty"`
}

// LoadParams reads a YAML parameter file with strict field checking.
// The result is neither solved nor checked.
func LoadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading params: %w", err)
	}
	p, err := ParseParams(data)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("loaded params from %s: popsize=%d layers=%d growth=%d", path, p.PopSize, len(p.Layers), len(p.Growth))
	return p, nil
}

// ParseParams decodes YAML parameter data; unknown keys are rejected.
func ParseParams(data []byte) (*Params, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing params: %w", err)
	}
	p := f.Params()
	return &p, nil
}

// Params converts the file form to Params, leaving absent values unset.
func (f *File) Params() Params {
	p := DefaultParams()
	p.PopSize = f.PopSize
	if f.NStart != nil {
		p.NStart = *f.NStart
	}
	if f.TMax != nil {
		p.TMax = *f.TMax
	}
	p.Period = f.Period.params()
	if f.AltPeriod != nil {
		p.AltPeriod = f.AltPeriod.params()
	}
	p.Q = f.Q
	if f.Latent != nil {
		p.Latent = f.Latent.params()
	}
	p.PInt = f.PInt
	if f.IntPeriod != nil {
		p.IntPeriod = f.IntPeriod.params()
	}
	p.PIntAlt = orNaN(f.PIntAlt)
	if f.IntAltPeriod != nil {
		p.IntAltPeriod = f.IntAltPeriod.params()
	}
	p.Primary = PrimaryPeriods(f.Primary)
	for _, lf := range f.Layers {
		p.Layers = append(p.Layers, lf.params())
	}
	for _, gf := range f.Growth {
		g := GrowthParams{Time: gf.Time, AddIndividuals: gf.AddIndividuals}
		if gf.Layer != nil {
			l := gf.Layer.params()
			g.Layer = &l
		}
		p.Growth = append(p.Growth, g)
	}
	return p
}

func (pf PeriodFile) params() PeriodParams {
	return PeriodParams{Mean: orNaN(pf.Mean), Kappa: orNaN(pf.Kappa), X95: orNaN(pf.X95)}
}

func (lf LayerFile) params() LayerParams {
	l := DefaultLayer(lf.Name)
	if lf.Topology != "" {
		l.Topology = Topology(lf.Topology)
	}
	l.MeanDegree = lf.MeanDegree
	if lf.Group != "" {
		l.Group = GroupModel(lf.Group)
	}
	l.Lambda = orNaN(lf.Lambda)
	l.P = orNaN(lf.P)
	l.Mu = orNaN(lf.Mu)
	l.GAve = orNaN(lf.GAve)
	if lf.PInf != nil {
		l.PInf = *lf.PInf
	}
	l.R0 = orNaN(lf.R0)
	return l
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
