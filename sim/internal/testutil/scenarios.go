// Package testutil provides shared test infrastructure for the simulator.
// It consolidates scenario fixtures and assertion helpers used across
// sim/ and its sub-package tests.
package testutil

import (
	"math"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/outbreak-sim/outbreak-sim/sim/params"
)

// ScenarioPath returns the path of testdata/scenarios/<name>.yaml.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func ScenarioPath(t *testing.T, name string) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "scenarios", name+".yaml")
}

// LoadScenario loads, solves and checks a scenario parameter file.
func LoadScenario(t *testing.T, name string) *params.Params {
	t.Helper()
	p, err := params.LoadParams(ScenarioPath(t, name))
	if err != nil {
		t.Fatalf("Failed to load scenario %s: %v", name, err)
	}
	if err := p.Solve(); err != nil {
		t.Fatalf("Failed to solve scenario %s: %v", name, err)
	}
	if err := p.Check(); err != nil {
		t.Fatalf("Scenario %s does not check: %v", name, err)
	}
	return p
}

// SingleLayerParams builds a checked parameter set with one random layer:
// popsize individuals, mean degree, a gamma(mean 4, kappa 2) communicable
// period and no latency.
func SingleLayerParams(t *testing.T, popsize int, degree, lambda, pinf float64) *params.Params {
	t.Helper()
	p := params.DefaultParams()
	p.PopSize = popsize
	p.TMax = 500
	p.Period = params.PeriodParams{Mean: 4, Kappa: 2, X95: math.NaN()}
	l := params.DefaultLayer("community")
	l.MeanDegree = degree
	l.Lambda = lambda
	l.P = 0.3
	l.PInf = pinf
	p.Layers = []params.LayerParams{l}
	if err := p.Solve(); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if err := p.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
	return &p
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
