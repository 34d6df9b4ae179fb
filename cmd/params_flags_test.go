package cmd

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outbreak-sim/outbreak-sim/sim/params"
)

const (
	baselineConfig  = "../testdata/scenarios/baseline.yaml"
	householdConfig = "../testdata/scenarios/household.yaml"
)

// changedSet simulates cmd.Flags().Changed for the named flags.
func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

// flagDefaults returns a copy of the flag values as registered by init.
func flagDefaults() paramFlags {
	return paramValues
}

func TestResolveParams_NoConfig_FlagDefaultsDescribeSingleLayer(t *testing.T) {
	// GIVEN the registered flag defaults and no config file
	f := flagDefaults()

	// WHEN params are resolved with no flag changed
	p, err := resolveParams(&f, "", changedSet())

	// THEN a checked single random layer is produced with the derived R0 group
	require.NoError(t, err)
	assert.True(t, p.Checked())
	assert.Equal(t, 1000, p.PopSize)
	assert.Equal(t, 1, p.NStart)
	assert.True(t, math.IsInf(p.TMax, 1))
	require.Len(t, p.Layers, 1)
	l := p.Layers[0]
	assert.Equal(t, defaultLayerName, l.Name)
	assert.Equal(t, params.TopologyRandom, l.Topology)
	assert.Equal(t, 1.0, l.Mu, "p=0 means single-contact gatherings")
	assert.Equal(t, params.GroupAttendeesPlusOne, l.Group)
	assert.Equal(t, 2.0, l.GAve)
	assert.InDelta(t, 0.5*5*1*1, l.R0, 1e-12, "R0 = lambda * tbar * (g_ave - 1) * pinf")
	assert.InDelta(t, params.GammaX95(5, 2), p.Period.X95, 1e-9)
	assert.Equal(t, 0.0, p.Latent.Mean)
}

func TestResolveParams_ConfigFile_UnchangedFlagsDoNotOverride(t *testing.T) {
	// GIVEN flag values that differ from the baseline file but were not set
	f := flagDefaults()
	f.PopSize = 50
	f.TBar = 9

	// WHEN params are resolved against the file
	p, err := resolveParams(&f, baselineConfig, changedSet())

	// THEN the file values win
	require.NoError(t, err)
	assert.Equal(t, 100, p.PopSize)
	assert.Equal(t, 4.0, p.Period.Mean)
	assert.Equal(t, 2.0, p.Period.Kappa)
}

func TestResolveParams_ConfigFile_ChangedFlagsOverride(t *testing.T) {
	// GIVEN --popsize 50 --tmax 30 --pinf 0.2 set explicitly
	f := flagDefaults()
	f.PopSize = 50
	f.TMax = 30
	f.PInf = 0.2

	// WHEN params are resolved against the baseline file
	p, err := resolveParams(&f, baselineConfig, changedSet("popsize", "tmax", "pinf"))

	// THEN those fields are overridden and the R0 group is re-derived from the file's lambda and p
	require.NoError(t, err)
	assert.Equal(t, 50, p.PopSize)
	assert.Equal(t, 30.0, p.TMax)
	l := p.Layers[0]
	assert.Equal(t, 0.2, l.PInf)
	assert.InDelta(t, 1.5*4*params.LogarithmicMean(0.3)*0.2, l.R0, 1e-9)
}

func TestResolveParams_RateFlagsReplaceWholeGroup(t *testing.T) {
	// GIVEN the baseline file (lambda and p given) and --R0 2 --p 0.5
	f := flagDefaults()
	f.R0 = 2
	f.P = 0.5

	// WHEN params are resolved
	p, err := resolveParams(&f, baselineConfig, changedSet("R0", "p"))

	// THEN the file's lambda is dropped and derived from R0
	require.NoError(t, err)
	l := p.Layers[0]
	mu := params.LogarithmicMean(0.5)
	assert.InDelta(t, mu, l.Mu, 1e-12)
	assert.InDelta(t, 2/(4*mu*0.4), l.Lambda, 1e-9)
	assert.Equal(t, 2.0, l.R0)
}

func TestResolveParams_SingleRateFlag_ReportsGroupError(t *testing.T) {
	// GIVEN only --R0 set
	f := flagDefaults()
	f.R0 = 2

	// WHEN params are resolved without a config
	_, err := resolveParams(&f, "", changedSet("R0"))

	// THEN the R0 group error names the layer
	var ce *params.ConfigError
	require.True(t, errors.As(err, &ce), "want *params.ConfigError, got %v", err)
	assert.Equal(t, "layers[0]", ce.Field)
	assert.Contains(t, ce.Reason, "exactly two")
}

func TestResolveParams_KappaFlagReplacesFileX95(t *testing.T) {
	// GIVEN the household file, whose period gives x95, and --kappa 3
	f := flagDefaults()
	f.Kappa = 3

	// WHEN params are resolved
	p, err := resolveParams(&f, householdConfig, changedSet("kappa"))

	// THEN kappa is the input and x95 is derived from it
	require.NoError(t, err)
	assert.Equal(t, 3.0, p.Period.Kappa)
	assert.InDelta(t, params.GammaX95(5, 3), p.Period.X95, 1e-9)
}

func TestResolveParams_T95FlagReplacesKappa(t *testing.T) {
	// GIVEN no config and --t95 9
	f := flagDefaults()
	f.T95 = 9

	// WHEN params are resolved
	p, err := resolveParams(&f, "", changedSet("t95"))

	// THEN kappa is solved from the percentile
	require.NoError(t, err)
	assert.Equal(t, 9.0, p.Period.X95)
	assert.InDelta(t, 9, params.GammaX95(p.Period.Mean, p.Period.Kappa), 1e-6)
}

func TestResolveParams_LatentMeanAlone_KeepsFixedShape(t *testing.T) {
	// GIVEN the baseline file (no latent period) and --lbar 1.5
	f := flagDefaults()
	f.LBar = 1.5

	// WHEN params are resolved
	p, err := resolveParams(&f, baselineConfig, changedSet("lbar"))

	// THEN the latent period is fixed at the new mean
	require.NoError(t, err)
	assert.Equal(t, 1.5, p.Latent.Mean)
	assert.True(t, math.IsInf(p.Latent.Kappa, 1))
	assert.Equal(t, 1.5, p.Latent.X95)
}

func TestResolveParams_AlternatePeriodFromFlags(t *testing.T) {
	// GIVEN --q 0.3 --mbar 2 without a config
	f := flagDefaults()
	f.Q = 0.3
	f.MBar = 2

	// WHEN params are resolved
	p, err := resolveParams(&f, "", changedSet("q", "mbar"))

	// THEN the alternate period uses the default kappaq
	require.NoError(t, err)
	assert.Equal(t, 0.3, p.Q)
	assert.Equal(t, 2.0, p.AltPeriod.Mean)
	assert.Equal(t, 2.0, p.AltPeriod.Kappa)
}

func TestResolveParams_QWithoutAlternateMean_Errors(t *testing.T) {
	// GIVEN --q 0.3 and no alternate mean
	f := flagDefaults()
	f.Q = 0.3

	// WHEN params are resolved
	_, err := resolveParams(&f, "", changedSet("q"))

	// THEN the missing mean is reported
	var ce *params.ConfigError
	require.True(t, errors.As(err, &ce), "want *params.ConfigError, got %v", err)
	assert.Equal(t, "alt_period.mean", ce.Field)
}

func TestResolveParams_InterruptedPeriodFlags(t *testing.T) {
	// GIVEN --pit 0.2 --itbar 1.5 --q 0.3 --mbar 2 without a config
	f := flagDefaults()
	f.PIT, f.ITBar = 0.2, 1.5
	f.Q, f.MBar = 0.3, 2

	// WHEN params are resolved
	p, err := resolveParams(&f, "", changedSet("pit", "itbar", "q", "mbar"))

	// THEN the interrupted main period uses the default kappait
	require.NoError(t, err)
	assert.Equal(t, 0.2, p.PInt)
	assert.Equal(t, 1.5, p.IntPeriod.Mean)
	assert.Equal(t, 2.0, p.IntPeriod.Kappa)
	// AND the alternate interruption defaults to the main one
	assert.Equal(t, 0.2, p.PIntAlt)
	assert.Equal(t, p.IntPeriod, p.IntAltPeriod)
}

func TestResolveParams_ImbarAlone_NeedsShape(t *testing.T) {
	// GIVEN --imbar without --kappaim or --im95
	f := flagDefaults()
	f.PIT, f.ITBar = 0.2, 1.5
	f.Q, f.MBar = 0.3, 2
	f.IMBar = 0.7

	_, err := resolveParams(&f, "", changedSet("pit", "itbar", "q", "mbar", "imbar"))

	var ce *params.ConfigError
	require.True(t, errors.As(err, &ce), "want *params.ConfigError, got %v", err)
	assert.Equal(t, "int_alt_period", ce.Field)
}

func TestResolveParams_PrimaryRestrictionFlags(t *testing.T) {
	// GIVEN the household file (q > 0) and --pri-no-main-period
	f := flagDefaults()
	f.PriNoMain = true

	// WHEN params are resolved
	p, err := resolveParams(&f, householdConfig, changedSet("pri-no-main-period"))

	// THEN primary cases only draw the alternate period
	require.NoError(t, err)
	w, ok := p.PrimaryPeriodWeights()
	require.True(t, ok)
	assert.Equal(t, 1.0, w[params.CategoryAlt])

	// AND without an alternate period nothing is left for primaries
	_, err = resolveParams(&f, "", changedSet("pri-no-main-period"))
	var ce *params.ConfigError
	require.True(t, errors.As(err, &ce), "want *params.ConfigError, got %v", err)
	assert.Equal(t, "primary", ce.Field)
}

func TestResolveParams_GroupModelFlags(t *testing.T) {
	// GIVEN --group log_attendees --g-ave 3 --lambda 0.5
	f := flagDefaults()
	f.Group = string(params.GroupAttendees)
	f.GAve = 3

	// WHEN params are resolved without a config
	p, err := resolveParams(&f, "", changedSet("group", "g-ave", "lambda"))

	// THEN R0 = lambda * tbar * (g_ave - 1) * pinf and p reproduces g_ave
	require.NoError(t, err)
	l := p.Layers[0]
	assert.Equal(t, params.GroupAttendees, l.Group)
	assert.InDelta(t, 0.5*5*2*1, l.R0, 1e-9)
	assert.InDelta(t, 3, params.GroupMean(params.GroupAttendees, l.P), 1e-9)
}

func TestResolveParams_InvalidFlagValue_ReportsField(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *paramFlags)
		changed []string
		field   string
	}{
		{"pinf above one", func(f *paramFlags) { f.PInf = 1.5 }, []string{"pinf"}, "layers[0].pinf"},
		{"unknown topology", func(f *paramFlags) { f.Topology = "lattice" }, []string{"topology"}, "layers[0].topology"},
		{"degree above popsize", func(f *paramFlags) { f.MeanDegree = 100 }, []string{"mean-degree"}, "layers[0].mean_degree"},
		{"zero popsize", func(f *paramFlags) { f.PopSize = 0 }, []string{"popsize"}, "popsize"},
		{"unknown group model", func(f *paramFlags) { f.Group = "log_guests" }, []string{"group"}, "layers[0].group"},
		{"pit above one", func(f *paramFlags) { f.PIT = 2 }, []string{"pit"}, "pit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := flagDefaults()
			tt.mutate(&f)
			_, err := resolveParams(&f, baselineConfig, changedSet(tt.changed...))
			var ce *params.ConfigError
			require.True(t, errors.As(err, &ce), "want *params.ConfigError, got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestResolveParams_MissingConfig_Errors(t *testing.T) {
	f := flagDefaults()
	_, err := resolveParams(&f, "../testdata/scenarios/does-not-exist.yaml", changedSet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading params")
}
