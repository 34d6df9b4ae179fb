package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/outbreak-sim/outbreak-sim/sim"
	"github.com/outbreak-sim/outbreak-sim/sim/params"
	"github.com/outbreak-sim/outbreak-sim/sim/rng"
	"github.com/outbreak-sim/outbreak-sim/sim/stats"
	"github.com/outbreak-sim/outbreak-sim/sim/trace"
)

var (
	// CLI flags for the run itself
	configPath string // YAML parameter file
	seed       int64  // Seed for the random source
	rngKind    string // Random source kind (math, stream)
	logLevel   string // Log verbosity level
	nimax      int    // Cap on infected individuals per time bin, 0 for none
	traceLevel string // Processor trace level
	npaths     int    // Number of independent paths

	// CLI flags for the epidemic parameters
	paramValues paramFlags
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "outbreak-sim",
	Short: "Discrete-event simulator for epidemics on layered contact networks",
}

// runCmd executes --npaths simulation paths using a parameter file and/or CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run independent epidemic simulation paths",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s (valid: none, outcomes, events)", traceLevel)
		}
		if nimax < 0 {
			logrus.Fatalf("--nimax must be >= 0, got %d", nimax)
		}
		if npaths < 1 {
			logrus.Fatalf("--npaths must be >= 1, got %d", npaths)
		}

		p, err := resolveParams(&paramValues, configPath, cmd.Flags().Changed)
		if err != nil {
			logrus.Fatalf("Invalid parameters: %v", err)
		}
		sources, err := rng.NewPathSources(rngKind, rng.NewSimulationKey(seed), npaths)
		if err != nil {
			logrus.Fatalf("Invalid random source: %v", err)
		}

		runID := uuid.New()
		logrus.Infof("Starting run %s: popsize=%d, layers=%d, tmax=%v, seed=%d, rng=%s, paths=%d",
			runID, p.PopSize, len(p.Layers), p.TMax, seed, rngKind, npaths)

		for path, src := range sources {
			s, err := sim.New(p, src)
			if err != nil {
				logrus.Fatalf("Unable to build simulator: %v", err)
			}
			startTime := time.Now()
			res := runPath(s, nimax, trace.TraceLevel(traceLevel))
			res.RunID = runID
			res.Path = path
			res.Seed = seed
			res.Elapsed = time.Since(startTime)
			if err := res.Print(os.Stdout); err != nil {
				logrus.Fatalf("Unable to write report: %v", err)
			}
			s.Free()
		}

		logrus.Info("Simulation complete.")
	},
}

// runResult is what one CLI run reports.
type runResult struct {
	RunID   uuid.UUID
	Path    int
	Seed    int64
	Elapsed time.Duration
	Reason  sim.StopReason
	Clock   float64
	Counts  sim.Counts
	Stats   *stats.Standard
	Trace   *trace.SimulationTrace // nil when tracing is off
}

// runPath attaches the standard statistics (and a trace unless level is none)
// to s, runs it to completion and finalizes the statistics.
func runPath(s *sim.Simulator, nimax int, level trace.TraceLevel) *runResult {
	st := &stats.Standard{NIMax: nimax}
	st.Prepare(s)
	procs := []sim.Processors{st.Processors()}

	var tr *trace.SimulationTrace
	if level != trace.TraceLevelNone && level != "" {
		tr = trace.NewSimulationTrace(trace.TraceConfig{Level: level})
		procs = append(procs, tr.Processors())
	}
	sim.Register(s, sim.FanOut(procs...))
	if nimax > 0 {
		s.SetStopCondition(st.MaxedOut)
	}

	reason := s.Run()
	st.Finalize(s)
	return &runResult{
		Reason: reason,
		Clock:  s.Clock(),
		Counts: s.Counts(),
		Stats:  st,
		Trace:  tr,
	}
}

// Print writes the run header, the statistics report and, when tracing was
// on, the trace summary.
func (r *runResult) Print(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "=== Simulation Report ===\nrun:               %s\npath:              %d\nseed:              %d\nstop:              %s at t=%.4f\nwall time:         %v\n",
		r.RunID, r.Path, r.Seed, r.Reason, r.Clock, r.Elapsed.Round(time.Microsecond)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "final counts:      S=%d E=%d I=%d R=%d\n",
		r.Counts.Susceptible, r.Counts.Exposed, r.Counts.Infectious, r.Counts.Recovered); err != nil {
		return err
	}
	if err := r.Stats.Print(w); err != nil {
		return err
	}
	if r.Trace == nil {
		return nil
	}
	sum := trace.Summarize(r.Trace)
	_, err := fmt.Fprintf(w, "=== Trace Summary ===\nrecords:           %d\nevents:            %d\ninfections:        %d (%d primary)\nrecoveries:        %d\nno transmissions:  %d (%d to non-susceptibles)\ngrowths:           %d\nlast clock:        %.4f\n",
		sum.TotalRecords, sum.Events, sum.Infections, sum.PrimaryInfections,
		sum.Recoveries, sum.NoTransmissions, sum.NotSusceptible, sum.Growths, sum.LastClock)
	return err
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {

	runCmd.Flags().StringVar(&configPath, "config", "", "YAML parameter file; flags below override its values when set")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the random source")
	runCmd.Flags().StringVar(&rngKind, "rng", rng.KindMath, "Random source (math, stream)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().IntVar(&nimax, "nimax", 0, "Stop once more than this many individuals are infected in one time bin (0 = no cap)")
	runCmd.Flags().IntVar(&npaths, "npaths", 1, "Number of independent paths; path 0 matches a single-path run with the same seed")
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Processor trace level (none, outcomes, events)")

	// Population and horizon
	runCmd.Flags().IntVar(&paramValues.PopSize, "popsize", 1000, "Initial population size")
	runCmd.Flags().IntVar(&paramValues.NStart, "nstart", 1, "Number of primary infections at t=0")
	runCmd.Flags().Float64Var(&paramValues.TMax, "tmax", math.Inf(1), "Simulation horizon")

	// Communicable, latent and alternate periods
	runCmd.Flags().Float64Var(&paramValues.TBar, "tbar", 5, "Mean communicable period")
	runCmd.Flags().Float64Var(&paramValues.Kappa, "kappa", 2, "Gamma kappa of the communicable period (+Inf = fixed)")
	runCmd.Flags().Float64Var(&paramValues.T95, "t95", math.NaN(), "95th percentile of the communicable period (replaces --kappa)")
	runCmd.Flags().Float64Var(&paramValues.LBar, "lbar", 0, "Mean latent period")
	runCmd.Flags().Float64Var(&paramValues.KappaL, "kappal", 2, "Gamma kappa of the latent period")
	runCmd.Flags().Float64Var(&paramValues.L95, "l95", math.NaN(), "95th percentile of the latent period (replaces --kappal)")
	runCmd.Flags().Float64Var(&paramValues.Q, "q", 0, "Probability of drawing the alternate communicable period")
	runCmd.Flags().Float64Var(&paramValues.MBar, "mbar", math.NaN(), "Mean alternate communicable period")
	runCmd.Flags().Float64Var(&paramValues.KappaQ, "kappaq", 2, "Gamma kappa of the alternate period")
	runCmd.Flags().Float64Var(&paramValues.M95, "m95", math.NaN(), "95th percentile of the alternate period (replaces --kappaq)")

	// Interrupted communicable periods
	runCmd.Flags().Float64Var(&paramValues.PIT, "pit", 0, "Probability that a main communicable period is interrupted")
	runCmd.Flags().Float64Var(&paramValues.ITBar, "itbar", math.NaN(), "Mean interrupted main communicable period (required if --pit > 0)")
	runCmd.Flags().Float64Var(&paramValues.KappaIT, "kappait", 2, "Gamma kappa of the interrupted main period")
	runCmd.Flags().Float64Var(&paramValues.IT95, "it95", math.NaN(), "95th percentile of the interrupted main period (replaces --kappait)")
	runCmd.Flags().Float64Var(&paramValues.PIM, "pim", math.NaN(), "Probability that an alternate period is interrupted (default --pit)")
	runCmd.Flags().Float64Var(&paramValues.IMBar, "imbar", math.NaN(), "Mean interrupted alternate period (default --itbar)")
	runCmd.Flags().Float64Var(&paramValues.KappaIM, "kappaim", math.NaN(), "Gamma kappa of the interrupted alternate period (default from the interrupted main period)")
	runCmd.Flags().Float64Var(&paramValues.IM95, "im95", math.NaN(), "95th percentile of the interrupted alternate period (replaces --kappaim)")

	// Communicable period of primary infections
	runCmd.Flags().BoolVar(&paramValues.PriNoMain, "pri-no-main-period", false, "Primary infections cannot draw the main period")
	runCmd.Flags().BoolVar(&paramValues.PriNoAlt, "pri-no-alt-period", false, "Primary infections cannot draw the alternate period")
	runCmd.Flags().BoolVar(&paramValues.PriNoMainInt, "pri-no-main-period-int", false, "The main period of primary infections cannot be interrupted")
	runCmd.Flags().BoolVar(&paramValues.PriNoAltInt, "pri-no-alt-period-int", false, "The alternate period of primary infections cannot be interrupted")

	// First contact layer. Setting any of --lambda, --p, --mu, --g-ave, --R0
	// replaces the layer's rate group, so give exactly two of them (counting
	// --p, --mu and --g-ave as one).
	runCmd.Flags().StringVar(&paramValues.Topology, "topology", string(defaultTopology), "Layer topology (random, ring, groups, complete)")
	runCmd.Flags().Float64Var(&paramValues.MeanDegree, "mean-degree", 10, "Layer mean degree")
	runCmd.Flags().StringVar(&paramValues.Group, "group", string(params.GroupAttendeesPlusOne), "Gathering-size model (log_attendees_plus_1, log_attendees, log_invitees)")
	runCmd.Flags().Float64Var(&paramValues.Lambda, "lambda", 0.5, "Contact events per unit time while infectious")
	runCmd.Flags().Float64Var(&paramValues.P, "p", 0, "Logarithmic gathering-size parameter in [0, 1)")
	runCmd.Flags().Float64Var(&paramValues.Mu, "mu", math.NaN(), "Mean of the untruncated logarithmic law (replaces --p)")
	runCmd.Flags().Float64Var(&paramValues.GAve, "g-ave", math.NaN(), "Mean gathering size, >= 2 (replaces --p)")
	runCmd.Flags().Float64Var(&paramValues.PInf, "pinf", 1, "Per-contact transmission probability")
	runCmd.Flags().Float64Var(&paramValues.R0, "R0", math.NaN(), "Layer reproduction number")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
