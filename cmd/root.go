package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/squarewell-sim/squarewell-sim/sim"
	"github.com/squarewell-sim/squarewell-sim/sim/ensemble"
	"github.com/squarewell-sim/squarewell-sim/sim/trace"
)

var (
	// CLI flags shared by every subcommand
	logLevel string // Log verbosity level

	// CLI flags for run
	configPath  string // YAML or .cfg run configuration
	walkers     int    // Independent walkers merged into one estimate
	parallelism int    // Walkers run at once (0 = all)
	traceLevel  string // Estimator event tracing

	runFlags *configFlags

	// osExit is replaced in tests.
	osExit = os.Exit
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "squarewell-sim",
	Short: "Adaptive Monte Carlo density of states for square-well fluids",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd initializes the weights with the selected algorithm and writes the
// transition matrix, DOS and weights files.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a density of states simulation",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := runFlags.buildConfig(cmd.Flags(), configPath)
		if err != nil {
			logrus.Fatalf("unable to read run config; %v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Unknown trace level %q. Valid: none, events", traceLevel)
		}

		startTime := time.Now()
		if walkers > 1 {
			exitOnError(runEnsemble(cmd.Context(), cfg, os.Stdout))
		} else {
			exitOnError(runSingle(cfg, os.Stdout))
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime).Round(time.Millisecond))
	},
}

func runSingle(cfg sim.Config, w io.Writer) error {
	logrus.Infof("Starting %s simulation with N=%d, ww=%g, ff=%g, seed=%d",
		cfg.Method.Algorithm, cfg.System.N, cfg.System.WellWidth, cfg.System.FillingFraction, cfg.Seed)
	s, err := sim.NewSimulation(cfg)
	if err != nil {
		return err
	}
	var st *trace.SimulationTrace
	if traceLevel != string(trace.TraceLevelNone) {
		st = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(traceLevel)})
		s.SetTrace(st)
	}
	res, err := s.Initialize()
	if err != nil {
		return err
	}
	printResult(w, s, res)
	if st != nil {
		printTraceSummary(w, trace.Summarize(st))
	}
	return nil
}

func runEnsemble(ctx context.Context, cfg sim.Config, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logrus.Infof("Starting %d %s walkers with N=%d, ww=%g, ff=%g, base seed=%d",
		walkers, cfg.Method.Algorithm, cfg.System.N, cfg.System.WellWidth, cfg.System.FillingFraction, cfg.Seed)
	out, err := ensemble.Run(ctx, ensemble.Config{Base: cfg, Walkers: walkers, Parallelism: parallelism})
	if err != nil {
		return err
	}
	for _, wr := range out.Walkers {
		fmt.Fprintf(w, "walker %d (seed %d): %s after %d iterations, acceptance %.4f\n",
			wr.ID, wr.Seed, wr.Result.StopReason, wr.Result.Iterations, wr.Result.Moves.AcceptanceRate())
	}
	if cfg.Output.TransitionsFile != "" {
		if err := out.Estimator.WriteTransitions(cfg.Output.TransitionsFile); err != nil {
			return err
		}
	}
	if cfg.Output.DOSFile != "" {
		if err := out.Estimator.WriteDOS(cfg.Output.DOSFile); err != nil {
			return err
		}
	}
	return nil
}

func printResult(w io.Writer, s *sim.Simulation, res sim.Result) {
	fmt.Fprintln(w, "=== Simulation Result ===")
	fmt.Fprintf(w, "Algorithm            : %s\n", res.Algorithm)
	fmt.Fprintf(w, "Stop Reason          : %s\n", res.StopReason)
	fmt.Fprintf(w, "Max Entropy State    : %d\n", res.MaxEntropyState)
	fmt.Fprintf(w, "Min Important Energy : %d\n", res.MinImportantEnergy)
	if lnDOS, err := s.ComputeLnDOS(sim.TransitionDOS); err == nil {
		fmt.Fprintf(w, "Converged State      : %d (T=%g)\n", s.ConvergedToState(), s.ConvergedToTemperature(lnDOS))
	}
	fmt.Fprintf(w, "Elapsed              : %v\n", res.Elapsed.Round(time.Millisecond))
	res.Moves.Print(w, res.Iterations)
}

func printTraceSummary(w io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Estimator Events ===")
	fmt.Fprintf(w, "Total Events         : %d\n", ts.TotalEvents)
	fmt.Fprintf(w, "Flatness Events      : %d\n", ts.FlatnessEvents)
	fmt.Fprintf(w, "Weight Refreshes     : %d\n", ts.Refreshes)
	fmt.Fprintf(w, "Discoveries          : %d\n", ts.Discoveries)
	fmt.Fprintf(w, "Histogram Resets     : %d\n", ts.HistogramResets)
	fmt.Fprintf(w, "Lowest Energy Seen   : %d\n", ts.LowestEnergySeen)
	if ts.MovesToHandoff > 0 {
		fmt.Fprintf(w, "Moves To Handoff     : %d\n", ts.MovesToHandoff)
	}
}

// exitOnError terminates the process on err. Transition file problems exit
// with the code attached to the field that was wrong.
func exitOnError(err error) {
	if err == nil {
		return
	}
	var me *sim.MetadataError
	if errors.As(err, &me) {
		logrus.Error(me.Error())
		osExit(me.ExitCode)
		return
	}
	logrus.Fatalf("%v", err)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runFlags = registerConfigFlags(runCmd.Flags())
	runCmd.Flags().StringVar(&configPath, "config", "", "Run configuration file (YAML, or git-config syntax for .cfg/.ini)")
	runCmd.Flags().IntVar(&walkers, "walkers", 1, "Independent walkers whose transition matrices are merged")
	runCmd.Flags().IntVar(&parallelism, "parallelism", 0, "Walkers run concurrently (0 = all)")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Estimator event tracing (none, events)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
