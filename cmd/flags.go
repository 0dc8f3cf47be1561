package cmd

import (
	"github.com/spf13/pflag"

	sim "github.com/squarewell-sim/squarewell-sim/sim"
)

// configFlags binds run flags to sim.Config fields. Only flags the user set
// override values from a config file.
type configFlags struct {
	overrides map[string]func(*sim.Config)

	// Legacy algorithm switches, reconciled by sim.SelectAlgorithm.
	useWL, useTMMC, useSAD, useWLTMMC bool
}

// bind registers one flag whose default is the field's value in
// sim.DefaultConfig and records how to copy it into a config.
func bind[T any](f *configFlags, register func(p *T, name string, value T, usage string),
	name string, field func(*sim.Config) *T, usage string) {
	defaults := sim.DefaultConfig()
	p := new(T)
	register(p, name, *field(&defaults), usage)
	f.overrides[name] = func(c *sim.Config) { *field(c) = *p }
}

func registerConfigFlags(fs *pflag.FlagSet) *configFlags {
	f := &configFlags{overrides: make(map[string]func(*sim.Config))}

	bind(f, fs.Int64Var, "seed", func(c *sim.Config) *int64 { return &c.Seed }, "Seed for ball placement and moves")

	// System
	bind(f, fs.IntVar, "N", func(c *sim.Config) *int { return &c.System.N }, "Number of spheres")
	bind(f, fs.Float64Var, "R", func(c *sim.Config) *float64 { return &c.System.Radius }, "Sphere radius")
	bind(f, fs.Float64Var, "ww", func(c *sim.Config) *float64 { return &c.System.WellWidth }, "Well width as a multiple of the diameter")
	bind(f, fs.Float64Var, "ff", func(c *sim.Config) *float64 { return &c.System.FillingFraction }, "Filling fraction (sets a cubic cell)")
	bind(f, fs.Float64SliceVar, "cell-lengths", func(c *sim.Config) *[]float64 { return &c.System.CellLengths }, "Comma-separated cell edges (overrides --ff)")
	bind(f, fs.IntVar, "walls", func(c *sim.Config) *int { return &c.System.Walls }, "Number of walled axes (0-3)")
	bind(f, fs.BoolVar, "sticky-wall", func(c *sim.Config) *bool { return &c.System.StickyWall }, "Make the x=0 wall attractive")
	bind(f, fs.Float64Var, "translation-scale", func(c *sim.Config) *float64 { return &c.System.TranslationScale }, "Radius of the trial displacement")
	bind(f, fs.Float64Var, "neighbor-R", func(c *sim.Config) *float64 { return &c.System.NeighborR }, "Neighbor list skin")
	bind(f, fs.IntVar, "max-neighbors", func(c *sim.Config) *int { return &c.System.MaxNeighbors }, "Neighbor list capacity (0 = derive)")
	bind(f, fs.IntVar, "energy-levels", func(c *sim.Config) *int { return &c.System.EnergyLevels }, "Number of energy levels (0 = derive)")
	bind(f, fs.IntVar, "relax-iterations", func(c *sim.Config) *int { return &c.System.RelaxIterations }, "Sweeps of unbiased moves before sampling")

	// Method
	bind(f, fs.StringVar, "algorithm", func(c *sim.Config) *string { return &c.Method.Algorithm }, "One of canonical, wl, tmmc, sad, samc, wltmmc, tmi, toe")
	bind(f, fs.Float64Var, "min-T", func(c *sim.Config) *float64 { return &c.Method.MinT }, "Lowest temperature of interest")
	bind(f, fs.Float64Var, "wl-factor", func(c *sim.Config) *float64 { return &c.Method.WLFactor }, "Initial Wang-Landau factor")
	bind(f, fs.Float64Var, "wl-fmod", func(c *sim.Config) *float64 { return &c.Method.WLFmod }, "Divisor of the WL factor on flatness")
	bind(f, fs.Float64Var, "wl-threshold", func(c *sim.Config) *float64 { return &c.Method.WLThreshold }, "Histogram min/mean counted as flat")
	bind(f, fs.Float64Var, "wl-cutoff", func(c *sim.Config) *float64 { return &c.Method.WLCutoff }, "WL factor at which Wang-Landau stops")
	bind(f, fs.BoolVar, "fix-energy-range", func(c *sim.Config) *bool { return &c.Method.FixEnergyRange }, "Keep the WL energy range fixed")
	bind(f, fs.IntVar, "min-important-energy", func(c *sim.Config) *int { return &c.Method.MinImportantEnergy }, "Lowest energy of interest (0 = discover)")
	bind(f, fs.Float64Var, "sa-t0", func(c *sim.Config) *float64 { return &c.Method.SAT0 }, "SAMC schedule time scale")
	bind(f, fs.Float64Var, "sa-prefactor", func(c *sim.Config) *float64 { return &c.Method.SAPrefactor }, "SAMC schedule prefactor")
	bind(f, fs.IntVar, "sad-version", func(c *sim.Config) *int { return &c.Method.SADVersion }, "SAD variant (1-3)")
	bind(f, fs.IntVar, "tmi-version", func(c *sim.Config) *int { return &c.Method.TMIVersion }, "Transition weight variant (1-3)")
	bind(f, fs.StringVar, "transitions-input", func(c *sim.Config) *string { return &c.Method.TransitionsInput }, "Start from a saved transition matrix")
	bind(f, fs.StringVar, "weights-input", func(c *sim.Config) *string { return &c.Method.WeightsInput }, "Start from a saved weights file")
	fs.BoolVar(&f.useWL, "wl", false, "Use Wang-Landau")
	fs.BoolVar(&f.useTMMC, "tmmc", false, "Use transition matrix Monte Carlo")
	fs.BoolVar(&f.useSAD, "sad", false, "Use SAD")
	fs.BoolVar(&f.useWLTMMC, "wltmmc", false, "Use Wang-Landau with transition matrix refreshes")

	// End condition
	bind(f, fs.StringVar, "end-condition", func(c *sim.Config) *string { return &c.End.Condition }, "optimistic_min_samples, pessimistic_min_samples, flat_histogram or init_iter_limit")
	bind(f, fs.Int64Var, "min-samples", func(c *sim.Config) *int64 { return &c.End.MinSamples }, "Samples needed at each energy")
	bind(f, fs.Float64Var, "flatness", func(c *sim.Config) *float64 { return &c.End.Flatness }, "Histogram min/mean for flat_histogram")
	bind(f, fs.Int64Var, "init-iters", func(c *sim.Config) *int64 { return &c.End.InitIters }, "Iteration cap (0 = none)")
	bind(f, fs.Float64Var, "max-time", func(c *sim.Config) *float64 { return &c.End.MaxTime }, "Wall clock cap in seconds (0 = none)")

	// Output
	bind(f, fs.StringVar, "transitions-file", func(c *sim.Config) *string { return &c.Output.TransitionsFile }, "Transition matrix output file")
	bind(f, fs.StringVar, "dos-file", func(c *sim.Config) *string { return &c.Output.DOSFile }, "Density of states output file")
	bind(f, fs.StringVar, "lnw-file", func(c *sim.Config) *string { return &c.Output.LnWeightsFile }, "Log weights output file")
	bind(f, fs.StringVar, "transitions-movie", func(c *sim.Config) *string { return &c.Output.TransitionsMovieFormat }, "printf pattern for transition matrix frames")
	bind(f, fs.StringVar, "dos-movie", func(c *sim.Config) *string { return &c.Output.DOSMovieFormat }, "printf pattern for DOS frames")
	bind(f, fs.StringVar, "lnw-movie", func(c *sim.Config) *string { return &c.Output.LnWeightsMovieFormat }, "printf pattern for weights frames")
	return f
}

// apply copies every flag the user set into cfg.
func (f *configFlags) apply(fs *pflag.FlagSet, cfg *sim.Config) {
	fs.Visit(func(fl *pflag.Flag) {
		if override, ok := f.overrides[fl.Name]; ok {
			override(cfg)
		}
	})
	if f.useWL || f.useTMMC || f.useSAD || f.useWLTMMC {
		cfg.Method.Algorithm = string(sim.SelectAlgorithm(f.useWLTMMC, f.useWL, f.useTMMC, f.useSAD))
	}
}

// buildConfig reads configPath (if any) and applies the flags set on fs.
func (f *configFlags) buildConfig(fs *pflag.FlagSet, configPath string) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = sim.LoadConfigFile(configPath); err != nil {
			return sim.Config{}, err
		}
	}
	f.apply(fs, &cfg)
	return cfg, nil
}
