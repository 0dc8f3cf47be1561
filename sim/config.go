package sim

import "fmt"

// SystemConfig groups the physical system and neighbor table parameters.
type SystemConfig struct {
	N                int       `yaml:"n" gcfg:"n"`                                 // number of spheres (must be > 0)
	Radius           float64   `yaml:"radius" gcfg:"radius"`                       // sphere radius (default 1)
	WellWidth        float64   `yaml:"well_width" gcfg:"well-width"`               // interaction range as a multiple of the diameter
	FillingFraction  float64   `yaml:"ff" gcfg:"ff"`                               // packing fraction; sets a cubic cell when CellLengths is empty
	CellLengths      []float64 `yaml:"cell_lengths,omitempty" gcfg:"cell-lengths"` // explicit cell edges (optional, 3 values)
	Walls            int       `yaml:"walls" gcfg:"walls"`                         // number of walled axes, 0..3
	StickyWall       bool      `yaml:"sticky_wall" gcfg:"sticky-wall"`             // attractive slab at x = 0
	TranslationScale float64   `yaml:"translation_scale" gcfg:"translation-scale"` // radius of the trial displacement ball
	NeighborR        float64   `yaml:"neighbor_r" gcfg:"neighbor-r"`               // neighbor list skin
	MaxNeighbors     int       `yaml:"max_neighbors" gcfg:"max-neighbors"`         // 0 = derive from fcc packing
	EnergyLevels     int       `yaml:"energy_levels" gcfg:"energy-levels"`         // 0 = derive from fcc packing
	RelaxIterations  int       `yaml:"relax_iterations" gcfg:"relax-iterations"`   // sweeps of unbiased moves before sampling
}

// MethodConfig groups weight estimation parameters.
type MethodConfig struct {
	Algorithm          string  `yaml:"algorithm" gcfg:"algorithm"`
	MinT               float64 `yaml:"min_t" gcfg:"min-t"`
	WLFactor           float64 `yaml:"wl_factor" gcfg:"wl-factor"`
	WLFmod             float64 `yaml:"wl_fmod" gcfg:"wl-fmod"`
	WLThreshold        float64 `yaml:"wl_threshold" gcfg:"wl-threshold"`
	WLCutoff           float64 `yaml:"wl_cutoff" gcfg:"wl-cutoff"`
	FixEnergyRange     bool    `yaml:"fix_energy_range" gcfg:"fix-energy-range"`
	MinImportantEnergy int     `yaml:"min_important_energy" gcfg:"min-important-energy"`
	SAT0               float64 `yaml:"sa_t0" gcfg:"sa-t0"`
	SAPrefactor        float64 `yaml:"sa_prefactor" gcfg:"sa-prefactor"`
	SADVersion         int     `yaml:"sad_version" gcfg:"sad-version"`
	TMIVersion         int     `yaml:"tmi_version" gcfg:"tmi-version"`
	TransitionsInput   string  `yaml:"transitions_input" gcfg:"transitions-input"`
	WeightsInput       string  `yaml:"weights_input" gcfg:"weights-input"`
}

// EndConfig groups convergence parameters.
type EndConfig struct {
	Condition  string  `yaml:"condition" gcfg:"condition"`
	MinSamples int64   `yaml:"min_samples" gcfg:"min-samples"`
	Flatness   float64 `yaml:"flatness" gcfg:"flatness"`
	InitIters  int64   `yaml:"init_iters" gcfg:"init-iters"` // iteration cap; 0 = none
	MaxTime    float64 `yaml:"max_time" gcfg:"max-time"`     // wall clock cap in seconds; 0 = none
}

// OutputConfig groups output file names. Empty names are skipped.
// Movie formats are printf patterns with a single integer verb.
type OutputConfig struct {
	TransitionsFile        string `yaml:"transitions_file" gcfg:"transitions-file"`
	DOSFile                string `yaml:"dos_file" gcfg:"dos-file"`
	LnWeightsFile          string `yaml:"lnw_file" gcfg:"lnw-file"`
	TransitionsMovieFormat string `yaml:"transitions_movie_format" gcfg:"transitions-movie-format"`
	DOSMovieFormat         string `yaml:"dos_movie_format" gcfg:"dos-movie-format"`
	LnWeightsMovieFormat   string `yaml:"lnw_movie_format" gcfg:"lnw-movie-format"`
}

// Config holds everything needed to construct a Simulation.
type Config struct {
	Seed   int64        `yaml:"seed"`
	System SystemConfig `yaml:"system"`
	Method MethodConfig `yaml:"method"`
	End    EndConfig    `yaml:"end"`
	Output OutputConfig `yaml:"output"`
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		Seed: 42,
		System: SystemConfig{
			N:                50,
			Radius:           1,
			WellWidth:        1.3,
			FillingFraction:  0.3,
			TranslationScale: 0.1,
			NeighborR:        0.5,
			RelaxIterations:  100,
		},
		Method: MethodConfig{
			Algorithm:   string(TMMC),
			MinT:        0.2,
			WLFactor:    1,
			WLFmod:      2,
			WLThreshold: 0.8,
			WLCutoff:    1e-10,
			SAPrefactor: 1,
			SADVersion:  1,
			TMIVersion:  1,
		},
		End: EndConfig{
			Condition:  string(PessimisticMinSamples),
			MinSamples: 10000,
			Flatness:   0.1,
		},
	}
}

// Validate checks parameter ranges and names.
func (c *Config) Validate() error {
	s := c.System
	if s.N <= 0 {
		return fmt.Errorf("n must be positive, got %d", s.N)
	}
	if s.Radius <= 0 {
		return fmt.Errorf("radius must be positive, got %g", s.Radius)
	}
	if s.WellWidth < 1 {
		return fmt.Errorf("well_width must be at least 1, got %g", s.WellWidth)
	}
	if len(s.CellLengths) == 0 && (s.FillingFraction <= 0 || s.FillingFraction >= 0.74) {
		return fmt.Errorf("ff must be in (0, 0.74), got %g", s.FillingFraction)
	}
	if len(s.CellLengths) != 0 && len(s.CellLengths) != 3 {
		return fmt.Errorf("cell_lengths needs 3 values, got %d", len(s.CellLengths))
	}
	for _, l := range s.CellLengths {
		if l <= 0 {
			return fmt.Errorf("cell_lengths must be positive, got %v", s.CellLengths)
		}
	}
	if s.Walls < 0 || s.Walls > 3 {
		return fmt.Errorf("walls must be in [0,3], got %d", s.Walls)
	}
	if s.TranslationScale <= 0 {
		return fmt.Errorf("translation_scale must be positive, got %g", s.TranslationScale)
	}
	if s.NeighborR <= 0 {
		return fmt.Errorf("neighbor_r must be positive, got %g", s.NeighborR)
	}
	if s.MaxNeighbors < 0 || s.EnergyLevels < 0 || s.RelaxIterations < 0 {
		return fmt.Errorf("max_neighbors, energy_levels and relax_iterations must be non-negative")
	}
	if need := s.minEnergyLevels(); s.EnergyLevels != 0 && s.EnergyLevels < need {
		return fmt.Errorf("energy_levels must be at least %d for %d balls with well_width %g, got %d",
			need, s.N, s.WellWidth, s.EnergyLevels)
	}

	m := c.Method
	if _, err := ParseAlgorithm(m.Algorithm); err != nil {
		return err
	}
	if m.MinT <= 0 {
		return fmt.Errorf("min_t must be positive, got %g", m.MinT)
	}
	if m.WLFmod <= 1 {
		return fmt.Errorf("wl_fmod must exceed 1, got %g", m.WLFmod)
	}
	if m.WLThreshold <= 0 || m.WLThreshold > 1 {
		return fmt.Errorf("wl_threshold must be in (0,1], got %g", m.WLThreshold)
	}
	if m.SAT0 < 0 || m.SAPrefactor < 0 {
		return fmt.Errorf("sa_t0 and sa_prefactor must be non-negative")
	}
	if a := Algorithm(m.Algorithm); (a == WangLandau || a == WLTMMC) && (m.WLFactor <= 0 || m.WLCutoff <= 0) {
		return fmt.Errorf("%s requires positive wl_factor and wl_cutoff", a)
	}
	if Algorithm(m.Algorithm) == SAMC && m.SAT0 == 0 {
		return fmt.Errorf("samc requires sa_t0 > 0")
	}
	if Algorithm(m.Algorithm) == SAD && (m.SADVersion < 1 || m.SADVersion > 3) {
		return fmt.Errorf("sad_version must be 1, 2 or 3, got %d", m.SADVersion)
	}
	if m.TMIVersion < 1 || m.TMIVersion > 3 {
		return fmt.Errorf("%w: %d", ErrUnknownWeightVersion, m.TMIVersion)
	}

	e := c.End
	if !ValidEndConditions[EndCondition(e.Condition)] {
		return fmt.Errorf("unknown end condition %q", e.Condition)
	}
	if e.Condition == "" && e.MaxTime <= 0 {
		return ErrNoEndCondition
	}
	if EndCondition(e.Condition) == InitIterLimit && e.InitIters <= 0 {
		return fmt.Errorf("init_iter_limit requires init_iters > 0")
	}
	if e.MinSamples < 0 || e.InitIters < 0 || e.MaxTime < 0 {
		return fmt.Errorf("min_samples, init_iters and max_time must be non-negative")
	}
	return nil
}

// minEnergyLevels is the number of levels needed to hold the densest packing:
// every ball with a full fcc shell of wells, plus the sticky wall.
func (s SystemConfig) minEnergyLevels() int {
	levels := s.N*MaxBallsWithin(2*s.WellWidth)/2 + 1
	if s.StickyWall {
		levels += s.N * WallStickiness
	}
	return levels
}
