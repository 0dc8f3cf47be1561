package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squarewell-sim/squarewell-sim/sim/internal/testutil"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errIs  error
	}{
		{name: "no spheres", mutate: func(c *Config) { c.System.N = 0 }},
		{name: "negative radius", mutate: func(c *Config) { c.System.Radius = -1 }},
		{name: "well narrower than the core", mutate: func(c *Config) { c.System.WellWidth = 0.9 }},
		{name: "filling fraction above close packing", mutate: func(c *Config) { c.System.FillingFraction = 0.75 }},
		{name: "two cell lengths", mutate: func(c *Config) { c.System.CellLengths = []float64{5, 5} }},
		{name: "zero cell length", mutate: func(c *Config) { c.System.CellLengths = []float64{5, 0, 5} }},
		{name: "four walls", mutate: func(c *Config) { c.System.Walls = 4 }},
		{name: "zero translation scale", mutate: func(c *Config) { c.System.TranslationScale = 0 }},
		{name: "negative energy levels", mutate: func(c *Config) { c.System.EnergyLevels = -1 }},
		{name: "energy levels below the densest packing", mutate: func(c *Config) { c.System.EnergyLevels = 5 }},
		{name: "unknown algorithm", mutate: func(c *Config) { c.Method.Algorithm = "metropolis" }},
		{name: "zero temperature", mutate: func(c *Config) { c.Method.MinT = 0 }},
		{name: "fmod of one", mutate: func(c *Config) { c.Method.WLFmod = 1 }},
		{name: "threshold above one", mutate: func(c *Config) { c.Method.WLThreshold = 1.5 }},
		{name: "samc without t0", mutate: func(c *Config) { c.Method.Algorithm = string(SAMC) }},
		{name: "wl without factor", mutate: func(c *Config) {
			c.Method.Algorithm = string(WangLandau)
			c.Method.WLFactor = 0
		}},
		{name: "sad version 4", mutate: func(c *Config) {
			c.Method.Algorithm = string(SAD)
			c.Method.SADVersion = 4
		}},
		{name: "tmi version 0", mutate: func(c *Config) { c.Method.TMIVersion = 0 }, errIs: ErrUnknownWeightVersion},
		{name: "unknown end condition", mutate: func(c *Config) { c.End.Condition = "forever" }},
		{name: "no end condition and no time limit", mutate: func(c *Config) { c.End.Condition = "" }, errIs: ErrNoEndCondition},
		{name: "iteration limit without cap", mutate: func(c *Config) { c.End.Condition = string(InitIterLimit) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN a default config with one bad value
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			// WHEN validated
			err := cfg.Validate()

			// THEN it is rejected
			require.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}
}

func TestConfigValidate_EnergyLevelsCoverDensestPacking(t *testing.T) {
	// GIVEN exactly enough levels for every ball to fill its well shell
	cfg := DefaultConfig()
	cfg.System.N = 4
	need := cfg.System.minEnergyLevels()
	cfg.System.EnergyLevels = need

	// WHEN validated, and again with one level fewer
	okErr := cfg.Validate()
	cfg.System.EnergyLevels = need - 1
	shortErr := cfg.Validate()

	// THEN only the full range is accepted
	assert.NoError(t, okErr)
	assert.ErrorContains(t, shortErr, "energy_levels must be at least")
	assert.Equal(t, 4*MaxBallsWithin(2*cfg.System.WellWidth)/2+1, need)
}

func TestConfigValidate_TimeLimitAloneIsEnough(t *testing.T) {
	cfg := DefaultConfig()
	cfg.End.Condition = ""
	cfg.End.MaxTime = 30

	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate_CellLengthsReplaceFillingFraction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.System.FillingFraction = 0
	cfg.System.CellLengths = []float64{10, 12, 14}

	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile_YAMLOverridesDefaults(t *testing.T) {
	// GIVEN a YAML file setting a few fields
	path := testutil.WriteTempFile(t, "run.yaml", `
seed: 7
system:
  n: 20
  cell_lengths: [8, 8, 16]
method:
  algorithm: wl
  wl_cutoff: 0.001
end:
  condition: flat_histogram
output:
  dos_file: out-dos.dat
`)

	// WHEN it is loaded
	cfg, err := LoadConfigFile(path)

	// THEN the given fields are set and the rest keep their defaults
	require.NoError(t, err)
	def := DefaultConfig()
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 20, cfg.System.N)
	assert.Equal(t, []float64{8, 8, 16}, cfg.System.CellLengths)
	assert.Equal(t, def.System.WellWidth, cfg.System.WellWidth)
	assert.Equal(t, string(WangLandau), cfg.Method.Algorithm)
	assert.Equal(t, 0.001, cfg.Method.WLCutoff)
	assert.Equal(t, def.Method.WLFmod, cfg.Method.WLFmod)
	assert.Equal(t, string(FlatHistogram), cfg.End.Condition)
	assert.Equal(t, "out-dos.dat", cfg.Output.DOSFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile_YAMLRejectsUnknownKeys(t *testing.T) {
	path := testutil.WriteTempFile(t, "run.yaml", "system:\n  n: 20\n  wellwidth: 1.5\n")

	_, err := LoadConfigFile(path)

	assert.Error(t, err)
}

func TestLoadConfigFile_GitConfigSyntax(t *testing.T) {
	// GIVEN a .cfg file with the seed in the [run] section
	path := testutil.WriteTempFile(t, "run.cfg", `
[run]
seed = 99

[system]
n = 12
well-width = 1.5
walls = 1
sticky-wall = true

[method]
algorithm = samc
sa-t0 = 1000

[end]
condition = init_iter_limit
init-iters = 500
`)

	// WHEN it is loaded
	cfg, err := LoadConfigFile(path)

	// THEN every section lands in its struct
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, 12, cfg.System.N)
	assert.Equal(t, 1.5, cfg.System.WellWidth)
	assert.Equal(t, 1, cfg.System.Walls)
	assert.True(t, cfg.System.StickyWall)
	assert.Equal(t, string(SAMC), cfg.Method.Algorithm)
	assert.Equal(t, 1000.0, cfg.Method.SAT0)
	assert.Equal(t, int64(500), cfg.End.InitIters)
	assert.Equal(t, DefaultConfig().System.Radius, cfg.System.Radius)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile_GitConfigRejectsUnknownVariables(t *testing.T) {
	path := testutil.WriteTempFile(t, "run.cfg", "[system]\nballs = 12\n")

	_, err := LoadConfigFile(path)

	assert.Error(t, err)
}

func TestLoadConfigFile_MissingFile(t *testing.T) {
	_, err := LoadConfigFile(t.TempDir() + "/absent.yaml")

	assert.Error(t, err)
}

func TestSelectAlgorithm_Precedence(t *testing.T) {
	tests := []struct {
		wltmmc, wl, tmmc, sad bool
		want                  Algorithm
	}{
		{want: Canonical},
		{sad: true, want: SAD},
		{tmmc: true, sad: true, want: TMMC},
		{wl: true, tmmc: true, sad: true, want: WangLandau},
		{wltmmc: true, wl: true, tmmc: true, sad: true, want: WLTMMC},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, SelectAlgorithm(tt.wltmmc, tt.wl, tt.tmmc, tt.sad))
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, Canonical, a)

	a, err = ParseAlgorithm("toe")
	require.NoError(t, err)
	assert.Equal(t, TOE, a)

	_, err = ParseAlgorithm("TMMC")
	assert.Error(t, err)
}
