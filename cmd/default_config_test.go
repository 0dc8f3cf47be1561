package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sim "github.com/squarewell-sim/squarewell-sim/sim"
)

func TestWriteConfigYAML_RoundTripsThroughLoadConfigFile(t *testing.T) {
	// GIVEN a non-default config printed by the config command
	cfg := sim.DefaultConfig()
	cfg.System.N = 32
	cfg.Method.Algorithm = string(sim.WangLandau)
	var buf bytes.Buffer
	require.NoError(t, writeConfigYAML(&buf, cfg))

	// WHEN the output is used as a --config file
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	got, err := sim.LoadConfigFile(path)

	// THEN the same config comes back
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestWriteConfigYAML_InvalidConfig_Fails(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Method.Algorithm = "metropolis"

	err := writeConfigYAML(&bytes.Buffer{}, cfg)

	assert.Error(t, err)
}
