package ensemble

import (
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squarewell-sim/squarewell-sim/sim"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

func walkerConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.System.N = 6
	cfg.System.FillingFraction = 0.2
	cfg.System.RelaxIterations = 0
	cfg.End.Condition = string(sim.InitIterLimit)
	cfg.End.InitIters = 150
	return cfg
}

func sumCounts(t *sim.TransitionsTable) int64 {
	var total int64
	for _, row := range t.Counts {
		for _, c := range row {
			total += c
		}
	}
	return total
}

func TestRun_MergesEveryWalkerProposal(t *testing.T) {
	// GIVEN three TMMC walkers, two at a time
	cfg := Config{Base: walkerConfig(), Walkers: 3, Parallelism: 2}

	// WHEN the ensemble runs
	out, err := Run(context.Background(), cfg)

	// THEN every walker stops at the cap and the merged matrix holds all proposals
	require.NoError(t, err)
	require.Len(t, out.Walkers, 3)
	var proposals int64
	for id, w := range out.Walkers {
		assert.Equal(t, id, w.ID)
		assert.Equal(t, WalkerSeed(cfg.Base.Seed, id), w.Seed)
		assert.Equal(t, sim.StopIterationCap, w.Result.StopReason)
		assert.Equal(t, w.Result.Moves.Total, sumCounts(w.Table))
		proposals += w.Result.Moves.Total
	}
	assert.Equal(t, proposals, sumCounts(out.Merged))
	assert.Equal(t, "42", out.Merged.Header["seed"])
	assert.Equal(t, 6, out.Estimator.N)
	assert.LessOrEqual(t, out.Estimator.MaxEntropyState, out.Estimator.MinImportantEnergy)
}

func TestRun_Deterministic(t *testing.T) {
	cfg := Config{Base: walkerConfig(), Walkers: 2}

	first, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	second, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, first.Merged.Energies, second.Merged.Energies)
	assert.Equal(t, first.Merged.Counts, second.Merged.Counts)
}

func TestRun_WalkersWriteNoFiles(t *testing.T) {
	dir := t.TempDir()
	base := walkerConfig()
	base.Output.DOSFile = dir + "/dos.dat"

	_, err := Run(context.Background(), Config{Base: base, Walkers: 2})

	require.NoError(t, err)
	assert.NoFileExists(t, base.Output.DOSFile)
}

func TestRun_RejectsBadConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{Base: walkerConfig(), Walkers: 0})
	assert.Error(t, err)

	bad := walkerConfig()
	bad.System.N = 0
	_, err = Run(context.Background(), Config{Base: bad, Walkers: 2})
	assert.Error(t, err)
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Config{Base: walkerConfig(), Walkers: 2})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalkerSeed(t *testing.T) {
	assert.Equal(t, WalkerSeed(42, 1), WalkerSeed(42, 1))
	assert.NotEqual(t, WalkerSeed(42, 0), WalkerSeed(42, 1))
	assert.NotEqual(t, WalkerSeed(42, 0), WalkerSeed(43, 0))
	assert.NotEqual(t, int64(42), WalkerSeed(42, 0))
}
