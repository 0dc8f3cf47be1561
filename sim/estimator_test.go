package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTransitions_OutOfRange(t *testing.T) {
	s := newTestSimulation(t, nil)

	err := s.AddTransitions(0, s.BiggestEnergyTransition+1, 1)

	assert.True(t, errors.Is(err, ErrEnergyOutOfRange))
	assert.Equal(t, int64(0), s.Transitions(-1, 0))
	assert.Equal(t, int64(0), s.Transitions(0, s.BiggestEnergyTransition+1))
}

func TestTransitionProbability_RowNormalized(t *testing.T) {
	s := newTestSimulation(t, nil)
	require.NoError(t, s.AddTransitions(4, -1, 1))
	require.NoError(t, s.AddTransitions(4, 0, 2))
	require.NoError(t, s.AddTransitions(4, 2, 1))

	assert.Equal(t, 0.25, s.TransitionProbability(4, 3))
	assert.Equal(t, 0.5, s.TransitionProbability(4, 4))
	assert.Equal(t, 0.25, s.TransitionProbability(4, 6))
	assert.Equal(t, 0.0, s.TransitionProbability(5, 6), "unobserved row")
}

func TestEnergyChangeUpdates_PessimisticCountsRoundTrips(t *testing.T) {
	// GIVEN a max entropy state at 2
	s := newTestSimulation(t, nil)
	s.MaxEntropyState = 2

	// WHEN the walker reaches 3 twice without going back
	s.Energy = 3
	s.energyChangeUpdates(1)
	s.energyChangeUpdates(1)

	// THEN only one pessimistic sample is counted, but two optimistic ones
	assert.Equal(t, int64(1), s.PessimisticSamples[3])
	assert.Equal(t, int64(2), s.OptimisticSamples[3])

	// WHEN it returns to the max entropy state and comes back
	s.Energy = 2
	s.energyChangeUpdates(-1)
	s.Energy = 3
	s.energyChangeUpdates(1)

	// THEN a second round trip is counted
	assert.Equal(t, int64(2), s.PessimisticSamples[3])
}

func TestEndMoveUpdates_WangLandauDecrementsCurrentLevel(t *testing.T) {
	s := newTestSimulation(t, func(c *Config) {
		c.Method.Algorithm = string(WangLandau)
		c.Method.WLFactor = 0.25
	})
	s.Energy = 3

	s.endMoveUpdates()
	s.endMoveUpdates()

	assert.Equal(t, int64(2), s.EnergyHistogram[3])
	assert.Equal(t, -0.5, s.LnEnergyWeights[3])
}

func TestEndMoveUpdates_SAMCSchedule(t *testing.T) {
	s := newTestSimulation(t, func(c *Config) {
		c.Method.Algorithm = string(SAMC)
		c.Method.SAT0 = 10
		c.Method.SAPrefactor = 2
	})
	s.Energy = 1

	s.Moves.Total = 5
	s.endMoveUpdates()
	assert.Equal(t, 2.0, s.WLFactor, "flat at the prefactor until t0")

	s.Moves.Total = 100
	s.endMoveUpdates()
	assert.Equal(t, 0.2, s.WLFactor)
	assert.InDelta(t, -2.2, s.LnEnergyWeights[1], 1e-12)
}

func TestEndMoveUpdates_CanonicalLeavesWeights(t *testing.T) {
	s := newTestSimulation(t, func(c *Config) { c.Method.Algorithm = string(Canonical) })
	s.Energy = 2

	s.endMoveUpdates()

	assert.Equal(t, 0.0, s.LnEnergyWeights[2])
	assert.Equal(t, int64(1), s.EnergyHistogram[2])
}

func TestSADUpdates_GrowsIntervalToMostVisited(t *testing.T) {
	// GIVEN a SAD walker whose first visit is energy 5
	s := newTestSimulation(t, func(c *Config) { c.Method.Algorithm = string(SAD) })
	require.Equal(t, 1.0, s.AcceptanceProbability(0, 1), "canonical before the first visit")
	s.Energy = 5
	s.Moves.Total = 1
	s.endMoveUpdates()
	assert.Equal(t, 5, s.TooHighEnergy)
	assert.Equal(t, 5, s.TooLowEnergy)

	// WHEN energy 7 becomes the most visited level
	s.Energy = 7
	s.Moves.Total = 2
	s.endMoveUpdates()
	s.Moves.Total = 3
	s.endMoveUpdates()

	// THEN the interval extends down to 7 and adaptation starts inside it
	assert.Equal(t, 5, s.TooHighEnergy)
	assert.Equal(t, 7, s.TooLowEnergy)
	assert.Equal(t, 2, s.numSADStates)
	assert.Greater(t, s.WLFactor, 0.0)
	assert.LessOrEqual(t, s.TooHighEnergy, s.TooLowEnergy)
}

func TestSADLnWeight_TailsOutsideInterval(t *testing.T) {
	s := newTestSimulation(t, func(c *Config) {
		c.Method.Algorithm = string(SAD)
		c.Method.MinT = 0.5
	})
	s.TooHighEnergy, s.TooLowEnergy = 3, 5
	s.LnEnergyWeights[3], s.LnEnergyWeights[4], s.LnEnergyWeights[5] = 1, 2, 3

	assert.Equal(t, 1.0, s.sadLnWeight(0), "flat above the interval")
	assert.Equal(t, 2.0, s.sadLnWeight(4))
	assert.Equal(t, 7.0, s.sadLnWeight(7), "Boltzmann at MinT below it")
}
