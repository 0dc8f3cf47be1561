package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// smallConfig is a dilute 8-ball system that builds in microseconds.
func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.System.N = 8
	cfg.System.FillingFraction = 0.2
	cfg.System.RelaxIterations = 0
	cfg.End.Condition = string(InitIterLimit)
	cfg.End.InitIters = 100
	return cfg
}

func newTestSimulation(t *testing.T, mutate func(*Config)) *Simulation {
	t.Helper()
	cfg := smallConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewSimulation(cfg)
	require.NoError(t, err)
	return s
}

// placeAt moves the balls to pos and rebuilds every neighbor list and the energy.
func placeAt(t *testing.T, s *Simulation, pos ...r3.Vec) {
	t.Helper()
	require.Len(t, pos, len(s.Balls))
	for i := range pos {
		s.Balls[i].Pos = pos[i]
	}
	_, err := InitializeNeighborTables(s.Balls, s.NeighborSkin, s.MaxNeighbors, s.Cell)
	require.NoError(t, err)
	s.Energy = CountAllInteractions(s.Balls, s.InteractionDistance, s.Cell, s.StickyWall)
}

// bruteForceEnergy counts interacting pairs over all pairs, ignoring neighbor lists.
func bruteForceEnergy(s *Simulation) int {
	e := 0
	for i := range s.Balls {
		for j := i + 1; j < len(s.Balls); j++ {
			if r3.Norm(PeriodicDiff(s.Balls[i].Pos, s.Balls[j].Pos, s.Cell)) <= s.InteractionDistance {
				e++
			}
		}
		if s.StickyWall && s.Balls[i].Pos.X < s.Balls[i].R {
			e += WallStickiness
		}
	}
	return e
}

// requireConsistent checks that no balls overlap, the neighbor lists are
// exact relative to the neighbor centers, and the energy matches a full count.
func requireConsistent(t *testing.T, s *Simulation) {
	t.Helper()
	for i := range s.Balls {
		require.True(t, insideWalls(s.Balls[i].Pos, s.Cell), "ball %d outside walls", i)
		require.IsIncreasing(t, s.Balls[i].Neighbors, "ball %d neighbor list order", i)
		for j := range s.Balls {
			if i == j {
				continue
			}
			require.False(t, i < j && Overlap(s.Balls[i], s.Balls[j], s.Cell), "balls %d and %d overlap", i, j)
			near := r3.Norm(PeriodicDiff(s.Balls[i].NeighborCenter, s.Balls[j].NeighborCenter, s.Cell)) <
				s.Balls[i].R+s.Balls[j].R+s.NeighborSkin
			require.Equal(t, near, containsInt(s.Balls[i].Neighbors, j), "ball %d neighbor %d", i, j)
		}
	}
	require.Equal(t, bruteForceEnergy(s), s.Energy)
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
