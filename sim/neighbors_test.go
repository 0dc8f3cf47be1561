package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func lineOfBalls(xs ...float64) []Ball {
	balls := make([]Ball, len(xs))
	for i, x := range xs {
		balls[i] = Ball{Pos: r3.Vec{X: x, Y: 5, Z: 5}, R: 1}
	}
	return balls
}

func TestInitializeNeighborTables_AllPairsWithinSkin(t *testing.T) {
	// GIVEN balls at x = 1, 3.2, 5.6, 15 in a periodic 20-cube
	cell := Cell{Len: [3]float64{20, 20, 20}}
	balls := lineOfBalls(1, 3.2, 5.6, 15)

	// WHEN lists are built with a skin of 0.5 (cutoff 2.5)
	most, err := InitializeNeighborTables(balls, 0.5, 4, cell)

	// THEN only pairs closer than 2.5 are neighbors, and centers are the positions
	require.NoError(t, err)
	assert.Equal(t, []int{1}, balls[0].Neighbors)
	assert.Equal(t, []int{0, 2}, balls[1].Neighbors)
	assert.Equal(t, []int{1}, balls[2].Neighbors)
	assert.Empty(t, balls[3].Neighbors)
	assert.Equal(t, 2, most)
	assert.Equal(t, balls[1].Pos, balls[1].NeighborCenter)
}

func TestInitializeNeighborTables_PeriodicImage(t *testing.T) {
	cell := Cell{Len: [3]float64{20, 20, 20}}
	balls := lineOfBalls(0.5, 19)

	_, err := InitializeNeighborTables(balls, 0.5, 4, cell)

	require.NoError(t, err)
	assert.Equal(t, []int{1}, balls[0].Neighbors, "1.5 apart through the boundary")
}

func TestInitializeNeighborTables_CapacityExceeded(t *testing.T) {
	cell := Cell{Len: [3]float64{20, 20, 20}}
	balls := lineOfBalls(1, 3.2, 5.4)

	_, err := InitializeNeighborTables(balls, 0.5, 1, cell)

	var capErr *NeighborCapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 1, capErr.Ball)
	assert.Equal(t, 1, capErr.Max)
}

func TestInformNeighbors_MergeDiff(t *testing.T) {
	// GIVEN ball 0 moving from neighbors {1, 2} to neighbors {2, 3}
	balls := []Ball{
		{Neighbors: []int{1, 2}},
		{Neighbors: []int{0, 2}},
		{Neighbors: []int{0, 1}},
		{Neighbors: []int{}},
	}
	oldB := balls[0]
	newB := Ball{Neighbors: []int{2, 3}}

	// WHEN the other balls are informed
	require.NoError(t, InformNeighbors(newB, oldB, balls, 0, 4))

	// THEN 1 forgets 0, 3 learns 0, 2 is untouched
	assert.Equal(t, []int{2}, balls[1].Neighbors)
	assert.Equal(t, []int{0, 1}, balls[2].Neighbors)
	assert.Equal(t, []int{0}, balls[3].Neighbors)
}

func TestInformNeighbors_KeepsListsAscending(t *testing.T) {
	balls := []Ball{
		{Neighbors: []int{0, 1, 4}},
		{},
		{},
		{},
		{Neighbors: []int{0, 3}},
	}
	require.NoError(t, InformNeighbors(Ball{Neighbors: []int{0, 4}}, Ball{Neighbors: []int{}}, balls, 2, 4))

	assert.Equal(t, []int{0, 1, 2, 4}, balls[0].Neighbors)
	assert.Equal(t, []int{0, 2, 3}, balls[4].Neighbors)
}

func TestInformNeighbors_CapacityExceeded(t *testing.T) {
	balls := []Ball{{Neighbors: []int{1}}, {Neighbors: []int{0}}, {}}

	err := InformNeighbors(Ball{Neighbors: []int{0}}, Ball{}, balls, 2, 1)

	var capErr *NeighborCapacityError
	assert.True(t, errors.As(err, &capErr))
}

func TestUpdateNeighbors_UsesCachedCenters(t *testing.T) {
	// GIVEN ball 1 whose position moved away but whose center still sits near x=3
	cell := Cell{Len: [3]float64{20, 20, 20}}
	balls := lineOfBalls(1, 3, 10)
	_, err := InitializeNeighborTables(balls, 0.5, 4, cell)
	require.NoError(t, err)
	balls[1].Pos.X = 9

	// WHEN ball 0 rebuilds its list
	a := balls[0]
	require.NoError(t, UpdateNeighbors(&a, 0, balls, 0.5, cell, 4))

	// THEN ball 1 is still found through its center
	assert.Equal(t, []int{1}, a.Neighbors)
}

func TestCountInteractions_WellAndStickyWall(t *testing.T) {
	cell := Cell{Len: [3]float64{20, 20, 20}, Walls: 1}
	balls := lineOfBalls(0.5, 3, 6)
	_, err := InitializeNeighborTables(balls, 2, 4, cell)
	require.NoError(t, err)

	// interaction distance 2.6: only balls 0 and 1 interact
	assert.Equal(t, 1, CountInteractions(1, balls, 2.6, cell, false))
	assert.Equal(t, 0, CountInteractions(2, balls, 2.6, cell, false))
	assert.Equal(t, 1, CountAllInteractions(balls, 2.6, cell, false))
	// ball 0 is within one radius of the x=0 wall
	assert.Equal(t, 1+WallStickiness, CountInteractions(0, balls, 2.6, cell, true))
	assert.Equal(t, 1+WallStickiness, CountAllInteractions(balls, 2.6, cell, true))
}
