package sim

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// Cell is the simulation box. Axes 0..Walls-1 are bounded by hard walls; the
// remaining axes are periodic.
type Cell struct {
	Len   [3]float64
	Walls int
}

// Volume returns the cell volume.
func (c Cell) Volume() float64 {
	return c.Len[0] * c.Len[1] * c.Len[2]
}

// PeriodicDiff returns the displacement from a to b using the minimum image
// convention on the periodic axes only. Walls must be in [0,3].
func PeriodicDiff(a, b r3.Vec, cell Cell) r3.Vec {
	v := r3.Sub(b, a)
	if cell.Walls <= 2 {
		v.Z = foldAxis(v.Z, cell.Len[2])
		if cell.Walls <= 1 {
			v.Y = foldAxis(v.Y, cell.Len[1])
			if cell.Walls == 0 {
				v.X = foldAxis(v.X, cell.Len[0])
			}
		}
	}
	return v
}

func foldAxis(d, length float64) float64 {
	if d > 0.5*length {
		return d - length
	}
	if d < -0.5*length {
		return d + length
	}
	return d
}

// FixPeriodic wraps v into [0, len) on all three axes.
func FixPeriodic(v r3.Vec, length [3]float64) r3.Vec {
	v.X = wrapAxis(v.X, length[0])
	v.Y = wrapAxis(v.Y, length[1])
	v.Z = wrapAxis(v.Z, length[2])
	return v
}

func wrapAxis(x, length float64) float64 {
	for x >= length {
		x -= length
	}
	for x < 0 {
		x += length
	}
	return x
}

// insideWalls reports whether v lies within [0, len) on every walled axis.
// Walls constrain ball centers only, so a sphere may reach up to its radius
// past a wall.
func insideWalls(v r3.Vec, cell Cell) bool {
	coords := [3]float64{v.X, v.Y, v.Z}
	for i := 0; i < cell.Walls; i++ {
		if coords[i] < 0 || coords[i] >= cell.Len[i] {
			return false
		}
	}
	return true
}

// RandomInBall returns a vector drawn uniformly from a ball of the given radius.
func RandomInBall(rng *rand.Rand, radius float64) r3.Vec {
	for {
		v := r3.Vec{X: 2*rng.Float64() - 1, Y: 2*rng.Float64() - 1, Z: 2*rng.Float64() - 1}
		if r3.Norm2(v) <= 1 {
			return r3.Scale(radius, v)
		}
	}
}

func sqr(x float64) float64 { return x * x }

// CubeSide returns the side of a cube holding n spheres of radius r at the
// given filling fraction.
func CubeSide(n int, r, fillingFraction float64) float64 {
	volume := float64(n) * 4.0 / 3.0 * math.Pi * r * r * r / fillingFraction
	return math.Cbrt(volume)
}
