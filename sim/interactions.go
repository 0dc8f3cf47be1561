package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// WallStickiness is the interaction count a ball gains from touching the sticky wall.
const WallStickiness = 2

// CountInteractions counts the neighbors of ball id within interactionDistance,
// plus the sticky wall bonus. The sticky wall is the slab near x = 0.
func CountInteractions(id int, balls []Ball, interactionDistance float64, cell Cell, stickyWall bool) int {
	interactions := 0
	limit := sqr(interactionDistance)
	for _, n := range balls[id].Neighbors {
		if r3.Norm2(PeriodicDiff(balls[id].Pos, balls[n].Pos, cell)) <= limit {
			interactions++
		}
	}
	if stickyWall && balls[id].Pos.X < balls[id].R {
		interactions += WallStickiness
	}
	return interactions
}

// CountAllInteractions counts every interacting pair once, plus wall bonuses.
// It is meant for initialization and verification only.
func CountAllInteractions(balls []Ball, interactionDistance float64, cell Cell, stickyWall bool) int {
	interactions := 0
	limit := sqr(interactionDistance)
	for i := range balls {
		for _, n := range balls[i].Neighbors {
			if i < n && r3.Norm2(PeriodicDiff(balls[i].Pos, balls[n].Pos, cell)) <= limit {
				interactions++
			}
		}
		if stickyWall && balls[i].Pos.X < balls[i].R {
			interactions += WallStickiness
		}
	}
	return interactions
}

func fccPos(n, m, l int, x, y, z, a float64) r3.Vec {
	return r3.Scale(a, r3.Vec{X: float64(n) + x/2, Y: float64(m) + y/2, Z: float64(l) + z/2})
}

var (
	fccXs = [4]float64{0, 1, 1, 0}
	fccYs = [4]float64{0, 1, 0, 1}
	fccZs = [4]float64{0, 0, 1, 1}
)

// MaxBallsWithin returns how many unit-radius spheres of a close packed fcc
// lattice have centers within distance of a central sphere, excluding it.
// distance is measured in units of the ball radius.
func MaxBallsWithin(distance float64) int {
	distance += 1e-10
	a := 2 * math.Sqrt2
	c := int(math.Ceil(distance / a))
	num := -1
	for n := -c; n <= c; n++ {
		for m := -c; m <= c; m++ {
			for l := -c; l <= c; l++ {
				for k := 0; k < 4; k++ {
					if r3.Norm(fccPos(n, m, l, fccXs[k], fccYs[k], fccZs[k], a)) <= distance {
						num++
					}
				}
			}
		}
	}
	return num
}
