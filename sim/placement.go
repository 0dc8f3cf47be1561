package sim

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// lattice is a cubic lattice given by its basis in units of the conventional
// cell edge, and its nearest neighbor distance in the same units.
type lattice struct {
	name    string
	basis   []r3.Vec
	nearest float64
}

var placementLattices = []lattice{
	{name: "fcc", basis: []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 0.5, Y: 0.5, Z: 0}, {X: 0.5, Y: 0, Z: 0.5}, {X: 0, Y: 0.5, Z: 0.5}}, nearest: math.Sqrt2 / 2},
	{name: "bcc", basis: []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 0.5, Y: 0.5, Z: 0.5}}, nearest: math.Sqrt(3) / 2},
	{name: "sc", basis: []r3.Vec{{X: 0, Y: 0, Z: 0}}, nearest: 1},
}

// latticeSites is one lattice scaled to hold at least n sites in a cell.
type latticeSites struct {
	name    string
	sites   []r3.Vec
	spacing float64 // nearest neighbor distance, a lower bound for non-cubic cells
}

// fitLattice uses the fewest cells per side that give l at least n sites.
func fitLattice(l lattice, n int, cell Cell) latticeSites {
	m := 1
	for len(l.basis)*m*m*m < n {
		m++
	}
	var a [3]float64
	for k := range a {
		a[k] = cell.Len[k] / float64(m)
	}
	out := latticeSites{
		name:    l.name,
		sites:   make([]r3.Vec, 0, len(l.basis)*m*m*m),
		spacing: min(a[0], a[1], a[2]) * l.nearest,
	}
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			for k := 0; k < m; k++ {
				for _, b := range l.basis {
					// The quarter cell offset keeps sites off the walls.
					out.sites = append(out.sites, r3.Vec{
						X: (float64(i) + b.X + 0.25) * a[0],
						Y: (float64(j) + b.Y + 0.25) * a[1],
						Z: (float64(k) + b.Z + 0.25) * a[2],
					})
				}
			}
		}
	}
	return out
}

// PlaceBalls puts n balls of radius r on lattice sites in the cell. Lattices
// are tried from the widest nearest neighbor spacing down; sites are visited
// in random order and skipped when they would overlap a ball already placed.
// When a lattice spacing is at least 2r no site is ever skipped.
func PlaceBalls(n int, r float64, cell Cell, rng *rand.Rand) ([]Ball, error) {
	candidates := make([]latticeSites, 0, len(placementLattices))
	for _, l := range placementLattices {
		candidates = append(candidates, fitLattice(l, n, cell))
	}
	slices.SortStableFunc(candidates, func(a, b latticeSites) int {
		switch {
		case a.spacing > b.spacing:
			return -1
		case a.spacing < b.spacing:
			return 1
		}
		return 0
	})

	for _, c := range candidates {
		if balls, ok := occupySites(n, r, c.sites, cell, rng); ok {
			return balls, nil
		}
	}
	return nil, fmt.Errorf("cannot place %d balls of radius %g on a lattice in a %v cell", n, r, cell.Len)
}

func occupySites(n int, r float64, sites []r3.Vec, cell Cell, rng *rand.Rand) ([]Ball, bool) {
	order := rng.Perm(len(sites))
	balls := make([]Ball, 0, n)
	for _, i := range order {
		if len(balls) == n {
			break
		}
		b := Ball{Pos: sites[i], R: r}
		if !insideWalls(b.Pos, cell) {
			continue
		}
		free := true
		for _, other := range balls {
			if Overlap(b, other, cell) {
				free = false
				break
			}
		}
		if free {
			balls = append(balls, b)
		}
	}
	return balls, len(balls) == n
}
