package sim

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// Ball is a single hard sphere together with its cached neighbor list.
// Neighbors is ascending and unique, and is exact for every other ball whose
// NeighborCenter lies within R + other.R + neighborR of this NeighborCenter.
type Ball struct {
	Pos            r3.Vec
	R              float64
	Neighbors      []int
	NeighborCenter r3.Vec
}

// NeighborCapacityError reports a neighbor list that outgrew MaxNeighbors.
type NeighborCapacityError struct {
	Ball  int
	Count int
	Max   int
}

func (e *NeighborCapacityError) Error() string {
	return fmt.Sprintf("ball %d found too many neighbors: %d > %d", e.Ball, e.Count, e.Max)
}

// InitializeNeighborTables builds every neighbor list from scratch using all
// pairs. It returns the largest neighbor count found.
func InitializeNeighborTables(balls []Ball, neighborR float64, maxNeighbors int, cell Cell) (int, error) {
	mostNeighbors := 0
	for i := range balls {
		balls[i].NeighborCenter = balls[i].Pos
	}
	for i := range balls {
		balls[i].Neighbors = make([]int, 0, maxNeighbors)
		for j := range balls {
			if i == j {
				continue
			}
			d2 := r3.Norm2(PeriodicDiff(balls[i].Pos, balls[j].Pos, cell))
			if d2 < sqr(balls[i].R+balls[j].R+neighborR) {
				if len(balls[i].Neighbors) >= maxNeighbors {
					return 0, &NeighborCapacityError{Ball: i, Count: len(balls[i].Neighbors) + 1, Max: maxNeighbors}
				}
				balls[i].Neighbors = append(balls[i].Neighbors, j)
			}
		}
		mostNeighbors = max(mostNeighbors, len(balls[i].Neighbors))
	}
	return mostNeighbors, nil
}

// UpdateNeighbors recomputes a's neighbor list (a is ball id) against the
// cached neighbor centers of every other ball. a.Neighbors is reused.
func UpdateNeighbors(a *Ball, id int, balls []Ball, neighborR float64, cell Cell, maxNeighbors int) error {
	a.Neighbors = a.Neighbors[:0]
	for i := range balls {
		if i == id {
			continue
		}
		d2 := r3.Norm2(PeriodicDiff(a.Pos, balls[i].NeighborCenter, cell))
		if d2 < sqr(a.R+balls[i].R+neighborR) {
			if len(a.Neighbors) >= maxNeighbors {
				return &NeighborCapacityError{Ball: id, Count: len(a.Neighbors) + 1, Max: maxNeighbors}
			}
			a.Neighbors = append(a.Neighbors, i)
		}
	}
	return nil
}

func addNeighbor(newN int, balls []Ball, id, maxNeighbors int) error {
	list := balls[id].Neighbors
	i, found := slices.BinarySearch(list, newN)
	if found {
		return nil
	}
	if len(list) >= maxNeighbors {
		return &NeighborCapacityError{Ball: id, Count: len(list) + 1, Max: maxNeighbors}
	}
	balls[id].Neighbors = slices.Insert(list, i, newN)
	return nil
}

func removeNeighbor(oldN int, balls []Ball, id int) {
	list := balls[id].Neighbors
	if i, found := slices.BinarySearch(list, oldN); found {
		balls[id].Neighbors = slices.Delete(list, i, i+1)
	}
}

// InformNeighbors tells every ball whose list changed that ball n moved from
// oldB to newB. Both neighbor lists must be ascending; the difference is found
// with a single merge pass.
func InformNeighbors(newB, oldB Ball, balls []Ball, n, maxNeighbors int) error {
	newIndex, oldIndex := 0, 0
	for {
		if newIndex == len(newB.Neighbors) {
			for _, id := range oldB.Neighbors[oldIndex:] {
				removeNeighbor(n, balls, id)
			}
			return nil
		}
		if oldIndex == len(oldB.Neighbors) {
			for _, id := range newB.Neighbors[newIndex:] {
				if err := addNeighbor(n, balls, id, maxNeighbors); err != nil {
					return err
				}
			}
			return nil
		}
		nn, on := newB.Neighbors[newIndex], oldB.Neighbors[oldIndex]
		switch {
		case nn < on:
			if err := addNeighbor(n, balls, nn, maxNeighbors); err != nil {
				return err
			}
			newIndex++
		case on < nn:
			removeNeighbor(n, balls, on)
			oldIndex++
		default:
			newIndex++
			oldIndex++
		}
	}
}

// Overlap reports whether a and b are closer than the sum of their radii.
func Overlap(a, b Ball, cell Cell) bool {
	return r3.Norm2(PeriodicDiff(a.Pos, b.Pos, cell)) < sqr(a.R+b.R)
}

// OverlapsWithAny checks a against the current positions of its listed neighbors.
func OverlapsWithAny(a Ball, balls []Ball, cell Cell) bool {
	for _, id := range a.Neighbors {
		if Overlap(a, balls[id], cell) {
			return true
		}
	}
	return false
}
