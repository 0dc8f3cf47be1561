package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

// MoveOutcome describes what happened to a single proposal.
type MoveOutcome struct {
	Ball         int
	Overlap      bool    // rejected for overlapping a neighbor or leaving the walls
	Rebuilt      bool    // the proposal triggered a neighbor list rebuild
	EnergyChange int     // interaction count change the move would cause
	Pmove        float64 // acceptance probability; 0 for overlaps
	Accepted     bool
}

// MoveABall proposes a displacement of the next ball in round-robin order and
// accepts or rejects it according to the active algorithm. The transition
// matrix records every proposal, accepted or not.
func (s *Simulation) MoveABall() error {
	id := int(s.Moves.Total % int64(s.N))
	delta := RandomInBall(s.rng, s.TranslationScale)
	_, err := s.tryMove(id, delta)
	return err
}

// tryMove applies the full move protocol to ball id displaced by delta.
func (s *Simulation) tryMove(id int, delta r3.Vec) (MoveOutcome, error) {
	out := MoveOutcome{Ball: id}
	s.Moves.Total++
	oldInteractions := CountInteractions(id, s.Balls, s.InteractionDistance, s.Cell, s.StickyWall)

	temp := s.Balls[id]
	proposed := r3.Add(temp.Pos, delta)
	if !insideWalls(proposed, s.Cell) {
		out.Overlap = true
		return out, s.rejectOverlap()
	}
	temp.Pos = FixPeriodic(proposed, s.Cell.Len)
	if OverlapsWithAny(temp, s.Balls, s.Cell) {
		out.Overlap = true
		return out, s.rejectOverlap()
	}

	// A ball that strayed from its neighbor center may have new neighbors the
	// overlap test above never saw.
	out.Rebuilt = r3.Norm2(PeriodicDiff(temp.Pos, temp.NeighborCenter, s.Cell)) > sqr(s.NeighborR/2)
	if out.Rebuilt {
		temp.Neighbors = make([]int, 0, s.MaxNeighbors)
		if err := UpdateNeighbors(&temp, id, s.Balls, s.NeighborSkin, s.Cell, s.MaxNeighbors); err != nil {
			return out, err
		}
		s.Moves.Updates++
		if OverlapsWithAny(temp, s.Balls, s.Cell) {
			out.Overlap = true
			return out, s.rejectOverlap()
		}
	}

	old := s.Balls[id]
	s.Balls[id] = temp
	newInteractions := CountInteractions(id, s.Balls, s.InteractionDistance, s.Cell, s.StickyWall)
	s.Balls[id] = old

	energyChange := newInteractions - oldInteractions
	out.EnergyChange = energyChange
	if err := s.recordTransition(s.Energy, energyChange); err != nil {
		return out, err
	}

	out.Pmove = s.AcceptanceProbability(s.Energy, energyChange)
	if out.Pmove < 1 && s.rng.Float64() > out.Pmove {
		s.endMoveUpdates()
		return out, nil
	}

	if out.Rebuilt {
		temp.NeighborCenter = temp.Pos
		if err := InformNeighbors(temp, old, s.Balls, id, s.MaxNeighbors); err != nil {
			return out, err
		}
		s.Moves.Informs++
	}
	s.Balls[id] = temp
	s.Moves.Working++
	s.Energy += energyChange
	out.Accepted = true
	if energyChange != 0 {
		s.energyChangeUpdates(energyChange)
	}
	s.endMoveUpdates()
	return out, nil
}

func (s *Simulation) rejectOverlap() error {
	if err := s.recordTransition(s.Energy, 0); err != nil {
		return err
	}
	s.endMoveUpdates()
	return nil
}

// AcceptanceProbability returns the probability of accepting a move from
// energy e to e+de. Values above 1 mean certain acceptance.
func (s *Simulation) AcceptanceProbability(e, de int) float64 {
	target := e + de
	if target < 0 || target >= s.EnergyLevels {
		return 0
	}
	switch s.Algorithm {
	case WangLandau, WLTMMC:
		// WL methods may not leave the energy range under study.
		if target > s.MinImportantEnergy || target < s.MaxEntropyState {
			return 0
		}
		if s.Algorithm == WLTMMC && s.tmmcHandoff {
			return s.transitionAcceptance(e, de)
		}
		return s.canonicalAcceptance(e, de)
	case TMMC:
		return s.transitionAcceptance(e, de)
	case SAD:
		if s.TooHighEnergy < 0 {
			return s.canonicalAcceptance(e, de)
		}
		return math.Exp(s.sadLnWeight(target) - s.sadLnWeight(e))
	case Canonical, SAMC, TMI, TOE:
		return s.canonicalAcceptance(e, de)
	}
	panic(fmt.Sprintf("unhandled algorithm %q", s.Algorithm))
}

func (s *Simulation) canonicalAcceptance(e, de int) float64 {
	lnPmove := s.LnEnergyWeights[e+de] - s.LnEnergyWeights[e]
	if lnPmove < 0 {
		return math.Exp(lnPmove)
	}
	return 1
}

// transitionAcceptance uses the ratio of observed transition probabilities in
// both directions, falling back to the weights when either is unobserved.
func (s *Simulation) transitionAcceptance(e, de int) float64 {
	tup := s.TransitionProbability(e, e+de)
	tdown := s.TransitionProbability(e+de, e)
	if tup > 0 && tdown > 0 {
		logrus.Tracef("tmmc %d -> %d: tup=%g tdown=%g", e, e+de, tup, tdown)
		return tdown / tup
	}
	return s.canonicalAcceptance(e, de)
}

// sadLnWeight is the SAD weight of level e: flat above the interval and
// Boltzmann at MinT below it.
func (s *Simulation) sadLnWeight(e int) float64 {
	switch {
	case e < s.TooHighEnergy:
		return s.LnEnergyWeights[s.TooHighEnergy]
	case e > s.TooLowEnergy:
		return s.LnEnergyWeights[s.TooLowEnergy] + float64(e-s.TooLowEnergy)/s.MinT
	default:
		return s.LnEnergyWeights[e]
	}
}
