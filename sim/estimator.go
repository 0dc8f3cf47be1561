package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/squarewell-sim/squarewell-sim/sim/trace"
)

// Transitions returns the number of proposals from energy e that would have
// changed the energy by de. Out of range requests return 0.
func (s *Simulation) Transitions(e, de int) int64 {
	if e < 0 || e >= s.EnergyLevels || de < -s.BiggestEnergyTransition || de > s.BiggestEnergyTransition {
		return 0
	}
	return s.transitions[s.transitionIndex(e, de)]
}

// AddTransitions adds count proposals from e by de to the matrix.
func (s *Simulation) AddTransitions(e, de int, count int64) error {
	if e < 0 || e >= s.EnergyLevels || de < -s.BiggestEnergyTransition || de > s.BiggestEnergyTransition {
		return fmt.Errorf("%w: transition %d%+d (levels %d, biggest transition %d)",
			ErrEnergyOutOfRange, e, de, s.EnergyLevels, s.BiggestEnergyTransition)
	}
	s.transitions[s.transitionIndex(e, de)] += count
	return nil
}

func (s *Simulation) transitionIndex(e, de int) int {
	return e*(2*s.BiggestEnergyTransition+1) + de + s.BiggestEnergyTransition
}

func (s *Simulation) recordTransition(e, de int) error {
	if e+de < 0 || e+de >= s.EnergyLevels {
		return fmt.Errorf("%w: move to %d", ErrEnergyOutOfRange, e+de)
	}
	return s.AddTransitions(e, de, 1)
}

// TransitionProbability estimates the probability that a proposal made at
// energy from lands on energy to, from the observed row of the matrix.
func (s *Simulation) TransitionProbability(from, to int) float64 {
	de := to - from
	if de < -s.BiggestEnergyTransition || de > s.BiggestEnergyTransition {
		return 0
	}
	var norm int64
	for d := -s.BiggestEnergyTransition; d <= s.BiggestEnergyTransition; d++ {
		norm += s.Transitions(from, d)
	}
	if norm == 0 {
		return 0
	}
	return float64(s.Transitions(from, de)) / float64(norm)
}

// endMoveUpdates does the per-proposal bookkeeping: iteration count,
// histogram, and the weight update of the active algorithm.
func (s *Simulation) endMoveUpdates() {
	if s.Moves.Total%int64(s.N) == 0 {
		s.Iteration++
	}
	if s.SAT0 > 0 && (s.Algorithm == SAMC || s.Algorithm == SAD) {
		s.WLFactor = s.SAPrefactor * s.SAT0 / math.Max(s.SAT0, float64(s.Moves.Total))
	}
	s.EnergyHistogram[s.Energy]++
	if s.Algorithm == SAD {
		s.sadUpdates()
		return
	}
	// Without WL or SA methods WLFactor is 0 and this has no effect.
	s.LnEnergyWeights[s.Energy] -= s.WLFactor
}

// sadUpdates grows the interval of interesting energies when a level outside
// it becomes the most visited, and applies the SAD weight decrement inside it.
func (s *Simulation) sadUpdates() {
	energy := s.Energy
	if s.EnergyHistogram[energy] == 1 {
		if s.TooLowEnergy < 0 || s.TooHighEnergy < 0 {
			s.TooLowEnergy = energy
			s.TooHighEnergy = energy
			s.numSADStates = 1
		}
		if energy < s.TooLowEnergy && energy > s.TooHighEnergy {
			s.numSADStates++
			s.timeL = s.Moves.Total
		}
	}
	if s.EnergyHistogram[energy] > s.highestHist {
		s.highestHist = s.EnergyHistogram[energy]
		if energy < s.TooHighEnergy {
			anchor := s.LnEnergyWeights[s.TooHighEnergy]
			for i := energy; i < s.TooHighEnergy; i++ {
				s.LnEnergyWeights[i] = s.histogramWeight(i, anchor, 0)
			}
			s.TooHighEnergy = energy
			s.countSADStates()
			s.timeL = s.Moves.Total
			s.recordEvent(trace.EventDiscovery, energy, 0, "too_high_energy")
		} else if energy > s.TooLowEnergy {
			anchor := s.LnEnergyWeights[s.TooLowEnergy]
			for i := s.TooLowEnergy; i <= energy; i++ {
				s.LnEnergyWeights[i] = s.histogramWeight(i, anchor, float64(i-s.TooLowEnergy)/s.MinT)
			}
			s.TooLowEnergy = energy
			s.countSADStates()
			s.timeL = s.Moves.Total
			s.recordEvent(trace.EventDiscovery, energy, 0, "too_low_energy")
		}
	}
	if s.Moves.Total == s.timeL {
		logrus.Debugf("  (moves %d, num_sad_states %d, erange: %d -> %d gamma = %g)",
			s.Moves.Total, s.numSADStates, s.TooLowEnergy, s.TooHighEnergy, s.WLFactor)
	}
	if energy >= s.TooHighEnergy && energy <= s.TooLowEnergy && s.TooLowEnergy > s.TooHighEnergy {
		t := float64(s.Moves.Total)
		dE := float64(s.TooLowEnergy - s.TooHighEnergy)
		ns := float64(s.numSADStates)
		tL := math.Max(float64(s.timeL), 1)
		s.WLFactor = dE / (s.MinT * t * float64(s.SADVersion)) *
			(ns*ns + ns*t + t*(t/tL-1)) /
			(ns*ns + t + t*(t/tL-1))
		s.LnEnergyWeights[energy] -= s.WLFactor
	}
}

// histogramWeight extrapolates a weight for level i from anchor using the
// visit histogram, plus a Boltzmann shift. Unvisited levels get weight 0.
func (s *Simulation) histogramWeight(i int, anchor, shift float64) float64 {
	if s.EnergyHistogram[i] == 0 {
		return 0
	}
	return anchor - math.Log(float64(s.EnergyHistogram[i])/float64(s.highestHist)) + shift
}

// countSADStates counts the visited levels inside the interesting interval.
func (s *Simulation) countSADStates() {
	s.numSADStates = 0
	for i := s.TooHighEnergy; i <= s.TooLowEnergy; i++ {
		if s.EnergyHistogram[i] != 0 {
			s.numSADStates++
		}
	}
}

// energyChangeUpdates maintains the optimistic and pessimistic sample counts.
// A pessimistic sample at a level is counted once per trip from the state of
// maximum entropy.
func (s *Simulation) energyChangeUpdates(energyChange int) {
	if s.Energy <= s.MaxEntropyState {
		for i := s.MaxEntropyState; i < s.EnergyLevels; i++ {
			s.pessimisticObservation[i] = false
		}
	} else if !s.pessimisticObservation[s.Energy] {
		s.pessimisticObservation[s.Energy] = true
		s.PessimisticSamples[s.Energy]++
	}
	if energyChange > 0 {
		s.OptimisticSamples[s.Energy]++
	}
}
