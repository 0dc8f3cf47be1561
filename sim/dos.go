package sim

import (
	"fmt"
	"math"
)

// ComputeLnDOS reconstructs the natural log of the density of states.
//
//   - HistogramDOS: log(histogram) - weights from the reference state down;
//     unvisited levels get -math.MaxFloat64.
//   - WeightsDOS: the negated weights relative to the reference state. For SAD
//     the tails outside the interesting interval are patched from the
//     histogram and never-visited levels get the lowest visited value.
//   - TransitionDOS: a detailed balance recursion over the transition matrix
//     only, independent of the weights.
func (s *Simulation) ComputeLnDOS(mode DOSMode) ([]float64, error) {
	lnDOS := make([]float64, s.EnergyLevels)
	switch mode {
	case HistogramDOS:
		for i := s.MaxEntropyState; i < s.EnergyLevels; i++ {
			if s.EnergyHistogram[i] != 0 {
				lnDOS[i] = math.Log(float64(s.EnergyHistogram[i])) - s.LnEnergyWeights[i]
			} else {
				lnDOS[i] = -math.MaxFloat64
			}
		}
	case WeightsDOS:
		s.weightsLnDOS(lnDOS)
	case TransitionDOS:
		s.transitionLnDOS(lnDOS)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownDOSMode, mode)
	}
	return lnDOS, nil
}

func (s *Simulation) weightsLnDOS(lnDOS []float64) {
	sad := s.Algorithm == SAD && s.TooHighEnergy >= 0
	if sad {
		// The SAD weights are lowest where the DOS is largest.
		s.MaxEntropyState = 0
		for i := range s.LnEnergyWeights {
			if s.LnEnergyWeights[i] < s.LnEnergyWeights[s.MaxEntropyState] {
				s.MaxEntropyState = i
			}
		}
	}
	for i := range lnDOS {
		lnDOS[i] = s.LnEnergyWeights[s.MaxEntropyState] - s.LnEnergyWeights[i]
	}
	if !sad || s.highestHist == 0 {
		return
	}
	betaMax := 1 / s.MinT
	// Above the interval the weights are flat, so the DOS follows the histogram.
	for i := 0; i < s.TooHighEnergy; i++ {
		if s.EnergyHistogram[i] != 0 {
			lnDOS[i] = lnDOS[s.TooHighEnergy] + math.Log(float64(s.EnergyHistogram[i])/float64(s.highestHist))
		}
	}
	// Below it the histogram needs a Boltzmann factor as well.
	for i := s.TooLowEnergy + 1; i < s.EnergyLevels; i++ {
		if s.EnergyHistogram[i] != 0 {
			lnDOS[i] = lnDOS[s.TooLowEnergy] + math.Log(float64(s.EnergyHistogram[i])/float64(s.highestHist)) -
				float64(i-s.TooLowEnergy)*betaMax
		}
	}
	lowest := 0.0
	for i := range lnDOS {
		if s.EnergyHistogram[i] != 0 {
			lowest = math.Min(lowest, lnDOS[i])
		}
	}
	for i := range lnDOS {
		if s.EnergyHistogram[i] == 0 {
			lnDOS[i] = lowest
		}
	}
}

func (s *Simulation) transitionLnDOS(lnDOS []float64) {
	lnDOS[0] = 0
	for i := 1; i < s.EnergyLevels; i++ {
		lnDOS[i] = lnDOS[i-1]
		downToHere, upFromHere := 0.0, 0.0
		for j := max(0, i-s.BiggestEnergyTransition); j < i; j++ {
			// Only exponentiate when the transition was observed, to avoid NaN.
			if tdown := s.TransitionProbability(j, i); tdown > 0 {
				downToHere += math.Exp(lnDOS[j]-lnDOS[i]) * tdown
			}
			upFromHere += s.TransitionProbability(i, j)
		}
		if downToHere > 0 && upFromHere > 0 {
			lnDOS[i] += math.Log(downToHere / upFromHere)
		}
	}
}

// SetMinImportantEnergy picks the visited energy that maximizes the free
// energy at MinT. lnDOS may be nil, in which case the transition DOS is used.
func (s *Simulation) SetMinImportantEnergy(lnDOS []float64) int {
	if lnDOS == nil {
		lnDOS, _ = s.ComputeLnDOS(TransitionDOS)
	}
	s.MinImportantEnergy = 0
	for i := 0; i < s.EnergyLevels; i++ {
		if s.EnergyHistogram[i] != 0 &&
			lnDOS[i]+float64(i)/s.MinT > lnDOS[s.MinImportantEnergy]+float64(s.MinImportantEnergy)/s.MinT {
			s.MinImportantEnergy = i
		}
		if s.EnergyHistogram[i] != 0 && s.EnergyHistogram[s.MinImportantEnergy] == 0 {
			s.MinImportantEnergy = i
		}
	}
	return s.MinImportantEnergy
}

// SetMaxEntropyEnergy moves MaxEntropyState to the maximum of the transition
// DOS. Ties keep the current state.
func (s *Simulation) SetMaxEntropyEnergy() int {
	lnDOS, _ := s.ComputeLnDOS(TransitionDOS)
	for i := s.EnergyLevels - 1; i >= 0; i-- {
		if lnDOS[i] > lnDOS[s.MaxEntropyState] {
			s.MaxEntropyState = i
		}
	}
	return s.MaxEntropyState
}
