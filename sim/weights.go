package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/squarewell-sim/squarewell-sim/sim/trace"
)

// FlushWeightArray shifts the weights so the state of maximum entropy has
// weight 0 and floors every level above it at 0.
func (s *Simulation) FlushWeightArray() {
	maxEntropyWeight := s.LnEnergyWeights[s.MaxEntropyState]
	for i := range s.LnEnergyWeights {
		s.LnEnergyWeights[i] -= maxEntropyWeight
	}
	for i := 0; i < s.MaxEntropyState; i++ {
		s.LnEnergyWeights[i] = 0
	}
}

// InitializeCanonical sets Boltzmann weights at temperature T for every level
// below reference.
func (s *Simulation) InitializeCanonical(T float64, reference int) {
	for i := reference + 1; i < s.EnergyLevels; i++ {
		s.LnEnergyWeights[i] = s.LnEnergyWeights[reference] + float64(i-reference)/T
	}
}

// UpdateWeightsUsingTransitions sets the weights from the transition DOS.
//
// Version 1 follows the DOS down to the min important energy but never trusts
// a ratio beyond the 1/sqrt(samples) uncertainty, then uses Boltzmann weights
// at MinT below it. Versions 2 and 3 follow the DOS until it becomes
// implausible and extend it linearly with a secant (2) or tangent (3) slope.
func (s *Simulation) UpdateWeightsUsingTransitions(version int, energyRangeFixed bool) error {
	if version < 1 || version > 3 {
		return fmt.Errorf("%w: %d", ErrUnknownWeightVersion, version)
	}
	lnDOS, err := s.ComputeLnDOS(TransitionDOS)
	if err != nil {
		return err
	}
	if !energyRangeFixed {
		s.SetMinImportantEnergy(lnDOS)
		oldMaxEntropyState := s.MaxEntropyState
		for i := range lnDOS {
			if lnDOS[i] > lnDOS[s.MaxEntropyState] {
				s.MaxEntropyState = i
			}
		}
		// A shift of one level is tolerated to avoid trashing data when two
		// states have almost equal entropy.
		if oldMaxEntropyState > s.MaxEntropyState+1 {
			logrus.Warnf("Resetting pessimistic samples because max_entropy_state moved %d -> %d",
				oldMaxEntropyState, s.MaxEntropyState)
			clear(s.PessimisticSamples)
			clear(s.pessimisticObservation)
			s.recordEvent(trace.EventHistogramReset, s.MaxEntropyState, 0, "max_entropy_state changed")
		}
	}

	mes := s.MaxEntropyState
	for i := 0; i <= mes; i++ {
		s.LnEnergyWeights[i] = -lnDOS[mes]
	}
	if version == 1 {
		for i := mes + 1; i < s.EnergyLevels; i++ {
			if s.PessimisticSamples[i] != 0 && lnDOS[i] < lnDOS[i-1] {
				lnUncertainty := -0.5 * math.Log(float64(s.PessimisticSamples[i]))
				lnDOSRatio := lnDOS[i] - lnDOS[i-1]
				s.LnEnergyWeights[i] = s.LnEnergyWeights[i-1] + math.Min(-lnDOSRatio, -lnUncertainty)
			} else {
				// Never seen, or no information: same weight as the next higher energy.
				s.LnEnergyWeights[i] = s.LnEnergyWeights[i-1]
			}
		}
		for i := s.MinImportantEnergy + 1; i < s.EnergyLevels; i++ {
			s.LnEnergyWeights[i] = math.Min(s.LnEnergyWeights[i-1]+1/s.MinT, s.LnEnergyWeights[i])
		}
		return nil
	}

	// beta is the (positive) slope of the log weights below the pivot.
	beta := 0.0
	pivot := -1
	for i := mes + 1; i < s.EnergyLevels; i++ {
		if pivot < 0 {
			switch {
			case lnDOS[i-1]-lnDOS[i] > 1/s.MinT:
				beta = 1 / s.MinT
				pivot = i - 1
			case lnDOS[i] < lnDOS[i-1] &&
				lnDOS[i-1]-lnDOS[i] < 0.5*math.Log(float64(s.PessimisticSamples[i])):
				s.LnEnergyWeights[i] = -lnDOS[i]
			default:
				pivot = i - 1
				if version == 2 || i < 2 {
					beta = (lnDOS[mes] - lnDOS[pivot]) / float64(max(pivot-mes, 1))
				} else {
					beta = lnDOS[i-2] - lnDOS[i-1]
				}
				if math.IsNaN(beta) {
					beta = 0
				}
				// Never let the line cross the DOS where we have information.
				for j := pivot + 1; j < s.EnergyLevels && s.PessimisticSamples[j] != 0; j++ {
					beta = math.Min(beta, (lnDOS[pivot]-lnDOS[j])/float64(j-pivot))
				}
				beta = math.Max(beta, 0)
			}
		}
		if pivot >= 0 {
			s.LnEnergyWeights[i] = s.LnEnergyWeights[pivot] + beta*float64(i-pivot)
		}
	}
	return nil
}

// OptimizeWeightsUsingTransitions starts from the transition weights and
// corrects them by the local energy diffusivity, so the walker spends equal
// time per unit of round trip. The weights above the max entropy state are 0.
func (s *Simulation) OptimizeWeightsUsingTransitions(version int) error {
	if err := s.UpdateWeightsUsingTransitions(version, false); err != nil {
		return err
	}
	lnDOS, err := s.ComputeLnDOS(TransitionDOS)
	if err != nil {
		return err
	}
	diffusivity := 1.0
	for i := s.MaxEntropyState; i < s.EnergyLevels; i++ {
		norm, meanSqrDE, meanDE := 0.0, 0.0, 0.0
		for de := -s.BiggestEnergyTransition; de <= s.BiggestEnergyTransition; de++ {
			if i+de < 0 || i+de >= s.EnergyLevels {
				continue
			}
			// Cap the ratio of weights at 1.
			t := float64(s.Transitions(i, de)) * math.Exp(math.Max(0, lnDOS[i]-lnDOS[i+de]))
			norm += t
			meanSqrDE += t * float64(de*de)
			meanDE += t * float64(de)
		}
		if norm > 0 {
			meanSqrDE /= norm
			meanDE /= norm
			diffusivity = math.Abs(meanSqrDE - meanDE*meanDE)
		}
		if diffusivity > 0 {
			s.LnEnergyWeights[i] -= 0.5 * math.Log(diffusivity)
		}
	}
	lnMax := s.LnEnergyWeights[s.MaxEntropyState]
	for i := 0; i < s.MaxEntropyState; i++ {
		s.LnEnergyWeights[i] = 0
	}
	for i := s.MaxEntropyState; i < s.EnergyLevels; i++ {
		s.LnEnergyWeights[i] -= lnMax
	}
	return nil
}

// histogramFlatness summarizes the histogram over levels [from, to].
type histogramFlatness struct {
	highestI, lowestI int
	highest, lowest   float64
	mean              float64
}

func (s *Simulation) flatness(from, to int) histogramFlatness {
	h := histogramFlatness{lowest: math.MaxFloat64}
	total := 0.0
	for i := from; i <= to; i++ {
		v := float64(s.EnergyHistogram[i])
		total += v
		if v > h.highest {
			h.highest, h.highestI = v, i
		}
		if v < h.lowest {
			h.lowest, h.lowestI = v, i
		}
	}
	h.mean = total / float64(max(s.MinImportantEnergy-s.MaxEntropyState, 1))
	return h
}

func (h histogramFlatness) minOverMean() float64 {
	if h.mean == 0 {
		return 0
	}
	return h.lowest / h.mean
}

// calculateWeightsUsingWLTMMC does one WL-TMMC bookkeeping step: on a flat
// histogram it shrinks the WL factor, clears the histogram and refreshes the
// weights from the transition matrix. Once the factor is below the cutoff the
// walk becomes plain TMMC.
func (s *Simulation) calculateWeightsUsingWLTMMC(verbose bool) error {
	if s.WLFactor < s.WLCutoff {
		if !s.tmmcHandoff {
			logrus.Info("All done with WL portion of WLTMMC!")
			s.WLFactor = 0
			s.tmmcHandoff = true
			s.recordEvent(trace.EventHandoff, s.Energy, 0, "")
		}
		return nil
	}

	h := s.flatness(s.MaxEntropyState+1, s.MinImportantEnergy)
	if h.lowest == 0 {
		if verbose {
			logrus.Infof("We have never yet visited %d!", h.lowestI)
		}
		return nil
	}
	minOverMean := h.minOverMean()
	changed := false
	// wl_threshold = 1 means visiting every level once is enough.
	if minOverMean >= s.WLThreshold || s.WLThreshold == 1 {
		changed = true
		s.WLFactor /= s.WLFmod
		logrus.Infof("We reached WL flatness (%d moves, wl_factor %g)!", s.Moves.Total, s.WLFactor)
		s.recordEvent(trace.EventFlatness, s.Energy, minOverMean, "")
		clear(s.EnergyHistogram)
		// Shell 2003 calls this "refreshing" the density of states.
		if err := s.UpdateWeightsUsingTransitions(1, true); err != nil {
			return err
		}
		s.recordEvent(trace.EventRefresh, s.Energy, minOverMean, "")
	}
	if verbose || changed {
		s.logFlatness(h, minOverMean)
	}
	return nil
}

func (s *Simulation) logFlatness(h histogramFlatness, minOverMean float64) {
	logrus.Infof("  WL factor: %g (vs %g)", s.WLFactor, s.WLCutoff)
	logrus.Infof("  min/mean %g", minOverMean)
	logrus.Infof("  highest/lowest histogram energies (values): %d (%.2g) / %d (%.2g)",
		h.highestI, h.highest, h.lowestI, h.lowest)
	logrus.Infof("  round trips at min E: %d (max S - 1): %d (counts at minE: %d)",
		s.PessimisticSamples[s.MinImportantEnergy], s.PessimisticSamples[min(s.MaxEntropyState+1, s.EnergyLevels-1)],
		s.EnergyHistogram[s.MinImportantEnergy])
}
