package sim

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/squarewell-sim/squarewell-sim/sim/trace"
)

// Result summarizes a finished initialization run.
type Result struct {
	Algorithm          Algorithm
	StopReason         StopReason
	Iterations         int64
	Moves              MoveStats
	MaxEntropyState    int
	MinImportantEnergy int
	WLFactor           float64
	Elapsed            time.Duration
}

// Initialize runs the initialization procedure of the configured algorithm
// until its end condition holds, then writes the output files.
func (s *Simulation) Initialize() (Result, error) {
	s.startTime = s.now()
	var reason StopReason
	var err error
	switch s.Algorithm {
	case WangLandau:
		s.discoverEnergyRange()
		reason, err = s.InitializeWangLandau()
	case WLTMMC:
		s.discoverEnergyRange()
		reason, err = s.InitializeWLTMMC()
	case TMMC:
		reason, err = s.InitializeTransitions()
	case SAD, SAMC:
		reason, err = s.InitializeSAMC()
	case TMI:
		reason, err = s.InitializeTMI()
	case TOE:
		reason, err = s.InitializeTOE()
	case Canonical:
		reason, err = s.InitializeFixedWeights()
	default:
		panic(fmt.Sprintf("unhandled algorithm %q", s.Algorithm))
	}
	if err != nil {
		return Result{}, err
	}
	if err := s.WriteTransitionsFiles(); err != nil {
		return Result{}, err
	}

	res := Result{
		Algorithm:          s.Algorithm,
		StopReason:         reason,
		Iterations:         s.Iteration,
		Moves:              s.Moves,
		MaxEntropyState:    s.MaxEntropyState,
		MinImportantEnergy: s.MinImportantEnergy,
		WLFactor:           s.WLFactor,
		Elapsed:            s.now().Sub(s.startTime),
	}
	logrus.Infof("%s initialization stopped (%s) after %d iterations and %d moves",
		s.Algorithm, reason, s.Iteration, s.Moves.Total)
	return res, nil
}

// runMoves makes up to count proposals, stopping early at the iteration cap.
func (s *Simulation) runMoves(count int) error {
	for i := 0; i < count && !s.ReachedIterationCap(); i++ {
		if err := s.MoveABall(); err != nil {
			return err
		}
	}
	return nil
}

// forcedStop reports a time limit or iteration cap stop, if any.
func (s *Simulation) forcedStop() StopReason {
	switch {
	case s.outOfTime():
		logrus.Warnf("Ran out of time after %v!", s.MaxTime)
		return StopTimeLimit
	case s.ReachedIterationCap():
		return StopIterationCap
	}
	return StopNone
}

// discoverEnergyRange finds the energy range for the WL methods when none was
// given: a canonical walk at MinT explores downwards, and the transition DOS
// then sets the max entropy state and the min important energy.
func (s *Simulation) discoverEnergyRange() {
	if s.MinImportantEnergy != 0 || s.FixEnergyRange {
		return
	}
	wlFactor := s.WLFactor
	algorithm := s.Algorithm
	s.WLFactor, s.Algorithm = 0, Canonical
	s.InitializeCanonical(s.MinT, s.MaxEntropyState)
	if err := s.runMoves(s.N * s.EnergyLevels); err != nil {
		logrus.Warnf("energy range discovery stopped early: %v", err)
	}
	s.WLFactor, s.Algorithm = wlFactor, algorithm

	s.SetMaxEntropyEnergy()
	s.SetMinImportantEnergy(nil)
	if s.MinImportantEnergy <= s.MaxEntropyState {
		for i := range s.EnergyHistogram {
			if s.EnergyHistogram[i] != 0 {
				s.MinImportantEnergy = i
			}
		}
	}
	logrus.Infof("Discovered energy range %d -> %d after %d moves",
		s.MaxEntropyState, s.MinImportantEnergy, s.Moves.Total)
	s.recordEvent(trace.EventDiscovery, s.MinImportantEnergy, 0, "energy range")

	clear(s.LnEnergyWeights)
	clear(s.EnergyHistogram)
}

// resetVisitedHistogram sets the count of every visited level to 1, so that a
// flat histogram check still knows which levels were seen.
func (s *Simulation) resetVisitedHistogram() {
	for i := range s.EnergyHistogram {
		if s.EnergyHistogram[i] > 0 {
			s.EnergyHistogram[i] = 1
		}
	}
}

// InitializeWangLandau runs Wang-Landau until the WL factor drops below
// WLCutoff. Unless the energy range is fixed, finding a lower energy restores
// the original WL factor and starts over.
func (s *Simulation) InitializeWangLandau() (StopReason, error) {
	originalWLFactor := s.WLFactor
	oldMinImportantEnergy := s.MinImportantEnergy
	weightUpdates := 0
	for {
		if err := s.runMoves(s.N * s.EnergyLevels); err != nil {
			return StopNone, err
		}

		if !s.FixEnergyRange {
			s.SetMinImportantEnergy(nil)
			s.SetMaxEntropyEnergy()
			s.InitializeCanonical(s.MinT, s.MinImportantEnergy)
			if s.MinImportantEnergy > oldMinImportantEnergy && s.WLFactor != originalWLFactor {
				logrus.Infof("Found new energy states! min_important_energy %d -> %d, wl_factor %g -> %g",
					oldMinImportantEnergy, s.MinImportantEnergy, s.WLFactor, originalWLFactor)
				s.WLFactor = originalWLFactor
				oldMinImportantEnergy = s.MinImportantEnergy
				s.FlushWeightArray()
				s.resetVisitedHistogram()
				s.recordEvent(trace.EventDiscovery, s.MinImportantEnergy, 0, "min_important_energy")
				if reason := s.forcedStop(); reason != StopNone {
					return reason, nil
				}
				// Never quit right after discovering a new energy.
				continue
			}
		}

		h := s.flatness(s.MaxEntropyState, s.MinImportantEnergy)
		minOverMean := h.minOverMean()
		verbose := s.printingAllowed()
		if minOverMean >= s.WLThreshold {
			weightUpdates++
			verbose = true
			s.WLFactor /= s.WLFmod
			logrus.Infof("We reached WL flatness (%d moves, wl_factor %g)!", s.Moves.Total, s.WLFactor)
			s.FlushWeightArray()
			s.resetVisitedHistogram()
			s.recordEvent(trace.EventFlatness, s.Energy, minOverMean, "")

			if s.WLFactor < s.WLCutoff && s.EndCondition != InitIterLimit {
				logrus.Infof("Took %d iterations and %d updates to initialize with Wang-Landau method.",
					s.Iteration, weightUpdates)
				s.InitializeCanonical(s.MinT, s.MinImportantEnergy)
				return StopConverged, nil
			}
		}
		if verbose {
			if err := s.WriteTransitionsFiles(); err != nil {
				return StopNone, err
			}
			logrus.Infof("WL weight update: %d", weightUpdates)
			s.logFlatness(h, minOverMean)
		}
		if reason := s.forcedStop(); reason != StopNone {
			s.InitializeCanonical(s.MinT, s.MinImportantEnergy)
			return reason, nil
		}
	}
}

// InitializeWLTMMC runs Wang-Landau with weights refreshed from the
// transition matrix on each flatness event, then continues as TMMC until the
// end condition holds.
func (s *Simulation) InitializeWLTMMC() (StopReason, error) {
	checkHowOften := s.N
	for {
		if err := s.runMoves(checkHowOften); err != nil {
			return StopNone, err
		}
		checkHowOften += s.N

		verbose := s.printingAllowed()
		if verbose {
			if err := s.WriteTransitionsFiles(); err != nil {
				return StopNone, err
			}
		}
		if err := s.calculateWeightsUsingWLTMMC(verbose); err != nil {
			return StopNone, err
		}
		reason, err := s.checkFinished(verbose)
		if err != nil || reason != StopNone {
			return reason, err
		}
	}
}

// InitializeSAMC runs stochastic approximation (SAMC or SAD) until the end
// condition holds, then extends the weights canonically below the min
// important energy.
func (s *Simulation) InitializeSAMC() (StopReason, error) {
	reason, err := s.sampleUntilFinished(func(verbose bool) error {
		if verbose {
			s.SetMinImportantEnergy(nil)
			s.SetMaxEntropyEnergy()
		}
		return nil
	})
	if err != nil {
		return reason, err
	}
	s.InitializeCanonical(s.MinT, s.MinImportantEnergy)
	return reason, nil
}

// InitializeTMI repeatedly sets the weights from the transition matrix DOS.
func (s *Simulation) InitializeTMI() (StopReason, error) {
	return s.sampleUntilFinished(func(bool) error {
		s.SetMinImportantEnergy(nil)
		return s.UpdateWeightsUsingTransitions(s.TMIVersion, false)
	})
}

// InitializeTOE repeatedly sets the weights from the transition matrix DOS
// corrected for the energy diffusivity.
func (s *Simulation) InitializeTOE() (StopReason, error) {
	return s.sampleUntilFinished(func(bool) error {
		s.SetMinImportantEnergy(nil)
		return s.OptimizeWeightsUsingTransitions(s.TMIVersion)
	})
}

// InitializeTransitions runs TMMC until the end condition holds and leaves
// weights computed from the transition matrix behind.
func (s *Simulation) InitializeTransitions() (StopReason, error) {
	reason, err := s.sampleUntilFinished(func(verbose bool) error {
		if verbose {
			s.SetMinImportantEnergy(nil)
			s.SetMaxEntropyEnergy()
		}
		return nil
	})
	if err != nil {
		return reason, err
	}
	if err := s.UpdateWeightsUsingTransitions(1, false); err != nil {
		return reason, err
	}
	s.SetMinImportantEnergy(nil)
	return reason, nil
}

// InitializeFixedWeights samples with the current weights until the end
// condition holds. With no weights loaded these are Boltzmann weights at MinT.
func (s *Simulation) InitializeFixedWeights() (StopReason, error) {
	if floats.Max(s.LnEnergyWeights) == 0 && floats.Min(s.LnEnergyWeights) == 0 {
		s.InitializeCanonical(s.MinT, s.MaxEntropyState)
	}
	return s.sampleUntilFinished(func(verbose bool) error {
		if verbose {
			s.SetMinImportantEnergy(nil)
			s.SetMaxEntropyEnergy()
		}
		return nil
	})
}

// sampleUntilFinished is the shared loop of the transition and stochastic
// approximation methods: move in blocks that grow by N*N proposals, call
// update after each block, and stop once checkFinished reports a reason.
func (s *Simulation) sampleUntilFinished(update func(verbose bool) error) (StopReason, error) {
	checkHowOften := s.N * s.N
	for {
		if err := s.runMoves(checkHowOften); err != nil {
			return StopNone, err
		}
		checkHowOften += s.N * s.N

		verbose := s.printingAllowed()
		if err := update(verbose); err != nil {
			return StopNone, err
		}
		if verbose {
			if err := s.WriteTransitionsFiles(); err != nil {
				return StopNone, err
			}
		}
		reason, err := s.checkFinished(verbose)
		if err != nil || reason != StopNone {
			return reason, err
		}
	}
}
