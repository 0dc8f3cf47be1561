package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// ReachedIterationCap reports whether the hard iteration ceiling was hit.
func (s *Simulation) ReachedIterationCap() bool {
	return s.InitIters > 0 && s.Iteration >= s.InitIters
}

// outOfTime reports whether the wall clock limit has passed.
func (s *Simulation) outOfTime() bool {
	return s.MaxTime > 0 && s.now().Sub(s.startTime) > s.MaxTime
}

// FinishedInitializing reports whether the configured end condition holds.
func (s *Simulation) FinishedInitializing(verbose bool) (bool, error) {
	reason, err := s.checkFinished(verbose)
	return reason != StopNone, err
}

// checkFinished evaluates the end conditions. The time limit and the iteration
// cap are forced stops that override statistical convergence.
func (s *Simulation) checkFinished(verbose bool) (StopReason, error) {
	if s.outOfTime() {
		logrus.Warnf("Ran out of time after %v!", s.MaxTime)
		return StopTimeLimit, nil
	}
	if s.ReachedIterationCap() {
		return StopIterationCap, nil
	}

	switch s.EndCondition {
	case OptimisticMinSamples:
		if verbose {
			s.logOptimisticProgress()
		}
		for i := s.MinImportantEnergy; i > s.MaxEntropyState; i-- {
			if s.OptimisticSamples[i] < s.MinSamples {
				return StopNone, nil
			}
		}
		return StopConverged, nil
	case PessimisticMinSamples:
		if verbose {
			s.SetMaxEntropyEnergy()
			s.SetMinImportantEnergy(nil)
			s.logPessimisticProgress()
		}
		if s.PessimisticSamples[s.MinImportantEnergy] >= s.MinSamples {
			return StopConverged, nil
		}
		return StopNone, nil
	case FlatHistogram:
		if s.histogramIsFlat() {
			return StopConverged, nil
		}
		return StopNone, nil
	case InitIterLimit:
		if verbose && s.InitIters > 0 {
			logrus.Infof("%2d%% done (%d/%d iterations)", 100*s.Iteration/s.InitIters, s.Iteration, s.InitIters)
		}
		return StopNone, nil
	}
	if s.MaxTime > 0 {
		return StopNone, nil
	}
	return StopNone, fmt.Errorf("%w: %q", ErrNoEndCondition, s.EndCondition)
}

// histogramIsFlat requires the lowest histogram count between the max entropy
// state and the min important energy to be at least Flatness times the mean,
// and the walker not to be stuck at the most heavily weighted energy.
func (s *Simulation) histogramIsFlat() bool {
	var histMin int64 = math.MaxInt64
	var histTotal int64
	mostWeighted := s.MaxEntropyState
	for i := s.MaxEntropyState; i <= s.MinImportantEnergy && i < s.EnergyLevels; i++ {
		histTotal += s.EnergyHistogram[i]
		histMin = min(histMin, s.EnergyHistogram[i])
		if s.LnEnergyWeights[i] > s.LnEnergyWeights[mostWeighted] {
			mostWeighted = i
		}
	}
	histMean := float64(histTotal) / float64(max(s.MinImportantEnergy-s.MaxEntropyState, 1))
	return float64(histMin) >= s.Flatness*histMean && s.Energy != mostWeighted
}

func (s *Simulation) logOptimisticProgress() {
	var numToGo, unconverged int64
	lowestProblem, highestProblem := 0, s.EnergyLevels-1
	for i := s.MinImportantEnergy; i > s.MaxEntropyState; i-- {
		if s.OptimisticSamples[i] < s.MinSamples {
			numToGo += s.MinSamples - s.OptimisticSamples[i]
			unconverged++
			lowestProblem = max(lowestProblem, i)
			highestProblem = min(highestProblem, i)
		}
	}
	logrus.Infof("[%9d] Have %d samples to go (at %d energies)", s.Iteration, numToGo, unconverged)
	logrus.Infof("       <%d - %d> has samples <%d(%d) - %d(%d)>/%d (current energy %d)",
		lowestProblem, highestProblem,
		s.OptimisticSamples[lowestProblem], s.PessimisticSamples[lowestProblem],
		s.OptimisticSamples[highestProblem], s.PessimisticSamples[highestProblem],
		s.MinSamples, s.Energy)
}

func (s *Simulation) logPessimisticProgress() {
	var unconverged int64
	highestProblem := s.EnergyLevels - 1
	for i := s.MinImportantEnergy; i > s.MaxEntropyState; i-- {
		if s.PessimisticSamples[i] < s.MinSamples {
			unconverged++
			highestProblem = min(highestProblem, i)
		}
	}
	lnDOS, _ := s.ComputeLnDOS(TransitionDOS)
	niceT := math.Inf(1)
	if highestProblem+1 < s.EnergyLevels {
		niceT = 1 / (lnDOS[highestProblem] - lnDOS[highestProblem+1])
	}
	logrus.Infof("[%9d] Have %d energies to go (down to T=%g or %g)",
		s.Iteration, unconverged, niceT, s.ConvergedToTemperature(lnDOS))
	logrus.Infof("       <%d - %d vs %d> has samples <%d - %d>/%d (current energy %d)",
		s.MinImportantEnergy, highestProblem, s.MaxEntropyState,
		s.PessimisticSamples[s.MinImportantEnergy], s.PessimisticSamples[highestProblem],
		s.MinSamples, s.Energy)

	elapsed := s.now().Sub(s.startTime)
	pess := s.PessimisticSamples[s.MinImportantEnergy]
	if s.MinSamples > 0 && pess > 0 {
		remaining := time.Duration(float64(elapsed) * float64(s.MinSamples-pess) / float64(pess))
		logrus.Infof("       %v elapsed (%d%% done, %v remaining)",
			elapsed.Round(time.Second), 100*pess/s.MinSamples, remaining.Round(time.Second))
	} else {
		logrus.Infof("       %v elapsed", elapsed.Round(time.Second))
	}
}

// ConvergedToState returns the lowest energy (highest index) below which
// fewer than 10 round trips have been made.
func (s *Simulation) ConvergedToState() int {
	for i := s.MaxEntropyState + 1; i < s.EnergyLevels; i++ {
		if s.PessimisticSamples[i] < 10 {
			if i == 1 {
				// Only one energy was ever seen.
				return s.MinImportantEnergy
			}
			return i - 1
		}
	}
	return s.MinImportantEnergy
}

// ConvergedToTemperature is the microcanonical temperature at ConvergedToState.
func (s *Simulation) ConvergedToTemperature(lnDOS []float64) float64 {
	e := s.ConvergedToState()
	if e <= 0 || e >= len(lnDOS) {
		return math.Inf(1)
	}
	return 1 / (lnDOS[e-1] - lnDOS[e])
}

// ProgressTimer decides when progress should be printed. The interval grows
// from a few seconds to half an hour, and the decision is made by counting
// calls so that the clock is read rarely.
type ProgressTimer struct {
	now          func() time.Time
	timeSkip     time.Duration
	everySoOften int
	perCall      time.Duration
	lastOutput   time.Time
}

const (
	initialTimeSkip = 3 * time.Second
	maxTimeSkip     = 30 * time.Minute
)

// NewProgressTimer returns a timer that reads the given clock.
func NewProgressTimer(now func() time.Time) *ProgressTimer {
	return &ProgressTimer{
		now:        now,
		timeSkip:   initialTimeSkip,
		perCall:    time.Millisecond,
		lastOutput: now(),
	}
}

// Allowed reports whether it is time to print again.
func (p *ProgressTimer) Allowed() bool {
	p.everySoOften++
	if time.Duration(p.everySoOften)*p.perCall <= p.timeSkip {
		return false
	}
	now := p.now()
	p.timeSkip = min(p.timeSkip+initialTimeSkip, maxTimeSkip)
	if elapsed := now.Sub(p.lastOutput); elapsed > 0 {
		p.perCall = max(elapsed/time.Duration(p.everySoOften), time.Nanosecond)
	} else {
		p.perCall = max(p.perCall/2, time.Nanosecond)
	}
	p.lastOutput = now
	p.everySoOften = 0
	return true
}

func (s *Simulation) printingAllowed() bool {
	if s.progress == nil {
		s.progress = NewProgressTimer(s.now)
	}
	return s.progress.Allowed()
}
