package sim

import (
	"errors"
	"fmt"
)

// Algorithm selects how acceptance probabilities are derived and how the
// weight array is refined. The set is closed; every switch over it is exhaustive.
type Algorithm string

const (
	// Canonical keeps fixed weights (Boltzmann at MinT below the reference state).
	Canonical Algorithm = "canonical"
	// WangLandau decrements the weight of every visited level and shrinks the
	// decrement each time the histogram is flat.
	WangLandau Algorithm = "wl"
	// TMMC accepts moves using ratios of observed transition probabilities.
	TMMC Algorithm = "tmmc"
	// SAD is the statistical-temperature adaptive scheme with a moving
	// interval of interesting energies.
	SAD Algorithm = "sad"
	// SAMC is stochastic approximation with a 1/t weight schedule.
	SAMC Algorithm = "samc"
	// WLTMMC runs Wang-Landau but refreshes weights from the transition matrix
	// on each flatness event, then hands off to TMMC.
	WLTMMC Algorithm = "wltmmc"
	// TMI iteratively sets weights from the transition matrix DOS.
	TMI Algorithm = "tmi"
	// TOE sets weights from the transition matrix DOS corrected for diffusivity.
	TOE Algorithm = "toe"
)

// ValidAlgorithms is the set of recognized algorithm names.
var ValidAlgorithms = map[Algorithm]bool{
	Canonical: true, WangLandau: true, TMMC: true, SAD: true,
	SAMC: true, WLTMMC: true, TMI: true, TOE: true,
}

// ParseAlgorithm converts a name to an Algorithm. The empty string means Canonical.
func ParseAlgorithm(name string) (Algorithm, error) {
	if name == "" {
		return Canonical, nil
	}
	a := Algorithm(name)
	if !ValidAlgorithms[a] {
		return "", fmt.Errorf("unknown algorithm %q", name)
	}
	return a, nil
}

// SelectAlgorithm reconciles independent feature flags into one algorithm
// using the precedence WLTMMC > WL > TMMC > SAD > canonical.
func SelectAlgorithm(useWLTMMC, useWL, useTMMC, useSAD bool) Algorithm {
	switch {
	case useWLTMMC:
		return WLTMMC
	case useWL:
		return WangLandau
	case useTMMC:
		return TMMC
	case useSAD:
		return SAD
	default:
		return Canonical
	}
}

// EndCondition selects the convergence predicate used by FinishedInitializing.
type EndCondition string

const (
	NoEndCondition        EndCondition = ""
	OptimisticMinSamples  EndCondition = "optimistic_min_samples"
	PessimisticMinSamples EndCondition = "pessimistic_min_samples"
	FlatHistogram         EndCondition = "flat_histogram"
	InitIterLimit         EndCondition = "init_iter_limit"
)

// ValidEndConditions is the set of recognized end condition names.
var ValidEndConditions = map[EndCondition]bool{
	NoEndCondition: true, OptimisticMinSamples: true, PessimisticMinSamples: true,
	FlatHistogram: true, InitIterLimit: true,
}

// DOSMode selects how ComputeLnDOS reconstructs the density of states.
type DOSMode int

const (
	HistogramDOS DOSMode = iota
	WeightsDOS
	TransitionDOS
)

func (m DOSMode) String() string {
	switch m {
	case HistogramDOS:
		return "histogram"
	case WeightsDOS:
		return "weights"
	case TransitionDOS:
		return "transition"
	}
	return fmt.Sprintf("DOSMode(%d)", int(m))
}

// StopReason records why an initialization procedure returned.
type StopReason string

const (
	StopNone         StopReason = ""
	StopConverged    StopReason = "converged"
	StopIterationCap StopReason = "iteration_cap"
	StopTimeLimit    StopReason = "time_limit"
)

var (
	// ErrUnknownDOSMode is returned for a DOSMode outside the known set.
	ErrUnknownDOSMode = errors.New("unknown DOS reconstruction mode")
	// ErrUnknownWeightVersion is returned for a transition weight version other than 1, 2 or 3.
	ErrUnknownWeightVersion = errors.New("unknown weight update version")
	// ErrNoEndCondition is returned when convergence is checked with no end condition and no time limit.
	ErrNoEndCondition = errors.New("no valid end condition")
	// ErrEnergyOutOfRange means the energy levels or transition width are too small for the system.
	ErrEnergyOutOfRange = errors.New("energy outside the configured energy levels")
)
