// sim/simulator.go
package sim

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/squarewell-sim/squarewell-sim/sim/trace"
)

// Simulation is the complete state of one square-well random walk: the balls,
// their neighbor tables, the current energy, and the weight estimator arrays.
// It is not safe for concurrent use; independent walks use independent values.
type Simulation struct {
	Balls []Ball
	N     int
	Cell  Cell

	WellWidth           float64
	FillingFraction     float64 // actual packing fraction of Cell
	InteractionDistance float64
	NeighborR           float64 // drift from the neighbor center that forces a rebuild, times 2
	NeighborSkin        float64 // list cutoff beyond R_i+R_j; covers the well and both drifts
	MaxNeighbors        int
	TranslationScale    float64
	StickyWall          bool

	EnergyLevels            int
	BiggestEnergyTransition int
	Energy                  int // current interaction count

	// weight estimator parameters
	Algorithm      Algorithm
	MinT           float64
	WLFactor       float64
	WLFmod         float64
	WLThreshold    float64
	WLCutoff       float64
	FixEnergyRange bool
	SAT0           float64
	SAPrefactor    float64
	SADVersion     int
	TMIVersion     int

	// convergence parameters
	EndCondition EndCondition
	MinSamples   int64
	Flatness     float64
	InitIters    int64
	MaxTime      time.Duration

	// weight estimator state, indexed by energy level
	EnergyHistogram        []int64
	LnEnergyWeights        []float64
	OptimisticSamples      []int64
	PessimisticSamples     []int64
	pessimisticObservation []bool
	transitions            []int64 // EnergyLevels rows of 2*BiggestEnergyTransition+1

	MaxEntropyState    int
	MinImportantEnergy int
	TooHighEnergy      int // smallest index of the SAD interval, -1 before the first move
	TooLowEnergy       int // largest index of the SAD interval, -1 before the first move
	highestHist        int64
	numSADStates       int
	timeL              int64
	tmmcHandoff        bool // WL-TMMC has finished its WL phase

	Iteration int64
	Moves     MoveStats

	Key    SimulationKey
	rng    *rand.Rand
	Output OutputConfig
	movies movieCounters
	Trace  *trace.SimulationTrace

	progress  *ProgressTimer
	startTime time.Time
	now       func() time.Time
}

// NewSimulation validates cfg, places the balls, builds neighbor tables and
// allocates the estimator arrays. Weight or transition input files named in
// cfg are loaded before returning.
func NewSimulation(cfg Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	sys := cfg.System
	algorithm, _ := ParseAlgorithm(cfg.Method.Algorithm)

	var cell Cell
	cell.Walls = sys.Walls
	if len(sys.CellLengths) == 3 {
		copy(cell.Len[:], sys.CellLengths)
	} else {
		side := CubeSide(sys.N, sys.Radius, sys.FillingFraction)
		cell.Len = [3]float64{side, side, side}
	}
	ballVolume := 4.0 / 3.0 * math.Pi * sys.Radius * sys.Radius * sys.Radius
	interactionDistance := 2 * sys.Radius * sys.WellWidth

	// Two balls each within NeighborR/2 of their centers and within the
	// interaction distance of each other have centers closer than
	// interactionDistance + NeighborR.
	skin := sys.NeighborR + interactionDistance - 2*sys.Radius
	maxNeighbors := sys.MaxNeighbors
	if maxNeighbors == 0 {
		maxNeighbors = MaxBallsWithin(2+2*skin/sys.Radius) + 1
	}
	perBall := MaxBallsWithin(interactionDistance / sys.Radius)
	biggest := perBall
	if sys.StickyWall {
		biggest += WallStickiness
	}
	levels := sys.EnergyLevels
	if levels == 0 {
		levels = sys.minEnergyLevels()
	}

	rngs := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	s := &Simulation{
		N:                       sys.N,
		Cell:                    cell,
		WellWidth:               sys.WellWidth,
		FillingFraction:         float64(sys.N) * ballVolume / cell.Volume(),
		InteractionDistance:     interactionDistance,
		NeighborR:               sys.NeighborR,
		NeighborSkin:            skin,
		MaxNeighbors:            maxNeighbors,
		TranslationScale:        sys.TranslationScale,
		StickyWall:              sys.StickyWall,
		EnergyLevels:            levels,
		BiggestEnergyTransition: biggest,
		Algorithm:               algorithm,
		MinT:                    cfg.Method.MinT,
		WLFmod:                  cfg.Method.WLFmod,
		WLThreshold:             cfg.Method.WLThreshold,
		WLCutoff:                cfg.Method.WLCutoff,
		FixEnergyRange:          cfg.Method.FixEnergyRange,
		SAT0:                    cfg.Method.SAT0,
		SAPrefactor:             cfg.Method.SAPrefactor,
		SADVersion:              cfg.Method.SADVersion,
		TMIVersion:              cfg.Method.TMIVersion,
		EndCondition:            EndCondition(cfg.End.Condition),
		MinSamples:              cfg.End.MinSamples,
		Flatness:                cfg.End.Flatness,
		InitIters:               cfg.End.InitIters,
		MaxTime:                 time.Duration(cfg.End.MaxTime * float64(time.Second)),
		MinImportantEnergy:      cfg.Method.MinImportantEnergy,
		TooHighEnergy:           -1,
		TooLowEnergy:            -1,
		Key:                     rngs.Key(),
		rng:                     rngs.ForSubsystem(SubsystemMoves),
		Output:                  cfg.Output,
		now:                     time.Now,
	}
	s.startTime = s.now()
	if algorithm == WangLandau || algorithm == WLTMMC {
		s.WLFactor = cfg.Method.WLFactor
	}
	s.allocateEstimator()

	balls, err := PlaceBalls(sys.N, sys.Radius, cell, rngs.ForSubsystem(SubsystemPlacement))
	if err != nil {
		return nil, err
	}
	s.Balls = balls
	if _, err := InitializeNeighborTables(s.Balls, s.NeighborSkin, s.MaxNeighbors, s.Cell); err != nil {
		return nil, err
	}
	s.Energy = CountAllInteractions(s.Balls, s.InteractionDistance, s.Cell, s.StickyWall)
	if s.Energy >= s.EnergyLevels {
		return nil, fmt.Errorf("%w: initial energy %d, %d levels", ErrEnergyOutOfRange, s.Energy, s.EnergyLevels)
	}

	logrus.Infof("Placed %d balls in a %g x %g x %g cell (ff=%g, walls=%d), energy levels %d, max neighbors %d",
		s.N, cell.Len[0], cell.Len[1], cell.Len[2], s.FillingFraction, cell.Walls, s.EnergyLevels, s.MaxNeighbors)

	if sys.RelaxIterations > 0 {
		if err := s.Relax(int64(sys.RelaxIterations)); err != nil {
			return nil, err
		}
	}
	if cfg.Method.WeightsInput != "" {
		if err := s.LoadLnWeights(cfg.Method.WeightsInput); err != nil {
			return nil, err
		}
	}
	if cfg.Method.TransitionsInput != "" {
		if err := s.InitializeTransitionsFile(cfg.Method.TransitionsInput); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Simulation) allocateEstimator() {
	s.EnergyHistogram = make([]int64, s.EnergyLevels)
	s.LnEnergyWeights = make([]float64, s.EnergyLevels)
	s.OptimisticSamples = make([]int64, s.EnergyLevels)
	s.PessimisticSamples = make([]int64, s.EnergyLevels)
	s.pessimisticObservation = make([]bool, s.EnergyLevels)
	s.transitions = make([]int64, s.EnergyLevels*(2*s.BiggestEnergyTransition+1))
}

// Relax runs iterations sweeps of unbiased moves to randomize the initial
// configuration, then clears every statistic gathered while doing so.
func (s *Simulation) Relax(iterations int64) error {
	algorithm, wlFactor := s.Algorithm, s.WLFactor
	weights := s.LnEnergyWeights
	s.Algorithm, s.WLFactor = Canonical, 0
	s.LnEnergyWeights = make([]float64, s.EnergyLevels)
	defer func() {
		s.Algorithm, s.WLFactor = algorithm, wlFactor
		s.LnEnergyWeights = weights
	}()

	for i := int64(0); i < iterations*int64(s.N); i++ {
		if err := s.MoveABall(); err != nil {
			return err
		}
	}
	logrus.Infof("Relaxed for %d iterations, energy %d, acceptance rate %.3g",
		iterations, s.Energy, s.Moves.AcceptanceRate())
	s.ResetHistograms()
	clear(s.transitions)
	s.Iteration = 0
	s.Moves = MoveStats{}
	s.TooHighEnergy, s.TooLowEnergy = -1, -1
	s.highestHist, s.numSADStates, s.timeL = 0, 0, 0
	return nil
}

// ResetHistograms zeroes the move counters and every per-level histogram.
// The transition matrix is left alone.
func (s *Simulation) ResetHistograms() {
	s.Moves.Total = 0
	s.Moves.Working = 0
	clear(s.EnergyHistogram)
	clear(s.OptimisticSamples)
	clear(s.PessimisticSamples)
	clear(s.pessimisticObservation)
}

// SetTrace attaches a trace that receives estimator events.
func (s *Simulation) SetTrace(t *trace.SimulationTrace) {
	s.Trace = t
}

// SetClock replaces the wall clock used for the time limit and progress output.
func (s *Simulation) SetClock(now func() time.Time) {
	s.now = now
	s.startTime = now()
	s.progress = nil
}

func (s *Simulation) recordEvent(kind trace.EventKind, energy int, minOverMean float64, detail string) {
	s.Trace.Record(trace.EventRecord{
		Kind:        kind,
		Moves:       s.Moves.Total,
		Iteration:   s.Iteration,
		Energy:      energy,
		WLFactor:    s.WLFactor,
		MinOverMean: minOverMean,
		Detail:      detail,
	})
}
