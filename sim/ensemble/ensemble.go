// Package ensemble runs independent square-well random walks in parallel and
// merges their transition matrices into a single estimate.
//
// Walkers share nothing while running: each has its own Simulation, seed and
// RNG streams. Only the transition counts are combined afterwards, which is
// valid because every proposal is logged whatever the acceptance rule.
package ensemble

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/squarewell-sim/squarewell-sim/sim"
)

// Config describes an ensemble of walkers built from one base configuration.
type Config struct {
	Base        sim.Config
	Walkers     int // number of independent walkers (must be >= 1)
	Parallelism int // concurrent walkers; 0 = all at once
}

// WalkerResult is the outcome of one walker.
type WalkerResult struct {
	ID     int
	Seed   int64
	Result sim.Result
	Table  *sim.TransitionsTable
}

// Outcome holds the per-walker results and the merged estimate.
type Outcome struct {
	Walkers []WalkerResult
	Merged  *sim.TransitionsTable
	// Estimator holds the merged transition matrix, ready for DOS output.
	Estimator *sim.Simulation
}

// WalkerSeed derives the seed of walker id from the base seed. Walker 0 uses
// a derived seed too, so a one-walker ensemble differs from a plain run.
func WalkerSeed(base int64, id int) int64 {
	return sim.NewPartitionedRNG(sim.NewSimulationKey(base)).DeriveSeed(sim.SubsystemWalker(id))
}

// Run starts every walker, waits for all of them and merges their matrices.
// The first walker error cancels walkers that have not started yet.
func Run(ctx context.Context, cfg Config) (*Outcome, error) {
	if cfg.Walkers < 1 {
		return nil, fmt.Errorf("ensemble needs at least one walker, got %d", cfg.Walkers)
	}
	if err := cfg.Base.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	results := make([]WalkerResult, cfg.Walkers)
	g, ctx := errgroup.WithContext(ctx)
	if cfg.Parallelism > 0 {
		g.SetLimit(cfg.Parallelism)
	}
	for id := range results {
		id := id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := runWalker(cfg.Base, id)
			if err != nil {
				return fmt.Errorf("walker %d: %w", id, err)
			}
			results[id] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tables := make([]*sim.TransitionsTable, len(results))
	for i, r := range results {
		tables[i] = r.Table
	}
	merged, err := sim.MergeTransitionsTables(tables...)
	if err != nil {
		return nil, err
	}
	merged.Header["seed"] = fmt.Sprint(cfg.Base.Seed)
	estimator, err := sim.NewEstimatorFromTable(merged)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Merged %d walkers: %d energy levels, max entropy %d, min important energy %d",
		len(results), len(merged.Energies), estimator.MaxEntropyState, estimator.MinImportantEnergy)
	return &Outcome{Walkers: results, Merged: merged, Estimator: estimator}, nil
}

// runWalker builds and initializes one walker. Walkers never write output
// files of their own; the merged estimate is written by the caller.
func runWalker(base sim.Config, id int) (WalkerResult, error) {
	cfg := base
	cfg.Seed = WalkerSeed(base.Seed, id)
	cfg.Output = sim.OutputConfig{}
	s, err := sim.NewSimulation(cfg)
	if err != nil {
		return WalkerResult{}, err
	}
	res, err := s.Initialize()
	if err != nil {
		return WalkerResult{}, err
	}
	logrus.Debugf("walker %d (seed %d) stopped: %s after %d iterations", id, cfg.Seed, res.StopReason, res.Iterations)
	return WalkerResult{ID: id, Seed: cfg.Seed, Result: res, Table: s.TransitionsTable()}, nil
}
