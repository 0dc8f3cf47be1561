// Package sim provides the density-of-states engine for square-well fluids:
// hard spheres of radius R that gain one unit of (negative) energy for every
// pair closer than the well width, in a periodic cell with 0 to 3 walls.
//
// # Reading Guide
//
// Start with these files to understand the random walk:
//   - simulator.go: the Simulation state value and its constructor
//   - move.go: the single-ball move protocol and acceptance rules
//   - estimator.go, weights.go: histogram, transition matrix and weight updates
//   - initialize.go: one initialization procedure per algorithm
//
// # Energy Convention
//
// Energies are interaction counts used directly as array indices. A higher
// index means more contacts, so a lower potential energy. The max entropy
// state therefore sits at a low index, the min important energy at a higher
// one, and for SAD the interval of interest runs from TooHighEnergy (small
// index) up to TooLowEnergy (large index).
//
// # Algorithms
//
// The Algorithm tag selects both the acceptance rule and the weight update:
// canonical, Wang-Landau, TMMC, SAD, SAMC, WL-TMMC, TMI and TOE. Every
// proposal is logged in the transition matrix whether accepted or not, so the
// transition DOS (ComputeLnDOS(TransitionDOS)) is available under any of them.
//
// Sub-packages:
//   - sim/trace/: estimator event recording
//   - sim/ensemble/: independent walkers with merged transition matrices
package sim
