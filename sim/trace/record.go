// Package trace records weight-estimator events (flatness, refreshes, newly
// discovered energies, histogram resets) during a density-of-states run.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// EventKind names the kind of estimator event.
type EventKind string

const (
	// EventFlatness is a Wang-Landau flatness event that shrank the WL factor.
	EventFlatness EventKind = "flatness"
	// EventRefresh replaced the weights with ones derived from the transition matrix.
	EventRefresh EventKind = "refresh"
	// EventDiscovery found an energy beyond the previously known range.
	EventDiscovery EventKind = "discovery"
	// EventHistogramReset cleared pessimistic sample counts.
	EventHistogramReset EventKind = "histogram_reset"
	// EventHandoff ended the Wang-Landau phase of WL-TMMC.
	EventHandoff EventKind = "handoff"
)

// EventRecord captures a single estimator event.
type EventRecord struct {
	Kind        EventKind
	Moves       int64   // total moves when the event happened
	Iteration   int64   // sweeps when the event happened
	Energy      int     // energy level involved (discoveries) or current energy
	WLFactor    float64 // WL factor after the event
	MinOverMean float64 // histogram min/mean for flatness events
	Detail      string
}
