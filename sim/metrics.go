// Tracks random-walk move statistics such as acceptance and neighbor table churn.

package sim

import (
	"fmt"
	"io"
)

// MoveStats counts proposals and their outcomes.
type MoveStats struct {
	Total   int64 // proposals made
	Working int64 // proposals accepted
	Updates int64 // neighbor list rebuilds triggered by a proposal
	Informs int64 // accepted moves that had to update other balls' lists
}

// AcceptanceRate returns Working/Total, or 0 before the first move.
func (m MoveStats) AcceptanceRate() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Working) / float64(m.Total)
}

// Print displays aggregated move statistics at the end of the run.
func (m MoveStats) Print(w io.Writer, iterations int64) {
	fmt.Fprintln(w, "=== Move Statistics ===")
	fmt.Fprintf(w, "Iterations           : %d\n", iterations)
	fmt.Fprintf(w, "Total Moves          : %d\n", m.Total)
	fmt.Fprintf(w, "Working Moves        : %d\n", m.Working)
	fmt.Fprintf(w, "Acceptance Rate      : %.4f\n", m.AcceptanceRate())
	if m.Total > 0 {
		fmt.Fprintf(w, "Neighbor Updates     : %d (%.4f per move)\n", m.Updates, float64(m.Updates)/float64(m.Total))
		fmt.Fprintf(w, "Neighbor Informs     : %d (%.4f per move)\n", m.Informs, float64(m.Informs)/float64(m.Total))
	}
}
