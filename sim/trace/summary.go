package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalEvents      int
	FlatnessEvents   int
	Refreshes        int
	Discoveries      int
	HistogramResets  int
	LowestEnergySeen int     // highest energy index among discoveries
	FinalWLFactor    float64 // WL factor of the last flatness or handoff event
	MovesToHandoff   int64   // 0 if no handoff happened
	KindDistribution map[EventKind]int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		KindDistribution: make(map[EventKind]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalEvents = len(st.Events)
	for _, e := range st.Events {
		summary.KindDistribution[e.Kind]++
		switch e.Kind {
		case EventFlatness:
			summary.FlatnessEvents++
			summary.FinalWLFactor = e.WLFactor
		case EventRefresh:
			summary.Refreshes++
		case EventDiscovery:
			summary.Discoveries++
			if e.Energy > summary.LowestEnergySeen {
				summary.LowestEnergySeen = e.Energy
			}
		case EventHistogramReset:
			summary.HistogramResets++
		case EventHandoff:
			summary.FinalWLFactor = e.WLFactor
			summary.MovesToHandoff = e.Moves
		}
	}
	return summary
}
