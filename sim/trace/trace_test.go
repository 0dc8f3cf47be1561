package trace

import (
	"testing"
)

func TestSimulationTrace_Record_AppendsEvent(t *testing.T) {
	// GIVEN a trace configured for events
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})

	// WHEN a flatness event is recorded
	st.Record(EventRecord{Kind: EventFlatness, Moves: 1000, WLFactor: 0.5, MinOverMean: 0.9})

	// THEN the trace contains one record with correct data
	if len(st.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(st.Events))
	}
	if st.Events[0].Kind != EventFlatness {
		t.Errorf("expected flatness event, got %s", st.Events[0].Kind)
	}
	if st.Events[0].WLFactor != 0.5 {
		t.Errorf("expected WL factor 0.5, got %g", st.Events[0].WLFactor)
	}
}

func TestSimulationTrace_LevelNone_RecordsNothing(t *testing.T) {
	// GIVEN a trace with tracing disabled
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})

	// WHEN an event is recorded
	st.Record(EventRecord{Kind: EventDiscovery, Energy: 7})

	// THEN nothing is kept
	if len(st.Events) != 0 {
		t.Errorf("expected no events, got %d", len(st.Events))
	}
}

func TestSimulationTrace_NilTrace_IsSafe(t *testing.T) {
	var st *SimulationTrace
	if st.Enabled() {
		t.Error("nil trace must not be enabled")
	}
	st.Record(EventRecord{Kind: EventRefresh}) // must not panic
}

func TestSimulationTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})

	// WHEN multiple records are added
	st.Record(EventRecord{Kind: EventDiscovery, Moves: 10, Energy: 3})
	st.Record(EventRecord{Kind: EventFlatness, Moves: 20})
	st.Record(EventRecord{Kind: EventRefresh, Moves: 30})

	// THEN order is preserved
	want := []EventKind{EventDiscovery, EventFlatness, EventRefresh}
	for i, k := range want {
		if st.Events[i].Kind != k {
			t.Errorf("event %d: got %s, want %s", i, st.Events[i].Kind, k)
		}
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"events", true},
		{"", true},
		{"decisions", false},
		{"verbose", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.valid {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
		}
	}
}
