package trace

import (
	"testing"
)

func TestDecisionTrace_RecordDecision_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	dt := NewDecisionTrace(TraceConfig{Level: TraceLevelDecisions, CounterfactualK: 0})

	// WHEN a decision record is recorded
	dt.RecordDecision(DecisionRecord{Row: 1, Step: 3, Chosen: 2, Score: 0.4, Feasible: 3})

	// THEN the trace contains one record with correct data
	if len(dt.Decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(dt.Decisions))
	}
	if dt.Decisions[0].Chosen != 2 || dt.Decisions[0].Step != 3 {
		t.Errorf("unexpected record %+v", dt.Decisions[0])
	}
	if dt.Decisions[0].Skipped() {
		t.Error("expected a match, got a skip")
	}
}

func TestDecisionTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	dt := NewDecisionTrace(TraceConfig{Level: TraceLevelDecisions})
	for step := 1; step <= 3; step++ {
		dt.RecordDecision(DecisionRecord{Row: 0, Step: step})
	}
	for i, d := range dt.Decisions {
		if d.Step != i+1 {
			t.Errorf("record %d: expected step %d, got %d", i, i+1, d.Step)
		}
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	for _, level := range []string{"", "none", "decisions"} {
		if !IsValidTraceLevel(level) {
			t.Errorf("expected %q to be valid", level)
		}
	}
	if IsValidTraceLevel("verbose") {
		t.Error("expected verbose to be invalid")
	}
}

func TestTraceConfig_Enabled(t *testing.T) {
	if (TraceConfig{}).Enabled() {
		t.Error("empty level must disable tracing")
	}
	if !(TraceConfig{Level: TraceLevelDecisions}).Enabled() {
		t.Error("decisions level must enable tracing")
	}
}
