package trace

import "testing"

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalDecisions != 0 || summary.UniqueSlots != 0 {
		t.Errorf("expected zero summary, got %+v", summary)
	}
	if summary.SlotDistribution == nil {
		t.Error("expected non-nil slot distribution")
	}
}

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	dt := NewDecisionTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN summarized
	summary := Summarize(dt)

	// THEN all counts are zero
	if summary.TotalDecisions != 0 {
		t.Errorf("expected 0 total decisions, got %d", summary.TotalDecisions)
	}
	if summary.MeanRegret != 0 || summary.MaxRegret != 0 {
		t.Error("expected 0 regret values")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN matches, a voluntary skip and a forced skip
	dt := NewDecisionTrace(TraceConfig{Level: TraceLevelDecisions})
	dt.RecordDecision(DecisionRecord{Step: 1, Chosen: 2, Feasible: 3, Regret: 0.1})
	dt.RecordDecision(DecisionRecord{Step: 2, Chosen: 0, Feasible: 2, Regret: 0.5})
	dt.RecordDecision(DecisionRecord{Step: 3, Chosen: 0, Feasible: 1})
	dt.RecordDecision(DecisionRecord{Step: 4, Chosen: 2, Feasible: 2, Regret: 0.2})

	// WHEN summarized
	summary := Summarize(dt)

	// THEN counts match
	if summary.TotalDecisions != 4 {
		t.Errorf("expected 4 decisions, got %d", summary.TotalDecisions)
	}
	if summary.MatchCount != 2 || summary.SkipCount != 2 {
		t.Errorf("expected 2 matches and 2 skips, got %d and %d", summary.MatchCount, summary.SkipCount)
	}
	if summary.ForcedSkips != 1 {
		t.Errorf("expected 1 forced skip, got %d", summary.ForcedSkips)
	}
	if summary.UniqueSlots != 2 || summary.SlotDistribution[2] != 2 {
		t.Errorf("unexpected slot distribution %v", summary.SlotDistribution)
	}

	// THEN mean regret = (0.1 + 0.5 + 0 + 0.2) / 4 = 0.2
	if summary.MeanRegret < 0.2-0.001 || summary.MeanRegret > 0.2+0.001 {
		t.Errorf("expected mean regret ~0.2, got %.4f", summary.MeanRegret)
	}
	if summary.MaxRegret != 0.5 {
		t.Errorf("expected max regret 0.5, got %.4f", summary.MaxRegret)
	}
}
