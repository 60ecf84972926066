package trace

// TraceSummary aggregates statistics from a DecisionTrace.
type TraceSummary struct {
	TotalDecisions   int
	MatchCount       int
	SkipCount        int
	ForcedSkips      int // decisions where skip was the only feasible slot
	MeanRegret       float64
	MaxRegret        float64
	UniqueSlots      int
	SlotDistribution map[int]int // slot → number of times chosen
}

// Summarize computes aggregate statistics from a DecisionTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(dt *DecisionTrace) *TraceSummary {
	summary := &TraceSummary{
		SlotDistribution: make(map[int]int),
	}
	if dt == nil {
		return summary
	}

	summary.TotalDecisions = len(dt.Decisions)
	if summary.TotalDecisions == 0 {
		return summary
	}
	totalRegret := 0.0
	for _, d := range dt.Decisions {
		summary.SlotDistribution[d.Chosen]++
		if d.Skipped() {
			summary.SkipCount++
			if d.Feasible == 1 {
				summary.ForcedSkips++
			}
		} else {
			summary.MatchCount++
		}
		totalRegret += d.Regret
		if d.Regret > summary.MaxRegret {
			summary.MaxRegret = d.Regret
		}
	}
	summary.MeanRegret = totalRegret / float64(summary.TotalDecisions)
	summary.UniqueSlots = len(summary.SlotDistribution)

	return summary
}
