// Package trace provides decision-trace recording for policy analysis.
// This package has no dependencies on obm/; it stores pure data types.
package trace

// CandidateScore captures a counterfactual candidate slot with its score.
type CandidateScore struct {
	Slot    int
	Score   float64
	LogProb float64
}

// DecisionRecord captures a single action-selection decision for one batch row.
type DecisionRecord struct {
	Row        int
	Step       int // 1-based decoding step
	Chosen     int // selected slot; 0 is the skip slot
	Score      float64
	LogProb    float64
	Feasible   int              // number of unmasked slots, skip included
	Candidates []CandidateScore // top-k feasible slots sorted by score desc (nil if k=0)
	Regret     float64          // max(feasible scores) - score(chosen); 0 if chosen is best
}

// Skipped reports whether the decision discarded the arrival.
func (r DecisionRecord) Skipped() bool { return r.Chosen == 0 }
