package obm

import "gonum.org/v1/gonum/mat"

// DecodingTrace accumulates one forward pass: per step the log-probabilities
// over slots, the selected slots and the mask they were selected under.
// Capacity is fixed up front to the episode length.
type DecodingTrace struct {
	LogProbs []*mat.Dense // per step, batch × slots
	Actions  [][]int      // per step, one slot per row
	Masks    [][][]bool   // per step, true = infeasible
	Size     []float64    // terminal matched weight per row
}

// NewDecodingTrace pre-sizes a trace for steps decoding steps.
func NewDecodingTrace(steps int) *DecodingTrace {
	return &DecodingTrace{
		LogProbs: make([]*mat.Dense, 0, steps),
		Actions:  make([][]int, 0, steps),
		Masks:    make([][][]bool, 0, steps),
	}
}

// Append records one step.
func (tr *DecodingTrace) Append(logp *mat.Dense, actions []int, mask [][]bool) {
	tr.LogProbs = append(tr.LogProbs, logp)
	tr.Actions = append(tr.Actions, actions)
	tr.Masks = append(tr.Masks, mask)
}

// Steps returns the number of recorded steps.
func (tr *DecodingTrace) Steps() int { return len(tr.Actions) }

// Sequences returns the actions transposed to one row per batch instance.
func (tr *DecodingTrace) Sequences() [][]int {
	if len(tr.Actions) == 0 {
		return nil
	}
	out := make([][]int, len(tr.Actions[0]))
	for b := range out {
		out[b] = make([]int, len(tr.Actions))
		for t, step := range tr.Actions {
			out[b][t] = step[b]
		}
	}
	return out
}
