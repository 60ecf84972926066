package obm

import (
	"fmt"
	"math"
)

// LogLikelihood gathers the log-probability of each selected slot and sums it
// per episode. stepMask, when non-nil, is steps × batch; a true entry drops
// that step's contribution for that row. Only contributing steps are held to
// the log-probability floor.
//
// The second result is the policy entropy: the batch mean of
// Σ_t Σ_c −p·log p over all recorded steps. Masked slots carry p = 0 and
// contribute nothing.
func LogLikelihood(tr *DecodingTrace, stepMask [][]bool) ([]float64, float64, error) {
	if tr == nil || tr.Steps() == 0 {
		return nil, 0, fmt.Errorf("log-likelihood of an empty trace")
	}
	if stepMask != nil && len(stepMask) != tr.Steps() {
		return nil, 0, fmt.Errorf("step mask has %d steps, trace has %d", len(stepMask), tr.Steps())
	}
	batch := len(tr.Actions[0])
	ll := make([]float64, batch)
	var entropy float64
	for t, actions := range tr.Actions {
		if stepMask != nil && len(stepMask[t]) != batch {
			return nil, 0, fmt.Errorf("step mask row %d has %d entries, want %d", t, len(stepMask[t]), batch)
		}
		logp := tr.LogProbs[t]
		for b, a := range actions {
			if stepMask == nil || !stepMask[t][b] {
				lp := logp.At(b, a)
				if lp <= LogProbFloor {
					return nil, 0, fmt.Errorf("step %d row %d slot %d log-prob %v: %w", t+1, b, a, lp, ErrLogProbFloor)
				}
				ll[b] += lp
			}
			for _, l := range logp.RawRowView(b) {
				if p := math.Exp(l); p > 0 {
					entropy -= p * l
				}
			}
		}
	}
	return ll, entropy / float64(batch), nil
}
