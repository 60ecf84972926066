package obm

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/onlinematch/obmrl/obm/nn"
)

// ActionScorer maps candidate feature rows to one unnormalized score per slot.
// The same network is shared across steps, batch rows and candidates.
type ActionScorer struct {
	ff *nn.FeedForward
}

// NewActionScorer builds a scorer for in-wide feature rows with the given
// hidden widths and a single output.
func NewActionScorer(in int, hidden []int, rng *rand.Rand) (*ActionScorer, error) {
	sizes := append(append([]int{in}, hidden...), 1)
	ff, err := nn.NewFeedForward(sizes, rng)
	if err != nil {
		return nil, fmt.Errorf("action scorer: %w", err)
	}
	return &ActionScorer{ff: ff}, nil
}

// Score returns a batch × slots matrix from the (batch·slots) × F features.
func (a *ActionScorer) Score(features *mat.Dense, batch, slots int) (*mat.Dense, error) {
	r, _ := features.Dims()
	if r != batch*slots {
		return nil, fmt.Errorf("action scorer: %d feature rows for %d×%d candidates", r, batch, slots)
	}
	out := a.ff.Forward(features)
	return mat.NewDense(batch, slots, out.RawMatrix().Data), nil
}

// CollectParams implements nn.Module.
func (a *ActionScorer) CollectParams(prefix string, into nn.Params) {
	a.ff.CollectParams(prefix, into)
}
