package obm

import (
	"fmt"

	"github.com/onlinematch/obmrl/obm/dataset"
)

// Problem is a state factory plus the value semantics of one matching
// problem. Rewards are accumulated in State.Size; the policy objective is its
// negation.
type Problem interface {
	Name() string
	MakeState(batch *dataset.Batch, usize, vsize int) (*State, error)
}

// bipartiteProblem covers both the unweighted and the edge-weighted variant:
// the state machine is shared, only the admissible weights differ.
type bipartiteProblem struct {
	name   string
	binary bool
}

// problems maps problem names to implementations. Unexported to prevent mutation.
var problems = map[string]Problem{
	dataset.ProblemOBM:  bipartiteProblem{name: dataset.ProblemOBM, binary: true},
	dataset.ProblemEOBM: bipartiteProblem{name: dataset.ProblemEOBM},
}

// NewProblem returns the named problem.
func NewProblem(name string) (Problem, error) {
	p, ok := problems[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem %q", name)
	}
	return p, nil
}

func (p bipartiteProblem) Name() string { return p.name }

// MakeState validates the batch against the problem and the configured sizes
// and returns a fresh Episode State with the first arrival revealed.
func (p bipartiteProblem) MakeState(batch *dataset.Batch, usize, vsize int) (*State, error) {
	if batch == nil || batch.Size() == 0 {
		return nil, fmt.Errorf("%s: empty batch", p.name)
	}
	if batch.USize != usize || batch.VSize != vsize {
		return nil, fmt.Errorf("%s: batch is %dx%d, configured for %dx%d", p.name, batch.USize, batch.VSize, usize, vsize)
	}
	if batch.Problem != "" && batch.Problem != p.name {
		return nil, fmt.Errorf("%s: batch was generated for %q", p.name, batch.Problem)
	}
	for n, inst := range batch.Instances {
		for _, w := range inst.Weights {
			if w < 0 || (p.binary && w != 0 && w != 1) {
				return nil, fmt.Errorf("%s: instance %d has inadmissible weight %v", p.name, n, w)
			}
		}
	}
	return newState(batch.Weights(), usize, vsize)
}
