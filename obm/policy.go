package obm

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/onlinematch/obmrl/obm/dataset"
	"github.com/onlinematch/obmrl/obm/nn"
	"github.com/onlinematch/obmrl/obm/trace"
)

// ForwardResult is the output contract of one forward pass.
type ForwardResult struct {
	Cost          []float64 // negated matched weight per row
	LogLikelihood []float64 // summed selected log-probabilities per row
	Pi            [][]int   // selected slot per row per step; nil unless requested
	Entropy       float64
}

// Policy decodes batches of bipartite instances one arrival at a time.
// Not safe for concurrent use: it owns its RNG streams.
type Policy struct {
	problem  Problem
	usize    int
	vsize    int
	features FeatureAssembler
	scorer   *ActionScorer
	selector *Selector

	// Trace receives one record per row per step when decision tracing is on.
	Trace     *trace.DecisionTrace
	rowOffset int
}

// NewPolicy builds a randomly initialised policy. Parameters come from the
// params subsystem of rng and sampled actions from the sampling subsystem.
func NewPolicy(opts Options, rng *PartitionedRNG) (*Policy, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	problem, err := NewProblem(opts.Graph.Problem)
	if err != nil {
		return nil, err
	}
	params := rng.ForSubsystem(SubsystemParams)
	features, err := NewFeatureAssembler(opts.Model, opts.Graph.USize, params)
	if err != nil {
		return nil, err
	}
	hidden := opts.Model.HiddenDims
	if len(hidden) == 0 {
		hidden = defaultHiddenDims(opts.Model.Policy)
	}
	scorer, err := NewActionScorer(features.Dim(), hidden, params)
	if err != nil {
		return nil, err
	}
	selector, err := NewSelector(DecodeType(opts.Decode.Type), opts.Decode.Temperature, rng.ForSubsystem(SubsystemSampling))
	if err != nil {
		return nil, err
	}
	p := &Policy{
		problem:  problem,
		usize:    opts.Graph.USize,
		vsize:    opts.Graph.VSize,
		features: features,
		scorer:   scorer,
		selector: selector,
	}
	cfg := trace.TraceConfig{Level: trace.TraceLevel(opts.Trace.Level), CounterfactualK: opts.Trace.CounterfactualK}
	if cfg.Enabled() {
		p.Trace = trace.NewDecisionTrace(cfg)
	}
	return p, nil
}

// SetDecodeType switches between greedy and sampled decoding. A temperature
// ≤ 0 keeps the current one.
func (p *Policy) SetDecodeType(mode DecodeType, temperature float64) error {
	if !validDecodeTypes[mode] {
		return fmt.Errorf("%q: %w", mode, ErrUnknownDecodeType)
	}
	p.selector.Mode = mode
	if temperature > 0 {
		p.selector.Temperature = temperature
	}
	return nil
}

// DecodeType returns the current decode type.
func (p *Policy) DecodeType() DecodeType { return p.selector.Mode }

// Profile returns the feature profile name.
func (p *Policy) Profile() string { return p.features.Name() }

// Params returns every learned parameter by name. The matrices are shared
// with the policy.
func (p *Policy) Params() nn.Params {
	params := nn.Params{}
	p.features.CollectParams("features", params)
	p.scorer.CollectParams("scorer", params)
	return params
}

// Decode runs the loop until every row has decided every arrival.
func (p *Policy) Decode(batch *dataset.Batch) (*DecodingTrace, error) {
	state, err := p.problem.MakeState(batch, p.usize, p.vsize)
	if err != nil {
		return nil, err
	}
	tr := NewDecodingTrace(state.VSize)
	for !state.AllFinished() {
		mask := state.GetMask()
		scores, err := p.scoreStep(state, tr.Actions)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", state.Step(), err)
		}
		sel, err := p.selector.Select(scores, mask)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", state.Step(), err)
		}
		if p.Trace != nil {
			p.recordDecisions(state.Step(), sel, mask)
		}
		logrus.Debugf("[step %03d] %s selected %v", state.Step(), p.selector.Mode, sel.Actions)

		tr.Append(sel.LogProbs, sel.Actions, mask)
		if err := state.Update(sel.Actions); err != nil {
			return nil, fmt.Errorf("step %d: %w", state.Step(), err)
		}
	}
	tr.Size = append([]float64(nil), state.Size...)
	p.rowOffset += state.BatchSize
	return tr, nil
}

// Forward decodes batch and returns its cost, log-likelihood and entropy,
// plus the action sequences when returnPi is set.
func (p *Policy) Forward(batch *dataset.Batch, returnPi bool) (*ForwardResult, error) {
	tr, err := p.Decode(batch)
	if err != nil {
		return nil, err
	}
	ll, entropy, err := LogLikelihood(tr, nil)
	if err != nil {
		return nil, err
	}
	res := &ForwardResult{
		Cost:          make([]float64, len(tr.Size)),
		LogLikelihood: ll,
		Entropy:       entropy,
	}
	for b, s := range tr.Size {
		res.Cost[b] = -s
	}
	if returnPi {
		res.Pi = tr.Sequences()
	}
	return res, nil
}

func (p *Policy) recordDecisions(step int, sel *Selection, mask [][]bool) {
	k := p.Trace.Config.CounterfactualK
	for b, a := range sel.Actions {
		var feasible []trace.CandidateScore
		for c, masked := range mask[b] {
			if !masked {
				feasible = append(feasible, trace.CandidateScore{
					Slot:    c,
					Score:   sel.Masked.At(b, c),
					LogProb: sel.LogProbs.At(b, c),
				})
			}
		}
		sort.SliceStable(feasible, func(i, j int) bool { return feasible[i].Score > feasible[j].Score })
		score := sel.Masked.At(b, a)
		rec := trace.DecisionRecord{
			Row:      p.rowOffset + b,
			Step:     step,
			Chosen:   a,
			Score:    score,
			LogProb:  sel.LogProbs.At(b, a),
			Feasible: len(feasible),
			Regret:   feasible[0].Score - score,
		}
		if k > 0 {
			rec.Candidates = feasible[:min(k, len(feasible))]
		}
		p.Trace.RecordDecision(rec)
	}
}

// scoreStep assembles features for the current arrival and scores every slot.
func (p *Policy) scoreStep(state *State, past [][]int) (*mat.Dense, error) {
	feats, err := p.features.Assemble(state, past)
	if err != nil {
		return nil, err
	}
	return p.scorer.Score(feats, state.BatchSize, state.USize+1)
}
