package obm

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/onlinematch/obmrl/obm/encoder"
	"github.com/onlinematch/obmrl/obm/graph"
	"github.com/onlinematch/obmrl/obm/nn"
)

// Node feature values fed to the encoder.
const (
	skipNodeFeature           = -1.0
	arrivalNodeFeature        = 2.0
	currentArrivalNodeFeature = 3.0 // pruned profile only
	freeLeftNodeFeature       = 0.0 // pruned profile only
)

// gnnHist encodes the revealed subgraph at every step and combines the node
// embeddings with a learned summary of past decisions (the step context).
//
// With prune set, already matched fixed nodes are left out of the subgraph,
// the current arrival is marked apart from past ones and the candidate rows
// also carry the history statistics.
type gnnHist struct {
	prune   bool
	enc     encoder.Encoder
	stepCtx *nn.Linear // 2d -> d over (selected slot, arrival) pairs
	initCtx *mat.Dense // 1×d, used at step 1
	dim     int
}

func newGNNHist(m ModelConfig, prune bool, rng *rand.Rand) (*gnnHist, error) {
	enc, err := encoder.New(m.Encoder, encoder.Config{
		NodeFeatureDim: 1,
		EmbeddingDim:   m.EmbeddingDim,
		Layers:         m.EncodeLayers,
		Heads:          m.Heads,
		Normalization:  m.Normalization,
	}, rng)
	if err != nil {
		return nil, err
	}
	d := enc.EmbeddingDim()
	initCtx := mat.NewDense(1, d, nil)
	nn.Uniform(initCtx, rng)
	return &gnnHist{
		prune:   prune,
		enc:     enc,
		stepCtx: nn.NewLinear(2*d, d, rng),
		initCtx: initCtx,
		dim:     d,
	}, nil
}

func (g *gnnHist) Name() string {
	if g.prune {
		return ProfileGNNHistPruned
	}
	return ProfileGNNHist
}

func (g *gnnHist) Dim() int {
	if g.prune {
		return statDimNoMatched + 4*g.dim
	}
	return 2 + 4*g.dim
}

func (g *gnnHist) CollectParams(prefix string, into nn.Params) {
	g.enc.CollectParams(prefix+".encoder", into)
	g.stepCtx.CollectParams(prefix+".step_context", into)
	into[prefix+".initial_step_context"] = g.initCtx
}

// stepGraph is the encoder input for one step plus the mapping back from
// batch-flattened node ids to rows of the embedding matrix.
type stepGraph struct {
	input encoder.Input
	rowOf []int // global node -> embedding row, -1 if not in the subgraph
	first []int // first embedding row of each instance; len BatchSize+1
}

// buildStepGraph projects the revealed part of every instance: the skip
// node, the fixed nodes (free ones only when pruning) and arrivals 0..I.
func (g *gnnHist) buildStepGraph(s *State) stepGraph {
	gb := s.Graphs
	sg := stepGraph{
		rowOf: make([]int, gb.Size*gb.NodesPerGraph),
		first: make([]int, s.BatchSize+1),
	}
	for i := range sg.rowOf {
		sg.rowOf[i] = -1
	}
	var subset []int
	var feats []float64
	add := func(b, local int, f float64) {
		global := gb.Global(b, local)
		sg.rowOf[global] = len(subset)
		subset = append(subset, global)
		feats = append(feats, f)
	}
	for b := 0; b < s.BatchSize; b++ {
		sg.first[b] = len(subset)
		add(b, graph.SkipNode, skipNodeFeature)
		for u := 0; u < s.USize; u++ {
			matched := s.MatchedNodes.At(b, u+1)
			switch {
			case !g.prune:
				add(b, gb.LeftNode(u), matched)
			case matched == 0:
				add(b, gb.LeftNode(u), freeLeftNodeFeature)
			}
		}
		for v := 0; v <= s.I && v < s.VSize; v++ {
			f := arrivalNodeFeature
			if g.prune && v == s.I {
				f = currentArrivalNodeFeature
			}
			add(b, gb.ArrivalNode(v), f)
		}
	}
	sg.first[s.BatchSize] = len(subset)

	edges, weights := graph.Subgraph(subset, gb.Edges, gb.Weight, true)
	sg.input = encoder.Input{
		NodeFeatures: mat.NewDense(len(subset), 1, feats),
		Edges:        edges,
		EdgeWeights:  weights,
		Step:         s.Step(),
	}
	return sg
}

func (g *gnnHist) Assemble(s *State, past [][]int) (*mat.Dense, error) {
	if s.AllFinished() {
		return nil, fmt.Errorf("%s: assembling features for a finished episode", g.Name())
	}
	if len(past) != s.I {
		return nil, fmt.Errorf("%s: %d past selections at step %d", g.Name(), len(past), s.Step())
	}
	sg := g.buildStepGraph(s)
	h, err := g.enc.Encode(sg.input)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding step %d: %w", g.Name(), s.Step(), err)
	}

	zero := make([]float64, g.dim)
	emb := func(b, local int) []float64 {
		if r := sg.rowOf[s.Graphs.Global(b, local)]; r >= 0 {
			return h.RawRowView(r)
		}
		return zero
	}

	ctx := g.stepContext(s, past, emb)

	c := s.USize + 1
	out := mat.NewDense(s.BatchSize*c, g.Dim(), nil)
	row := make([]float64, 0, g.Dim())
	mean := make([]float64, g.dim)
	for b := 0; b < s.BatchSize; b++ {
		for j := range mean {
			mean[j] = 0
		}
		n := sg.first[b+1] - sg.first[b]
		for r := sg.first[b]; r < sg.first[b+1]; r++ {
			for j, v := range h.RawRowView(r) {
				mean[j] += v / float64(n)
			}
		}
		incoming := emb(b, s.Graphs.ArrivalNode(s.I))
		rs := computeRowStats(s, b)
		for slot := 0; slot < c; slot++ {
			row = row[:0]
			if g.prune {
				row = appendStats(row, s, b, slot, rs, false)
			} else {
				row = append(row, s.Adj.At(b, slot), rs.idx)
			}
			row = append(row, incoming...)
			row = append(row, emb(b, slot)...)
			row = append(row, ctx.RawRowView(b)...)
			row = append(row, mean...)
			out.SetRow(b*c+slot, row)
		}
	}
	return out, nil
}

// stepContext returns one d-wide row per instance: the learned initial vector
// at step 1, afterwards the mean over past steps of the projected
// (selected slot, arrival) embedding pair.
func (g *gnnHist) stepContext(s *State, past [][]int, emb func(b, local int) []float64) *mat.Dense {
	ctx := mat.NewDense(s.BatchSize, g.dim, nil)
	if s.I == 0 {
		initial := g.initCtx.RawRowView(0)
		for b := 0; b < s.BatchSize; b++ {
			ctx.SetRow(b, initial)
		}
		return ctx
	}
	pairs := mat.NewDense(s.BatchSize*s.I, 2*g.dim, nil)
	for b := 0; b < s.BatchSize; b++ {
		for step, sel := range past {
			r := pairs.RawRowView(b*s.I + step)
			copy(r, emb(b, sel[b]))
			copy(r[g.dim:], emb(b, s.Graphs.ArrivalNode(step)))
		}
	}
	proj := g.stepCtx.Forward(pairs)
	for b := 0; b < s.BatchSize; b++ {
		dst := ctx.RawRowView(b)
		for step := 0; step < s.I; step++ {
			for j, v := range proj.RawRowView(b*s.I + step) {
				dst[j] += v / float64(s.I)
			}
		}
	}
	return ctx
}
