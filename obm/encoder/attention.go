package encoder

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/onlinematch/obmrl/obm/nn"
)

// attentionFFHidden is the hidden width of the per-layer feed-forward block.
const attentionFFHidden = 512

// Attention is a multi-head graph attention encoder. Each node attends over
// itself and its in-neighbours; the edge weight is added to the attention
// logit, so heavier edges receive more mass. Every layer is
//
//	h = norm(h + out(attn(h)))
//	h = norm(h + ff(h))
type Attention struct {
	embed  *nn.Linear
	layers []attentionLayer
	dim    int
	heads  int
	norm   string
}

type attentionLayer struct {
	q, k, v, o *nn.Linear
	ff         *nn.FeedForward
}

func newAttention(cfg Config, rng *rand.Rand) (*Attention, error) {
	if cfg.Heads <= 0 {
		return nil, fmt.Errorf("attention encoder needs a positive head count, got %d", cfg.Heads)
	}
	if cfg.EmbeddingDim%cfg.Heads != 0 {
		return nil, fmt.Errorf("embedding_dim %d must be divisible by n_heads %d", cfg.EmbeddingDim, cfg.Heads)
	}
	a := &Attention{
		embed: nn.NewLinear(cfg.NodeFeatureDim, cfg.EmbeddingDim, rng),
		dim:   cfg.EmbeddingDim,
		heads: cfg.Heads,
		norm:  cfg.Normalization,
	}
	for i := 0; i < cfg.Layers; i++ {
		ff, err := nn.NewFeedForward([]int{cfg.EmbeddingDim, attentionFFHidden, cfg.EmbeddingDim}, rng)
		if err != nil {
			return nil, err
		}
		a.layers = append(a.layers, attentionLayer{
			q:  nn.NewLinear(cfg.EmbeddingDim, cfg.EmbeddingDim, rng),
			k:  nn.NewLinear(cfg.EmbeddingDim, cfg.EmbeddingDim, rng),
			v:  nn.NewLinear(cfg.EmbeddingDim, cfg.EmbeddingDim, rng),
			o:  nn.NewLinear(cfg.EmbeddingDim, cfg.EmbeddingDim, rng),
			ff: ff,
		})
	}
	return a, nil
}

// EmbeddingDim implements Encoder.
func (a *Attention) EmbeddingDim() int { return a.dim }

type neighbour struct {
	node   int
	weight float64
}

// Encode implements Encoder.
func (a *Attention) Encode(in Input) (*mat.Dense, error) {
	n, err := checkInput(in)
	if err != nil {
		return nil, err
	}
	// Self loops carry weight 0.
	nbrs := make([][]neighbour, n)
	for i := range nbrs {
		nbrs[i] = []neighbour{{node: i}}
	}
	for e, s := range in.Edges.Src {
		d := in.Edges.Dst[e]
		nbrs[d] = append(nbrs[d], neighbour{node: s, weight: in.EdgeWeights[e]})
	}

	h := a.embed.Forward(in.NodeFeatures)
	headDim := a.dim / a.heads
	scale := 1 / math.Sqrt(float64(headDim))
	for _, l := range a.layers {
		q, k, v := l.q.Forward(h), l.k.Forward(h), l.v.Forward(h)
		attn := mat.NewDense(n, a.dim, nil)
		for node := 0; node < n; node++ {
			qRow := q.RawRowView(node)
			dst := attn.RawRowView(node)
			logits := make([]float64, len(nbrs[node]))
			for hd := 0; hd < a.heads; hd++ {
				lo, hi := hd*headDim, (hd+1)*headDim
				for j, nb := range nbrs[node] {
					logits[j] = floats.Dot(qRow[lo:hi], k.RawRowView(nb.node)[lo:hi])*scale + nb.weight
				}
				lse := floats.LogSumExp(logits)
				for j, nb := range nbrs[node] {
					alpha := math.Exp(logits[j] - lse)
					floats.AddScaled(dst[lo:hi], alpha, v.RawRowView(nb.node)[lo:hi])
				}
			}
		}
		var res mat.Dense
		res.Add(h, l.o.Forward(attn))
		h = normalize(a.norm, &res)
		var res2 mat.Dense
		res2.Add(h, l.ff.Forward(h))
		h = normalize(a.norm, &res2)
	}
	return h, nil
}

// CollectParams implements nn.Module.
func (a *Attention) CollectParams(prefix string, into nn.Params) {
	a.embed.CollectParams(prefix+".embed", into)
	for i, l := range a.layers {
		p := fmt.Sprintf("%s.layers.%d", prefix, i)
		l.q.CollectParams(p+".q", into)
		l.k.CollectParams(p+".k", into)
		l.v.CollectParams(p+".v", into)
		l.o.CollectParams(p+".o", into)
		l.ff.CollectParams(p+".ff", into)
	}
}
