package encoder

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/onlinematch/obmrl/obm/nn"
)

// MPNN is a weighted message-passing encoder. Each layer computes
//
//	h' = relu(self(h) + msg(mean_{u->v} w_uv * h_u))
//
// where the mean runs over incoming edges of v (zero for isolated nodes).
type MPNN struct {
	embed  *nn.Linear
	layers []mpnnLayer
	dim    int
	norm   string
}

type mpnnLayer struct {
	self *nn.Linear
	msg  *nn.Linear
}

func newMPNN(cfg Config, rng *rand.Rand) *MPNN {
	m := &MPNN{
		embed: nn.NewLinear(cfg.NodeFeatureDim, cfg.EmbeddingDim, rng),
		dim:   cfg.EmbeddingDim,
		norm:  cfg.Normalization,
	}
	for i := 0; i < cfg.Layers; i++ {
		m.layers = append(m.layers, mpnnLayer{
			self: nn.NewLinear(cfg.EmbeddingDim, cfg.EmbeddingDim, rng),
			msg:  nn.NewLinear(cfg.EmbeddingDim, cfg.EmbeddingDim, rng),
		})
	}
	return m
}

// EmbeddingDim implements Encoder.
func (m *MPNN) EmbeddingDim() int { return m.dim }

// Encode implements Encoder.
func (m *MPNN) Encode(in Input) (*mat.Dense, error) {
	n, err := checkInput(in)
	if err != nil {
		return nil, err
	}
	h := m.embed.Forward(in.NodeFeatures)

	deg := make([]float64, n)
	for _, d := range in.Edges.Dst {
		deg[d]++
	}
	for _, l := range m.layers {
		agg := mat.NewDense(n, m.dim, nil)
		for e, s := range in.Edges.Src {
			d := in.Edges.Dst[e]
			w := in.EdgeWeights[e] / deg[d]
			src := h.RawRowView(s)
			dst := agg.RawRowView(d)
			for j := range dst {
				dst[j] += w * src[j]
			}
		}
		var sum mat.Dense
		sum.Add(l.self.Forward(h), l.msg.Forward(agg))
		h = normalize(m.norm, nn.ReLU(&sum))
	}
	return h, nil
}

// CollectParams implements nn.Module.
func (m *MPNN) CollectParams(prefix string, into nn.Params) {
	m.embed.CollectParams(prefix+".embed", into)
	for i, l := range m.layers {
		l.self.CollectParams(fmt.Sprintf("%s.layers.%d.self", prefix, i), into)
		l.msg.CollectParams(fmt.Sprintf("%s.layers.%d.msg", prefix, i), into)
	}
}
