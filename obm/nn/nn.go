// Package nn provides the small dense building blocks shared by the graph
// encoders and the action scorer: affine layers, a ReLU feed-forward stack,
// layer normalisation and named parameter collection for checkpoints.
//
// Activations are row-major gonum matrices: one row per item (node or
// candidate), one column per feature.
package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Params maps a dotted parameter name to its matrix. Matrices are shared, not
// copied, so loading a checkpoint writes through to the owning layer.
type Params map[string]*mat.Dense

// Module is anything that owns named parameters.
type Module interface {
	CollectParams(prefix string, into Params)
}

// Uniform fills m with U(-1/sqrt(n), 1/sqrt(n)) where n is the number of
// columns of m (the parameter's last dimension).
func Uniform(m *mat.Dense, rng *rand.Rand) {
	_, c := m.Dims()
	stdv := 1.0 / math.Sqrt(float64(c))
	m.Apply(func(_, _ int, _ float64) float64 {
		return (rng.Float64()*2 - 1) * stdv
	}, m)
}

// Linear is an affine map x·W + b. W is in×out, B is 1×out.
type Linear struct {
	W *mat.Dense
	B *mat.Dense
}

// NewLinear creates a randomly initialised in→out layer.
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	// Initialise from the out×in orientation so the bound matches fan-in.
	wt := mat.NewDense(out, in, nil)
	Uniform(wt, rng)
	b := mat.NewDense(1, out, nil)
	Uniform(b, rng)
	return &Linear{W: mat.DenseCopyOf(wt.T()), B: b}
}

// In returns the input width.
func (l *Linear) In() int {
	r, _ := l.W.Dims()
	return r
}

// Out returns the output width.
func (l *Linear) Out() int {
	_, c := l.W.Dims()
	return c
}

// Forward applies the layer to every row of x.
func (l *Linear) Forward(x mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(x, l.W)
	bias := l.B.RawRowView(0)
	out.Apply(func(_, j int, v float64) float64 { return v + bias[j] }, &out)
	return &out
}

// CollectParams implements Module.
func (l *Linear) CollectParams(prefix string, into Params) {
	into[prefix+".weight"] = l.W
	into[prefix+".bias"] = l.B
}

// ReLU returns max(0, x) elementwise as a new matrix.
func ReLU(x mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, x)
	return &out
}

// LayerNorm normalises every row to zero mean and unit variance.
func LayerNorm(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := x.RawRowView(i)
		var mean, sq float64
		for _, v := range row {
			mean += v
		}
		mean /= float64(c)
		for _, v := range row {
			sq += (v - mean) * (v - mean)
		}
		std := math.Sqrt(sq/float64(c) + 1e-5)
		dst := out.RawRowView(i)
		for j, v := range row {
			dst[j] = (v - mean) / std
		}
	}
	return out
}

// FeedForward is a stack of Linear layers with ReLU between them (none after
// the last one).
type FeedForward struct {
	Layers []*Linear
}

// NewFeedForward builds a stack with the given widths, e.g. [13, 100, 1].
func NewFeedForward(sizes []int, rng *rand.Rand) (*FeedForward, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("feed-forward needs at least input and output sizes, got %v", sizes)
	}
	ff := &FeedForward{Layers: make([]*Linear, 0, len(sizes)-1)}
	for i := 1; i < len(sizes); i++ {
		if sizes[i-1] <= 0 || sizes[i] <= 0 {
			return nil, fmt.Errorf("feed-forward layer sizes must be positive, got %v", sizes)
		}
		ff.Layers = append(ff.Layers, NewLinear(sizes[i-1], sizes[i], rng))
	}
	return ff, nil
}

// Forward runs x through the stack.
func (f *FeedForward) Forward(x mat.Matrix) *mat.Dense {
	h := f.Layers[0].Forward(x)
	for _, l := range f.Layers[1:] {
		h = l.Forward(ReLU(h))
	}
	return h
}

// CollectParams implements Module.
func (f *FeedForward) CollectParams(prefix string, into Params) {
	for i, l := range f.Layers {
		l.CollectParams(fmt.Sprintf("%s.%d", prefix, i), into)
	}
}
