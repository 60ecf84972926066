package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewLinear_ShapesAndInitBounds(t *testing.T) {
	l := NewLinear(4, 3, rand.New(rand.NewSource(1)))
	assert.Equal(t, 4, l.In())
	assert.Equal(t, 3, l.Out())

	bound := 1 / math.Sqrt(4)
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			assert.LessOrEqual(t, math.Abs(l.W.At(i, j)), bound)
		}
	}
}

func TestLinear_Forward_AddsBiasPerRow(t *testing.T) {
	l := &Linear{
		W: mat.NewDense(2, 1, []float64{1, 2}),
		B: mat.NewDense(1, 1, []float64{0.5}),
	}
	out := l.Forward(mat.NewDense(2, 2, []float64{1, 1, 2, 0}))
	assert.Equal(t, 3.5, out.At(0, 0))
	assert.Equal(t, 2.5, out.At(1, 0))
}

func TestFeedForward_AppliesReLUBetweenLayers(t *testing.T) {
	// GIVEN a two-layer stack whose hidden unit is always negative
	ff := &FeedForward{Layers: []*Linear{
		{W: mat.NewDense(1, 1, []float64{-1}), B: mat.NewDense(1, 1, []float64{0})},
		{W: mat.NewDense(1, 1, []float64{5}), B: mat.NewDense(1, 1, []float64{1})},
	}}

	// WHEN fed a positive input
	out := ff.Forward(mat.NewDense(1, 1, []float64{3}))

	// THEN the hidden activation is clipped to 0 and only the bias remains
	assert.Equal(t, 1.0, out.At(0, 0))
}

func TestNewFeedForward_InvalidSizes(t *testing.T) {
	_, err := NewFeedForward([]int{3}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
	_, err = NewFeedForward([]int{3, 0, 1}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestNewFeedForward_SameSeedSameParams(t *testing.T) {
	a, err := NewFeedForward([]int{5, 8, 1}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	b, err := NewFeedForward([]int{5, 8, 1}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	assert.True(t, mat.Equal(a.Layers[0].W, b.Layers[0].W))
	assert.True(t, mat.Equal(a.Layers[1].B, b.Layers[1].B))
}

func TestCollectParams_NamesEveryTensor(t *testing.T) {
	ff, err := NewFeedForward([]int{2, 3, 1}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	p := Params{}
	ff.CollectParams("ff", p)
	assert.Len(t, p, 4)
	assert.Contains(t, p, "ff.0.weight")
	assert.Contains(t, p, "ff.1.bias")
}

func TestLayerNorm_ZeroMeanUnitVariance(t *testing.T) {
	out := LayerNorm(mat.NewDense(1, 4, []float64{1, 2, 3, 4}))
	row := out.RawRowView(0)
	var mean, sq float64
	for _, v := range row {
		mean += v
	}
	mean /= 4
	for _, v := range row {
		sq += (v - mean) * (v - mean)
	}
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, sq/4, 1e-3)
}
