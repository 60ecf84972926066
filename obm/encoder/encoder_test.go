package encoder

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/onlinematch/obmrl/obm/graph"
)

func smallInput() Input {
	// 4 nodes: 0 isolated, 1<->3 and 2<->3
	return Input{
		NodeFeatures: mat.NewDense(4, 1, []float64{-1, 0, 1, 2}),
		Edges:        graph.EdgeIndex{Src: []int{1, 3, 2, 3}, Dst: []int{3, 1, 3, 2}},
		EdgeWeights:  []float64{0.5, 0.5, 0.9, 0.9},
		Step:         1,
	}
}

func TestNew_UnknownEncoder_ReturnsError(t *testing.T) {
	_, err := New("gcn", Config{NodeFeatureDim: 1, EmbeddingDim: 8, Layers: 1}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestNew_AttentionHeadMismatch_ReturnsError(t *testing.T) {
	_, err := New("attention", Config{NodeFeatureDim: 1, EmbeddingDim: 10, Layers: 1, Heads: 4}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestNew_UnknownNormalization_ReturnsError(t *testing.T) {
	_, err := New("mpnn", Config{NodeFeatureDim: 1, EmbeddingDim: 8, Layers: 1, Normalization: "batch"}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestEncode_OutputShape(t *testing.T) {
	for _, name := range ValidEncoderNames() {
		t.Run(name, func(t *testing.T) {
			enc, err := New(name, Config{NodeFeatureDim: 1, EmbeddingDim: 8, Layers: 2, Heads: 2, Normalization: "layer"}, rand.New(rand.NewSource(3)))
			require.NoError(t, err)

			out, err := enc.Encode(smallInput())
			require.NoError(t, err)
			r, c := out.Dims()
			assert.Equal(t, 4, r)
			assert.Equal(t, 8, c)
			assert.Equal(t, 8, enc.EmbeddingDim())
		})
	}
}

func TestEncode_StatelessAcrossCalls(t *testing.T) {
	for _, name := range ValidEncoderNames() {
		t.Run(name, func(t *testing.T) {
			enc, err := New(name, Config{NodeFeatureDim: 1, EmbeddingDim: 8, Layers: 1, Heads: 4}, rand.New(rand.NewSource(3)))
			require.NoError(t, err)
			a, err := enc.Encode(smallInput())
			require.NoError(t, err)
			b, err := enc.Encode(smallInput())
			require.NoError(t, err)
			assert.True(t, mat.Equal(a, b))
		})
	}
}

func TestEncode_MessagesDependOnEdgeWeights(t *testing.T) {
	enc, err := New("mpnn", Config{NodeFeatureDim: 1, EmbeddingDim: 32, Layers: 1}, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	in := smallInput()
	a, err := enc.Encode(in)
	require.NoError(t, err)

	in.EdgeWeights = []float64{0.1, 0.1, 0.9, 0.9}
	b, err := enc.Encode(in)
	require.NoError(t, err)

	// THEN the isolated node is unaffected while node 3 changes
	assert.Equal(t, mat.Row(nil, 0, a), mat.Row(nil, 0, b))
	assert.NotEqual(t, mat.Row(nil, 3, a), mat.Row(nil, 3, b))
}

func TestEncode_EdgeOutOfRange_ReturnsError(t *testing.T) {
	enc, err := New("mpnn", Config{NodeFeatureDim: 1, EmbeddingDim: 4, Layers: 1}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	in := smallInput()
	in.Edges = graph.EdgeIndex{Src: []int{0}, Dst: []int{9}}
	in.EdgeWeights = []float64{1}
	_, err = enc.Encode(in)
	assert.Error(t, err)
}

func TestCollectParams_CountsPerEncoder(t *testing.T) {
	mp, err := New("mpnn", Config{NodeFeatureDim: 1, EmbeddingDim: 4, Layers: 2}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	p := map[string]*mat.Dense{}
	mp.CollectParams("enc", p)
	// embed + 2 layers * (self, msg), each weight+bias
	assert.Len(t, p, 2+2*2*2)
}
