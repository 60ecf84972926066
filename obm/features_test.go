package obm

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiles_Registry(t *testing.T) {
	assert.Equal(t, []string{"ff-hist", "gnn-hist", "gnn-hist-pruned"}, ValidProfileNames())
	assert.False(t, IsValidProfile("gnn"))
	assert.False(t, profileUsesEncoder(ProfileFFHist))
	assert.True(t, profileUsesEncoder(ProfileGNNHistPruned))
	assert.Equal(t, []int{100, 100, 100}, defaultHiddenDims(ProfileFFHist))
	assert.Equal(t, []int{200}, defaultHiddenDims(ProfileGNNHist))
}

func TestFeatureAssembler_Dims(t *testing.T) {
	tests := []struct {
		profile string
		want    int
	}{
		{ProfileFFHist, 13},
		{ProfileGNNHist, 2 + 4*8},
		{ProfileGNNHistPruned, 12 + 4*8},
	}
	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			// GIVEN an assembler for the fixture
			fa, err := NewFeatureAssembler(smallOptions(tt.profile).Model, 3, rand.New(rand.NewSource(1)))
			require.NoError(t, err)
			s := newFixtureState(t)

			// WHEN features are assembled at step 1 and step 2
			f1, err := fa.Assemble(s, nil)
			require.NoError(t, err)
			require.NoError(t, s.Update([]int{3, 2}))
			f2, err := fa.Assemble(s, [][]int{{3, 2}})
			require.NoError(t, err)

			// THEN one row per (instance, slot) with the profile's width
			for _, f := range []interface{ Dims() (int, int) }{f1, f2} {
				r, c := f.Dims()
				assert.Equal(t, 2*4, r)
				assert.Equal(t, tt.want, c)
				assert.Equal(t, tt.want, fa.Dim())
			}
		})
	}
}

func TestFeatureAssembler_UnknownProfile(t *testing.T) {
	m := smallOptions(ProfileFFHist).Model
	m.Policy = "lstm"
	_, err := NewFeatureAssembler(m, 3, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestFFHist_StepOneFeatures(t *testing.T) {
	s := newFixtureState(t)
	f, err := ffHist{}.Assemble(s, nil)
	require.NoError(t, err)

	// Skip slot of row 0: history sentinels, empty solution statistics.
	assert.InDeltaSlice(t,
		[]float64{0, 0, 0.35, -1, -1, -1, 0.5, 0, 0, 0, 0, 0, 0},
		f.RawRowView(0), 1e-12)
	// Slot 1 of row 0: weight 0.5, no history yet.
	assert.InDeltaSlice(t,
		[]float64{0.5, 0, 0.35, 0, 0, 0, 0.5, 0, 0, 0, 0, 0, 0},
		f.RawRowView(1), 1e-12)
}

func TestFFHist_StepTwoFeatures(t *testing.T) {
	// GIVEN row 0 matched u2 (0.9) and row 1 matched u1 (0.4) at step 1
	s := newFixtureState(t)
	require.NoError(t, s.Update([]int{3, 2}))

	// WHEN assembled for arrival 1
	f, err := ffHist{}.Assemble(s, [][]int{{3, 2}})
	require.NoError(t, err)

	// THEN slot 1 of row 0 reflects arrival 0's weight 0.5 in its history
	meanW := (0 + 0.7 + 0.2 + 0) / 4.0
	assert.InDeltaSlice(t,
		[]float64{0.7, 0, meanW, 0.25, 0.0625, 0.5, 1, 0.3, 0.45, 0.2025, 0, 0.9, 0.9},
		f.RawRowView(1), 1e-12)
	// AND slot 3 of row 0 carries the matched indicator
	assert.Equal(t, 1.0, f.At(3, 1))
	// AND the skip slot keeps its sentinels
	assert.Equal(t, []float64{-1, -1, -1}, f.RawRowView(0)[3:6])
}

func TestGNNHist_StepGraph(t *testing.T) {
	s := newFixtureState(t)
	g, err := newGNNHist(smallOptions(ProfileGNNHist).Model, false, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	sg := g.buildStepGraph(s)

	// skip, three fixed nodes, arrival 0 per instance
	assert.Equal(t, []float64{-1, 0, 0, 0, 2, -1, 0, 0, 0, 2}, sg.input.NodeFeatures.RawMatrix().Data)
	assert.Equal(t, []int{0, 5, 10}, sg.first)
	// v0-u0, v0-u2 in instance 0 and v0-u1 in instance 1, both directions
	assert.Equal(t, 6, sg.input.Edges.Len())
	for e := range sg.input.Edges.Src {
		assert.Less(t, sg.input.Edges.Src[e], 10)
		assert.Less(t, sg.input.Edges.Dst[e], 10)
	}
	assert.Equal(t, 1, sg.input.Step)
}

func TestGNNHist_StepGraphMarksMatched(t *testing.T) {
	s := newFixtureState(t)
	require.NoError(t, s.Update([]int{3, 2}))
	g, err := newGNNHist(smallOptions(ProfileGNNHist).Model, false, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	sg := g.buildStepGraph(s)

	// Matched fixed nodes stay in the graph with feature 1.
	assert.Equal(t,
		[]float64{-1, 0, 0, 1, 2, 2, -1, 0, 1, 0, 2, 2},
		sg.input.NodeFeatures.RawMatrix().Data)
}

func TestGNNHistPruned_DropsMatchedNodes(t *testing.T) {
	// GIVEN u2 matched in row 0 and u1 matched in row 1
	s := newFixtureState(t)
	require.NoError(t, s.Update([]int{3, 2}))
	g, err := newGNNHist(smallOptions(ProfileGNNHistPruned).Model, true, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	// WHEN the step graph is built
	sg := g.buildStepGraph(s)

	// THEN matched nodes are gone and the current arrival is marked 3
	assert.Equal(t, []float64{-1, 0, 0, 2, 3, -1, 0, 0, 2, 3}, sg.input.NodeFeatures.RawMatrix().Data)
	assert.Equal(t, -1, sg.rowOf[s.Graphs.Global(0, 3)])
	assert.Equal(t, -1, sg.rowOf[s.Graphs.Global(1, 2)])
	// AND only edges between kept nodes survive: v0-u0, v1-u0, v1-u1 in instance 0
	assert.Equal(t, 6, sg.input.Edges.Len())

	// AND the pruned candidate gets a zero embedding
	f, err := g.Assemble(s, [][]int{{3, 2}})
	require.NoError(t, err)
	d := g.dim
	candidate := f.RawRowView(3)[statDimNoMatched+d : statDimNoMatched+2*d]
	assert.Equal(t, make([]float64, d), candidate)
}

func TestGNNHist_StepContext(t *testing.T) {
	s := newFixtureState(t)
	g, err := newGNNHist(smallOptions(ProfileGNNHist).Model, false, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	d := g.dim
	ctxCols := func(row []float64) []float64 { return row[2+2*d : 2+3*d] }

	// At step 1 every row carries the learned initial context.
	f, err := g.Assemble(s, nil)
	require.NoError(t, err)
	for r := 0; r < 8; r++ {
		assert.Equal(t, g.initCtx.RawRowView(0), ctxCols(f.RawRowView(r)))
	}

	// Later it depends on past decisions.
	require.NoError(t, s.Update([]int{3, 2}))
	f2, err := g.Assemble(s, [][]int{{3, 2}})
	require.NoError(t, err)
	assert.NotEqual(t, g.initCtx.RawRowView(0), ctxCols(f2.RawRowView(0)))
	assert.Equal(t, ctxCols(f2.RawRowView(0)), ctxCols(f2.RawRowView(3)), "context is shared across slots")
}

func TestGNNHist_Errors(t *testing.T) {
	s := newFixtureState(t)
	g, err := newGNNHist(smallOptions(ProfileGNNHist).Model, false, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	_, err = g.Assemble(s, [][]int{{0, 0}})
	assert.Error(t, err, "past selections longer than decided arrivals")

	m := smallOptions(ProfileGNNHist).Model
	m.Encoder = "attention"
	m.Heads = 3
	_, err = newGNNHist(m, false, rand.New(rand.NewSource(1)))
	assert.Error(t, err, "embedding_dim not divisible by heads")
}

func TestAssemble_DoesNotMutateState(t *testing.T) {
	for _, profile := range allProfiles() {
		t.Run(profile, func(t *testing.T) {
			s := newFixtureState(t)
			require.NoError(t, s.Update([]int{1, 0}))
			before := *s
			adj := append([]float64(nil), s.Adj.RawMatrix().Data...)
			edges := s.Graphs.Edges.Len()

			fa, err := NewFeatureAssembler(smallOptions(profile).Model, 3, rand.New(rand.NewSource(1)))
			require.NoError(t, err)
			_, err = fa.Assemble(s, [][]int{{1, 0}})
			require.NoError(t, err)

			assert.Equal(t, before.I, s.I)
			assert.Equal(t, adj, s.Adj.RawMatrix().Data)
			assert.Equal(t, edges, s.Graphs.Edges.Len())
		})
	}
}
