package obm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onlinematch/obmrl/obm/internal/testutil"
)

// smallOptions returns options sized for the 3×2 fixture batch.
func smallOptions(profile string) Options {
	opts := DefaultOptions()
	opts.Graph.USize = 3
	opts.Graph.VSize = 2
	opts.Model.Policy = profile
	opts.Model.EmbeddingDim = 8
	opts.Model.HiddenDims = []int{16}
	opts.Model.Heads = 2
	return opts
}

func newTestPolicy(t *testing.T, opts Options, seed int64) *Policy {
	t.Helper()
	p, err := NewPolicy(opts, NewPartitionedRNG(NewRunKey(seed)))
	require.NoError(t, err)
	return p
}

func newFixtureState(t *testing.T) *State {
	t.Helper()
	p, err := NewProblem("e-obm")
	require.NoError(t, err)
	s, err := p.MakeState(testutil.TwoByThreeBatch(), 3, 2)
	require.NoError(t, err)
	return s
}

func allProfiles() []string {
	return []string{ProfileFFHist, ProfileGNNHist, ProfileGNNHistPruned}
}
