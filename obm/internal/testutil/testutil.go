// Package testutil provides shared test infrastructure for the obm packages:
// tolerance assertions, small hand-built instances and repository paths.
package testutil

import (
	"math"
	"math/rand"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/onlinematch/obmrl/obm/dataset"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// RepoPath resolves a path relative to the repository root.
// The path is resolved relative to this source file: obm/internal/testutil/ → root.
func RepoPath(t *testing.T, elem ...string) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	parts := append([]string{filepath.Dir(thisFile), "..", "..", ".."}, elem...)
	return filepath.Join(parts...)
}

// TwoByThreeBatch returns a weighted batch of two instances with U=3 fixed
// nodes and V=2 arrivals. Rows are arrivals, columns fixed nodes.
//
//	instance 0: v0 → {u0: 0.5, u2: 0.9}, v1 → {u0: 0.7, u1: 0.2}
//	instance 1: v0 → {u1: 0.4},          v1 → {}
func TwoByThreeBatch() *dataset.Batch {
	return &dataset.Batch{
		Problem: dataset.ProblemEOBM,
		USize:   3,
		VSize:   2,
		Instances: []dataset.Instance{
			{Weights: []float64{0.5, 0, 0.9, 0.7, 0.2, 0}, Optimal: 1.6, Greedy: 1.6},
			{Weights: []float64{0, 0.4, 0, 0, 0, 0}, Optimal: 0.4, Greedy: 0.4},
		},
	}
}

// RandomBatch generates n instances with the given sizes from seed.
func RandomBatch(t *testing.T, problem string, usize, vsize, n int, seed int64) *dataset.Batch {
	t.Helper()
	d, err := dataset.Generate(dataset.GenerateConfig{
		Problem:    problem,
		USize:      usize,
		VSize:      vsize,
		NumSamples: n,
		EdgeProb:   0.5,
		WeightLow:  0.1,
		WeightHigh: 1,
	}, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("generating batch: %v", err)
	}
	return d.Batches(n)[0]
}
