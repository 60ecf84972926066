// Package dataset generates, stores and loads batches of bipartite matching
// instances. Files are MessagePack records compressed with LZ4 (see
// obm/internal/codec); every instance carries its offline optimum and the
// value of the greedy online heuristic so evaluations can report ratios.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/onlinematch/obmrl/obm/internal/codec"
)

// Problem names understood by the generator and the policy.
const (
	ProblemOBM  = "obm"   // unweighted: every edge has weight 1
	ProblemEOBM = "e-obm" // edge-weighted
)

// validProblems maps problem names to validity.
var validProblems = map[string]bool{
	ProblemOBM:  true,
	ProblemEOBM: true,
}

// IsValidProblem returns true if name is a recognized problem.
func IsValidProblem(name string) bool { return validProblems[name] }

// FileExt is the extension of dataset files.
const FileExt = codec.Ext

// ErrMalformed is returned when a dataset file decodes but its contents are
// inconsistent.
var ErrMalformed = errors.New("malformed dataset")

// Instance is one bipartite graph. Weights is row-major VSize×USize: entry
// v*USize+u is the weight between arrival v and fixed node u, 0 for no edge.
type Instance struct {
	Weights []float64
	Optimal float64 // offline maximum-weight matching value
	Greedy  float64 // value reached by the greedy online heuristic
}

// Dataset is a set of equally sized instances of one problem.
type Dataset struct {
	Problem   string
	USize     int
	VSize     int
	Instances []Instance
}

// Batch is a contiguous slice of instances decoded in lockstep.
type Batch struct {
	Problem   string
	USize     int
	VSize     int
	Instances []Instance
}

// Size returns the number of instances in the batch.
func (b *Batch) Size() int { return len(b.Instances) }

// Weights returns the per-instance weight rows.
func (b *Batch) Weights() [][]float64 {
	out := make([][]float64, len(b.Instances))
	for i := range b.Instances {
		out[i] = b.Instances[i].Weights
	}
	return out
}

// Batches splits the dataset into batches of at most size instances.
func (d *Dataset) Batches(size int) []*Batch {
	if size <= 0 {
		size = len(d.Instances)
	}
	var out []*Batch
	for lo := 0; lo < len(d.Instances); lo += size {
		hi := min(lo+size, len(d.Instances))
		out = append(out, &Batch{
			Problem:   d.Problem,
			USize:     d.USize,
			VSize:     d.VSize,
			Instances: d.Instances[lo:hi],
		})
	}
	return out
}

// GenerateConfig parameterizes Erdős–Rényi style random instances.
type GenerateConfig struct {
	Problem    string  `yaml:"problem"`
	USize      int     `yaml:"u_size"`
	VSize      int     `yaml:"v_size"`
	NumSamples int     `yaml:"num_samples"`
	EdgeProb   float64 `yaml:"edge_prob"`
	WeightLow  float64 `yaml:"weight_low"`
	WeightHigh float64 `yaml:"weight_high"`
}

// Validate checks names and ranges.
func (c GenerateConfig) Validate() error {
	if !IsValidProblem(c.Problem) {
		return fmt.Errorf("unknown problem %q", c.Problem)
	}
	if c.USize <= 0 || c.VSize <= 0 {
		return fmt.Errorf("u_size and v_size must be positive, got %d and %d", c.USize, c.VSize)
	}
	if c.NumSamples < 0 {
		return fmt.Errorf("num_samples must be non-negative, got %d", c.NumSamples)
	}
	if c.EdgeProb <= 0 || c.EdgeProb > 1 {
		return fmt.Errorf("edge_prob must be in (0, 1], got %f", c.EdgeProb)
	}
	if c.Problem == ProblemEOBM && (c.WeightLow < 0 || c.WeightHigh < c.WeightLow) {
		return fmt.Errorf("weight range [%f, %f] is invalid", c.WeightLow, c.WeightHigh)
	}
	return nil
}

// Generate draws cfg.NumSamples random instances from rng.
func Generate(cfg GenerateConfig, rng *rand.Rand) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Dataset{
		Problem:   cfg.Problem,
		USize:     cfg.USize,
		VSize:     cfg.VSize,
		Instances: make([]Instance, cfg.NumSamples),
	}
	for n := range d.Instances {
		w := make([]float64, cfg.USize*cfg.VSize)
		for i := range w {
			if rng.Float64() >= cfg.EdgeProb {
				continue
			}
			if cfg.Problem == ProblemOBM {
				w[i] = 1
			} else {
				w[i] = cfg.WeightLow + rng.Float64()*(cfg.WeightHigh-cfg.WeightLow)
			}
		}
		d.Instances[n] = Instance{
			Weights: w,
			Optimal: OfflineOptimum(w, cfg.USize, cfg.VSize),
			Greedy:  GreedyValue(w, cfg.USize, cfg.VSize),
		}
	}
	return d, nil
}

// Validate checks that the dataset is internally consistent.
func (d *Dataset) Validate() error {
	if !IsValidProblem(d.Problem) {
		return fmt.Errorf("%w: unknown problem %q", ErrMalformed, d.Problem)
	}
	if d.USize <= 0 || d.VSize <= 0 {
		return fmt.Errorf("%w: non-positive sizes u=%d v=%d", ErrMalformed, d.USize, d.VSize)
	}
	for n, inst := range d.Instances {
		if len(inst.Weights) != d.USize*d.VSize {
			return fmt.Errorf("%w: instance %d has %d weights, want %d", ErrMalformed, n, len(inst.Weights), d.USize*d.VSize)
		}
		for _, w := range inst.Weights {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return fmt.Errorf("%w: instance %d has weight %v", ErrMalformed, n, w)
			}
			if d.Problem == ProblemOBM && w != 0 && w != 1 {
				return fmt.Errorf("%w: instance %d has weight %v in an unweighted problem", ErrMalformed, n, w)
			}
		}
	}
	return nil
}

// Save writes the dataset to path, which must end in ".msgp.lz4".
func Save(path string, d *Dataset) error {
	if err := codec.WriteFile(path, d.EncodeMsg); err != nil {
		return err
	}
	logrus.Infof("Wrote %d %s instances (u=%d, v=%d) to %s", len(d.Instances), d.Problem, d.USize, d.VSize, path)
	return nil
}

// Load reads and validates a dataset file.
func Load(path string) (*Dataset, error) {
	var d Dataset
	if err := codec.ReadFile(path, d.DecodeMsg); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logrus.Infof("Loaded %d %s instances (u=%d, v=%d) from %s", len(d.Instances), d.Problem, d.USize, d.VSize, path)
	return &d, nil
}
