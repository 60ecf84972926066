// Package encoder provides the graph encoders that turn an online-revealed
// subgraph into per-node embeddings. Implementations are stateless per call:
// the same Input and parameters always produce the same embeddings.
package encoder

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/onlinematch/obmrl/obm/graph"
	"github.com/onlinematch/obmrl/obm/nn"
)

// Input is one batch-flattened, node-major subgraph.
type Input struct {
	NodeFeatures *mat.Dense // nodes × feature width
	Edges        graph.EdgeIndex
	EdgeWeights  []float64
	Step         int // 1-based decoding step the subgraph was built for
}

// Encoder maps a subgraph to node embeddings (nodes × EmbeddingDim()).
type Encoder interface {
	Encode(in Input) (*mat.Dense, error)
	EmbeddingDim() int
	nn.Module
}

// Config carries the encoder hyper-parameters.
type Config struct {
	NodeFeatureDim int
	EmbeddingDim   int
	Layers         int
	Heads          int
	Normalization  string
}

// validEncoderNames maps encoder names to validity.
var validEncoderNames = map[string]bool{
	"mpnn":      true,
	"attention": true,
}

// validNormalizations maps accepted normalization names.
var validNormalizations = map[string]bool{
	"":      true, // empty defaults to none
	"none":  true,
	"layer": true,
}

// IsValidEncoder returns true if name is a recognized encoder.
func IsValidEncoder(name string) bool { return validEncoderNames[name] }

// ValidEncoderNames returns sorted valid encoder names.
func ValidEncoderNames() []string {
	names := make([]string, 0, len(validEncoderNames))
	for n := range validEncoderNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsValidNormalization returns true if name is a recognized normalization.
func IsValidNormalization(name string) bool { return validNormalizations[name] }

// New creates a randomly initialised encoder by name.
func New(name string, cfg Config, rng *rand.Rand) (Encoder, error) {
	if cfg.NodeFeatureDim <= 0 || cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("encoder dimensions must be positive, got node_features=%d embedding_dim=%d",
			cfg.NodeFeatureDim, cfg.EmbeddingDim)
	}
	if cfg.Layers < 0 {
		return nil, fmt.Errorf("encoder layers must be non-negative, got %d", cfg.Layers)
	}
	if !IsValidNormalization(cfg.Normalization) {
		return nil, fmt.Errorf("unknown normalization %q", cfg.Normalization)
	}
	switch name {
	case "mpnn":
		return newMPNN(cfg, rng), nil
	case "attention":
		a, err := newAttention(cfg, rng)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown encoder %q; valid: %s", name, strings.Join(ValidEncoderNames(), ", "))
	}
}

// checkInput validates edge endpoints against the node count.
func checkInput(in Input) (int, error) {
	if in.NodeFeatures == nil {
		return 0, fmt.Errorf("encoder input has no node features")
	}
	n, _ := in.NodeFeatures.Dims()
	if len(in.Edges.Src) != len(in.Edges.Dst) || len(in.Edges.Src) != len(in.EdgeWeights) {
		return 0, fmt.Errorf("edge index (%d/%d) and weights (%d) disagree",
			len(in.Edges.Src), len(in.Edges.Dst), len(in.EdgeWeights))
	}
	for e := range in.Edges.Src {
		if s, d := in.Edges.Src[e], in.Edges.Dst[e]; s < 0 || s >= n || d < 0 || d >= n {
			return 0, fmt.Errorf("edge %d (%d->%d) out of range for %d nodes", e, s, d, n)
		}
	}
	return n, nil
}

func normalize(kind string, h *mat.Dense) *mat.Dense {
	if kind == "layer" {
		return nn.LayerNorm(h)
	}
	return h
}
