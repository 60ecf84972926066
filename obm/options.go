package obm

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/onlinematch/obmrl/obm/dataset"
	"github.com/onlinematch/obmrl/obm/encoder"
	"github.com/onlinematch/obmrl/obm/trace"
)

// Options is the full run configuration, loadable from a YAML file.
// All sections must be listed to satisfy KnownFields(true) strict parsing.
type Options struct {
	Seed   int64                  `yaml:"seed"`
	Graph  dataset.GenerateConfig `yaml:"graph"`
	Model  ModelConfig            `yaml:"model"`
	Decode DecodeConfig           `yaml:"decode"`
	Trace  TraceOptions           `yaml:"trace"`
}

// ModelConfig selects the feature profile, encoder and layer sizes.
type ModelConfig struct {
	Policy        string `yaml:"policy"`
	Encoder       string `yaml:"encoder"`
	EmbeddingDim  int    `yaml:"embedding_dim"`
	HiddenDims    []int  `yaml:"hidden_dims"` // scorer hidden widths; empty = profile default
	EncodeLayers  int    `yaml:"n_encode_layers"`
	Heads         int    `yaml:"n_heads"`
	Normalization string `yaml:"normalization"`
}

// DecodeConfig controls action selection.
type DecodeConfig struct {
	Type        string  `yaml:"decode_type"`
	Temperature float64 `yaml:"temperature"`
	BatchSize   int     `yaml:"batch_size"`
}

// TraceOptions controls decision tracing.
type TraceOptions struct {
	Level           string `yaml:"level"`
	CounterfactualK int    `yaml:"counterfactual_k"`
}

// DefaultOptions returns the configuration used when no file is given.
func DefaultOptions() Options {
	return Options{
		Seed: 1234,
		Graph: dataset.GenerateConfig{
			Problem:    dataset.ProblemEOBM,
			USize:      10,
			VSize:      30,
			NumSamples: 1000,
			EdgeProb:   0.2,
			WeightLow:  0,
			WeightHigh: 1,
		},
		Model: ModelConfig{
			Policy:        ProfileGNNHist,
			Encoder:       "mpnn",
			EmbeddingDim:  16,
			EncodeLayers:  1,
			Heads:         8,
			Normalization: "none",
		},
		Decode: DecodeConfig{
			Type:        string(DecodeGreedy),
			Temperature: 1,
			BatchSize:   100,
		},
		Trace: TraceOptions{Level: string(trace.TraceLevelNone)},
	}
}

// LoadOptions reads a YAML file over DefaultOptions. Unknown keys are errors.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("reading options: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&opts); err != nil {
		return opts, fmt.Errorf("parsing options: %w", err)
	}
	return opts, nil
}

// Validate checks that all names and parameter ranges are valid.
func (o Options) Validate() error {
	if err := o.Graph.Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	m := o.Model
	if !IsValidProfile(m.Policy) {
		return fmt.Errorf("unknown policy %q; valid: %v", m.Policy, ValidProfileNames())
	}
	if profileUsesEncoder(m.Policy) && !encoder.IsValidEncoder(m.Encoder) {
		return fmt.Errorf("unknown encoder %q; valid: %v", m.Encoder, encoder.ValidEncoderNames())
	}
	if m.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding_dim must be positive, got %d", m.EmbeddingDim)
	}
	for _, h := range m.HiddenDims {
		if h <= 0 {
			return fmt.Errorf("hidden_dims must be positive, got %v", m.HiddenDims)
		}
	}
	if m.EncodeLayers < 0 {
		return fmt.Errorf("n_encode_layers must be non-negative, got %d", m.EncodeLayers)
	}
	if m.Encoder == "attention" && (m.Heads <= 0 || m.EmbeddingDim%m.Heads != 0) {
		return fmt.Errorf("embedding_dim %d must be divisible by n_heads %d", m.EmbeddingDim, m.Heads)
	}
	if !encoder.IsValidNormalization(m.Normalization) {
		return fmt.Errorf("unknown normalization %q", m.Normalization)
	}
	if !IsValidDecodeType(o.Decode.Type) {
		return fmt.Errorf("unknown decode_type %q", o.Decode.Type)
	}
	if t := o.Decode.Temperature; t <= 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("temperature must be a finite positive number, got %v", t)
	}
	if o.Decode.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", o.Decode.BatchSize)
	}
	if !trace.IsValidTraceLevel(o.Trace.Level) {
		return fmt.Errorf("unknown trace level %q", o.Trace.Level)
	}
	if o.Trace.CounterfactualK < 0 {
		return fmt.Errorf("counterfactual_k must be non-negative, got %d", o.Trace.CounterfactualK)
	}
	return nil
}
