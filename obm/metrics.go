package obm

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/onlinematch/obmrl/obm/dataset"
)

// EvalMetrics aggregates per-instance results of evaluating a policy on a
// dataset.
type EvalMetrics struct {
	Instances int

	Values        []float64 // matched weight per instance
	OptimalRatios []float64 // value / offline optimum, instances with optimum > 0
	GreedyRatios  []float64 // value / greedy value, instances with greedy > 0
	LogLikelihood []float64

	EntropySum float64 // sum of per-batch entropies
	Batches    int
}

// Evaluate runs the policy over every batch of d and collects metrics.
func Evaluate(p *Policy, d *dataset.Dataset, batchSize int) (*EvalMetrics, error) {
	m := &EvalMetrics{}
	for i, batch := range d.Batches(batchSize) {
		res, err := p.Forward(batch, false)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		m.Add(batch, res)
	}
	return m, nil
}

// Add folds one forward result into the metrics.
func (m *EvalMetrics) Add(batch *dataset.Batch, res *ForwardResult) {
	for b, inst := range batch.Instances {
		value := -res.Cost[b]
		m.Values = append(m.Values, value)
		m.LogLikelihood = append(m.LogLikelihood, res.LogLikelihood[b])
		if inst.Optimal > 0 {
			m.OptimalRatios = append(m.OptimalRatios, value/inst.Optimal)
		}
		if inst.Greedy > 0 {
			m.GreedyRatios = append(m.GreedyRatios, value/inst.Greedy)
		}
	}
	m.Instances += batch.Size()
	m.EntropySum += res.Entropy
	m.Batches++
}

// MeanValue returns the mean and standard deviation of matched weight.
func (m *EvalMetrics) MeanValue() (mean, std float64) {
	if len(m.Values) < 2 {
		return stat.Mean(m.Values, nil), 0
	}
	return stat.MeanStdDev(m.Values, nil)
}

// MeanEntropy returns the average per-batch entropy.
func (m *EvalMetrics) MeanEntropy() float64 {
	if m.Batches == 0 {
		return 0
	}
	return m.EntropySum / float64(m.Batches)
}

// Print writes a summary of the evaluation.
func (m *EvalMetrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Evaluation Metrics ===")
	fmt.Fprintf(w, "Instances            : %d\n", m.Instances)
	if m.Instances == 0 {
		return
	}
	mean, std := m.MeanValue()
	fmt.Fprintf(w, "Average Value        : %.4f (std %.4f)\n", mean, std)
	if len(m.OptimalRatios) > 0 {
		fmt.Fprintf(w, "Optimality Ratio     : %.4f (min %.4f)\n", stat.Mean(m.OptimalRatios, nil), floats.Min(m.OptimalRatios))
	}
	if len(m.GreedyRatios) > 0 {
		fmt.Fprintf(w, "Ratio to Greedy      : %.4f\n", stat.Mean(m.GreedyRatios, nil))
	}
	fmt.Fprintf(w, "Average Log-Lik.     : %.4f\n", stat.Mean(m.LogLikelihood, nil))
	fmt.Fprintf(w, "Average Entropy      : %.4f\n", m.MeanEntropy())
}

