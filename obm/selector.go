package obm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DecodeType selects how an action is drawn from the slot distribution.
type DecodeType string

const (
	// DecodeGreedy takes the most likely slot (lowest index on ties).
	DecodeGreedy DecodeType = "greedy"
	// DecodeSampling draws one slot from the categorical distribution.
	DecodeSampling DecodeType = "sampling"
)

// validDecodeTypes maps accepted decode type strings.
var validDecodeTypes = map[DecodeType]bool{
	DecodeGreedy:   true,
	DecodeSampling: true,
}

// IsValidDecodeType returns true if name is a recognized decode type.
func IsValidDecodeType(name string) bool { return validDecodeTypes[DecodeType(name)] }

const (
	// MaskedScore replaces the score of every infeasible slot.
	MaskedScore = -1e6
	// LogProbFloor is the exclusive lower bound on a selected log-probability.
	// Anything at or below it means an infeasible slot was chosen.
	LogProbFloor = -10000.0
)

var (
	ErrNonFiniteScore    = errors.New("non-finite score")
	ErrLogProbFloor      = errors.New("selected log-probability at or below floor")
	ErrUnknownDecodeType = errors.New("unknown decode type")
)

// CheckFinite returns ErrNonFiniteScore for the first NaN or ±Inf entry.
func CheckFinite(scores mat.Matrix) error {
	r, c := scores.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := scores.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("row %d slot %d = %v: %w", i, j, v, ErrNonFiniteScore)
			}
		}
	}
	return nil
}

// ApplyMask returns a copy of scores with every masked (true) entry set to
// MaskedScore. scores is not modified.
func ApplyMask(scores mat.Matrix, mask [][]bool) *mat.Dense {
	out := mat.DenseCopyOf(scores)
	for i, row := range mask {
		for j, masked := range row {
			if masked {
				out.Set(i, j, MaskedScore)
			}
		}
	}
	return out
}

// LogSoftmax normalizes every row of x into log-probabilities.
func LogSoftmax(x mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(x)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		floats.AddConst(-floats.LogSumExp(row), row)
	}
	return out
}

// Pick chooses a slot from one row of log-probabilities.
func Pick(logp []float64, mode DecodeType, rng *rand.Rand) (int, error) {
	switch mode {
	case DecodeGreedy:
		return floats.MaxIdx(logp), nil
	case DecodeSampling:
		u := rng.Float64()
		var cum float64
		last := -1
		for j, lp := range logp {
			p := math.Exp(lp)
			if p <= 0 {
				continue
			}
			last = j
			cum += p
			if u < cum {
				return j, nil
			}
		}
		// Rounding left cum just below u; fall back to the last reachable slot.
		if last < 0 {
			return 0, fmt.Errorf("sampling from a row with no probability mass: %w", ErrNonFiniteScore)
		}
		return last, nil
	default:
		return 0, fmt.Errorf("%q: %w", mode, ErrUnknownDecodeType)
	}
}

// Selection is the outcome of one selector pass over a batch.
type Selection struct {
	Actions  []int
	LogProbs *mat.Dense // batch × slots, normalized after masking
	Masked   *mat.Dense // batch × slots, scores after temperature and masking
}

// Selector runs SCORED → MASKED → NORMALIZED → SELECTED for one step.
type Selector struct {
	Mode        DecodeType
	Temperature float64
	rng         *rand.Rand
}

// NewSelector returns a selector drawing samples from rng.
func NewSelector(mode DecodeType, temperature float64, rng *rand.Rand) (*Selector, error) {
	if !validDecodeTypes[mode] {
		return nil, fmt.Errorf("%q: %w", mode, ErrUnknownDecodeType)
	}
	if temperature <= 0 || math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		return nil, fmt.Errorf("temperature must be a finite positive number, got %v", temperature)
	}
	return &Selector{Mode: mode, Temperature: temperature, rng: rng}, nil
}

// Select masks, normalizes and picks one slot per row.
func (s *Selector) Select(scores *mat.Dense, mask [][]bool) (*Selection, error) {
	r, c := scores.Dims()
	if len(mask) != r {
		return nil, fmt.Errorf("mask has %d rows for %d score rows", len(mask), r)
	}
	for i, m := range mask {
		if len(m) != c {
			return nil, fmt.Errorf("mask row %d has %d slots, want %d", i, len(m), c)
		}
	}
	scaled := scores
	if s.Temperature != 1 {
		scaled = mat.NewDense(r, c, nil)
		scaled.Scale(1/s.Temperature, scores)
	}
	// Checked after scaling: a tiny temperature can overflow finite scores.
	if err := CheckFinite(scaled); err != nil {
		return nil, err
	}
	masked := ApplyMask(scaled, mask)
	logp := LogSoftmax(masked)

	sel := &Selection{Actions: make([]int, r), LogProbs: logp, Masked: masked}
	for i := 0; i < r; i++ {
		a, err := Pick(logp.RawRowView(i), s.Mode, s.rng)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if lp := logp.At(i, a); lp <= LogProbFloor {
			return nil, fmt.Errorf("row %d slot %d log-prob %v: %w", i, a, lp, ErrLogProbFloor)
		}
		sel.Actions[i] = a
	}
	return sel, nil
}
