package obm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/onlinematch/obmrl/obm/graph"
)

var (
	// ErrEpisodeFinished is returned by Update once every arrival was decided.
	ErrEpisodeFinished = errors.New("episode already finished")
	// ErrInfeasibleAction is returned by Update for a masked selection.
	ErrInfeasibleAction = errors.New("infeasible action")
)

// State is the batched Episode State of one forward pass. Matrices have one
// row per instance and USize+1 columns; column 0 is the skip slot and column
// u+1 is fixed node u. Update is the only mutator; everything else reads.
type State struct {
	BatchSize int
	USize     int
	VSize     int

	// I is the number of arrivals already decided (0 ≤ I ≤ VSize). While the
	// episode runs, arrival I is the one on offer.
	I int

	Adj          *mat.Dense // current arrival's weights; column 0 is always 0
	MatchedNodes *mat.Dense // 0/1, never reset within an episode

	// Moments over the I decided arrivals.
	HistSum   *mat.Dense
	HistSumSq *mat.Dense
	HistDeg   *mat.Dense

	Size     []float64 // cumulative matched weight
	SumSolSq []float64
	NumSkip  []float64
	MaxSol   []float64
	MinSol   []float64

	Graphs *graph.Batch

	weights [][]float64
}

func newState(weights [][]float64, usize, vsize int) (*State, error) {
	g, err := graph.NewBatch(usize, vsize, weights)
	if err != nil {
		return nil, err
	}
	b, c := len(weights), usize+1
	s := &State{
		BatchSize:    b,
		USize:        usize,
		VSize:        vsize,
		Adj:          mat.NewDense(b, c, nil),
		MatchedNodes: mat.NewDense(b, c, nil),
		HistSum:      mat.NewDense(b, c, nil),
		HistSumSq:    mat.NewDense(b, c, nil),
		HistDeg:      mat.NewDense(b, c, nil),
		Size:         make([]float64, b),
		SumSolSq:     make([]float64, b),
		NumSkip:      make([]float64, b),
		MaxSol:       make([]float64, b),
		MinSol:       make([]float64, b),
		Graphs:       g,
		weights:      weights,
	}
	s.reveal()
	return s, nil
}

// Step returns the 1-based index of the current decoding step.
func (s *State) Step() int { return s.I + 1 }

// AllFinished reports whether every row has decided all arrivals.
func (s *State) AllFinished() bool { return s.I >= s.VSize }

// reveal loads arrival I's weights into Adj (all zeros once finished).
func (s *State) reveal() {
	for b := 0; b < s.BatchSize; b++ {
		row := s.Adj.RawRowView(b)
		row[0] = 0
		for u := 0; u < s.USize; u++ {
			if s.AllFinished() {
				row[u+1] = 0
			} else {
				row[u+1] = s.weights[b][s.I*s.USize+u]
			}
		}
	}
}

// GetMask returns, per row, which slots are infeasible (true). The skip slot
// is always feasible; a fixed node is feasible when it is still free and
// adjacent to the current arrival. Finished rows offer only skip.
func (s *State) GetMask() [][]bool {
	mask := make([][]bool, s.BatchSize)
	finished := s.AllFinished()
	for b := range mask {
		mask[b] = make([]bool, s.USize+1)
		adj := s.Adj.RawRowView(b)
		matched := s.MatchedNodes.RawRowView(b)
		for c := 1; c <= s.USize; c++ {
			mask[b][c] = finished || matched[c] != 0 || adj[c] == 0
		}
	}
	return mask
}

// Update applies one selected slot per row, folds the decided arrival into
// the running moments and solution statistics, and reveals the next arrival.
func (s *State) Update(selected []int) error {
	if s.AllFinished() {
		return ErrEpisodeFinished
	}
	if len(selected) != s.BatchSize {
		return fmt.Errorf("update: %d selections for batch of %d", len(selected), s.BatchSize)
	}
	mask := s.GetMask()
	for b, a := range selected {
		if a < 0 || a > s.USize {
			return fmt.Errorf("update: row %d selected slot %d outside [0, %d]", b, a, s.USize)
		}
		if mask[b][a] {
			return fmt.Errorf("update: row %d slot %d at step %d: %w", b, a, s.Step(), ErrInfeasibleAction)
		}
	}

	for b, a := range selected {
		adj := s.Adj.RawRowView(b)
		hSum, hSq, hDeg := s.HistSum.RawRowView(b), s.HistSumSq.RawRowView(b), s.HistDeg.RawRowView(b)
		for c := 1; c <= s.USize; c++ {
			w := adj[c]
			hSum[c] += w
			hSq[c] += w * w
			if w != 0 {
				hDeg[c]++
			}
		}

		if a == 0 {
			s.NumSkip[b]++
			continue
		}
		w := adj[a]
		first := float64(s.I)-s.NumSkip[b] == 0
		s.MatchedNodes.Set(b, a, 1)
		s.Size[b] += w
		s.SumSolSq[b] += w * w
		if first {
			s.MaxSol[b], s.MinSol[b] = w, w
		} else {
			s.MaxSol[b] = math.Max(s.MaxSol[b], w)
			s.MinSol[b] = math.Min(s.MinSol[b], w)
		}
	}
	s.I++
	s.reveal()
	return nil
}
