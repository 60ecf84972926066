package obm

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/onlinematch/obmrl/obm/nn"
)

// FeatureAssembler turns the visible part of an Episode State into one
// feature row per (batch row, candidate slot). Row b*(USize+1)+c of the result
// describes slot c of instance b. past holds the slots selected at every
// earlier step, past[s][b] for step s+1.
type FeatureAssembler interface {
	Name() string
	Dim() int
	Assemble(s *State, past [][]int) (*mat.Dense, error)
	nn.Module
}

// Feature profile names.
const (
	ProfileFFHist        = "ff-hist"
	ProfileGNNHist       = "gnn-hist"
	ProfileGNNHistPruned = "gnn-hist-pruned"
)

// validProfiles maps profile names to whether they run a graph encoder.
var validProfiles = map[string]bool{
	ProfileFFHist:        false,
	ProfileGNNHist:       true,
	ProfileGNNHistPruned: true,
}

// IsValidProfile returns true if name is a recognized feature profile.
func IsValidProfile(name string) bool {
	_, ok := validProfiles[name]
	return ok
}

// ValidProfileNames returns sorted valid profile names.
func ValidProfileNames() []string {
	names := make([]string, 0, len(validProfiles))
	for n := range validProfiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func profileUsesEncoder(name string) bool { return validProfiles[name] }

// defaultHiddenDims returns the scorer hidden widths used when the model
// config leaves hidden_dims empty.
func defaultHiddenDims(profile string) []int {
	if profile == ProfileFFHist {
		return []int{100, 100, 100}
	}
	return []int{200}
}

// historySentinel replaces the history moments of the skip slot.
const historySentinel = -1.0

// Number of statistic columns per candidate row.
const (
	statDim          = 13
	statDimNoMatched = statDim - 1
)

// NewFeatureAssembler builds the assembler for the model's profile. Learned
// parameters are drawn from rng.
func NewFeatureAssembler(m ModelConfig, usize int, rng *rand.Rand) (FeatureAssembler, error) {
	switch m.Policy {
	case ProfileFFHist:
		return ffHist{}, nil
	case ProfileGNNHist:
		return newGNNHist(m, false, rng)
	case ProfileGNNHistPruned:
		return newGNNHist(m, true, rng)
	default:
		return nil, fmt.Errorf("unknown policy %q; valid: %s", m.Policy, strings.Join(ValidProfileNames(), ", "))
	}
}

// === Shared statistics ===

// rowStats holds the per-instance scalars shared by every candidate row.
type rowStats struct {
	meanW, idx, sizeU, meanSol, varSol, skipRate, maxSol, minSol float64
}

func computeRowStats(s *State, b int) rowStats {
	t := float64(s.Step())
	adj := s.Adj.RawRowView(b)
	var sum float64
	for _, w := range adj {
		sum += w
	}
	solCount := t - s.NumSkip[b]
	return rowStats{
		meanW:    sum / float64(len(adj)),
		idx:      t / float64(s.VSize),
		sizeU:    s.Size[b] / float64(s.USize),
		meanSol:  s.Size[b] / solCount,
		varSol:   (s.SumSolSq[b] - s.Size[b]*s.Size[b]/solCount) / solCount,
		skipRate: s.NumSkip[b] / t,
		maxSol:   s.MaxSol[b],
		minSol:   s.MinSol[b],
	}
}

// appendStats appends the history statistics of slot c of row b to dst.
func appendStats(dst []float64, s *State, b, c int, rs rowStats, withMatched bool) []float64 {
	t := float64(s.Step())
	hMean, hVar, hDeg := historySentinel, historySentinel, historySentinel
	if c != 0 {
		sum := s.HistSum.At(b, c)
		hMean = sum / t
		hVar = (s.HistSumSq.At(b, c) - sum*sum/t) / t
		hDeg = s.HistDeg.At(b, c) / t
	}
	dst = append(dst, s.Adj.At(b, c))
	if withMatched {
		dst = append(dst, s.MatchedNodes.At(b, c))
	}
	return append(dst,
		rs.meanW, hMean, hVar, hDeg, rs.idx,
		rs.sizeU, rs.meanSol, rs.varSol, rs.skipRate, rs.maxSol, rs.minSol,
	)
}

// === ff-hist ===

// ffHist scores candidates from hand-built history statistics only.
type ffHist struct{}

func (ffHist) Name() string { return ProfileFFHist }

func (ffHist) Dim() int { return statDim }

func (ffHist) CollectParams(string, nn.Params) {}

func (ffHist) Assemble(s *State, _ [][]int) (*mat.Dense, error) {
	c := s.USize + 1
	out := mat.NewDense(s.BatchSize*c, statDim, nil)
	row := make([]float64, 0, statDim)
	for b := 0; b < s.BatchSize; b++ {
		rs := computeRowStats(s, b)
		for slot := 0; slot < c; slot++ {
			row = appendStats(row[:0], s, b, slot, rs, true)
			out.SetRow(b*c+slot, row)
		}
	}
	return out, nil
}
