// Package graph holds the batch-flattened bipartite graphs that arrivals are
// revealed from, and the pure subgraph projection used before every encoder call.
// This package has no dependencies on obm/; it stores plain index data.
package graph

import "fmt"

// EdgeIndex stores directed edges as parallel source/target slices.
type EdgeIndex struct {
	Src []int
	Dst []int
}

// Len returns the number of edges.
func (e EdgeIndex) Len() int { return len(e.Src) }

// Batch is the static ground truth of a batch of bipartite instances laid out
// node-major: instance b owns global nodes [b*NodesPerGraph, (b+1)*NodesPerGraph).
//
// Within an instance, local node 0 is the skip sentinel, nodes 1..USize are the
// fixed (left) side and nodes USize+1..USize+VSize are the arrivals in order.
// Every undirected edge is stored once in each direction.
type Batch struct {
	Size          int // number of instances
	USize         int
	VSize         int
	NodesPerGraph int
	Edges         EdgeIndex
	Weight        []float64
}

// SkipNode is the local index of the skip sentinel.
const SkipNode = 0

// LeftNode returns the local index of fixed node u (0-based).
func (g *Batch) LeftNode(u int) int { return 1 + u }

// ArrivalNode returns the local index of arrival v (0-based).
func (g *Batch) ArrivalNode(v int) int { return 1 + g.USize + v }

// Global returns the global node index of a local node in instance b.
func (g *Batch) Global(b, local int) int { return b*g.NodesPerGraph + local }

// NewBatch builds the flattened graph from per-instance weight rows.
// weights[b][v*usize+u] is the weight of the edge between arrival v and fixed
// node u; zero means no edge.
func NewBatch(usize, vsize int, weights [][]float64) (*Batch, error) {
	if usize <= 0 || vsize <= 0 {
		return nil, fmt.Errorf("graph sizes must be positive, got u=%d v=%d", usize, vsize)
	}
	g := &Batch{
		Size:          len(weights),
		USize:         usize,
		VSize:         vsize,
		NodesPerGraph: usize + vsize + 1,
	}
	for b, w := range weights {
		if len(w) != usize*vsize {
			return nil, fmt.Errorf("instance %d: expected %d weights, got %d", b, usize*vsize, len(w))
		}
		for v := 0; v < vsize; v++ {
			for u := 0; u < usize; u++ {
				wt := w[v*usize+u]
				if wt == 0 {
					continue
				}
				left := g.Global(b, g.LeftNode(u))
				arrival := g.Global(b, g.ArrivalNode(v))
				g.Edges.Src = append(g.Edges.Src, left, arrival)
				g.Edges.Dst = append(g.Edges.Dst, arrival, left)
				g.Weight = append(g.Weight, wt, wt)
			}
		}
	}
	return g, nil
}

// Subgraph extracts the edges whose endpoints are both in subset. With relabel
// set, node ids in the result are positions in subset (first occurrence wins);
// otherwise the original ids are kept. Inputs are never modified.
func Subgraph(subset []int, edges EdgeIndex, weight []float64, relabel bool) (EdgeIndex, []float64) {
	pos := make(map[int]int, len(subset))
	for i, n := range subset {
		if _, dup := pos[n]; !dup {
			pos[n] = i
		}
	}
	var out EdgeIndex
	var outW []float64
	for e := range edges.Src {
		s, okS := pos[edges.Src[e]]
		d, okD := pos[edges.Dst[e]]
		if !okS || !okD {
			continue
		}
		if relabel {
			out.Src = append(out.Src, s)
			out.Dst = append(out.Dst, d)
		} else {
			out.Src = append(out.Src, edges.Src[e])
			out.Dst = append(out.Dst, edges.Dst[e])
		}
		outW = append(outW, weight[e])
	}
	return out, outW
}
