package dataset

import "math"

// GreedyValue is the value reached by the online heuristic that matches each
// arrival to its heaviest still-free neighbour (lowest index on ties).
func GreedyValue(weights []float64, usize, vsize int) float64 {
	matched := make([]bool, usize)
	total := 0.0
	for v := 0; v < vsize; v++ {
		best, bestW := -1, 0.0
		for u := 0; u < usize; u++ {
			if w := weights[v*usize+u]; !matched[u] && w > bestW {
				best, bestW = u, w
			}
		}
		if best >= 0 {
			matched[best] = true
			total += bestW
		}
	}
	return total
}

// OfflineOptimum returns the maximum-weight matching value of the instance
// with full knowledge of all arrivals. Weights are non-negative so the
// problem is solved as an assignment on the zero-padded square matrix
// (Hungarian method with potentials, O(n³)).
func OfflineOptimum(weights []float64, usize, vsize int) float64 {
	n := max(usize, vsize)
	cost := func(row, col int) float64 {
		if row < vsize && col < usize {
			return -weights[row*usize+col]
		}
		return 0
	}

	inf := math.Inf(1)
	pu := make([]float64, n+1)
	pv := make([]float64, n+1)
	match := make([]int, n+1) // match[col] = row (1-based), 0 = free
	way := make([]int, n+1)
	for row := 1; row <= n; row++ {
		match[0] = row
		col0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[col0] = true
			r0, delta, col1 := match[col0], inf, 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				if cur := cost(r0-1, j-1) - pu[r0] - pv[j]; cur < minv[j] {
					minv[j] = cur
					way[j] = col0
				}
				if minv[j] < delta {
					delta = minv[j]
					col1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					pu[match[j]] += delta
					pv[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			col0 = col1
			if match[col0] == 0 {
				break
			}
		}
		for col0 != 0 {
			col1 := way[col0]
			match[col0] = match[col1]
			col0 = col1
		}
	}

	total := 0.0
	for col := 1; col <= n; col++ {
		if row := match[col]; row != 0 {
			total -= cost(row-1, col-1)
		}
	}
	return total
}
