package scoring

import (
	"math"
	"sort"
)

const bands = 5

// QuintileScores assigns each value a 1-5 band relative to the population.
// With reverse set, the smallest values get 5.
//
// Ties are first broken by position, so equal values may land in different
// bands. Populations with fewer than five distinct values are binned by rank
// into as many bands as there are distinct values; reversed scores then run
// 5, 4, ... and forward scores 1, 2, .... It never fails, whatever the size
// of the population.
func QuintileScores(values []float64, reverse bool) []int {
	n := len(values)
	out := make([]int, n)
	if n == 0 {
		return out
	}

	ranks := firstRanks(values)
	distinct := countDistinct(values)

	if distinct < bands {
		for i, r := range ranks {
			b := rankBin(r, n, distinct)
			if reverse {
				out[i] = bands - b
			} else {
				out[i] = b + 1
			}
		}
		return out
	}

	if !reverse {
		// Ranks are all distinct, so quantile cuts over them never collapse.
		for i, r := range ranks {
			out[i] = rankBin(r, n, bands) + 1
		}
		return out
	}

	edges := quantileEdges(values)
	if hasDuplicates(edges) {
		for i, r := range ranks {
			out[i] = bands - rankBin(r, n, bands)
		}
		return out
	}
	for i, v := range values {
		out[i] = bands - valueBin(v, edges)
	}
	return out
}

// firstRanks returns 1-based ranks with ties ordered by position.
func firstRanks(values []float64) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })
	ranks := make([]int, len(values))
	for r, i := range idx {
		ranks[i] = r + 1
	}
	return ranks
}

func countDistinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// rankBin places rank r of n into one of k equal-width bins spanning
// [1, n], right-inclusive with the lowest edge included. It returns 0..k-1.
func rankBin(r, n, k int) int {
	if n <= 1 || k <= 1 {
		return 0
	}
	// Smallest i with r <= 1 + (i+1)(n-1)/k.
	num := (r - 1) * k
	b := (num+n-2)/(n-1) - 1
	return max(0, min(b, k-1))
}

// quantileEdges returns the 0, 20, 40, 60, 80 and 100th percentiles using
// linear interpolation between closest ranks.
func quantileEdges(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)

	edges := make([]float64, bands+1)
	for j := 0; j <= bands; j++ {
		pos := float64(n-1) * float64(j) / bands
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		frac := pos - float64(lo)
		edges[j] = sorted[lo] + (sorted[hi]-sorted[lo])*frac
	}
	return edges
}

func hasDuplicates(edges []float64) bool {
	for i := 1; i < len(edges); i++ {
		if edges[i] == edges[i-1] {
			return true
		}
	}
	return false
}

// valueBin places v into the right-inclusive bins defined by edges, the
// first bin also including its lower edge. It returns 0..len(edges)-2.
func valueBin(v float64, edges []float64) int {
	last := len(edges) - 2
	for j := 0; j < last; j++ {
		if v <= edges[j+1] {
			return j
		}
	}
	return last
}
