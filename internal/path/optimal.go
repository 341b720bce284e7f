package path

import (
	"math"
	"math/bits"
	"sort"

	"github.com/pkg/errors"
)

// optimal finds the provably minimal-flops contraction order by dynamic
// programming over input subsets. Exponential in the input count, so it is
// guarded by optimalLimit.
func optimal(hg *Hypergraph) (Path, Cost, error) {
	n := len(hg.Inputs)
	if n > optimalLimit {
		return Path{}, Cost{}, errors.Errorf("path: optimal search limited to %d tensors, got %d", optimalLimit, n)
	}

	// Index universe, sorted for determinism.
	seen := make(map[string]bool)
	var names []string
	for _, inds := range hg.Inputs {
		for _, name := range inds {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	m := len(names)
	indID := make(map[string]int, m)
	dims := make([]float64, m)
	keep := make([]bool, m)
	touching := make([]uint32, m) // bitmask of inputs referencing each index
	for i, name := range names {
		indID[name] = i
		dims[i] = float64(hg.Dims[name])
		keep[i] = hg.Keep[name]
	}
	inputInds := make([][]int, n)
	for t, inds := range hg.Inputs {
		for _, name := range inds {
			i := indID[name]
			touching[i] |= 1 << uint(t)
			inputInds[t] = append(inputInds[t], i)
		}
	}

	full := uint32(1<<uint(n)) - 1

	// ext(S): indices surviving the contraction of subset S — those
	// referenced by S that are also referenced outside S or must be kept.
	ext := func(S uint32) []int {
		var out []int
		for i := 0; i < m; i++ {
			if touching[i]&S == 0 {
				continue
			}
			if touching[i]&^S != 0 || keep[i] {
				out = append(out, i)
			}
		}
		return out
	}
	type entry struct {
		cost  float64
		split uint32 // left part of the best partition; 0 for singletons
	}
	dp := make([]entry, full+1)
	extOf := make([][]int, full+1)
	for S := uint32(1); S <= full; S++ {
		extOf[S] = ext(S)
		dp[S] = entry{cost: math.Inf(1)}
		if bits.OnesCount32(S) == 1 {
			dp[S].cost = 0
		}
	}

	// Combine flops: product over the union of the two operands' surviving
	// indices (summed indices are present in both operands, so counted once).
	combine := func(L, R uint32) float64 {
		union := make(map[int]bool, len(extOf[L])+len(extOf[R]))
		for _, i := range extOf[L] {
			union[i] = true
		}
		for _, i := range extOf[R] {
			union[i] = true
		}
		out := 1.0
		for i := range union {
			out *= dims[i]
		}
		return out
	}

	for S := uint32(1); S <= full; S++ {
		if bits.OnesCount32(S) < 2 {
			continue
		}
		low := S & (-S)
		// Enumerate partitions with the lowest input pinned to the left,
		// so each split is visited once.
		for L := (S - 1) & S; L > 0; L = (L - 1) & S {
			if L&low == 0 {
				continue
			}
			R := S &^ L
			c := dp[L].cost + dp[R].cost + combine(L, R)
			if c < dp[S].cost {
				dp[S] = entry{cost: c, split: L}
			}
		}
	}

	// Reconstruct the partition tree into SSA steps.
	var p Path
	next := n
	var emit func(S uint32) int
	emit = func(S uint32) int {
		if bits.OnesCount32(S) == 1 {
			return bits.TrailingZeros32(S)
		}
		l := emit(dp[S].split)
		r := emit(S &^ dp[S].split)
		p.Steps = append(p.Steps, Step{L: l, R: r})
		id := next
		next++
		return id
	}
	emit(full)

	cost, err := Evaluate(hg, p)
	if err != nil {
		return Path{}, Cost{}, err
	}
	return p, cost, nil
}
