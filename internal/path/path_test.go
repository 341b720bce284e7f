package path

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainGraph is the matrix chain A(2x64) B(64x64) C(64x2): contracting the
// big pair first is much worse than either end-in order.
func chainGraph() *Hypergraph {
	return &Hypergraph{
		Inputs: [][]string{{"a", "b"}, {"b", "c"}, {"c", "d"}},
		Dims:   map[string]int{"a": 2, "b": 64, "c": 64, "d": 2},
		Keep:   map[string]bool{"a": true, "d": true},
	}
}

func checkValid(t *testing.T, n int, p Path) {
	t.Helper()
	require.Len(t, p.Steps, n-1)
	live := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		live[i] = true
	}
	for k, s := range p.Steps {
		require.True(t, live[s.L], "step %d reuses dead node %d", k, s.L)
		require.True(t, live[s.R], "step %d reuses dead node %d", k, s.R)
		live[s.L], live[s.R] = false, false
		live[n+k] = true
	}
}

func TestGreedyDeterministicOnTies(t *testing.T) {
	hg := chainGraph()
	p, cost, err := Find(hg, Options{Strategy: "greedy"})
	require.NoError(t, err)
	checkValid(t, 3, p)
	// Both shared-index pairs tie on score and result size, so the id
	// order decides: (0, 1) first, then the survivors.
	assert.Equal(t, []Step{{L: 0, R: 1}, {L: 2, R: 3}}, p.Steps)
	assert.InDelta(t, 2*64*64+2*64*2, cost.Flops, 1e-9)
	// Width is dominated by the 64x64 input.
	assert.InDelta(t, math.Log2(64*64), cost.Width, 1e-9)
}

func TestOptimalBeatsGreedyOnSkewedChain(t *testing.T) {
	// The memory-removed heuristic prefers contracting the pair touching
	// the large index d first, which costs more flops overall.
	hg := &Hypergraph{
		Inputs: [][]string{{"a", "b"}, {"b", "c"}, {"c", "d"}},
		Dims:   map[string]int{"a": 2, "b": 4, "c": 8, "d": 16},
		Keep:   map[string]bool{"a": true, "d": true},
	}
	_, gc, err := Find(hg, Options{Strategy: "greedy"})
	require.NoError(t, err)
	po, oc, err := Find(hg, Options{Strategy: "optimal"})
	require.NoError(t, err)
	checkValid(t, 3, po)
	assert.InDelta(t, 2*4*8+2*8*16, oc.Flops, 1e-9)
	assert.Less(t, oc.Flops, gc.Flops)
}

func TestOptimalMatchesEvaluate(t *testing.T) {
	hg := chainGraph()
	p, cost, err := Find(hg, Options{Strategy: "optimal"})
	require.NoError(t, err)
	replayed, err := Evaluate(hg, p)
	require.NoError(t, err)
	assert.Equal(t, cost, replayed)
}

func TestRandomGreedyDeterministicPerSeed(t *testing.T) {
	hg := &Hypergraph{
		Inputs: [][]string{
			{"a", "b"}, {"b", "c"}, {"c", "d"}, {"d", "a"},
			{"a", "e"}, {"e", "f"}, {"f", "c"},
		},
		Dims: map[string]int{"a": 4, "b": 5, "c": 3, "d": 6, "e": 2, "f": 7},
	}
	p1, c1, err := Find(hg, Options{Strategy: "random-greedy", Trials: 16, Seed: 42, Temperature: 1})
	require.NoError(t, err)
	p2, c2, err := Find(hg, Options{Strategy: "random-greedy", Trials: 16, Seed: 42, Temperature: 1})
	require.NoError(t, err)
	checkValid(t, 7, p1)
	assert.Equal(t, p1, p2)
	assert.Equal(t, c1, c2)
}

func TestRandomGreedyNoWorseThanPlainGreedy(t *testing.T) {
	hg := &Hypergraph{
		Inputs: [][]string{
			{"a", "b", "x"}, {"b", "c"}, {"c", "d", "x"}, {"d", "e"}, {"e", "a"},
		},
		Dims: map[string]int{"a": 4, "b": 8, "c": 2, "d": 8, "e": 4, "x": 3},
	}
	_, gc, err := Find(hg, Options{Strategy: "greedy"})
	require.NoError(t, err)
	_, rc, err := Find(hg, Options{Strategy: "random-greedy", Trials: 32, Seed: 1, Temperature: 1})
	require.NoError(t, err)
	assert.False(t, gc.Better(rc))
}

func TestFindSingleInput(t *testing.T) {
	hg := &Hypergraph{Inputs: [][]string{{"a"}}, Dims: map[string]int{"a": 3}}
	p, _, err := Find(hg, Options{})
	require.NoError(t, err)
	assert.Empty(t, p.Steps)
}

func TestFindRejectsUnknownStrategy(t *testing.T) {
	_, _, err := Find(chainGraph(), Options{Strategy: "annealing"})
	assert.Error(t, err)
}

func TestDisconnectedOuterProduct(t *testing.T) {
	hg := &Hypergraph{
		Inputs: [][]string{{"a"}, {"b"}},
		Dims:   map[string]int{"a": 2, "b": 3},
		Keep:   map[string]bool{"a": true, "b": true},
	}
	p, cost, err := Find(hg, Options{Strategy: "greedy"})
	require.NoError(t, err)
	checkValid(t, 2, p)
	assert.InDelta(t, math.Log2(6), cost.Width, 1e-9)
}

func TestHyperindexSurvivesUntilLastUse(t *testing.T) {
	// x joins three tensors; after one pairwise step it must remain on the
	// intermediate, so width accounts for it.
	hg := &Hypergraph{
		Inputs: [][]string{{"x", "a"}, {"x", "b"}, {"x", "c"}},
		Dims:   map[string]int{"x": 5, "a": 2, "b": 3, "c": 4},
		Keep:   map[string]bool{"a": true, "b": true, "c": true},
	}
	p, cost, err := Find(hg, Options{Strategy: "optimal"})
	require.NoError(t, err)
	checkValid(t, 3, p)
	// Final result holds a, b, c only; x summed at the last step.
	assert.GreaterOrEqual(t, cost.Width, math.Log2(2*3*4))
}

func TestFindSlicesMeetsBudget(t *testing.T) {
	hg := &Hypergraph{
		Inputs: [][]string{{"a", "b"}, {"b", "c"}, {"c", "d"}, {"d", "a"}},
		Dims:   map[string]int{"a": 8, "b": 8, "c": 8, "d": 8},
	}
	p, cost, err := Find(hg, Options{Strategy: "greedy"})
	require.NoError(t, err)
	budget := cost.Width - 2
	sliced := FindSlices(hg, p, budget)
	require.NotEmpty(t, sliced)

	dims := make(map[string]int, len(hg.Dims))
	for k, v := range hg.Dims {
		dims[k] = v
	}
	for _, name := range sliced {
		dims[name] = 1
	}
	after, err := Evaluate(&Hypergraph{Inputs: hg.Inputs, Dims: dims, Keep: hg.Keep}, p)
	require.NoError(t, err)
	assert.LessOrEqual(t, after.Width, budget)
}

func TestFindSlicesNoopWithinBudget(t *testing.T) {
	hg := chainGraph()
	p, cost, err := Find(hg, Options{Strategy: "greedy"})
	require.NoError(t, err)
	assert.Empty(t, FindSlices(hg, p, cost.Width))
}
