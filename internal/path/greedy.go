package path

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/pkg/errors"

	"github.com/tnet-ml/tnet/internal/parallel"
)

// Options configures Find.
type Options struct {
	// Strategy is one of "greedy", "random-greedy", "optimal" or "auto"
	// (empty means auto: optimal for small inputs, random-greedy otherwise).
	Strategy string
	// Trials is the number of randomized restarts for random-greedy
	// (default 32).
	Trials int
	// Seed makes random-greedy deterministic. Trial t uses Seed+t.
	Seed uint64
	// Temperature controls how far random-greedy strays from the greedy
	// choice (rank-Boltzmann sampling, default 1.0).
	Temperature float64
}

// optimalLimit is the largest input count handed to the bitmask-DP search.
const optimalLimit = 16

// Find returns a contraction path for the hypergraph under the given
// strategy, with its cost.
func Find(hg *Hypergraph, opts Options) (Path, Cost, error) {
	if len(hg.Inputs) == 0 {
		return Path{}, Cost{}, errors.New("path: empty hypergraph")
	}
	if len(hg.Inputs) == 1 {
		return Path{}, Cost{}, nil
	}
	switch opts.Strategy {
	case "greedy":
		return greedy(hg, nil)
	case "random-greedy":
		return randomGreedy(hg, opts)
	case "optimal":
		return optimal(hg)
	case "", "auto":
		if len(hg.Inputs) <= 8 {
			return optimal(hg)
		}
		return randomGreedy(hg, opts)
	default:
		return Path{}, Cost{}, errors.Errorf("path: unknown strategy %q", opts.Strategy)
	}
}

// candidate is a scored pair of live intermediates.
type candidate struct {
	i, j  int
	score float64
	size  float64 // result element count
}

// scoreCandidates lists all contractible pairs, cheapest first. Pairs
// sharing an index are scored by the memory-removed heuristic
// size(result) - size(a) - size(b); ties break on smaller result size, then
// on the (i, j) id order, so greedy is deterministic. When no pair shares an
// index (disconnected components), outer products between the two smallest
// nodes are offered instead.
func (s *state) scoreCandidates() []candidate {
	ids := s.liveIDs()
	var cands []candidate
	for x := 0; x < len(ids); x++ {
		for y := x + 1; y < len(ids); y++ {
			a, b := s.nodes[ids[x]], s.nodes[ids[y]]
			if !sharesIndex(a, b) {
				continue
			}
			result := s.contractResult(a, b)
			rs := s.size(result)
			cands = append(cands, candidate{
				i:     ids[x],
				j:     ids[y],
				score: rs - s.size(a) - s.size(b),
				size:  rs,
			})
		}
	}
	if len(cands) == 0 {
		// Disconnected: outer products, smallest operands first.
		for x := 0; x < len(ids); x++ {
			for y := x + 1; y < len(ids); y++ {
				a, b := s.nodes[ids[x]], s.nodes[ids[y]]
				sz := s.size(a) * s.size(b)
				cands = append(cands, candidate{i: ids[x], j: ids[y], score: sz, size: sz})
			}
		}
	}
	sort.Slice(cands, func(x, y int) bool {
		if cands[x].score != cands[y].score {
			return cands[x].score < cands[y].score
		}
		if cands[x].size != cands[y].size {
			return cands[x].size < cands[y].size
		}
		if cands[x].i != cands[y].i {
			return cands[x].i < cands[y].i
		}
		return cands[x].j < cands[y].j
	})
	return cands
}

func sharesIndex(a, b node) bool {
	for name := range a {
		if _, ok := b[name]; ok {
			return true
		}
	}
	return false
}

// greedy repeatedly contracts the locally cheapest pair. A nil pick function
// always takes the first (cheapest) candidate; random-greedy passes a
// sampler instead.
func greedy(hg *Hypergraph, pick func([]candidate) candidate) (Path, Cost, error) {
	s := newState(hg)
	var p Path
	for len(s.nodes) > 1 {
		cands := s.scoreCandidates()
		chosen := cands[0]
		if pick != nil {
			chosen = pick(cands)
		}
		p.Steps = append(p.Steps, Step{L: chosen.i, R: chosen.j})
		s.apply(chosen.i, chosen.j)
	}
	cost, err := Evaluate(hg, p)
	if err != nil {
		return Path{}, Cost{}, err
	}
	return p, cost, nil
}

// randomGreedy runs greedy with randomized tie-breaking over many trials,
// concurrently, and keeps the best-scoring path. Trials are independent;
// results are selected only after all complete, so the outcome is
// deterministic for a fixed seed and trial count.
func randomGreedy(hg *Hypergraph, opts Options) (Path, Cost, error) {
	trials := opts.Trials
	if trials <= 0 {
		trials = 32
	}
	temp := opts.Temperature
	if temp <= 0 {
		temp = 1.0
	}

	type outcome struct {
		p    Path
		cost Cost
		err  error
	}
	results := make([]outcome, trials)
	parallel.For(trials, func(t int) {
		rng := rand.New(rand.NewPCG(opts.Seed+uint64(t), uint64(t)))
		p, cost, err := greedy(hg, func(cands []candidate) candidate {
			return sampleByRank(cands, rng, temp)
		})
		results[t] = outcome{p: p, cost: cost, err: err}
	}, parallel.DefaultConfig())

	best := -1
	for t, r := range results {
		if r.err != nil {
			return Path{}, Cost{}, r.err
		}
		if best < 0 || r.cost.Better(results[best].cost) {
			best = t
		}
	}
	return results[best].p, results[best].cost, nil
}

// sampleByRank draws a candidate with probability proportional to
// exp(-rank/temperature), so the greedy choice stays the most likely.
func sampleByRank(cands []candidate, rng *rand.Rand, temp float64) candidate {
	total := 0.0
	weights := make([]float64, len(cands))
	for r := range cands {
		w := math.Exp(-float64(r) / temp)
		weights[r] = w
		total += w
	}
	x := rng.Float64() * total
	for r, w := range weights {
		x -= w
		if x <= 0 {
			return cands[r]
		}
	}
	return cands[len(cands)-1]
}
