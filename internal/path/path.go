// Package path searches for low-cost contraction orders over the index
// hypergraph of a tensor network. It works purely on index names and
// dimensions; executing a path against actual tensors is the network
// package's job.
package path

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Hypergraph describes a contraction problem: one index-name list per input
// tensor, the dimension of every index, and the set of indices that must
// survive the contraction (output indices and indices referenced outside the
// contracted group).
type Hypergraph struct {
	Inputs [][]string
	Dims   map[string]int
	Keep   map[string]bool
}

// Step contracts two intermediates, identified by SSA ids: inputs are
// 0..len(Inputs)-1, and the k-th step's result has id len(Inputs)+k.
type Step struct {
	L, R int
}

// Path is a fully ordered sequence of pairwise contractions reducing the
// whole input set to one tensor.
type Path struct {
	Steps []Step
}

// Cost summarizes a path: total floating-point multiply-add count and the
// contraction width, log2 of the largest intermediate's element count.
type Cost struct {
	Flops float64
	Width float64
}

// Better reports whether c is preferable to other: fewer flops, width as the
// tie-break.
func (c Cost) Better(other Cost) bool {
	if c.Flops != other.Flops {
		return c.Flops < other.Flops
	}
	return c.Width < other.Width
}

// node is an intermediate during path search or replay: the set of index
// names it carries.
type node map[string]struct{}

func (n node) clone() node {
	out := make(node, len(n))
	for name := range n {
		out[name] = struct{}{}
	}
	return out
}

// state tracks intermediates and global index reference counts during a
// search or replay.
type state struct {
	hg    *Hypergraph
	nodes map[int]node // SSA id -> live intermediate
	refs  map[string]int
	next  int
}

func newState(hg *Hypergraph) *state {
	s := &state{
		hg:    hg,
		nodes: make(map[int]node, len(hg.Inputs)),
		refs:  make(map[string]int),
		next:  len(hg.Inputs),
	}
	for i, inds := range hg.Inputs {
		nd := make(node, len(inds))
		for _, name := range inds {
			nd[name] = struct{}{}
			s.refs[name]++
		}
		s.nodes[i] = nd
	}
	return s
}

// size returns the element count of a node.
func (s *state) size(nd node) float64 {
	out := 1.0
	for name := range nd {
		out *= float64(s.hg.Dims[name])
	}
	return out
}

// contractResult returns the index set of the contraction of a and b: the
// union minus indices that no other live node references and that need not
// be kept.
func (s *state) contractResult(a, b node) node {
	out := make(node, len(a)+len(b))
	for name := range a {
		out[name] = struct{}{}
	}
	for name := range b {
		out[name] = struct{}{}
	}
	for name := range out {
		_, inA := a[name]
		_, inB := b[name]
		remaining := s.refs[name]
		if inA {
			remaining--
		}
		if inB {
			remaining--
		}
		if remaining == 0 && !s.hg.Keep[name] {
			delete(out, name)
		}
	}
	return out
}

// stepFlops is the multiply-add count of contracting a and b: the product of
// the dimensions of all involved indices.
func (s *state) stepFlops(a, b node) float64 {
	union := make(node, len(a)+len(b))
	for name := range a {
		union[name] = struct{}{}
	}
	for name := range b {
		union[name] = struct{}{}
	}
	return s.size(union)
}

// apply contracts the nodes with SSA ids i and j, returning the new node's
// SSA id.
func (s *state) apply(i, j int) int {
	a, b := s.nodes[i], s.nodes[j]
	result := s.contractResult(a, b)
	for name := range a {
		s.refs[name]--
	}
	for name := range b {
		s.refs[name]--
	}
	for name := range result {
		s.refs[name]++
	}
	delete(s.nodes, i)
	delete(s.nodes, j)
	id := s.next
	s.next++
	s.nodes[id] = result
	return id
}

// liveIDs returns the live SSA ids in ascending order.
func (s *state) liveIDs() []int {
	ids := make([]int, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Evaluate replays a path over the hypergraph and returns its cost. The
// result must be invariant to path choice; only the cost varies.
func Evaluate(hg *Hypergraph, p Path) (Cost, error) {
	s := newState(hg)
	var cost Cost
	maxSize := 1.0
	for _, nd := range s.nodes {
		if sz := s.size(nd); sz > maxSize {
			maxSize = sz
		}
	}
	for _, step := range p.Steps {
		a, okA := s.nodes[step.L]
		b, okB := s.nodes[step.R]
		if !okA || !okB {
			return Cost{}, errors.Errorf("path: step (%d, %d) references a dead intermediate", step.L, step.R)
		}
		cost.Flops += s.stepFlops(a, b)
		id := s.apply(step.L, step.R)
		if sz := s.size(s.nodes[id]); sz > maxSize {
			maxSize = sz
		}
	}
	if len(s.nodes) != 1 {
		return Cost{}, errors.Errorf("path: %d intermediates left after replay, want 1", len(s.nodes))
	}
	cost.Width = math.Log2(maxSize)
	return cost, nil
}
