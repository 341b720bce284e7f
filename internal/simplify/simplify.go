// Package simplify implements value-preserving rewriting passes over a
// tensor network: scalar absorption, size-1 index squeezing, diagonal
// reduction, hyperindex resolution and rank simplification, run to a
// fixpoint. Every rewrite keeps the network's contracted value (up to
// floating-point rounding) and never touches declared outer indices.
package simplify

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/tnet-ml/tnet/internal/network"
	"github.com/tnet-ml/tnet/internal/tensor"
)

// Options selects which rewriting passes run and bounds the fixpoint loop.
type Options struct {
	AbsorbScalars  bool
	Squeeze        bool
	DiagonalReduce bool
	RankSimplify   bool
	// ResolveHyper splits every hyperindex into pairwise bonds joined by a
	// delta tensor. It adds tensors and indices, so it is off by default and
	// excluded from Default(); it exists for contraction strategies that
	// need a strict bond graph.
	ResolveHyper bool
	// MaxRank caps the rank of any tensor produced by rank simplification;
	// 0 means only the usual no-rank-growth rule applies.
	MaxRank int
	// MaxPasses bounds the fixpoint loop (default 16).
	MaxPasses int
	// DiagTol is the tolerance for detecting diagonal structure (default 0,
	// exact zeros only).
	DiagTol float64
}

// Default returns the all-rewrites-to-convergence configuration.
func Default() Options {
	return Options{
		AbsorbScalars:  true,
		Squeeze:        true,
		DiagonalReduce: true,
		RankSimplify:   true,
	}
}

// Full runs the configured passes on a copy, leaving the input untouched.
func Full(n *network.Network, opts Options) (*network.Network, error) {
	out := n.Copy()
	if err := Run(out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// Run mutates the network in place, applying the configured passes until no
// pass changes anything (or MaxPasses is hit).
func Run(n *network.Network, opts Options) error {
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = 16
	}
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		if opts.AbsorbScalars {
			c, err := absorbScalars(n)
			if err != nil {
				return err
			}
			changed = changed || c
		}
		if opts.Squeeze {
			c, err := squeeze(n)
			if err != nil {
				return err
			}
			changed = changed || c
		}
		if opts.DiagonalReduce {
			c, err := diagonalReduce(n, opts.DiagTol)
			if err != nil {
				return err
			}
			changed = changed || c
		}
		if opts.ResolveHyper {
			c, err := resolveHyper(n)
			if err != nil {
				return err
			}
			changed = changed || c
		}
		if opts.RankSimplify {
			c, err := rankSimplify(n, opts.MaxRank)
			if err != nil {
				return err
			}
			changed = changed || c
		}
		if !changed {
			return nil
		}
	}
	return nil
}

// absorbScalars folds every rank-0 tensor into a neighboring tensor (the
// lowest-id other tensor), keeping the network free of degenerate nodes.
// The last tensor standing is never absorbed.
func absorbScalars(n *network.Network) (bool, error) {
	changed := false
	for _, id := range n.IDs() {
		t := n.Tensor(id)
		if t == nil || t.Rank() != 0 || n.NumTensors() < 2 {
			continue
		}
		scalar, err := n.Pop(id)
		if err != nil {
			return false, err
		}
		target := n.IDs()[0]
		host := n.Tensor(target)
		if err := n.Replace(target, host.MulScalar(scalar.Data()[0])); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, nil
}

// squeeze removes size-1 bond indices (shared by two or more tensors).
// Size-1 outer indices are part of the network's interface and stay.
func squeeze(n *network.Network) (bool, error) {
	changed := false
	for _, name := range n.Inds() {
		if n.IndDim(name) != 1 || len(n.IndTensors(name)) < 2 {
			continue
		}
		for _, id := range n.IndTensors(name) {
			t := n.Tensor(id)
			squeezed, err := dropInd(t, name)
			if err != nil {
				return false, err
			}
			if err := n.Replace(id, squeezed); err != nil {
				return false, err
			}
		}
		changed = true
	}
	return changed, nil
}

// dropInd removes a single size-1 index from a tensor.
func dropInd(t *tensor.Tensor, name string) (*tensor.Tensor, error) {
	if t.Dim(name) != 1 {
		return nil, errors.Errorf("simplify: index %q has dimension %d, cannot drop", name, t.Dim(name))
	}
	return t.SumOver(name)
}

// diagonalReduce finds tensors that are diagonal along a pair of bond
// indices, keeps only the diagonal, and renames the second index to the
// first on every other tensor referencing it. The full diagonal is never
// rebuilt; the identification may create hyperindices.
func diagonalReduce(n *network.Network, tol float64) (bool, error) {
	for _, id := range n.IDs() {
		t := n.Tensor(id)
		names := t.IndNames()
		for x := 0; x < len(names); x++ {
			for y := x + 1; y < len(names); y++ {
				a, b := names[x], names[y]
				// Outer indices belong to the interface; identifying one
				// away would change the network's declared rank.
				if len(n.IndTensors(a)) < 2 || len(n.IndTensors(b)) < 2 {
					continue
				}
				if !t.IsDiagonalPair(a, b, tol) {
					continue
				}
				reduced, err := t.DiagonalPair(a, b, a)
				if err != nil {
					return false, err
				}
				others := n.IndTensors(b)
				if err := n.Replace(id, reduced); err != nil {
					return false, err
				}
				for _, other := range others {
					if other == id {
						continue
					}
					renamed, err := n.Tensor(other).Reindex(map[string]string{b: a}, true)
					if err != nil {
						return false, err
					}
					if err := n.Replace(other, renamed); err != nil {
						return false, err
					}
				}
				return true, nil
			}
		}
	}
	return false, nil
}

// resolveHyper splits each index shared by three or more tensors: all but
// the first keeper get fresh copies of the index, joined through a delta
// tensor. The result is a strict bond graph with the same contracted value.
func resolveHyper(n *network.Network) (bool, error) {
	changed := false
	for _, name := range n.Inds() {
		ids := n.IndTensors(name)
		if len(ids) < 3 {
			continue
		}
		dim := n.IndDim(name)
		deltaInds := []string{name}
		for _, id := range ids[1:] {
			fresh := tensor.NewBondName()
			renamed, err := n.Tensor(id).Reindex(map[string]string{name: fresh}, false)
			if err != nil {
				return false, err
			}
			if err := n.Replace(id, renamed); err != nil {
				return false, err
			}
			deltaInds = append(deltaInds, fresh)
		}
		if _, err := n.Add(tensor.Delta(dim, deltaInds...)); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, nil
}

// rankSimplify contracts neighboring pairs whenever the result's rank does
// not exceed the larger operand's rank (and the optional cap), strictly
// reducing tensor count without growing any tensor.
func rankSimplify(n *network.Network, maxRank int) (bool, error) {
	changed := false
	for {
		merged, err := rankSimplifyOnce(n, maxRank)
		if err != nil {
			return false, err
		}
		if !merged {
			return changed, nil
		}
		changed = true
	}
}

func rankSimplifyOnce(n *network.Network, maxRank int) (bool, error) {
	for _, name := range n.Inds() {
		ids := n.IndTensors(name)
		if len(ids) != 2 {
			continue
		}
		a, b := n.Tensor(ids[0]), n.Tensor(ids[1])
		sum, batch := pairAxes(n, a, b)
		resultRank := a.Rank() + b.Rank() - 2*len(sum) - len(batch)
		limit := max(a.Rank(), b.Rank())
		if maxRank > 0 && maxRank < limit {
			limit = maxRank
		}
		if resultRank > limit {
			continue
		}
		result, err := tensor.ContractOver(a, b, sum, batch)
		if err != nil {
			return false, err
		}
		tags := append(a.Tags(), b.Tags()...)
		sort.Strings(tags)
		if _, err := n.Pop(ids[0]); err != nil {
			return false, err
		}
		if _, err := n.Pop(ids[1]); err != nil {
			return false, err
		}
		if _, err := n.Add(result.WithTags(tags...)); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// pairAxes classifies the indices shared by two network tensors: summable
// (nothing else references them) versus batch (hyperindices that must
// survive the pairwise contraction).
func pairAxes(n *network.Network, a, b *tensor.Tensor) (sum, batch []string) {
	for _, name := range a.IndNames() {
		if !b.HasInd(name) {
			continue
		}
		if len(n.IndTensors(name)) == 2 {
			sum = append(sum, name)
		} else {
			batch = append(batch, name)
		}
	}
	return sum, batch
}
