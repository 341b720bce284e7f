// Package network implements the graph-structured tensor-network container:
// an arena of tensors addressed by stable integer ids, with incrementally
// maintained index and tag registries, selection, renaming, and contraction.
package network

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/tnet-ml/tnet/internal/tensor"
)

// Network is an unordered collection of tensors connected via shared index
// names. Tensors live in an arena keyed by stable ids; the index and tag
// registries hold only ids, never tensor copies, so there is exactly one
// reference to each tensor.
//
// A Network is single-owner mutable state: concurrent mutation must be
// serialized by the caller.
type Network struct {
	ts     map[int]*tensor.Tensor
	next   int
	indMap map[string]map[int]struct{}
	tagMap map[string]map[int]struct{}
}

// New creates a network holding the given tensors.
func New(tensors ...*tensor.Tensor) (*Network, error) {
	n := &Network{
		ts:     make(map[int]*tensor.Tensor),
		indMap: make(map[string]map[int]struct{}),
		tagMap: make(map[string]map[int]struct{}),
	}
	for _, t := range tensors {
		if _, err := n.Add(t); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Add inserts a tensor, returning its id. Every index the tensor references
// must agree in dimension with the network's existing view of that index.
func (n *Network) Add(t *tensor.Tensor) (int, error) {
	for _, ix := range t.Inds() {
		if dim := n.IndDim(ix.Name); dim != 0 && dim != ix.Dim {
			return 0, &tensor.ShapeError{Op: "network.Add", Ind: ix.Name, Want: dim, Got: ix.Dim}
		}
	}
	id := n.next
	n.next++
	n.insert(id, t)
	return id, nil
}

// insert registers a tensor under a specific id. The id must be free.
func (n *Network) insert(id int, t *tensor.Tensor) {
	n.ts[id] = t
	if id >= n.next {
		n.next = id + 1
	}
	for _, ix := range t.Inds() {
		set, ok := n.indMap[ix.Name]
		if !ok {
			set = make(map[int]struct{})
			n.indMap[ix.Name] = set
		}
		set[id] = struct{}{}
	}
	for _, tag := range t.Tags() {
		set, ok := n.tagMap[tag]
		if !ok {
			set = make(map[int]struct{})
			n.tagMap[tag] = set
		}
		set[id] = struct{}{}
	}
}

// Remove deletes the tensor with the given id, updating the registries.
func (n *Network) Remove(id int) error {
	_, err := n.Pop(id)
	return err
}

// Pop removes and returns the tensor with the given id.
func (n *Network) Pop(id int) (*tensor.Tensor, error) {
	t, ok := n.ts[id]
	if !ok {
		return nil, errors.Errorf("network: no tensor with id %d", id)
	}
	delete(n.ts, id)
	for _, ix := range t.Inds() {
		set := n.indMap[ix.Name]
		delete(set, id)
		if len(set) == 0 {
			delete(n.indMap, ix.Name)
		}
	}
	for _, tag := range t.Tags() {
		set := n.tagMap[tag]
		delete(set, id)
		if len(set) == 0 {
			delete(n.tagMap, tag)
		}
	}
	return t, nil
}

// Replace swaps the tensor stored under id for a new one, keeping the id.
// The new tensor's indices must be dimension-consistent with the rest of the
// network; on error nothing is mutated.
func (n *Network) Replace(id int, t *tensor.Tensor) error {
	old, ok := n.ts[id]
	if !ok {
		return errors.Errorf("network: no tensor with id %d", id)
	}
	// Stage: validate against the network without the old tensor.
	if _, err := n.Pop(id); err != nil {
		return err
	}
	for _, ix := range t.Inds() {
		if dim := n.IndDim(ix.Name); dim != 0 && dim != ix.Dim {
			n.insert(id, old)
			return &tensor.ShapeError{Op: "network.Replace", Ind: ix.Name, Want: dim, Got: ix.Dim}
		}
	}
	n.insert(id, t)
	return nil
}

// Tensor returns the tensor with the given id, or nil.
func (n *Network) Tensor(id int) *tensor.Tensor { return n.ts[id] }

// IDs returns all tensor ids in ascending order.
func (n *Network) IDs() []int {
	ids := make([]int, 0, len(n.ts))
	for id := range n.ts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Tensors returns the tensors in ascending id order.
func (n *Network) Tensors() []*tensor.Tensor {
	ids := n.IDs()
	out := make([]*tensor.Tensor, len(ids))
	for i, id := range ids {
		out[i] = n.ts[id]
	}
	return out
}

// TensorMap returns a copy of the id-to-tensor mapping.
func (n *Network) TensorMap() map[int]*tensor.Tensor {
	out := make(map[int]*tensor.Tensor, len(n.ts))
	for id, t := range n.ts {
		out[id] = t
	}
	return out
}

// NumTensors returns the number of tensors.
func (n *Network) NumTensors() int { return len(n.ts) }

// NumIndices returns the number of distinct indices.
func (n *Network) NumIndices() int { return len(n.indMap) }

// IndDim returns the dimension of the named index, or 0 if absent.
func (n *Network) IndDim(name string) int {
	for id := range n.indMap[name] {
		return n.ts[id].Dim(name)
	}
	return 0
}

// IndTensors returns the ids of the tensors touching the named index,
// ascending.
func (n *Network) IndTensors(name string) []int {
	ids := make([]int, 0, len(n.indMap[name]))
	for id := range n.indMap[name] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Inds returns all index names, sorted.
func (n *Network) Inds() []string {
	out := make([]string, 0, len(n.indMap))
	for name := range n.indMap {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// OuterInds returns the indices referenced by exactly one tensor, sorted.
// These define the network's effective rank.
func (n *Network) OuterInds() []string {
	var out []string
	for name, set := range n.indMap {
		if len(set) == 1 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// HyperInds returns the indices referenced by three or more tensors, sorted.
func (n *Network) HyperInds() []string {
	var out []string
	for name, set := range n.indMap {
		if len(set) >= 3 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// MaxBond returns the largest dimension among indices shared by at least two
// tensors, or 0 if there are none.
func (n *Network) MaxBond() int {
	maxDim := 0
	for name, set := range n.indMap {
		if len(set) >= 2 {
			if d := n.IndDim(name); d > maxDim {
				maxDim = d
			}
		}
	}
	return maxDim
}

// BondSize returns the product of the dimensions of the indices shared
// between the tensors tagged tagA and those tagged tagB.
func (n *Network) BondSize(tagA, tagB string) int {
	a, b := n.tagMap[tagA], n.tagMap[tagB]
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	size := 1
	found := false
	for name, set := range n.indMap {
		inA, inB := false, false
		for id := range set {
			if _, ok := a[id]; ok {
				inA = true
			}
			if _, ok := b[id]; ok {
				inB = true
			}
		}
		if inA && inB {
			size *= n.IndDim(name)
			found = true
		}
	}
	if !found {
		return 0
	}
	return size
}

// SelectMode chooses how Select matches tags.
type SelectMode int

const (
	// SelectAll keeps tensors carrying every given tag.
	SelectAll SelectMode = iota
	// SelectAny keeps tensors carrying at least one given tag.
	SelectAny
)

// Select returns a sub-network view of the tensors matching the tags under
// the given mode. The returned network shares tensor values and ids with the
// original (tensors are immutable, so the view cannot drift), but has its
// own registries.
func (n *Network) Select(mode SelectMode, tags ...string) *Network {
	out := &Network{
		ts:     make(map[int]*tensor.Tensor),
		indMap: make(map[string]map[int]struct{}),
		tagMap: make(map[string]map[int]struct{}),
	}
	for id, t := range n.ts {
		if matchTags(t, mode, tags) {
			out.insert(id, t)
		}
	}
	return out
}

// SelectIDs returns the ids of the tensors matching the tags, ascending.
func (n *Network) SelectIDs(mode SelectMode, tags ...string) []int {
	var ids []int
	for id, t := range n.ts {
		if matchTags(t, mode, tags) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// SelectTensors returns the tensors matching the tags, in ascending id order.
func (n *Network) SelectTensors(mode SelectMode, tags ...string) []*tensor.Tensor {
	ids := n.SelectIDs(mode, tags...)
	out := make([]*tensor.Tensor, len(ids))
	for i, id := range ids {
		out[i] = n.ts[id]
	}
	return out
}

func matchTags(t *tensor.Tensor, mode SelectMode, tags []string) bool {
	switch mode {
	case SelectAny:
		for _, tag := range tags {
			if t.HasTag(tag) {
				return true
			}
		}
		return false
	default:
		for _, tag := range tags {
			if !t.HasTag(tag) {
				return false
			}
		}
		return true
	}
}

// Copy returns an independent network with the same ids and tensors.
// Tensors are immutable so the values themselves are shared.
func (n *Network) Copy() *Network {
	out := &Network{
		ts:     make(map[int]*tensor.Tensor, len(n.ts)),
		indMap: make(map[string]map[int]struct{}),
		tagMap: make(map[string]map[int]struct{}),
	}
	for id, t := range n.ts {
		out.insert(id, t)
	}
	return out
}

// Conj returns the conjugate network.
func (n *Network) Conj() *Network {
	out := n.Copy()
	for id, t := range out.ts {
		out.ts[id] = t.Conj()
	}
	return out
}

// Merge returns a new network holding all tensors of the given networks,
// with fresh ids. Index dimensions must agree across the parts.
func Merge(nets ...*Network) (*Network, error) {
	out, _ := New()
	for _, part := range nets {
		for _, t := range part.Tensors() {
			if _, err := out.Add(t); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
