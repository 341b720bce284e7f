package tensor

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Tensor is a dense multi-dimensional array with named indices and string
// tags. The index sequence defines the array's rank and row-major shape.
//
// Tensors are immutable: every operation returns a new Tensor (data may be
// shared between tensors when an operation is metadata-only). This keeps a
// Network's registries trivially consistent, since a tensor can never change
// underneath its owner.
type Tensor struct {
	inds []Index
	tags map[string]struct{}
	data []float64
}

// New creates a tensor from a row-major data slice and an ordered index
// sequence. The data length must match the product of the index dimensions,
// and index names must be distinct.
func New(data []float64, inds []Index, tags ...string) (*Tensor, error) {
	shape := ShapeOf(inds)
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, &ShapeError{Op: "tensor.New", Want: shape.NumElements(), Got: len(data)}
	}
	seen := make(map[string]struct{}, len(inds))
	for _, ix := range inds {
		if _, ok := seen[ix.Name]; ok {
			return nil, &NameCollisionError{Op: "tensor.New", Name: ix.Name}
		}
		seen[ix.Name] = struct{}{}
	}
	return &Tensor{inds: cloneInds(inds), tags: tagSet(tags), data: data}, nil
}

// Scalar creates a rank-0 tensor holding a single value.
func Scalar(v float64, tags ...string) *Tensor {
	return &Tensor{tags: tagSet(tags), data: []float64{v}}
}

// Zeros creates a zero-filled tensor over the given indices.
func Zeros(inds []Index, tags ...string) *Tensor {
	return &Tensor{
		inds: cloneInds(inds),
		tags: tagSet(tags),
		data: make([]float64, ShapeOf(inds).NumElements()),
	}
}

// Rand creates a tensor with entries drawn uniformly from [-1, 1).
func Rand(rng *rand.Rand, inds []Index, tags ...string) *Tensor {
	t := Zeros(inds, tags...)
	for i := range t.data {
		t.data[i] = rng.Float64()*2 - 1
	}
	return t
}

// Delta creates an identity ("copy") tensor: 1 where all indices agree,
// 0 elsewhere. All named indices share the dimension dim. Used to resolve
// hyperindices into pairwise bonds.
func Delta(dim int, names ...string) *Tensor {
	inds := make([]Index, len(names))
	for i, n := range names {
		inds[i] = Index{Name: n, Dim: dim}
	}
	t := Zeros(inds)
	step := 0
	for _, s := range ShapeOf(inds).ComputeStrides() {
		step += s
	}
	for v := 0; v < dim; v++ {
		t.data[v*step] = 1
	}
	return t
}

// Inds returns a copy of the tensor's ordered index sequence.
func (t *Tensor) Inds() []Index { return cloneInds(t.inds) }

// IndNames returns the tensor's index names in order.
func (t *Tensor) IndNames() []string { return IndexNames(t.inds) }

// Shape returns the tensor's dimensions in index order.
func (t *Tensor) Shape() Shape { return ShapeOf(t.inds) }

// Rank returns the number of indices.
func (t *Tensor) Rank() int { return len(t.inds) }

// Size returns the number of elements.
func (t *Tensor) Size() int { return len(t.data) }

// Data returns the underlying row-major data slice.
// WARNING: shared, not copied; treat as read-only.
func (t *Tensor) Data() []float64 { return t.data }

// HasInd reports whether the tensor references the named index.
func (t *Tensor) HasInd(name string) bool { return indexPos(t.inds, name) >= 0 }

// Dim returns the dimension of the named index, or 0 if absent.
func (t *Tensor) Dim(name string) int {
	if p := indexPos(t.inds, name); p >= 0 {
		return t.inds[p].Dim
	}
	return 0
}

// Tags returns the tensor's tags in sorted order.
func (t *Tensor) Tags() []string {
	out := make([]string, 0, len(t.tags))
	for tag := range t.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// HasTag reports whether the tensor carries the tag.
func (t *Tensor) HasTag(tag string) bool {
	_, ok := t.tags[tag]
	return ok
}

// WithTags returns a tensor carrying the union of the current and given tags.
// Data is shared.
func (t *Tensor) WithTags(tags ...string) *Tensor {
	out := t.shallow()
	for _, tag := range tags {
		out.tags[tag] = struct{}{}
	}
	return out
}

// DropTags returns a tensor without the given tags. Data is shared.
func (t *Tensor) DropTags(tags ...string) *Tensor {
	out := t.shallow()
	for _, tag := range tags {
		delete(out.tags, tag)
	}
	return out
}

// Retag returns a tensor with tags renamed per the mapping. Data is shared.
func (t *Tensor) Retag(mapping map[string]string) *Tensor {
	out := t.shallow()
	for old, next := range mapping {
		if _, ok := out.tags[old]; ok {
			delete(out.tags, old)
			out.tags[next] = struct{}{}
		}
	}
	return out
}

// Reindex returns a tensor with indices renamed per the mapping. If a rename
// would make two of the tensor's indices share a name, Reindex fails with
// NameCollisionError unless merge is set, in which case the pair is
// identified by taking the diagonal (the tensor loses one rank).
func (t *Tensor) Reindex(mapping map[string]string, merge bool) (*Tensor, error) {
	out := t.shallow()
	out.inds = cloneInds(t.inds)
	for i := range out.inds {
		if next, ok := mapping[out.inds[i].Name]; ok {
			out.inds[i].Name = next
		}
	}
	for {
		i, j := firstDuplicate(out.inds)
		if i < 0 {
			return out, nil
		}
		if !merge {
			return nil, &NameCollisionError{Op: "tensor.Reindex", Name: out.inds[i].Name}
		}
		var err error
		out, err = out.diagonal(i, j, out.inds[i].Name)
		if err != nil {
			return nil, err
		}
	}
}

// Conj returns the tensor's conjugate. Data is real, so this is a metadata
// copy; it exists so bra/ket construction reads the same as it would with
// complex elements.
func (t *Tensor) Conj() *Tensor { return t.shallow() }

// MulScalar returns the tensor scaled by x.
func (t *Tensor) MulScalar(x float64) *Tensor {
	out := t.shallow()
	out.data = make([]float64, len(t.data))
	for i, v := range t.data {
		out.data[i] = x * v
	}
	return out
}

// Norm returns the Frobenius norm.
func (t *Tensor) Norm() float64 { return floats.Norm(t.data, 2) }

// At returns the element at the given coordinates.
func (t *Tensor) At(coords ...int) float64 {
	if len(coords) != len(t.inds) {
		panic(fmt.Sprintf("tensor.At: %d coords for rank-%d tensor", len(coords), len(t.inds)))
	}
	flat := 0
	for i, s := range t.Shape().ComputeStrides() {
		flat += coords[i] * s
	}
	return t.data[flat]
}

// Squeeze returns a tensor without its size-1 indices. The data is shared;
// only metadata changes. Dropped index names are returned alongside.
func (t *Tensor) Squeeze() (*Tensor, []string) {
	kept := make([]Index, 0, len(t.inds))
	var dropped []string
	for _, ix := range t.inds {
		if ix.Dim == 1 {
			dropped = append(dropped, ix.Name)
			continue
		}
		kept = append(kept, ix)
	}
	if len(dropped) == 0 {
		return t, nil
	}
	out := t.shallow()
	out.inds = kept
	return out, dropped
}

// SumOver returns the tensor with the named index summed out.
func (t *Tensor) SumOver(name string) (*Tensor, error) {
	p := indexPos(t.inds, name)
	if p < 0 {
		return nil, &ShapeError{Op: "tensor.SumOver", Ind: name, Want: 0, Got: 0}
	}
	kept := append(cloneInds(t.inds[:p]), t.inds[p+1:]...)
	moved, err := t.ToOrder(append(IndexNames(kept), name)...)
	if err != nil {
		return nil, err
	}
	dim := t.inds[p].Dim
	out := Zeros(kept, t.Tags()...)
	for i := range out.data {
		base := i * dim
		for v := 0; v < dim; v++ {
			out.data[i] += moved.data[base+v]
		}
	}
	return out, nil
}

// IndexSlice returns the tensor restricted to a single value of the named
// index (the index is removed from the result). Used by sliced contraction.
func (t *Tensor) IndexSlice(name string, v int) (*Tensor, error) {
	p := indexPos(t.inds, name)
	if p < 0 {
		return nil, &ShapeError{Op: "tensor.IndexSlice", Ind: name, Want: 0, Got: 0}
	}
	dim := t.inds[p].Dim
	if v < 0 || v >= dim {
		return nil, &ShapeError{Op: "tensor.IndexSlice", Ind: name, Want: dim, Got: v}
	}
	kept := append(cloneInds(t.inds[:p]), t.inds[p+1:]...)
	moved, err := t.ToOrder(append([]string{name}, IndexNames(kept)...)...)
	if err != nil {
		return nil, err
	}
	n := ShapeOf(kept).NumElements()
	out := Zeros(kept, t.Tags()...)
	copy(out.data, moved.data[v*n:(v+1)*n])
	return out, nil
}

// IsDiagonalPair reports whether the tensor is zero everywhere the two named
// indices disagree, within tolerance tol. Both indices must share a
// dimension.
func (t *Tensor) IsDiagonalPair(a, b string, tol float64) bool {
	pa, pb := indexPos(t.inds, a), indexPos(t.inds, b)
	if pa < 0 || pb < 0 || pa == pb || t.inds[pa].Dim != t.inds[pb].Dim {
		return false
	}
	strides := t.Shape().ComputeStrides()
	for flat, v := range t.data {
		if v <= tol && v >= -tol {
			continue
		}
		ca := flat / strides[pa] % t.inds[pa].Dim
		cb := flat / strides[pb] % t.inds[pb].Dim
		if ca != cb {
			return false
		}
	}
	return true
}

// DiagonalPair identifies two same-dimension indices, keeping only the
// entries where they agree. The result carries a single index named newName
// in place of the pair. This is the trace-like reduction used for repeated
// indices; the full diagonal is never materialized.
func (t *Tensor) DiagonalPair(a, b, newName string) (*Tensor, error) {
	pa, pb := indexPos(t.inds, a), indexPos(t.inds, b)
	if pa < 0 || pb < 0 || pa == pb {
		return nil, &ShapeError{Op: "tensor.DiagonalPair", Ind: a, Want: 0, Got: 0}
	}
	return t.diagonal(pa, pb, newName)
}

func (t *Tensor) diagonal(pa, pb int, newName string) (*Tensor, error) {
	if pa > pb {
		pa, pb = pb, pa
	}
	da, db := t.inds[pa].Dim, t.inds[pb].Dim
	if da != db {
		return nil, &ShapeError{Op: "tensor.DiagonalPair", Ind: t.inds[pb].Name, Want: da, Got: db}
	}
	kept := make([]Index, 0, len(t.inds)-1)
	for i, ix := range t.inds {
		if i == pb {
			continue
		}
		if i == pa {
			ix.Name = newName
		}
		kept = append(kept, ix)
	}
	strides := t.Shape().ComputeStrides()
	out := Zeros(kept, t.Tags()...)
	outStrides := ShapeOf(kept).ComputeStrides()
	n := ShapeOf(kept).NumElements()
	for i := 0; i < n; i++ {
		src := 0
		rem := i
		for d, os := range outStrides {
			c := rem / os
			rem %= os
			sd := d
			if d >= pb {
				sd = d + 1
			}
			src += c * strides[sd]
			if d == pa {
				src += c * strides[pb]
			}
		}
		out.data[i] = t.data[src]
	}
	return out, nil
}

// String returns a short description, e.g.
// Tensor(inds=[i:2 j:3], tags={A}, size=6).
func (t *Tensor) String() string {
	parts := make([]string, len(t.inds))
	for i, ix := range t.inds {
		parts[i] = fmt.Sprintf("%s:%d", ix.Name, ix.Dim)
	}
	return fmt.Sprintf("Tensor(inds=[%s], tags={%s}, size=%d)",
		strings.Join(parts, " "), strings.Join(t.Tags(), ","), len(t.data))
}

// shallow copies metadata, sharing data.
func (t *Tensor) shallow() *Tensor {
	tags := make(map[string]struct{}, len(t.tags))
	for tag := range t.tags {
		tags[tag] = struct{}{}
	}
	return &Tensor{inds: t.inds, tags: tags, data: t.data}
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if tag != "" {
			set[tag] = struct{}{}
		}
	}
	return set
}

func firstDuplicate(inds []Index) (int, int) {
	for i := range inds {
		for j := i + 1; j < len(inds); j++ {
			if inds[i].Name == inds[j].Name {
				return i, j
			}
		}
	}
	return -1, -1
}
