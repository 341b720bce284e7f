package tensor

import "github.com/pkg/errors"

// ToOrder returns the tensor with its indices permuted into the given name
// order. The names must be exactly the tensor's index names.
func (t *Tensor) ToOrder(names ...string) (*Tensor, error) {
	if len(names) != len(t.inds) {
		return nil, errors.Errorf("tensor.ToOrder: %d names for rank-%d tensor", len(names), len(t.inds))
	}
	axes := make([]int, len(names))
	identity := true
	for i, name := range names {
		p := indexPos(t.inds, name)
		if p < 0 {
			return nil, errors.Errorf("tensor.ToOrder: unknown index %q", name)
		}
		axes[i] = p
		if p != i {
			identity = false
		}
	}
	if identity {
		return t, nil
	}
	inds := make([]Index, len(axes))
	for i, ax := range axes {
		inds[i] = t.inds[ax]
	}
	out := t.shallow()
	out.inds = inds
	out.data = make([]float64, len(t.data))
	permuteData(out.data, t.data, ShapeOf(t.inds), axes)
	return out, nil
}

// permuteData rearranges src (with the given shape) so that dst holds the
// array with axes permuted: dst axis i is src axis axes[i].
func permuteData(dst, src []float64, shape Shape, axes []int) {
	ndim := len(shape)
	srcStrides := shape.ComputeStrides()

	dstShape := make(Shape, ndim)
	for i, ax := range axes {
		dstShape[i] = shape[ax]
	}
	dstStrides := dstShape.ComputeStrides()

	// dstAxisOf[srcDim] = position of srcDim in the output.
	dstAxisOf := make([]int, ndim)
	for dstDim, srcDim := range axes {
		dstAxisOf[srcDim] = dstDim
	}

	coords := make([]int, ndim)
	for i := range src {
		idx := i
		for dim := 0; dim < ndim; dim++ {
			coords[dim] = idx / srcStrides[dim]
			idx %= srcStrides[dim]
		}
		dstIdx := 0
		for dim := 0; dim < ndim; dim++ {
			dstIdx += coords[dim] * dstStrides[dstAxisOf[dim]]
		}
		dst[dstIdx] = src[i]
	}
}

// FuseInfo records the original indices replaced by a fused index, so the
// fusion can be undone.
type FuseInfo struct {
	Name     string
	Original []Index
}

// Fuse combines the named indices into a single index called fusedName,
// placed where the first of them appeared. The constituent indices are moved
// to be adjacent (in the order given), so this is a transpose plus a
// metadata merge. The returned FuseInfo allows Unfuse to restore them.
func (t *Tensor) Fuse(fusedName string, names ...string) (*Tensor, FuseInfo, error) {
	if len(names) == 0 {
		return t, FuseInfo{}, nil
	}
	first := indexPos(t.inds, names[0])
	if first < 0 {
		return nil, FuseInfo{}, errors.Errorf("tensor.Fuse: unknown index %q", names[0])
	}
	inGroup := make(map[string]bool, len(names))
	original := make([]Index, 0, len(names))
	fusedDim := 1
	for _, name := range names {
		p := indexPos(t.inds, name)
		if p < 0 {
			return nil, FuseInfo{}, errors.Errorf("tensor.Fuse: unknown index %q", name)
		}
		inGroup[name] = true
		original = append(original, t.inds[p])
		fusedDim *= t.inds[p].Dim
	}

	// Target order: untouched indices keep their relative order, the group
	// sits contiguously at the position of its first member.
	order := make([]string, 0, len(t.inds))
	for _, ix := range t.inds {
		if inGroup[ix.Name] {
			if ix.Name == names[0] {
				order = append(order, names...)
			}
			continue
		}
		order = append(order, ix.Name)
	}
	moved, err := t.ToOrder(order...)
	if err != nil {
		return nil, FuseInfo{}, err
	}

	inds := make([]Index, 0, len(t.inds)-len(names)+1)
	for _, ix := range moved.inds {
		if inGroup[ix.Name] {
			if ix.Name == names[0] {
				inds = append(inds, Index{Name: fusedName, Dim: fusedDim})
			}
			continue
		}
		inds = append(inds, ix)
	}
	out := moved.shallow()
	out.inds = inds
	return out, FuseInfo{Name: fusedName, Original: original}, nil
}

// Unfuse splits a fused index back into its original constituents. It is the
// inverse of Fuse given the FuseInfo it returned.
func (t *Tensor) Unfuse(info FuseInfo) (*Tensor, error) {
	p := indexPos(t.inds, info.Name)
	if p < 0 {
		return nil, errors.Errorf("tensor.Unfuse: unknown index %q", info.Name)
	}
	dim := 1
	for _, ix := range info.Original {
		dim *= ix.Dim
	}
	if dim != t.inds[p].Dim {
		return nil, &ShapeError{Op: "tensor.Unfuse", Ind: info.Name, Want: t.inds[p].Dim, Got: dim}
	}
	inds := make([]Index, 0, len(t.inds)-1+len(info.Original))
	inds = append(inds, t.inds[:p]...)
	inds = append(inds, info.Original...)
	inds = append(inds, t.inds[p+1:]...)
	out := t.shallow()
	out.inds = inds
	return out, nil
}

// ToDense returns the tensor's data transposed into the given index order,
// along with the corresponding shape. With no arguments the current order is
// used.
func (t *Tensor) ToDense(order ...string) ([]float64, Shape, error) {
	if len(order) == 0 {
		out := make([]float64, len(t.data))
		copy(out, t.data)
		return out, t.Shape(), nil
	}
	moved, err := t.ToOrder(order...)
	if err != nil {
		return nil, nil, err
	}
	out := make([]float64, len(moved.data))
	copy(out, moved.data)
	return out, moved.Shape(), nil
}
