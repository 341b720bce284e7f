package tensor

import (
	"strings"

	"github.com/google/uuid"
)

// Index is a named dimension shared between tensors. Two tensors referencing
// an index with the same name must agree on its dimension; the pair of
// matching names defines a contraction edge.
type Index struct {
	Name string
	Dim  int
}

// NewBondName generates a fresh index name that will not collide with any
// user-chosen name. Used when a Split introduces a new bond.
func NewBondName() string {
	return "_b" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// IndexNames returns the names of a sequence of indices, in order.
func IndexNames(inds []Index) []string {
	names := make([]string, len(inds))
	for i, ix := range inds {
		names[i] = ix.Name
	}
	return names
}

// ShapeOf returns the dimensions of a sequence of indices, in order.
func ShapeOf(inds []Index) Shape {
	shape := make(Shape, len(inds))
	for i, ix := range inds {
		shape[i] = ix.Dim
	}
	return shape
}

func indexPos(inds []Index, name string) int {
	for i, ix := range inds {
		if ix.Name == name {
			return i
		}
	}
	return -1
}

func cloneInds(inds []Index) []Index {
	out := make([]Index, len(inds))
	copy(out, inds)
	return out
}
