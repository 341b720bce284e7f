package tensor

import "fmt"

// ShapeError reports a dimension mismatch: either a tensor's data length
// disagrees with its declared indices, or two tensors disagree on the
// dimension of a shared index. It is always surfaced immediately and never
// silently coerced.
type ShapeError struct {
	Ind  string // offending index name, empty for a raw data/shape mismatch
	Want int
	Got  int
	Op   string
}

func (e *ShapeError) Error() string {
	if e.Ind != "" {
		return fmt.Sprintf("%s: index %q dimension mismatch: %d vs %d", e.Op, e.Ind, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: data length %d does not match shape size %d", e.Op, e.Got, e.Want)
}

// NameCollisionError reports a retag/reindex that would silently merge
// previously distinct indices or tags. Callers must opt into merges
// explicitly.
type NameCollisionError struct {
	Name string
	Op   string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("%s: name %q already in use; pass an explicit merge to combine", e.Op, e.Name)
}
