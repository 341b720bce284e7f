package network

import (
	"github.com/tnet-ml/tnet/internal/tensor"
)

// Retag renames tags across the whole network per the mapping. Renaming onto
// a tag that already exists on other tensors merges the two tag groups; that
// is only done when merge is set, otherwise a NameCollisionError is returned
// and nothing is mutated.
func (n *Network) Retag(mapping map[string]string, merge bool) error {
	if !merge {
		seen := make(map[string]bool, len(mapping))
		for old, next := range mapping {
			if old == next {
				continue
			}
			if seen[next] {
				return &tensor.NameCollisionError{Op: "network.Retag", Name: next}
			}
			seen[next] = true
			if _, exists := n.tagMap[next]; exists && len(n.tagMap[old]) > 0 {
				return &tensor.NameCollisionError{Op: "network.Retag", Name: next}
			}
		}
	}
	// Stage all replacements, then commit.
	staged := make(map[int]*tensor.Tensor)
	for id, t := range n.ts {
		staged[id] = t.Retag(mapping)
	}
	n.commit(staged)
	return nil
}

// Reindex renames indices across the whole network per the mapping. Renaming
// onto an existing, distinct index would silently merge the two; that is
// only done when merge is set, otherwise a NameCollisionError is returned
// and nothing is mutated. A merge that makes two indices of a single tensor
// coincide reduces that tensor along its diagonal.
func (n *Network) Reindex(mapping map[string]string, merge bool) error {
	// sources records, per target name, one index already renamed onto it, so
	// two distinct sources claiming the same target are caught even when the
	// target is a fresh name.
	sources := make(map[string]string, len(mapping))
	for old, next := range mapping {
		if old == next {
			continue
		}
		if prev, dup := sources[next]; dup {
			if !merge {
				return &tensor.NameCollisionError{Op: "network.Reindex", Name: next}
			}
			if want, got := n.IndDim(prev), n.IndDim(old); want != got {
				return &tensor.ShapeError{Op: "network.Reindex", Ind: next, Want: want, Got: got}
			}
		}
		sources[next] = old
		if _, exists := n.indMap[next]; exists && len(n.indMap[old]) > 0 {
			if !merge {
				return &tensor.NameCollisionError{Op: "network.Reindex", Name: next}
			}
			if want, got := n.IndDim(next), n.IndDim(old); want != got {
				return &tensor.ShapeError{Op: "network.Reindex", Ind: next, Want: want, Got: got}
			}
		}
	}
	staged := make(map[int]*tensor.Tensor)
	for id, t := range n.ts {
		next, err := t.Reindex(mapping, merge)
		if err != nil {
			return err
		}
		staged[id] = next
	}
	n.commit(staged)
	return nil
}

// commit replaces every tensor in the arena and rebuilds the registries.
func (n *Network) commit(staged map[int]*tensor.Tensor) {
	n.ts = make(map[int]*tensor.Tensor, len(staged))
	n.indMap = make(map[string]map[int]struct{})
	n.tagMap = make(map[string]map[int]struct{})
	for id, t := range staged {
		n.insert(id, t)
	}
}
