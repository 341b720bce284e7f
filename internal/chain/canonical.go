package chain

import (
	"github.com/pkg/errors"

	"github.com/tnet-ml/tnet/internal/network"
	"github.com/tnet-ml/tnet/internal/tensor"
)

// Canonicalize sweeps QR-type splits to move the orthogonality center to the
// given site: every site left of center becomes left-isometric, every site
// right of it right-isometric. No truncation happens; later truncations at
// the center then have locally optimal error.
func (c *Chain) Canonicalize(center int) error {
	if center < 0 || center >= c.Len() {
		return errors.Errorf("chain: center %d out of range [0, %d)", center, c.Len())
	}
	for i := 0; i < center; i++ {
		if err := c.pushRight(i); err != nil {
			return err
		}
	}
	for i := c.Len() - 1; i > center; i-- {
		if err := c.pushLeft(i); err != nil {
			return err
		}
	}
	return nil
}

// pushRight left-normalizes site i, absorbing the remainder into site i+1.
func (c *Chain) pushRight(i int) error {
	t := c.Site(i)
	keep := c.openInds(i)
	if i > 0 {
		keep = append(c.bondInds(i-1), keep...)
	}
	q, r, _, err := t.Split(keep, tensor.SplitOptions{Method: tensor.SplitQR})
	if err != nil {
		return err
	}
	next, err := tensor.Contract(r, c.Site(i+1))
	if err != nil {
		return err
	}
	return c.replacePair(i, q.WithTags(t.Tags()...), i+1, next.WithTags(c.Site(i+1).Tags()...))
}

// pushLeft right-normalizes site i, absorbing the remainder into site i-1.
// The split keeps the left bond alone, so the right factor is isometric over
// (phys, right bond); gonum's QR wants tall matrices, which Split handles by
// falling back to an untruncated SVD for this orientation.
func (c *Chain) pushLeft(i int) error {
	t := c.Site(i)
	left := c.bondInds(i - 1)
	a, b, _, err := t.Split(left, tensor.SplitOptions{
		Method: tensor.SplitSVD, Cutoff: -1, Absorb: tensor.AbsorbLeft,
	})
	if err != nil {
		return err
	}
	prev, err := tensor.Contract(c.Site(i-1), a)
	if err != nil {
		return err
	}
	return c.replacePair(i-1, prev.WithTags(c.Site(i-1).Tags()...), i, b.WithTags(t.Tags()...))
}

// replacePair swaps two site tensors in one staged step.
func (c *Chain) replacePair(i int, ti *tensor.Tensor, j int, tj *tensor.Tensor) error {
	if err := c.net.Replace(c.ids[i], ti); err != nil {
		return err
	}
	return c.net.Replace(c.ids[j], tj)
}

// CompressOptions bounds a compression sweep.
type CompressOptions struct {
	MaxBond int
	Cutoff  float64 // 0 means tensor.DefaultCutoff, negative disables
}

// Compress reduces every bond to at most MaxBond, discarding relative
// weight below Cutoff. Returns the per-bond truncation errors (entry i is
// the bond between sites i and i+1); errors are cumulative across the
// sweep, not globally bounded — aggregate if a global bound is needed.
func (c *Chain) Compress(opts CompressOptions) ([]float64, error) {
	return CompressLine(c.net, c.ids, opts)
}

// CompressLine runs a canonicalize-then-truncate sweep over an ordered line
// of tensors inside an arbitrary network: a left-to-right QR sweep makes the
// line left-isometric, then a right-to-left truncating SVD sweep caps each
// bond. The ids must be adjacent in sequence (consecutive tensors share at
// least one index); other indices of the line's tensors are untouched. Used
// both for chain compression and for boundary-line compression in 2D
// contraction.
func CompressLine(net *network.Network, ids []int, opts CompressOptions) ([]float64, error) {
	n := len(ids)
	errsPerBond := make([]float64, max(n-1, 0))
	if n < 2 {
		return errsPerBond, nil
	}
	tensors := func(i int) *tensor.Tensor { return net.Tensor(ids[i]) }
	shared := func(i int) []string {
		var out []string
		a, b := tensors(i), tensors(i+1)
		for _, name := range a.IndNames() {
			if b.HasInd(name) {
				out = append(out, name)
			}
		}
		return out
	}

	// Left-to-right orthogonalization sweep.
	for i := 0; i < n-1; i++ {
		bonds := shared(i)
		if len(bonds) == 0 {
			continue
		}
		t := tensors(i)
		inBond := make(map[string]bool, len(bonds))
		for _, name := range bonds {
			inBond[name] = true
		}
		var keep []string
		for _, name := range t.IndNames() {
			if !inBond[name] {
				keep = append(keep, name)
			}
		}
		q, r, _, err := t.Split(keep, tensor.SplitOptions{Method: tensor.SplitQR})
		if err != nil {
			return nil, err
		}
		next, err := tensor.Contract(r, tensors(i+1))
		if err != nil {
			return nil, err
		}
		if err := net.Replace(ids[i], q.WithTags(t.Tags()...)); err != nil {
			return nil, err
		}
		if err := net.Replace(ids[i+1], next.WithTags(tensors(i + 1).Tags()...)); err != nil {
			return nil, err
		}
	}

	// Right-to-left truncation sweep.
	for i := n - 1; i > 0; i-- {
		bonds := shared(i - 1)
		if len(bonds) == 0 {
			continue
		}
		t := tensors(i)
		a, b, info, err := t.Split(bonds, tensor.SplitOptions{
			Method:  tensor.SplitSVD,
			Cutoff:  opts.Cutoff,
			MaxBond: opts.MaxBond,
			Absorb:  tensor.AbsorbLeft,
		})
		if err != nil {
			return nil, err
		}
		prev, err := tensor.Contract(tensors(i-1), a)
		if err != nil {
			return nil, err
		}
		if err := net.Replace(ids[i], b.WithTags(t.Tags()...)); err != nil {
			return nil, err
		}
		if err := net.Replace(ids[i-1], prev.WithTags(tensors(i - 1).Tags()...)); err != nil {
			return nil, err
		}
		errsPerBond[i-1] = info.TruncErr
	}
	return errsPerBond, nil
}
