package chain

import (
	"math"

	"github.com/pkg/errors"

	"github.com/tnet-ml/tnet/internal/network"
	"github.com/tnet-ml/tnet/internal/tensor"
)

// ApplyTwoSite applies a two-site operator to sites i and i+1 and splits the
// result back into two site tensors, truncating the new bond per opts. The
// gate is a row-major (d_i*d_j) x (d_i*d_j) matrix over the ordered pair of
// physical dimensions. The split orientation is chosen to minimize the new
// bond dimension, which may move a physical index across the bond; the
// chain tracks that swap, so PhysInd stays correct. Returns the truncation
// error of the new bond.
func (c *Chain) ApplyTwoSite(gate []float64, i int, opts CompressOptions) (float64, error) {
	if i < 0 || i+1 >= c.Len() {
		return 0, errors.Errorf("chain: two-site gate at %d out of range", i)
	}
	ti, tj := c.Site(i), c.Site(i+1)
	d0, d1 := ti.Dim(c.phys[i]), tj.Dim(c.phys[i+1])
	if len(gate) != d0*d1*d0*d1 {
		return 0, errors.Errorf("chain: gate has %d elements, want %d", len(gate), d0*d1*d0*d1)
	}

	o0, o1 := tensor.NewBondName(), tensor.NewBondName()
	g, err := tensor.New(gate, []tensor.Index{
		{Name: o0, Dim: d0},
		{Name: o1, Dim: d1},
		{Name: c.phys[i], Dim: d0},
		{Name: c.phys[i+1], Dim: d1},
	})
	if err != nil {
		return 0, err
	}

	theta, err := tensor.Contract(ti, tj)
	if err != nil {
		return 0, err
	}
	theta, err = tensor.Contract(theta, g)
	if err != nil {
		return 0, err
	}
	theta, err = theta.Reindex(map[string]string{o0: c.phys[i], o1: c.phys[i+1]}, false)
	if err != nil {
		return 0, err
	}

	var leftBonds, rightBonds []string
	if i > 0 {
		leftBonds = c.bondInds(i - 1)
	}
	if i+2 < c.Len() {
		rightBonds = c.bondInds(i + 1)
	}
	prodDims := func(names []string) int {
		d := 1
		for _, name := range names {
			d *= theta.Dim(name)
		}
		return d
	}
	lb, rb := prodDims(leftBonds), prodDims(rightBonds)

	// The split bond can be at most the smaller of the two matrix sides.
	// Swapping which physical index stays left can shrink that bound, e.g.
	// at the chain edges.
	straight := min(lb*d0, rb*d1)
	swapped := min(lb*d1, rb*d0)
	physL, physR := c.phys[i], c.phys[i+1]
	if swapped < straight {
		physL, physR = physR, physL
	}

	leftInds := append(append([]string{}, leftBonds...), physL)
	a, b, info, err := theta.Split(leftInds, tensor.SplitOptions{
		Method:  tensor.SplitSVD,
		Cutoff:  opts.Cutoff,
		MaxBond: opts.MaxBond,
		Absorb:  tensor.AbsorbBoth,
	})
	if err != nil {
		return 0, err
	}
	if err := c.replacePair(i, a.WithTags(ti.Tags()...), i+1, b.WithTags(tj.Tags()...)); err != nil {
		return 0, err
	}
	c.phys[i], c.phys[i+1] = physL, physR
	return info.TruncErr, nil
}

// InnerProduct contracts <a|b> over matching site order. The chains must
// have equal length and physical dimensions; their bond names need not
// relate.
func InnerProduct(a, b *Chain) (float64, error) {
	if a.Len() != b.Len() {
		return 0, errors.Errorf("chain: length mismatch %d vs %d", a.Len(), b.Len())
	}
	bra := a.Network().Conj()

	physOf := make(map[string]int, a.Len())
	for s := 0; s < a.Len(); s++ {
		physOf[a.phys[s]] = s
	}
	mapping := make(map[string]string)
	for _, name := range bra.Inds() {
		if s, ok := physOf[name]; ok {
			if b.phys[s] != name {
				mapping[name] = b.phys[s]
			}
			continue
		}
		mapping[name] = tensor.NewBondName()
	}
	if err := bra.Reindex(mapping, false); err != nil {
		return 0, err
	}

	merged, err := network.Merge(bra, b.Network())
	if err != nil {
		return 0, err
	}
	return merged.ContractValue(network.ContractOptions{Optimize: "greedy"})
}

// Norm returns the 2-norm sqrt(<c|c>) of the chain's full state.
func (c *Chain) Norm() (float64, error) {
	ip, err := InnerProduct(c, c)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(ip), nil
}

// Amplitude returns the coefficient of one computational basis state: the
// contraction of the chain with every physical index fixed to the given
// value. The chain is not mutated.
func (c *Chain) Amplitude(bits []int) (float64, error) {
	if len(bits) != c.Len() {
		return 0, errors.Errorf("chain: %d basis values for %d sites", len(bits), c.Len())
	}
	net := c.net.Copy()
	for s, id := range c.ids {
		sliced, err := net.Tensor(id).IndexSlice(c.phys[s], bits[s])
		if err != nil {
			return 0, err
		}
		if err := net.Replace(id, sliced); err != nil {
			return 0, err
		}
	}
	return net.ContractValue(network.ContractOptions{Optimize: "greedy"})
}

// ToDense contracts the chain into a single tensor over all physical
// indices, ordered by site.
func (c *Chain) ToDense() (*tensor.Tensor, error) {
	return c.net.Contract(network.ContractOptions{
		Optimize:   "greedy",
		OutputInds: append([]string{}, c.phys...),
	})
}
