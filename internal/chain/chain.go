// Package chain implements 1D structured tensor networks: site-ordered
// chains with one open physical index per site, canonicalization by QR
// sweeps and bond compression by truncating SVD sweeps.
package chain

import (
	"fmt"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/tnet-ml/tnet/internal/network"
	"github.com/tnet-ml/tnet/internal/tensor"
)

// Chain is a 1D tensor network with integer site positions. Site i carries
// the open physical index phys[i] and site tag "I{i}"; bond indices exist
// only between adjacent sites.
type Chain struct {
	net  *network.Network
	ids  []int    // tensor id per site
	phys []string // physical index name per site
}

// SiteTag returns the tag carried by site i.
func SiteTag(i int) string { return fmt.Sprintf("I%d", i) }

// PhysName returns the default physical index name for site i.
func PhysName(i int) string { return fmt.Sprintf("k%d", i) }

// NewProduct builds a product-state chain: one phys-dimension vector per
// site, joined by dimension-1 bonds.
func NewProduct(states [][]float64, tags ...string) (*Chain, error) {
	n := len(states)
	if n == 0 {
		return nil, errors.New("chain: empty product state")
	}
	net, _ := network.New()
	c := &Chain{net: net}
	for i, amps := range states {
		inds := []tensor.Index{}
		if i > 0 {
			inds = append(inds, tensor.Index{Name: bondName(i - 1), Dim: 1})
		}
		inds = append(inds, tensor.Index{Name: PhysName(i), Dim: len(amps)})
		if i < n-1 {
			inds = append(inds, tensor.Index{Name: bondName(i), Dim: 1})
		}
		data := make([]float64, len(amps))
		copy(data, amps)
		t, err := tensor.New(data, inds, append([]string{SiteTag(i)}, tags...)...)
		if err != nil {
			return nil, err
		}
		id, err := net.Add(t)
		if err != nil {
			return nil, err
		}
		c.ids = append(c.ids, id)
		c.phys = append(c.phys, PhysName(i))
	}
	return c, nil
}

// NewRand builds a random chain with the given uniform bond and physical
// dimensions.
func NewRand(rng *rand.Rand, n, bond, phys int, tags ...string) (*Chain, error) {
	net, _ := network.New()
	c := &Chain{net: net}
	for i := 0; i < n; i++ {
		inds := []tensor.Index{}
		if i > 0 {
			inds = append(inds, tensor.Index{Name: bondName(i - 1), Dim: bond})
		}
		inds = append(inds, tensor.Index{Name: PhysName(i), Dim: phys})
		if i < n-1 {
			inds = append(inds, tensor.Index{Name: bondName(i), Dim: bond})
		}
		t := tensor.Rand(rng, inds, append([]string{SiteTag(i)}, tags...)...)
		id, err := net.Add(t)
		if err != nil {
			return nil, err
		}
		c.ids = append(c.ids, id)
		c.phys = append(c.phys, PhysName(i))
	}
	return c, nil
}

func bondName(i int) string { return fmt.Sprintf("b%d", i) }

// Len returns the number of sites.
func (c *Chain) Len() int { return len(c.ids) }

// Network returns the underlying network.
func (c *Chain) Network() *network.Network { return c.net }

// Site returns the tensor at site i.
func (c *Chain) Site(i int) *tensor.Tensor { return c.net.Tensor(c.ids[i]) }

// PhysInd returns the physical index name of site i.
func (c *Chain) PhysInd(i int) string { return c.phys[i] }

// bondInds returns the indices shared between sites i and i+1.
func (c *Chain) bondInds(i int) []string {
	a, b := c.Site(i), c.Site(i+1)
	var out []string
	for _, name := range a.IndNames() {
		if b.HasInd(name) {
			out = append(out, name)
		}
	}
	return out
}

// BondDim returns the total bond dimension between sites i and i+1 (the
// product when several indices join them).
func (c *Chain) BondDim(i int) int {
	d := 1
	for _, name := range c.bondInds(i) {
		d *= c.net.IndDim(name)
	}
	return d
}

// MaxBond returns the largest bond dimension between adjacent sites.
func (c *Chain) MaxBond() int {
	out := 0
	for i := 0; i+1 < c.Len(); i++ {
		if d := c.BondDim(i); d > out {
			out = d
		}
	}
	return out
}

// openInds returns site i's indices that do not join it to a neighbor.
func (c *Chain) openInds(i int) []string {
	t := c.Site(i)
	shared := make(map[string]bool)
	if i > 0 {
		for _, name := range c.bondInds(i - 1) {
			shared[name] = true
		}
	}
	if i+1 < c.Len() {
		for _, name := range c.bondInds(i) {
			shared[name] = true
		}
	}
	var out []string
	for _, name := range t.IndNames() {
		if !shared[name] {
			out = append(out, name)
		}
	}
	return out
}
