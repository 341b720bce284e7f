// Package grid implements 2D structured tensor networks on a rectangular
// lattice, with norm networks over bra/ket layers and approximate boundary
// contraction.
package grid

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/tnet-ml/tnet/internal/network"
	"github.com/tnet-ml/tnet/internal/tensor"
)

// Layer tags carried by the two copies inside a norm network.
const (
	KetTag = "KET"
	BraTag = "BRA"
)

// Grid is a 2D tensor network with one tensor per lattice site (i, j),
// 0 <= i < Lx rows and 0 <= j < Ly columns. Site (i, j) carries the open
// physical index "k{i},{j}" and the tags "I{i},{j}", "ROW{i}" and "COL{j}";
// bond indices join horizontal and vertical neighbors.
type Grid struct {
	net    *network.Network
	Lx, Ly int
	ids    [][]int
}

// SiteTag returns the tag of site (i, j).
func SiteTag(i, j int) string { return fmt.Sprintf("I%d,%d", i, j) }

// RowTag returns the tag shared by row i.
func RowTag(i int) string { return fmt.Sprintf("ROW%d", i) }

// ColTag returns the tag shared by column j.
func ColTag(j int) string { return fmt.Sprintf("COL%d", j) }

// PhysName returns the physical index name of site (i, j).
func PhysName(i, j int) string { return fmt.Sprintf("k%d,%d", i, j) }

func hBond(i, j int) string { return fmt.Sprintf("r%d,%d", i, j) }
func vBond(i, j int) string { return fmt.Sprintf("d%d,%d", i, j) }

// NewRand builds a random grid with uniform bond and physical dimensions.
func NewRand(rng *rand.Rand, lx, ly, bond, phys int, tags ...string) (*Grid, error) {
	if lx < 1 || ly < 1 {
		return nil, errors.Errorf("grid: invalid shape %dx%d", lx, ly)
	}
	net, _ := network.New()
	g := &Grid{net: net, Lx: lx, Ly: ly}
	for i := 0; i < lx; i++ {
		row := make([]int, ly)
		for j := 0; j < ly; j++ {
			var inds []tensor.Index
			if i > 0 {
				inds = append(inds, tensor.Index{Name: vBond(i-1, j), Dim: bond})
			}
			if i < lx-1 {
				inds = append(inds, tensor.Index{Name: vBond(i, j), Dim: bond})
			}
			if j > 0 {
				inds = append(inds, tensor.Index{Name: hBond(i, j-1), Dim: bond})
			}
			if j < ly-1 {
				inds = append(inds, tensor.Index{Name: hBond(i, j), Dim: bond})
			}
			inds = append(inds, tensor.Index{Name: PhysName(i, j), Dim: phys})
			siteTags := append([]string{SiteTag(i, j), RowTag(i), ColTag(j)}, tags...)
			t := tensor.Rand(rng, inds, siteTags...)
			id, err := net.Add(t)
			if err != nil {
				return nil, err
			}
			row[j] = id
		}
		g.ids = append(g.ids, row)
	}
	return g, nil
}

// Network returns the underlying network.
func (g *Grid) Network() *network.Network { return g.net }

// Site returns the tensor at (i, j).
func (g *Grid) Site(i, j int) *tensor.Tensor { return g.net.Tensor(g.ids[i][j]) }

// NumSites returns the number of lattice sites.
func (g *Grid) NumSites() int { return g.Lx * g.Ly }

// ToDense contracts the whole grid into one tensor over all physical
// indices, ordered row-major.
func (g *Grid) ToDense(opts network.ContractOptions) (*tensor.Tensor, error) {
	if opts.OutputInds == nil {
		for i := 0; i < g.Lx; i++ {
			for j := 0; j < g.Ly; j++ {
				opts.OutputInds = append(opts.OutputInds, PhysName(i, j))
			}
		}
	}
	return g.net.Contract(opts)
}

// NormNetwork builds <g|g> as a closed two-layer network: a ket copy tagged
// "KET" and a conjugate bra copy tagged "BRA" whose bond indices get a "*"
// suffix, sharing only the physical indices. Every pair keeps the site, row
// and column tags of its site.
func (g *Grid) NormNetwork() (*network.Network, error) {
	ket := g.net.Copy()
	for _, id := range ket.IDs() {
		if err := ket.Replace(id, ket.Tensor(id).WithTags(KetTag)); err != nil {
			return nil, err
		}
	}

	bra := g.net.Conj()
	mapping := make(map[string]string)
	phys := make(map[string]bool, g.NumSites())
	for i := 0; i < g.Lx; i++ {
		for j := 0; j < g.Ly; j++ {
			phys[PhysName(i, j)] = true
		}
	}
	for _, name := range bra.Inds() {
		if !phys[name] {
			mapping[name] = name + "*"
		}
	}
	if err := bra.Reindex(mapping, false); err != nil {
		return nil, err
	}
	for _, id := range bra.IDs() {
		if err := bra.Replace(id, bra.Tensor(id).WithTags(BraTag)); err != nil {
			return nil, err
		}
	}
	return network.Merge(ket, bra)
}

// Flatten merges every bra/ket layer pair of a norm network in place: one
// tensor per site afterwards, the physical index summed out and parallel
// bonds kept side by side, so effective bond sizes between sites square.
func Flatten(net *network.Network, lx, ly int) error {
	for i := 0; i < lx; i++ {
		for j := 0; j < ly; j++ {
			if len(net.SelectIDs(network.SelectAll, SiteTag(i, j))) < 2 {
				continue
			}
			if _, err := net.ContractTags(network.SelectAll, []string{SiteTag(i, j)}, network.ContractOptions{Optimize: "greedy"}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Norm returns sqrt(<g|g>) computed by approximate boundary contraction of
// the norm network.
func (g *Grid) Norm(opts BoundaryOptions) (float64, error) {
	norm, err := g.NormNetwork()
	if err != nil {
		return 0, err
	}
	if len(opts.LayerTags) == 0 {
		opts.LayerTags = []string{KetTag, BraTag}
	}
	v, err := ContractBoundary(norm, g.Lx, g.Ly, opts)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.Errorf("grid: negative norm square %g", v)
	}
	return math.Sqrt(v), nil
}
