package grid

import (
	"github.com/pkg/errors"

	"github.com/tnet-ml/tnet/internal/chain"
	"github.com/tnet-ml/tnet/internal/network"
)

// BoundaryOptions configures approximate boundary contraction.
type BoundaryOptions struct {
	// MaxBond caps the boundary line's bond dimension after each absorb.
	MaxBond int
	// Cutoff is the relative singular-value cutoff of the line compression.
	// Zero means the default cutoff, negative disables it.
	Cutoff float64
	// LayerTags, when set, absorbs a multi-layer row into the boundary one
	// layer at a time, which keeps the intermediates during the absorb
	// smaller. Typically []string{KetTag, BraTag} for norm networks.
	LayerTags []string
}

// axis describes one sweep direction over the lattice: the tags of the
// lines being absorbed and of the positions across each line.
type axis struct {
	lineTag  func(int) string
	crossTag func(int) string
	lines    int
	cross    int
}

func rowAxis(lx, ly int) axis { return axis{lineTag: RowTag, crossTag: ColTag, lines: lx, cross: ly} }
func colAxis(lx, ly int) axis { return axis{lineTag: ColTag, crossTag: RowTag, lines: ly, cross: lx} }

// ContractBoundary contracts a closed lx-by-ly network to a scalar by
// absorbing rows into boundary lines, compressing each line's bonds to
// opts.MaxBond after every absorb. The sweep runs from both ends toward
// the middle and finishes with an exact contraction of the two remaining
// lines. The input network is not mutated. Exact when MaxBond is at least
// each line's true bond dimension; otherwise a controlled approximation.
func ContractBoundary(net *network.Network, lx, ly int, opts BoundaryOptions) (float64, error) {
	work := net.Copy()
	ax := rowAxis(lx, ly)
	lo, hi := 0, ax.lines-1
	for hi-lo > 1 {
		if err := absorbLine(work, ax, lo, lo+1, opts); err != nil {
			return 0, err
		}
		lo++
		if hi-lo > 1 {
			if err := absorbLine(work, ax, hi, hi-1, opts); err != nil {
				return 0, err
			}
			hi--
		}
	}
	return work.ContractValue(network.ContractOptions{Optimize: "greedy"})
}

// absorbLine folds line `from` into line `to`: each position's tensors
// contract with their neighbor across the step, then the merged line is
// compressed. Mutates net.
func absorbLine(net *network.Network, ax axis, from, to int, opts BoundaryOptions) error {
	if err := net.Retag(map[string]string{ax.lineTag(from): ax.lineTag(to)}, true); err != nil {
		return err
	}
	copts := network.ContractOptions{Optimize: "greedy"}
	for j := 0; j < ax.cross; j++ {
		group := []string{ax.lineTag(to), ax.crossTag(j)}
		for _, lt := range opts.LayerTags {
			layered := append(append([]string{}, group...), lt)
			if len(net.SelectIDs(network.SelectAll, layered...)) < 2 {
				continue
			}
			if _, err := net.ContractTags(network.SelectAll, layered, copts); err != nil {
				return err
			}
		}
		if len(net.SelectIDs(network.SelectAll, group...)) < 2 {
			continue
		}
		if _, err := net.ContractTags(network.SelectAll, group, copts); err != nil {
			return err
		}
	}
	ids, err := lineIDs(net, ax, to)
	if err != nil {
		return err
	}
	_, err = chain.CompressLine(net, ids, chain.CompressOptions{
		MaxBond: opts.MaxBond,
		Cutoff:  opts.Cutoff,
	})
	return err
}

// lineIDs returns the boundary line's tensor ids in cross order, one per
// position.
func lineIDs(net *network.Network, ax axis, line int) ([]int, error) {
	ids := make([]int, 0, ax.cross)
	for j := 0; j < ax.cross; j++ {
		found := net.SelectIDs(network.SelectAll, ax.lineTag(line), ax.crossTag(j))
		if len(found) != 1 {
			return nil, errors.Errorf("grid: %d tensors at line %s position %s, want 1",
				len(found), ax.lineTag(line), ax.crossTag(j))
		}
		ids = append(ids, found[0])
	}
	return ids, nil
}

// Environments holds per-line boundary environments of a closed network.
// Below[i] contracts every line before i (nil at i == 0); Above[i]
// contracts every line after i (nil at the last line). Merging Below[i],
// line i itself and Above[i] recovers the full contraction up to the
// compression error.
type Environments struct {
	Below []*network.Network
	Above []*network.Network
}

// RowEnvironments computes boundary environments for every row.
func RowEnvironments(net *network.Network, lx, ly int, opts BoundaryOptions) (*Environments, error) {
	return environments(net, rowAxis(lx, ly), opts)
}

// ColEnvironments computes boundary environments for every column.
func ColEnvironments(net *network.Network, lx, ly int, opts BoundaryOptions) (*Environments, error) {
	return environments(net, colAxis(lx, ly), opts)
}

func environments(net *network.Network, ax axis, opts BoundaryOptions) (*Environments, error) {
	envs := &Environments{
		Below: make([]*network.Network, ax.lines),
		Above: make([]*network.Network, ax.lines),
	}

	// Sweep upward: after absorbing lines 0..i-1 into line i-1, that line
	// is the environment below line i.
	work := net.Copy()
	for i := 1; i < ax.lines; i++ {
		envs.Below[i] = work.Select(network.SelectAll, ax.lineTag(i-1)).Copy()
		if i+1 < ax.lines {
			if err := absorbLine(work, ax, i-1, i, opts); err != nil {
				return nil, err
			}
		}
	}

	// And downward for the environments above.
	work = net.Copy()
	for i := ax.lines - 2; i >= 0; i-- {
		envs.Above[i] = work.Select(network.SelectAll, ax.lineTag(i+1)).Copy()
		if i > 0 {
			if err := absorbLine(work, ax, i+1, i, opts); err != nil {
				return nil, err
			}
		}
	}
	return envs, nil
}
