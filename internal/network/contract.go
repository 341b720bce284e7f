package network

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/tnet-ml/tnet/internal/path"
	"github.com/tnet-ml/tnet/internal/tensor"
)

// ContractOptions configures a contraction.
type ContractOptions struct {
	// Optimize names the path strategy: "greedy", "random-greedy",
	// "optimal" or "auto" (default).
	Optimize string
	// Trials and Seed configure random-greedy.
	Trials int
	Seed   uint64
	// OutputInds fixes the result's indices explicitly. Required when a
	// fully internal hyperindex would make the result ambiguous.
	OutputInds []string
	// MaxWidth, when positive, bounds the permitted contraction width
	// (log2 elements of the largest intermediate). Exceeding it surfaces a
	// BudgetError before any work is done.
	MaxWidth float64
}

// Contract contracts the whole network to a single tensor. The network is
// not mutated; the result is detached. Any valid contraction order yields
// the same result up to floating-point rounding; Optimize only affects cost.
func (n *Network) Contract(opts ContractOptions) (*tensor.Tensor, error) {
	return n.contractIDs(n.IDs(), opts)
}

// ContractValue contracts the whole network to a scalar.
func (n *Network) ContractValue(opts ContractOptions) (float64, error) {
	t, err := n.Contract(opts)
	if err != nil {
		return 0, err
	}
	if t.Rank() != 0 {
		return 0, errors.Errorf("network: contraction result has rank %d, want scalar", t.Rank())
	}
	return t.Data()[0], nil
}

// ContractTags contracts the tensors matching the tags into one tensor and
// replaces them in the network, returning the new tensor's id. The replaced
// group's external indices are preserved; the result carries the union of
// the group's tags. Mutation is staged: on any error the network is
// untouched.
func (n *Network) ContractTags(mode SelectMode, tags []string, opts ContractOptions) (int, error) {
	ids := n.SelectIDs(mode, tags...)
	if len(ids) == 0 {
		return 0, errors.Errorf("network: no tensors match tags %v", tags)
	}
	result, err := n.contractIDs(ids, opts)
	if err != nil {
		return 0, err
	}
	union := make(map[string]struct{})
	for _, id := range ids {
		for _, tag := range n.ts[id].Tags() {
			union[tag] = struct{}{}
		}
	}
	allTags := make([]string, 0, len(union))
	for tag := range union {
		allTags = append(allTags, tag)
	}
	sort.Strings(allTags)

	for _, id := range ids {
		if _, err := n.Pop(id); err != nil {
			return 0, err
		}
	}
	return n.Add(result.WithTags(allTags...))
}

// ContractionWidth estimates the peak intermediate size (log2 elements) for
// the optimized path, without contracting anything. Clients use it to judge
// feasibility before committing.
func (n *Network) ContractionWidth(opts ContractOptions) (float64, error) {
	plan, err := n.plan(n.IDs(), opts)
	if err != nil {
		return 0, err
	}
	return plan.cost.Width, nil
}

// contractPlan is the staged, side-effect-free part of a contraction.
type contractPlan struct {
	working []*tensor.Tensor
	hg      *path.Hypergraph
	path    path.Path
	cost    path.Cost
	keep    map[string]bool
}

// plan resolves output indices, pre-sums dropped singleton indices, and runs
// the path optimizer. It performs no mutation.
func (n *Network) plan(ids []int, opts ContractOptions) (*contractPlan, error) {
	if len(ids) == 0 {
		return nil, errors.New("network: nothing to contract")
	}
	inSubset := make(map[int]bool, len(ids))
	for _, id := range ids {
		if _, ok := n.ts[id]; !ok {
			return nil, errors.Errorf("network: no tensor with id %d", id)
		}
		inSubset[id] = true
	}

	// Reference counts of each index within the subset, and externally.
	subCount := make(map[string]int)
	extCount := make(map[string]int)
	for name, set := range n.indMap {
		for id := range set {
			if inSubset[id] {
				subCount[name]++
			} else {
				extCount[name]++
			}
		}
	}

	keep := make(map[string]bool)
	for name := range extCount {
		if subCount[name] > 0 {
			keep[name] = true
		}
	}
	if opts.OutputInds != nil {
		for _, name := range opts.OutputInds {
			if subCount[name] == 0 {
				return nil, errors.Errorf("network: output index %q not in contracted group", name)
			}
			keep[name] = true
		}
	} else {
		for name, c := range subCount {
			if c == 1 && extCount[name] == 0 {
				keep[name] = true // open index stays open
			}
			if c >= 3 && extCount[name] == 0 {
				return nil, &AmbiguousContractionError{Ind: name}
			}
		}
	}

	// Working tensors; indices dropped from an explicit output that nothing
	// else references get summed out up front.
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	working := make([]*tensor.Tensor, 0, len(sorted))
	for _, id := range sorted {
		t := n.ts[id]
		for _, name := range t.IndNames() {
			if subCount[name] == 1 && !keep[name] {
				var err error
				t, err = t.SumOver(name)
				if err != nil {
					return nil, err
				}
			}
		}
		working = append(working, t)
	}

	hg := &path.Hypergraph{Dims: make(map[string]int), Keep: keep}
	for _, t := range working {
		hg.Inputs = append(hg.Inputs, t.IndNames())
		for _, ix := range t.Inds() {
			hg.Dims[ix.Name] = ix.Dim
		}
	}
	p, cost, err := path.Find(hg, path.Options{
		Strategy: opts.Optimize,
		Trials:   opts.Trials,
		Seed:     opts.Seed,
	})
	if err != nil {
		return nil, err
	}
	if opts.MaxWidth > 0 && cost.Width > opts.MaxWidth {
		return nil, &BudgetError{Width: cost.Width, Budget: opts.MaxWidth}
	}
	return &contractPlan{working: working, hg: hg, path: p, cost: cost, keep: keep}, nil
}

func (n *Network) contractIDs(ids []int, opts ContractOptions) (*tensor.Tensor, error) {
	plan, err := n.plan(ids, opts)
	if err != nil {
		return nil, err
	}
	result, err := executePath(plan.working, plan.path, plan.keep)
	if err != nil {
		return nil, err
	}
	if opts.OutputInds != nil && len(opts.OutputInds) == result.Rank() {
		return result.ToOrder(opts.OutputInds...)
	}
	return result, nil
}

// executePath replays a contraction path over actual tensors. Shared indices
// of a pair are summed only once nothing else references them and they are
// not kept; until then they survive as batch axes, which is how hyperindices
// contract correctly under any order.
func executePath(inputs []*tensor.Tensor, p path.Path, keep map[string]bool) (*tensor.Tensor, error) {
	nodes := make(map[int]*tensor.Tensor, len(inputs))
	refs := make(map[string]int)
	for i, t := range inputs {
		nodes[i] = t
		for _, name := range t.IndNames() {
			refs[name]++
		}
	}
	next := len(inputs)

	contractPair := func(a, b *tensor.Tensor) (*tensor.Tensor, error) {
		var sum, batch []string
		for _, name := range a.IndNames() {
			if !b.HasInd(name) {
				continue
			}
			if refs[name] == 2 && !keep[name] {
				sum = append(sum, name)
			} else {
				batch = append(batch, name)
			}
		}
		return tensor.ContractOver(a, b, sum, batch)
	}

	for _, step := range p.Steps {
		a, okA := nodes[step.L]
		b, okB := nodes[step.R]
		if !okA || !okB {
			return nil, errors.Errorf("network: path step (%d, %d) references a dead intermediate", step.L, step.R)
		}
		result, err := contractPair(a, b)
		if err != nil {
			return nil, err
		}
		for _, name := range a.IndNames() {
			refs[name]--
		}
		for _, name := range b.IndNames() {
			refs[name]--
		}
		for _, name := range result.IndNames() {
			refs[name]++
		}
		delete(nodes, step.L)
		delete(nodes, step.R)
		nodes[next] = result
		next++
	}
	if len(nodes) != 1 {
		return nil, errors.Errorf("network: %d tensors left after contraction, want 1", len(nodes))
	}
	for _, t := range nodes {
		return t, nil
	}
	return nil, nil
}
