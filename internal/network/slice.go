package network

import (
	"github.com/pkg/errors"

	"github.com/tnet-ml/tnet/internal/path"
	"github.com/tnet-ml/tnet/internal/tensor"
)

// ContractSliced contracts the whole network while keeping the contraction
// width at or below budget by slicing indices: the chosen indices are
// iterated over their values, a rank-reduced copy of the network is
// contracted per combination, and the partial results are summed. The sum
// over slices is exact, so the result matches Contract up to floating-point
// rounding. Returns the result and the names of the sliced indices (empty
// when no slicing was needed).
func (n *Network) ContractSliced(budget float64, opts ContractOptions) (*tensor.Tensor, []string, error) {
	opts.MaxWidth = 0 // the budget is met by slicing, not by refusal
	plan, err := n.plan(n.IDs(), opts)
	if err != nil {
		return nil, nil, err
	}
	sliced := path.FindSlices(plan.hg, plan.path, budget)
	if len(sliced) == 0 {
		result, err := executePath(plan.working, plan.path, plan.keep)
		return result, nil, err
	}

	dims := make([]int, len(sliced))
	for i, name := range sliced {
		dims[i] = plan.hg.Dims[name]
	}

	var total *tensor.Tensor
	coords := make([]int, len(sliced))
	for {
		working := make([]*tensor.Tensor, len(plan.working))
		for i, t := range plan.working {
			for s, name := range sliced {
				if !t.HasInd(name) {
					continue
				}
				var err error
				t, err = t.IndexSlice(name, coords[s])
				if err != nil {
					return nil, nil, err
				}
			}
			working[i] = t
		}
		part, err := executePath(working, plan.path, plan.keep)
		if err != nil {
			return nil, nil, err
		}
		if total == nil {
			total = part
		} else {
			total, err = addTensors(total, part)
			if err != nil {
				return nil, nil, err
			}
		}
		if !advance(coords, dims) {
			break
		}
	}
	return total, sliced, nil
}

// advance increments a mixed-radix odometer; false when it wraps.
func advance(coords, dims []int) bool {
	for i := len(coords) - 1; i >= 0; i-- {
		coords[i]++
		if coords[i] < dims[i] {
			return true
		}
		coords[i] = 0
	}
	return false
}

// addTensors sums two tensors over the same index set, aligning orders.
func addTensors(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	aligned, err := b.ToOrder(a.IndNames()...)
	if err != nil {
		return nil, errors.Wrap(err, "network: slice results disagree on indices")
	}
	data := make([]float64, a.Size())
	for i, v := range a.Data() {
		data[i] = v + aligned.Data()[i]
	}
	return tensor.New(data, a.Inds(), a.Tags()...)
}
