package path

// FindSlices selects indices to slice so that the path's contraction width
// drops to at most budget (log2 elements). Sliced indices are iterated
// externally: each slice contracts a rank-reduced copy of the network and
// the results are summed, which is exact. Returns the chosen index names;
// indices that must be kept are never sliced.
//
// Greedy selection: repeatedly slice the largest-dimension index appearing
// in the widest intermediate, re-evaluating after each choice.
func FindSlices(hg *Hypergraph, p Path, budget float64) []string {
	sliced := make(map[string]bool)
	work := &Hypergraph{Inputs: hg.Inputs, Keep: hg.Keep, Dims: make(map[string]int, len(hg.Dims))}
	for name, d := range hg.Dims {
		work.Dims[name] = d
	}

	var out []string
	for {
		cost, err := Evaluate(work, p)
		if err != nil || cost.Width <= budget {
			return out
		}
		name := widestSliceable(work, p, sliced)
		if name == "" {
			return out // nothing left to slice
		}
		sliced[name] = true
		work.Dims[name] = 1
		out = append(out, name)
	}
}

// widestSliceable replays the path and returns the best slicing candidate
// within the largest intermediate: highest dimension, name order as the
// tie-break.
func widestSliceable(hg *Hypergraph, p Path, already map[string]bool) string {
	s := newState(hg)
	var widest node
	maxSize := 0.0
	consider := func(nd node) {
		if sz := s.size(nd); sz > maxSize {
			maxSize = sz
			widest = nd.clone()
		}
	}
	for _, nd := range s.nodes {
		consider(nd)
	}
	for _, step := range p.Steps {
		id := s.apply(step.L, step.R)
		consider(s.nodes[id])
	}

	best := ""
	bestDim := 1
	for name := range widest {
		if already[name] || hg.Keep[name] {
			continue
		}
		d := hg.Dims[name]
		if d > bestDim || (d == bestDim && best != "" && name < best) {
			best = name
			bestDim = d
		}
	}
	return best
}
