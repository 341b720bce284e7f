package tensor

import (
	"gonum.org/v1/gonum/mat"
)

// Contract sums over all indices shared between a and b. The result's
// indices are the symmetric difference, ordered by first occurrence with a's
// indices before b's. Shared indices must agree on dimension (ShapeError
// otherwise).
func Contract(a, b *Tensor) (*Tensor, error) {
	var sum []string
	for _, ix := range a.inds {
		if b.HasInd(ix.Name) {
			sum = append(sum, ix.Name)
		}
	}
	return ContractOver(a, b, sum, nil)
}

// ContractOver contracts a and b, summing over the indices named in sum and
// keeping the indices named in batch (which appear in both operands but must
// survive, e.g. hyperindices still referenced elsewhere). Both are treated as
// a single generalized matrix multiply after grouping axes into
// [batch, rest-of-a, summed] x [batch, summed, rest-of-b].
func ContractOver(a, b *Tensor, sum, batch []string) (*Tensor, error) {
	inSum := make(map[string]bool, len(sum))
	inBatch := make(map[string]bool, len(batch))
	for _, name := range sum {
		inSum[name] = true
	}
	for _, name := range batch {
		inBatch[name] = true
	}
	for _, name := range append(append([]string{}, sum...), batch...) {
		da, db := a.Dim(name), b.Dim(name)
		if da == 0 || db == 0 {
			return nil, &ShapeError{Op: "tensor.Contract", Ind: name, Want: da, Got: db}
		}
		if da != db {
			return nil, &ShapeError{Op: "tensor.Contract", Ind: name, Want: da, Got: db}
		}
	}

	var restA, restB []Index
	for _, ix := range a.inds {
		if !inSum[ix.Name] && !inBatch[ix.Name] {
			restA = append(restA, ix)
		}
	}
	for _, ix := range b.inds {
		if !inSum[ix.Name] && !inBatch[ix.Name] {
			restB = append(restB, ix)
		}
	}

	// Group axes: a -> [batch, restA, sum], b -> [batch, sum, restB].
	aOrder := append(append(append([]string{}, batch...), IndexNames(restA)...), sum...)
	bOrder := append(append(append([]string{}, batch...), sum...), IndexNames(restB)...)
	ta, err := a.ToOrder(aOrder...)
	if err != nil {
		return nil, err
	}
	tb, err := b.ToOrder(bOrder...)
	if err != nil {
		return nil, err
	}

	nBatch, nSum := 1, 1
	for _, name := range batch {
		nBatch *= a.Dim(name)
	}
	for _, name := range sum {
		nSum *= a.Dim(name)
	}
	m := ShapeOf(restA).NumElements()
	n := ShapeOf(restB).NumElements()

	outInds := make([]Index, 0, len(batch)+len(restA)+len(restB))
	for _, name := range batch {
		outInds = append(outInds, Index{Name: name, Dim: a.Dim(name)})
	}
	outInds = append(outInds, restA...)
	outInds = append(outInds, restB...)
	out := Zeros(outInds)

	// One GEMM per batch element; the dense kernel is delegated to gonum.
	for k := 0; k < nBatch; k++ {
		ma := mat.NewDense(m, nSum, ta.data[k*m*nSum:(k+1)*m*nSum])
		mb := mat.NewDense(nSum, n, tb.data[k*nSum*n:(k+1)*nSum*n])
		mc := mat.NewDense(m, n, out.data[k*m*n:(k+1)*m*n])
		mc.Mul(ma, mb)
	}
	return out, nil
}
