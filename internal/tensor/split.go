package tensor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultCutoff is the library-wide default relative truncation threshold
// for SVD-based splits.
const DefaultCutoff = 1e-10

// SplitMethod selects the factorization used by Split.
type SplitMethod int

const (
	// SplitSVD factorizes with a singular value decomposition and supports
	// truncation.
	SplitSVD SplitMethod = iota
	// SplitQR factorizes with a QR decomposition: no truncation, the left
	// factor is isometric. Used for canonicalization sweeps.
	SplitQR
)

// Absorb controls which side of an SVD split receives the singular values.
type Absorb int

const (
	// AbsorbBoth splits sqrt of the weights into each side.
	AbsorbBoth Absorb = iota
	// AbsorbLeft folds the weights into the left tensor; the right tensor is
	// isometric (its rows are orthonormal).
	AbsorbLeft
	// AbsorbRight folds the weights into the right tensor; the left tensor
	// is isometric (its columns are orthonormal).
	AbsorbRight
)

// CutoffMode selects how Cutoff is interpreted.
type CutoffMode int

const (
	// CutoffRelSum2 discards the smallest singular values whose combined
	// squared weight stays below Cutoff^2 of the total.
	CutoffRelSum2 CutoffMode = iota
	// CutoffAbs discards singular values below Cutoff outright.
	CutoffAbs
)

// SplitOptions configures a Split. The zero value means: SVD, DefaultCutoff,
// no bond cap, weights absorbed into both sides.
type SplitOptions struct {
	Method     SplitMethod
	Cutoff     float64 // 0 means DefaultCutoff, negative disables
	CutoffMode CutoffMode
	MaxBond    int // hard cap on the new bond dimension; 0 means unbounded
	Absorb     Absorb
	// BondName names the new bond index; empty generates a fresh name.
	BondName string
}

// SplitInfo reports the observable outcome of a Split.
type SplitInfo struct {
	BondName string
	BondDim  int
	// TruncErr is the relative discarded weight,
	// sqrt(sum of discarded s^2 / sum of all s^2). Zero for QR splits.
	TruncErr float64
}

// Split factorizes the tensor into (left, right) joined by a new bond index:
// left carries leftInds plus the bond, right carries the bond plus the
// remaining indices. Truncation (SVD only) is governed by opts.Cutoff and
// opts.MaxBond; the discarded weight is reported in SplitInfo, never as an
// error.
func (t *Tensor) Split(leftInds []string, opts SplitOptions) (*Tensor, *Tensor, SplitInfo, error) {
	inLeft := make(map[string]bool, len(leftInds))
	for _, name := range leftInds {
		if !t.HasInd(name) {
			return nil, nil, SplitInfo{}, errors.Errorf("tensor.Split: unknown index %q", name)
		}
		inLeft[name] = true
	}
	var left, right []Index
	for _, ix := range t.inds {
		if inLeft[ix.Name] {
			left = append(left, ix)
		} else {
			right = append(right, ix)
		}
	}
	moved, err := t.ToOrder(append(IndexNames(left), IndexNames(right)...)...)
	if err != nil {
		return nil, nil, SplitInfo{}, err
	}
	rows := ShapeOf(left).NumElements()
	cols := ShapeOf(right).NumElements()
	a := mat.NewDense(rows, cols, moved.data)

	bondName := opts.BondName
	if bondName == "" {
		bondName = NewBondName()
	}

	// Cutoff zero means the library default; negative disables truncation.
	cutoff := opts.Cutoff
	if cutoff == 0 {
		cutoff = DefaultCutoff
	} else if cutoff < 0 {
		cutoff = 0
	}

	var lData, rData []float64
	var k int
	info := SplitInfo{BondName: bondName}

	method := opts.Method
	absorb := opts.Absorb
	if method == SplitQR && rows < cols {
		// gonum's QR needs rows >= cols; an untruncated SVD with the
		// weights absorbed right is the same left-isometric factorization.
		method, absorb, cutoff = SplitSVD, AbsorbRight, 0
	}

	switch method {
	case SplitQR:
		lData, rData, k = thinQR(a, rows, cols)
	case SplitSVD:
		var svd mat.SVD
		if !svd.Factorize(a, mat.SVDThin) {
			return nil, nil, SplitInfo{}, errors.New("tensor.Split: SVD failed to converge")
		}
		s := svd.Values(nil)
		var u, v mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)

		k, info.TruncErr = truncationRank(s, cutoff, opts.CutoffMode, opts.MaxBond)

		lData = make([]float64, rows*k)
		rData = make([]float64, k*cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < k; j++ {
				lData[i*k+j] = u.At(i, j)
			}
		}
		for i := 0; i < k; i++ {
			for j := 0; j < cols; j++ {
				rData[i*cols+j] = v.At(j, i)
			}
		}
		applyWeights(lData, rData, s[:k], rows, cols, absorb)
	default:
		return nil, nil, SplitInfo{}, errors.Errorf("tensor.Split: unknown method %d", opts.Method)
	}
	info.BondDim = k

	bond := Index{Name: bondName, Dim: k}
	lt, err := New(lData, append(cloneInds(left), bond), t.Tags()...)
	if err != nil {
		return nil, nil, SplitInfo{}, err
	}
	rt, err := New(rData, append([]Index{bond}, right...), t.Tags()...)
	if err != nil {
		return nil, nil, SplitInfo{}, err
	}
	return lt, rt, info, nil
}

// truncationRank returns how many singular values to keep and the relative
// discarded weight. In the default mode the cutoff discards the smallest
// values whose combined squared weight stays below cutoff^2 of the total;
// in absolute mode it discards values below cutoff. maxBond then caps the
// count, keeping the largest.
func truncationRank(s []float64, cutoff float64, mode CutoffMode, maxBond int) (int, float64) {
	total := 0.0
	for _, v := range s {
		total += v * v
	}
	k := len(s)
	if total > 0 && cutoff > 0 {
		switch mode {
		case CutoffAbs:
			for k > 1 && s[k-1] < cutoff {
				k--
			}
		default:
			budget := cutoff * cutoff * total
			discarded := 0.0
			for k > 1 {
				tail := s[k-1] * s[k-1]
				if discarded+tail > budget {
					break
				}
				discarded += tail
				k--
			}
		}
	}
	if maxBond > 0 && k > maxBond {
		k = maxBond
	}
	if k < 1 {
		k = 1
	}
	discarded := 0.0
	for _, v := range s[k:] {
		discarded += v * v
	}
	if total == 0 {
		return k, 0
	}
	return k, math.Sqrt(discarded / total)
}

// applyWeights folds the kept singular values into the factor data per the
// absorb mode. lData is rows x k, rData is k x cols.
func applyWeights(lData, rData, s []float64, rows, cols int, absorb Absorb) {
	k := len(s)
	switch absorb {
	case AbsorbLeft:
		for i := 0; i < rows; i++ {
			for j := 0; j < k; j++ {
				lData[i*k+j] *= s[j]
			}
		}
	case AbsorbRight:
		for j := 0; j < k; j++ {
			for i := 0; i < cols; i++ {
				rData[j*cols+i] *= s[j]
			}
		}
	case AbsorbBoth:
		for j := 0; j < k; j++ {
			w := math.Sqrt(s[j])
			for i := 0; i < rows; i++ {
				lData[i*k+j] *= w
			}
			for i := 0; i < cols; i++ {
				rData[j*cols+i] *= w
			}
		}
	}
}

// thinQR computes the thin QR factorization of a (rows x cols): Q is
// rows x k and R is k x cols with k = min(rows, cols).
func thinQR(a *mat.Dense, rows, cols int) (qData, rData []float64, k int) {
	k = rows
	if cols < k {
		k = cols
	}
	var qr mat.QR
	qr.Factorize(a)
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	qData = make([]float64, rows*k)
	for i := 0; i < rows; i++ {
		for j := 0; j < k; j++ {
			qData[i*k+j] = q.At(i, j)
		}
	}
	rData = make([]float64, k*cols)
	for i := 0; i < k; i++ {
		for j := 0; j < cols; j++ {
			rData[i*cols+j] = r.At(i, j)
		}
	}
	return qData, rData, k
}
