// Copyright 2025 TNet ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for dense tensors with named
// indices.
//
// # Overview
//
// A Tensor pairs a flat float64 buffer with an ordered list of named
// indices. Axes are addressed by name, never by position, so two tensors
// contract over whichever indices they share:
//   - Tensor: immutable dense tensor with named indices and string tags
//   - Contract, ContractOver: pairwise contraction over shared indices
//   - Split: SVD/QR factorization with cutoff and bond-dimension control
//   - Fuse, ToOrder: axis grouping and reordering
//
// # Basic Usage
//
//	import "github.com/tnet-ml/tnet/tensor"
//
//	func main() {
//	    a, _ := tensor.New(dataA, []tensor.Index{{Name: "i", Dim: 2}, {Name: "j", Dim: 3}})
//	    b, _ := tensor.New(dataB, []tensor.Index{{Name: "j", Dim: 3}, {Name: "k", Dim: 4}})
//
//	    // Sums over "j", the one index the operands share.
//	    c, _ := tensor.Contract(a, b)
//
//	    // Truncating factorization across the ("i") / ("k") bipartition.
//	    l, r, info, _ := c.Split([]string{"i"}, tensor.SplitOptions{MaxBond: 2})
//	    _ = info.TruncErr
//	    _, _ = l, r
//	}
package tensor
