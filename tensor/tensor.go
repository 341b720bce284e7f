// Copyright 2025 TNet ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math/rand/v2"

	"github.com/tnet-ml/tnet/internal/tensor"
)

// Type aliases for the public API.

// Tensor is an immutable dense float64 tensor with named indices.
type Tensor = tensor.Tensor

// Index is a named tensor axis with its dimension.
type Index = tensor.Index

// Shape is an ordered list of dimensions.
type Shape = tensor.Shape

// SplitMethod selects the factorization used by Split.
type SplitMethod = tensor.SplitMethod

// Split methods.
const (
	SplitSVD = tensor.SplitSVD
	SplitQR  = tensor.SplitQR
)

// Absorb controls which side of an SVD split receives the singular values.
type Absorb = tensor.Absorb

// Absorb modes.
const (
	AbsorbBoth  = tensor.AbsorbBoth
	AbsorbLeft  = tensor.AbsorbLeft
	AbsorbRight = tensor.AbsorbRight
)

// CutoffMode selects how SplitOptions.Cutoff is interpreted.
type CutoffMode = tensor.CutoffMode

// Cutoff modes.
const (
	CutoffRelSum2 = tensor.CutoffRelSum2
	CutoffAbs     = tensor.CutoffAbs
)

// SplitOptions configures a Split call.
type SplitOptions = tensor.SplitOptions

// SplitInfo reports the new bond and the truncation error of a Split.
type SplitInfo = tensor.SplitInfo

// FuseInfo records an axis fusion so it can be undone with Unfuse.
type FuseInfo = tensor.FuseInfo

// ShapeError reports a dimension mismatch.
type ShapeError = tensor.ShapeError

// NameCollisionError reports a rename that would silently merge names.
type NameCollisionError = tensor.NameCollisionError

// DefaultCutoff is the relative singular-value cutoff used when
// SplitOptions.Cutoff is zero.
const DefaultCutoff = tensor.DefaultCutoff

// New creates a tensor from row-major data and its named indices.
func New(data []float64, inds []Index, tags ...string) (*Tensor, error) {
	return tensor.New(data, inds, tags...)
}

// Scalar creates a rank-0 tensor.
func Scalar(v float64, tags ...string) *Tensor { return tensor.Scalar(v, tags...) }

// Zeros creates a zero-filled tensor.
func Zeros(inds []Index, tags ...string) *Tensor { return tensor.Zeros(inds, tags...) }

// Rand creates a tensor with entries drawn uniformly from [-1, 1).
func Rand(rng *rand.Rand, inds []Index, tags ...string) *Tensor {
	return tensor.Rand(rng, inds, tags...)
}

// Delta creates a generalized identity: 1 where all indices agree, else 0.
func Delta(dim int, names ...string) *Tensor { return tensor.Delta(dim, names...) }

// Contract contracts two tensors, summing over every shared index.
func Contract(a, b *Tensor) (*Tensor, error) { return tensor.Contract(a, b) }

// ContractOver contracts two tensors with explicit summed and batch index
// sets, which is what hyperindex-aware callers need.
func ContractOver(a, b *Tensor, sum, batch []string) (*Tensor, error) {
	return tensor.ContractOver(a, b, sum, batch)
}

// NewBondName returns a fresh globally unique index name.
func NewBondName() string { return tensor.NewBondName() }
