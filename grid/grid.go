// Copyright 2025 TNet ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package grid provides the public API for 2D lattice tensor networks:
// norm networks over bra/ket layers, flattening, and approximate boundary
// contraction with per-line environments.
package grid

import (
	"math/rand/v2"

	"github.com/tnet-ml/tnet/internal/grid"
	"github.com/tnet-ml/tnet/internal/network"
)

// Grid is a 2D tensor network with one tensor per lattice site.
type Grid = grid.Grid

// BoundaryOptions configures approximate boundary contraction.
type BoundaryOptions = grid.BoundaryOptions

// Environments holds per-line boundary environments.
type Environments = grid.Environments

// Layer tags of a norm network.
const (
	KetTag = grid.KetTag
	BraTag = grid.BraTag
)

// NewRand builds a random grid with uniform bond and physical dimensions.
func NewRand(rng *rand.Rand, lx, ly, bond, phys int, tags ...string) (*Grid, error) {
	return grid.NewRand(rng, lx, ly, bond, phys, tags...)
}

// ContractBoundary contracts a closed lattice network to a scalar by
// absorbing and compressing one boundary line at a time.
func ContractBoundary(net *network.Network, lx, ly int, opts BoundaryOptions) (float64, error) {
	return grid.ContractBoundary(net, lx, ly, opts)
}

// Flatten merges every bra/ket layer pair of a norm network in place.
func Flatten(net *network.Network, lx, ly int) error { return grid.Flatten(net, lx, ly) }

// RowEnvironments computes boundary environments for every row.
func RowEnvironments(net *network.Network, lx, ly int, opts BoundaryOptions) (*Environments, error) {
	return grid.RowEnvironments(net, lx, ly, opts)
}

// ColEnvironments computes boundary environments for every column.
func ColEnvironments(net *network.Network, lx, ly int, opts BoundaryOptions) (*Environments, error) {
	return grid.ColEnvironments(net, lx, ly, opts)
}

// SiteTag returns the tag of site (i, j).
func SiteTag(i, j int) string { return grid.SiteTag(i, j) }

// RowTag returns the tag shared by row i.
func RowTag(i int) string { return grid.RowTag(i) }

// ColTag returns the tag shared by column j.
func ColTag(j int) string { return grid.ColTag(j) }

// PhysName returns the physical index name of site (i, j).
func PhysName(i, j int) string { return grid.PhysName(i, j) }
