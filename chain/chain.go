// Copyright 2025 TNet ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package chain provides the public API for 1D site-ordered tensor
// networks: canonicalization, bond compression and two-site gates.
package chain

import (
	"math/rand/v2"

	"github.com/tnet-ml/tnet/internal/chain"
	"github.com/tnet-ml/tnet/internal/network"
)

// Chain is a 1D tensor network with one open physical index per site.
type Chain = chain.Chain

// CompressOptions bounds a compression sweep.
type CompressOptions = chain.CompressOptions

// NewProduct builds a product-state chain from per-site amplitude vectors.
func NewProduct(states [][]float64, tags ...string) (*Chain, error) {
	return chain.NewProduct(states, tags...)
}

// NewRand builds a random chain with uniform bond and physical dimensions.
func NewRand(rng *rand.Rand, n, bond, phys int, tags ...string) (*Chain, error) {
	return chain.NewRand(rng, n, bond, phys, tags...)
}

// InnerProduct contracts <a|b> over matching site order.
func InnerProduct(a, b *Chain) (float64, error) { return chain.InnerProduct(a, b) }

// CompressLine compresses an ordered line of tensors inside an arbitrary
// network with a canonicalize-then-truncate sweep.
func CompressLine(net *network.Network, ids []int, opts CompressOptions) ([]float64, error) {
	return chain.CompressLine(net, ids, opts)
}

// SiteTag returns the tag carried by site i.
func SiteTag(i int) string { return chain.SiteTag(i) }

// PhysName returns the default physical index name of site i.
func PhysName(i int) string { return chain.PhysName(i) }
