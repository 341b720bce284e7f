// Copyright 2025 TNet ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package simplify provides the public API for value-preserving tensor
// network rewriting: scalar absorption, squeezing, diagonal reduction,
// hyperindex resolution and rank simplification, run to a fixpoint.
package simplify

import (
	"github.com/tnet-ml/tnet/internal/network"
	"github.com/tnet-ml/tnet/internal/simplify"
)

// Options selects which rewriting passes run and bounds the fixpoint loop.
type Options = simplify.Options

// Default returns the all-rewrites-to-convergence configuration.
func Default() Options { return simplify.Default() }

// Full runs the configured passes on a copy, leaving the input untouched.
func Full(n *network.Network, opts Options) (*network.Network, error) {
	return simplify.Full(n, opts)
}

// Run mutates the network in place until no pass changes anything.
func Run(n *network.Network, opts Options) error { return simplify.Run(n, opts) }
