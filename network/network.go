// Copyright 2025 TNet ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package network provides the public API for graph-structured tensor
// networks: tensors connected by shared index names, with tag-based
// selection, pathfinding contraction, width budgeting and slicing.
package network

import (
	"github.com/tnet-ml/tnet/internal/network"
	"github.com/tnet-ml/tnet/internal/tensor"
)

// Network is an arena of tensors connected by shared index names, with
// index and tag registries maintained incrementally.
type Network = network.Network

// ContractOptions configures a contraction: path strategy, explicit output
// indices and the width budget.
type ContractOptions = network.ContractOptions

// SelectMode chooses between all-tags and any-tag matching.
type SelectMode = network.SelectMode

// Selection modes.
const (
	SelectAll = network.SelectAll
	SelectAny = network.SelectAny
)

// AmbiguousContractionError reports a contraction whose output indices
// cannot be inferred.
type AmbiguousContractionError = network.AmbiguousContractionError

// BudgetError reports a contraction wider than the caller's budget.
type BudgetError = network.BudgetError

// New creates a network holding the given tensors.
func New(tensors ...*tensor.Tensor) (*Network, error) { return network.New(tensors...) }

// Merge returns a new network holding all tensors of the given networks.
func Merge(nets ...*Network) (*Network, error) { return network.Merge(nets...) }
