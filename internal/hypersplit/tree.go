// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package hypersplit builds and evaluates one HyperSplit decision tree
// per partition subset: an internal node tests one dimension against
// a threshold; a leaf names a rule's priority.
//
// Grounded on licheebrick/pc_plat's hs_build/hs_search
// (src/clsfy/hypersplit.c), restructured around
// internal/worklist.Queue and internal/pool.Pool in place of the
// original's intrusive STAILQ and MPOOL macros.
package hypersplit

import (
	"errors"

	"github.com/packetclsfy/hyperfence/internal/geom"
	"github.com/packetclsfy/hyperfence/internal/hsnode"
)

// ErrDegenerate is returned when no dimension has a splittable shadow
// range for a subproblem — every candidate rule is an exact duplicate
// on all five dimensions, so HyperSplit cannot make progress.
var ErrDegenerate = errors.New("hypersplit: no splittable dimension (duplicate rules)")

// Stats describes one built tree's shape.
type Stats struct {
	InternalCount int
	ExternalCount int
	MaxDepth      int
	MeanDepth     float64
}

// Tree is one built HyperSplit decision tree: a dense node array with
// the root at index 0, plus the offset that distinguishes an internal
// child slot from a terminal rule priority.
type Tree struct {
	Nodes           []hsnode.Node
	Offset          hsnode.Offset
	DefaultPriority int
	Root            int
	Stats           Stats
}

// Lookup walks the tree for packet p and returns the matching rule's
// priority.
func (t Tree) Lookup(p geom.Packet) int {
	id := t.Root
	for t.Offset.IsInternal(id) {
		n := t.Nodes[t.Offset.Decode(id)]
		if p.Dims[n.Dim] <= n.Threshold {
			id = n.LChild
		} else {
			id = n.RChild
		}
	}
	return id
}
