// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package hyperfence classifies packets against large, 5-dimensional
// firewall-style rule sets. A rule set is first split into disjoint,
// non-replicating subsets (grouping), then each subset is compiled
// into a HyperSplit decision tree (building); classifying a packet
// walks every subset's tree and keeps the highest-precedence match.
package hyperfence

import (
	"errors"
	"fmt"

	"github.com/packetclsfy/hyperfence/internal/geom"
	"github.com/packetclsfy/hyperfence/internal/hypersplit"
	"github.com/packetclsfy/hyperfence/internal/rfg"
)

// Re-exported geometry types: callers build rule sets against these
// without importing the internal package directly.
type (
	Dim       = geom.Dim
	Rule      = geom.Rule
	RuleSet   = geom.RuleSet
	Partition = geom.Partition
	Packet    = geom.Packet
)

// The five classification dimensions, in the fixed scan order used by
// every built tree.
const (
	SIP   = geom.SIP
	DIP   = geom.DIP
	SPORT = geom.SPORT
	DPORT = geom.DPORT
	PROTO = geom.PROTO
)

// Flatten reverts a partition back into the single rule set it
// originated from. See geom.Flatten.
func Flatten(p Partition) RuleSet { return geom.Flatten(p) }

// DefaultMaxSubsets is the subset cap Group uses when called with
// maxSubsets <= 0.
const DefaultMaxSubsets = rfg.DefaultMaxSubsets

// Group splits rs into a Partition of at most maxSubsets disjoint
// subsets with no rule replicated across subsets (DefaultMaxSubsets if
// maxSubsets <= 0).
func Group(rs RuleSet, maxSubsets int) (Partition, error) {
	part, err := rfg.Group(rs, maxSubsets)
	if err != nil {
		switch {
		case errors.Is(err, rfg.ErrInvalidArgument):
			return Partition{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		case errors.Is(err, rfg.ErrTooManySubsets):
			return Partition{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
		default:
			return Partition{}, err
		}
	}
	return part, nil
}

// Forest is a built classifier: one HyperSplit tree per partition
// subset.
type Forest struct {
	trees []*hypersplit.Tree
}

// Build compiles part into a Forest, one tree per subset. maxNodes
// caps each tree's internal node count (0 means unlimited); exceeding
// it returns ErrOutOfMemory rather than growing without bound.
func Build(part Partition, maxNodes int) (*Forest, error) {
	if len(part.Subsets) == 0 {
		return nil, fmt.Errorf("%w: partition has no subsets", ErrInvalidArgument)
	}
	if len(part.Subsets) > rfg.DefaultMaxSubsets {
		return nil, fmt.Errorf("%w: %d subsets exceeds the cap of %d", ErrUnsupported, len(part.Subsets), rfg.DefaultMaxSubsets)
	}
	for i, subset := range part.Subsets {
		if len(subset.Rules) == 0 {
			return nil, fmt.Errorf("%w: subset %d is empty", ErrInvalidArgument, i)
		}
	}
	if part.TotalRules() <= 1 {
		return nil, fmt.Errorf("%w: partition needs more than one rule", ErrInvalidArgument)
	}

	trees := make([]*hypersplit.Tree, len(part.Subsets))
	for i, subset := range part.Subsets {
		tree, err := hypersplit.BuildWithLimit(subset, maxNodes)
		switch {
		case errors.Is(err, hypersplit.ErrNodeLimit):
			return nil, fmt.Errorf("%w: subset %d: %v", ErrOutOfMemory, i, err)
		case errors.Is(err, hypersplit.ErrDegenerate):
			return nil, fmt.Errorf("%w: subset %d: %v", ErrDegenerateInput, i, err)
		case err != nil:
			return nil, err
		}
		trees[i] = tree
	}

	return &Forest{trees: trees}, nil
}

// Lookup classifies p and returns the priority of the matching rule:
// the lowest-numbered (highest-precedence) non-default match across
// every subset tree, or the shared default priority if none match.
func (f *Forest) Lookup(p Packet) int {
	best := -1
	for _, t := range f.trees {
		pri := t.Lookup(p)
		if pri == t.DefaultPriority {
			continue
		}
		if best == -1 || pri < best {
			best = pri
		}
	}
	if best == -1 && len(f.trees) > 0 {
		return f.trees[0].DefaultPriority
	}
	return best
}

// Stats reports each subset tree's shape, in subset order.
func (f *Forest) Stats() []hypersplit.Stats {
	stats := make([]hypersplit.Stats, len(f.trees))
	for i, t := range f.trees {
		stats[i] = t.Stats
	}
	return stats
}

// Close releases the forest's trees. Forest holds no resources beyond
// Go-managed memory, so Close only clears the receiver to guard
// against accidental reuse after disposal.
func (f *Forest) Close() {
	f.trees = nil
}

// VerifyTrace classifies every packet in pkts and compares the result
// against the expected rule priority recorded alongside it, stopping
// at the first disagreement. A negative expectation skips that packet.
func (f *Forest) VerifyTrace(pkts []Packet, want []int) error {
	for i, p := range pkts {
		if i >= len(want) || want[i] < 0 {
			continue
		}
		if got := f.Lookup(p); got != want[i] {
			return fmt.Errorf("%w: packet %d matched %d, want %d", ErrMatchMismatch, i, got, want[i])
		}
	}
	return nil
}

// Verify classifies every packet in pkts against f and reports how many
// disagree with a brute-force linear match over rs — the oracle the original
// source conflates into its search benchmark. rs should be the
// ungrouped rule set the forest's partition came from. A non-zero
// mismatch count is returned alongside ErrMatchMismatch.
func (f *Forest) Verify(rs RuleSet, pkts []Packet) (mismatches int, err error) {
	oracle := hypersplit.LinearMatch(rs)
	for _, p := range pkts {
		if f.Lookup(p) != oracle(p) {
			mismatches++
		}
	}
	if mismatches > 0 {
		return mismatches, fmt.Errorf("%w: %d/%d packets mismatched", ErrMatchMismatch, mismatches, len(pkts))
	}
	return 0, nil
}
