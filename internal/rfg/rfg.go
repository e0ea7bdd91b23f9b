// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package rfg implements Replication-Free Grouping: splitting a rule
// set into a partition of subsets so that no rule is copied into more
// than one subset, resolving overlap by iteratively peeling off the
// rules that don't fit a non-overlapping cover and regrouping them.
//
// Grounded on licheebrick/pc_plat's rf_group (src/group/rfg.c),
// restructured around internal/worklist.Queue and a bits-and-blooms
// bitset.BitSet for the per-job "dimensions already tried" mask in
// place of the original's STAILQ and a raw bitmask.
package rfg

import (
	"errors"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/packetclsfy/hyperfence/internal/geom"
	"github.com/packetclsfy/hyperfence/internal/worklist"
)

// ErrInvalidArgument is returned when rs does not carry at least two
// non-default rules to group.
var ErrInvalidArgument = errors.New("rfg: rule set needs at least two non-default rules")

// ErrTooManySubsets is returned when grouping would need more than
// maxSubsets disjoint subsets to eliminate replication.
var ErrTooManySubsets = errors.New("rfg: grouping exceeded the subset cap")

// DefaultMaxSubsets is the subset cap used when Group is called with
// maxSubsets <= 0.
const DefaultMaxSubsets = 64

type job struct {
	ruleIDs []int
	dims    *bitset.BitSet
}

// Group partitions rs into disjoint subsets, at most maxSubsets of
// them (DefaultMaxSubsets if maxSubsets <= 0). Each round peels off a
// maximal non-replicating cover of the still-pending rules and carries
// the rest into the next round; a round that starts with exactly one
// pending rule needs no further splitting and becomes its own subset.
func Group(rs geom.RuleSet, maxSubsets int) (geom.Partition, error) {
	if maxSubsets <= 0 {
		maxSubsets = DefaultMaxSubsets
	}
	if len(rs.Rules) <= 2 {
		return geom.Partition{}, ErrInvalidArgument
	}

	def := rs.Default()
	candidates := rs.Rules[:len(rs.Rules)-1]

	pending := make([]int, len(candidates))
	for i := range pending {
		pending[i] = i
	}

	var subsets []geom.RuleSet

	for len(pending) > 0 {
		if len(subsets) >= maxSubsets {
			return geom.Partition{}, ErrTooManySubsets
		}

		kept, nextPending := splitRound(candidates, pending)

		sort.Ints(kept)
		subsetRules := make([]geom.Rule, 0, len(kept)+1)
		for _, id := range kept {
			subsetRules = append(subsetRules, candidates[id])
		}
		subsetRules = append(subsetRules, def)
		subsets = append(subsets, geom.RuleSet{Rules: subsetRules})

		pending = nextPending
	}

	return geom.Partition{Subsets: subsets}, nil
}

// splitRound runs one grouping round over pending, returning the rule
// ids kept for this round's subset and the rule ids carried over to
// the next round.
//
// Grounded on f_rfg_trigger/f_rfg_process/f_rfg_spawn in
// src/group/rfg.c.
func splitRound(candidates []geom.Rule, pending []int) (kept, nextPending []int) {
	if len(pending) == 1 {
		return pending, nil
	}

	q := worklist.New[job]()
	q.Push(job{ruleIDs: pending, dims: bitset.New(uint(geom.DimCount))})

	for {
		j, ok := q.Pop()
		if !ok {
			break
		}

		dim, raw, rej, ack, found := chooseSplit(candidates, j.ruleIDs, j.dims)
		if !found {
			kept = append(kept, j.ruleIDs...)
			continue
		}

		for _, r := range rej {
			for k := r.Index[0]; k <= r.Index[1]; k++ {
				nextPending = append(nextPending, raw[k].RuleID)
			}
		}

		allDimsTried := j.dims.Count()+1 == uint(geom.DimCount)
		for _, a := range ack {
			if a.Index[0] == a.Index[1] || allDimsTried {
				for k := a.Index[0]; k <= a.Index[1]; k++ {
					kept = append(kept, raw[k].RuleID)
				}
				continue
			}

			ids := make([]int, 0, a.Index[1]-a.Index[0]+1)
			for k := a.Index[0]; k <= a.Index[1]; k++ {
				ids = append(ids, raw[k].RuleID)
			}

			childDims := j.dims.Clone()
			childDims.Set(uint(dim))
			q.Push(job{ruleIDs: ids, dims: childDims})
		}
	}

	return kept, nextPending
}

// chooseSplit tries every dimension not yet marked in dims and keeps
// the one whose genMinRange measure is largest: the split that yields
// the most non-overlapping ranges, ties going to the one whose ranges
// hold the most rules.
//
// Grounded on the dimension-choice loop in f_rfg_process.
func chooseSplit(rules []geom.Rule, ids []int, dims *bitset.BitSet) (dim geom.Dim, raw []rangeRID, rej, ack []rangeIdx, found bool) {
	var bestMeasure uint64
	for d := geom.Dim(0); d < geom.DimCount; d++ {
		if dims.Test(uint(d)) {
			continue
		}

		candidate := buildRaw(rules, ids, d)
		cRej, cAck, measure := genMinRange(candidate)
		if !found || measure > bestMeasure {
			dim, raw, rej, ack, found, bestMeasure = d, candidate, cRej, cAck, true, measure
		}
	}
	return dim, raw, rej, ack, found
}

// buildRaw packs each candidate rule's (span, begin) pair on dim and
// sorts ascending, so genMinRange sees the narrowest rules first.
func buildRaw(rules []geom.Rule, ids []int, dim geom.Dim) []rangeRID {
	raw := make([]rangeRID, len(ids))
	for i, rid := range ids {
		begin := uint64(rules[rid].Lo[dim])
		end := uint64(rules[rid].Hi[dim])
		raw[i] = rangeRID{Value: (end-begin)<<32 | begin, RuleID: rid}
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].Value < raw[j].Value })
	return raw
}
