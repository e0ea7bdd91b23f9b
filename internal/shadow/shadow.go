// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package shadow builds shadow ranges: the projection of a rule list
// onto a single dimension, clipped to a box, expressed as ordered
// non-overlapping intervals with per-interval cover counts.
//
// Ported from licheebrick/pc_plat's shadow_rules (src/common/rule_trace.c):
// every rule contributes two 64-bit endpoints, (value<<1)|isEnd, sorted
// once; a single pass over the sorted endpoints then both merges
// touching intervals and counts how many rules cover each one.
package shadow

import (
	"sort"

	"github.com/packetclsfy/hyperfence/internal/geom"
)

// Interval is one maximal sub-interval of the rule cover, along with
// how many of the input rules cover it.
type Interval struct {
	Lo, Hi uint32
	Count  int
}

// Range is the shadow range of a rule list on one dimension: ordered,
// non-overlapping, strictly increasing intervals plus the sum of all
// interval counts.
type Range struct {
	Intervals []Interval
	Total     int
}

// Project computes the shadow range of the rules named by ruleIDs on
// dimension dim, clipped to [lo, hi].
func Project(rules []geom.Rule, ruleIDs []int, dim geom.Dim, lo, hi uint32) Range {
	pts := make([]uint64, 0, 2*len(ruleIDs))
	for _, rid := range ruleIDs {
		b := rules[rid].Lo[dim]
		if b < lo {
			b = lo
		}
		e := rules[rid].Hi[dim]
		if e > hi {
			e = hi
		}
		pts = append(pts, uint64(b)<<1, uint64(e)<<1|1)
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i] < pts[j] })

	var rng Range
	last := 0
	curCount := 0
	n := len(pts)
	for i := 1; i < n; i++ {
		if pts[last] == pts[i] {
			continue
		}

		lastIsEnd := pts[last]&1 == 1
		curIsEnd := pts[i]&1 == 1

		switch {
		case lastIsEnd:
			curCount -= i - last
			if curIsEnd {
				rng.Total += curCount
				rng.Intervals = append(rng.Intervals, Interval{
					Lo:    uint32(pts[last]>>1) + 1,
					Hi:    uint32(pts[i] >> 1),
					Count: curCount,
				})
			} else if pts[last]+1 != pts[i] {
				rng.Total += curCount
				rng.Intervals = append(rng.Intervals, Interval{
					Lo:    uint32(pts[last]>>1) + 1,
					Hi:    uint32(pts[i]>>1) - 1,
					Count: curCount,
				})
			}
		default: // last is a begin marker
			curCount += i - last
			rng.Total += curCount
			ivHi := uint32(pts[i] >> 1)
			if !curIsEnd {
				ivHi--
			}
			rng.Intervals = append(rng.Intervals, Interval{
				Lo:    uint32(pts[last] >> 1),
				Hi:    ivHi,
				Count: curCount,
			})
		}

		last = i
	}

	return rng
}

// Measure is the HyperSplit dimension-choice cost: total minus the
// number of intervals. Smaller is better (less duplication across the
// intended cut). A shadow range with one interval or fewer carries no
// useful cut and should be skipped by the caller.
func (r Range) Measure() int {
	return r.Total - len(r.Intervals)
}
