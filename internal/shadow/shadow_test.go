// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package shadow

import (
	"testing"

	"github.com/packetclsfy/hyperfence/internal/geom"
)

func rule(lo, hi uint32) geom.Rule {
	var r geom.Rule
	r.Lo[geom.SIP], r.Hi[geom.SIP] = lo, hi
	return r
}

func TestProjectDisjointRules(t *testing.T) {
	rules := []geom.Rule{rule(0, 99), rule(200, 299)}
	rng := Project(rules, []int{0, 1}, geom.SIP, 0, 999)

	// below, the zero-count gap between the two rules, and above.
	if len(rng.Intervals) != 3 {
		t.Fatalf("got %d intervals, want 3", len(rng.Intervals))
	}
	if rng.Total != 2 {
		t.Errorf("Total = %d, want 2", rng.Total)
	}
	gap := rng.Intervals[1]
	if gap.Count != 0 || gap.Lo != 100 || gap.Hi != 199 {
		t.Errorf("gap interval = %+v, want {100 199 0}", gap)
	}
}

func TestProjectOverlappingRulesMergeIntervals(t *testing.T) {
	rules := []geom.Rule{rule(0, 100), rule(50, 150)}
	rng := Project(rules, []int{0, 1}, geom.SIP, 0, 999)

	if len(rng.Intervals) != 3 {
		t.Fatalf("got %d intervals, want 3 (below, overlap, above)", len(rng.Intervals))
	}
	// sum of per-interval cover counts: 1 (below) + 2 (overlap) + 1 (above)
	if rng.Total != 4 {
		t.Fatalf("Total = %d, want 4", rng.Total)
	}

	middle := rng.Intervals[1]
	if middle.Count != 2 {
		t.Errorf("overlap interval count = %d, want 2", middle.Count)
	}
}

func TestProjectClipsToBox(t *testing.T) {
	rules := []geom.Rule{rule(0, 999)}
	rng := Project(rules, []int{0}, geom.SIP, 100, 200)

	if len(rng.Intervals) != 1 {
		t.Fatalf("got %d intervals, want 1", len(rng.Intervals))
	}
	iv := rng.Intervals[0]
	if iv.Lo != 100 || iv.Hi != 200 {
		t.Errorf("interval = [%d, %d], want [100, 200]", iv.Lo, iv.Hi)
	}
}
