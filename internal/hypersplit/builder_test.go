// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package hypersplit

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/packetclsfy/hyperfence/internal/geom"
)

func mkRule(sipLo, sipHi, dipLo, dipHi uint32, priority int) geom.Rule {
	r := geom.Rule{Priority: priority}
	r.Lo[geom.SIP], r.Hi[geom.SIP] = sipLo, sipHi
	r.Lo[geom.DIP], r.Hi[geom.DIP] = dipLo, dipHi
	r.Lo[geom.SPORT], r.Hi[geom.SPORT] = 0, geom.SPORT.Max()
	r.Lo[geom.DPORT], r.Hi[geom.DPORT] = 0, geom.DPORT.Max()
	r.Lo[geom.PROTO], r.Hi[geom.PROTO] = 0, geom.PROTO.Max()
	return r
}

func defaultRule(priority int) geom.Rule {
	return mkRule(0, geom.SIP.Max(), 0, geom.DIP.Max(), priority)
}

func TestBuildSingleRuleSetIsDefault(t *testing.T) {
	rs := geom.RuleSet{Rules: []geom.Rule{defaultRule(0)}}

	tree, err := Build(rs)
	require.NoError(t, err)
	require.Equal(t, 0, tree.Stats.InternalCount)
	require.Equal(t, 1, tree.Stats.ExternalCount)

	got := tree.Lookup(geom.Packet{Dims: [geom.DimCount]uint32{12345, 67890, 80, 443, 6}})
	require.Equal(t, 0, got)
}

func TestBuildSplitsDisjointRulesAndMatchesOracle(t *testing.T) {
	rs := geom.RuleSet{Rules: []geom.Rule{
		mkRule(0, 999, 0, geom.DIP.Max(), 0),
		mkRule(1000, 1999, 0, geom.DIP.Max(), 1),
		mkRule(2000, 2999, 0, geom.DIP.Max(), 2),
		defaultRule(3),
	}}

	tree, err := Build(rs)
	require.NoError(t, err)
	require.Greater(t, tree.Stats.InternalCount, 0)
	require.Equal(t, tree.Stats.InternalCount+1, tree.Stats.ExternalCount)

	oracle := LinearMatch(rs)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		p := geom.Packet{Dims: [geom.DimCount]uint32{
			uint32(rng.Intn(3200)), rng.Uint32(), uint32(rng.Intn(1 << 16)), uint32(rng.Intn(1 << 16)), uint32(rng.Intn(1 << 8)),
		}}
		require.Equal(t, oracle(p), tree.Lookup(p))
	}
}

func TestBuildOverlappingRulesResolveByPriority(t *testing.T) {
	rs := geom.RuleSet{Rules: []geom.Rule{
		mkRule(0, geom.SIP.Max(), 0, geom.DIP.Max(), 0),
		mkRule(0, geom.SIP.Max(), 0, geom.DIP.Max(), 1),
		defaultRule(2),
	}}

	tree, err := Build(rs)
	require.NoError(t, err)

	got := tree.Lookup(geom.Packet{Dims: [geom.DimCount]uint32{1, 2, 3, 4, 5}})
	require.Equal(t, 0, got)
}

func TestBuildDisjointRulesSplitAtBoundary(t *testing.T) {
	rs := geom.RuleSet{Rules: []geom.Rule{
		mkRule(0, 99, 0, geom.DIP.Max(), 0),
		mkRule(100, 199, 0, geom.DIP.Max(), 1),
		defaultRule(2),
	}}

	tree, err := Build(rs)
	require.NoError(t, err)

	root := tree.Nodes[tree.Offset.Decode(tree.Root)]
	require.Equal(t, geom.SIP, root.Dim)
	require.Equal(t, uint32(99), root.Threshold)
	require.Equal(t, 0, root.LChild)

	for _, c := range []struct {
		sip  uint32
		want int
	}{{50, 0}, {99, 0}, {100, 1}, {199, 1}, {200, 2}, {1 << 30, 2}} {
		got := tree.Lookup(geom.Packet{Dims: [geom.DimCount]uint32{c.sip, 0, 0, 0, 0}})
		require.Equalf(t, c.want, got, "sip=%d", c.sip)
	}
}

func TestBuildLeavesOutsideRuleCoverMatchDefault(t *testing.T) {
	rs := geom.RuleSet{Rules: []geom.Rule{
		mkRule(0, 10, 0, geom.DIP.Max(), 0),
		mkRule(50, 60, 0, geom.DIP.Max(), 1),
		defaultRule(2),
	}}

	tree, err := Build(rs)
	require.NoError(t, err)

	oracle := LinearMatch(rs)
	for _, sip := range []uint32{0, 5, 10, 11, 30, 49, 50, 55, 60, 61, 1000} {
		p := geom.Packet{Dims: [geom.DimCount]uint32{sip, 0, 0, 0, 0}}
		require.Equalf(t, oracle(p), tree.Lookup(p), "sip=%d", sip)
	}
}

func TestBuildEmptyRuleSetIsDegenerate(t *testing.T) {
	_, err := Build(geom.RuleSet{})
	require.ErrorIs(t, err, ErrDegenerate)
}

func TestBuildDuplicateRulesAreDegenerate(t *testing.T) {
	// three geometrically identical rules and no wider fallback: no
	// dimension can tell them apart, so the build cannot make progress.
	rs := geom.RuleSet{Rules: []geom.Rule{
		mkRule(0, 10, 0, 10, 0),
		mkRule(0, 10, 0, 10, 1),
		mkRule(0, 10, 0, 10, 2),
	}}

	_, err := Build(rs)
	require.ErrorIs(t, err, ErrDegenerate)
}
