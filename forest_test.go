// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package hyperfence

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func fullRule(priority int) Rule {
	var r Rule
	for d := Dim(0); d < 5; d++ {
		r.Hi[d] = d.Max()
	}
	r.Priority = priority
	return r
}

func ruleOnSIP(priority int, lo, hi uint32) Rule {
	r := fullRule(priority)
	r.Lo[SIP], r.Hi[SIP] = lo, hi
	return r
}

func TestGroupBuildLookupRoundTrip(t *testing.T) {
	rules := []Rule{
		ruleOnSIP(0, 0, 999),
		ruleOnSIP(1, 2000, 2999),
		ruleOnSIP(2, 4000, 4999),
		ruleOnSIP(3, 6000, 6999),
		fullRule(4), // default
	}
	rs := RuleSet{Rules: rules}

	part, err := Group(rs, DefaultMaxSubsets)
	require.NoError(t, err)
	require.NotEmpty(t, part.Subsets)

	forest, err := Build(part, 0)
	require.NoError(t, err)
	defer forest.Close()

	cases := []struct {
		sip  uint32
		want int
	}{
		{500, 0},
		{2500, 1},
		{4500, 2},
		{6500, 3},
		{9000, 4},
	}
	for _, c := range cases {
		got := forest.Lookup(Packet{Dims: [5]uint32{c.sip, 0, 0, 0, 0}})
		require.Equalf(t, c.want, got, "sip=%d", c.sip)
	}
}

func TestGroupBuildVerifyAgainstOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	var rules []Rule
	for i := 0; i < 40; i++ {
		lo := uint32(rng.Intn(1 << 20))
		width := uint32(rng.Intn(1 << 16))
		rules = append(rules, ruleOnSIP(i, lo, lo+width))
	}
	rules = append(rules, fullRule(len(rules)))
	rs := RuleSet{Rules: rules}

	part, err := Group(rs, DefaultMaxSubsets)
	require.NoError(t, err)

	forest, err := Build(part, 0)
	require.NoError(t, err)
	defer forest.Close()

	flat := Flatten(part)

	pkts := make([]Packet, 0, 500)
	for i := 0; i < 500; i++ {
		pkts = append(pkts, Packet{Dims: [5]uint32{uint32(rng.Intn(1 << 20)), 0, 0, 0, 0}})
	}

	mismatches, err := forest.Verify(flat, pkts)
	require.NoError(t, err)
	require.Zero(t, mismatches)
}

func TestVerifyTraceReportsFirstMismatch(t *testing.T) {
	rules := []Rule{
		ruleOnSIP(0, 0, 999),
		fullRule(1),
	}
	part := Partition{Subsets: []RuleSet{{Rules: rules}}}

	forest, err := Build(part, 0)
	require.NoError(t, err)
	defer forest.Close()

	pkts := []Packet{
		{Dims: [5]uint32{500, 0, 0, 0, 0}},
		{Dims: [5]uint32{5000, 0, 0, 0, 0}},
	}

	require.NoError(t, forest.VerifyTrace(pkts, []int{0, 1}))
	require.NoError(t, forest.VerifyTrace(pkts, []int{0, -1}))

	err = forest.VerifyTrace(pkts, []int{0, 0})
	require.ErrorIs(t, err, ErrMatchMismatch)
	require.Contains(t, err.Error(), "packet 1")
}

func TestGroupRejectsTinyRuleSet(t *testing.T) {
	_, err := Group(RuleSet{Rules: []Rule{fullRule(0)}}, DefaultMaxSubsets)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBuildRejectsEmptyPartition(t *testing.T) {
	_, err := Build(Partition{}, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBuildEnforcesNodeLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var rules []Rule
	for i := 0; i < 200; i++ {
		lo := uint32(rng.Intn(1 << 24))
		rules = append(rules, ruleOnSIP(i, lo, lo+1))
	}
	rules = append(rules, fullRule(len(rules)))
	rs := RuleSet{Rules: rules}

	part := Partition{Subsets: []RuleSet{rs}}
	_, err := Build(part, 1)
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestForestStatsOneEntryPerSubset(t *testing.T) {
	rules := []Rule{
		ruleOnSIP(0, 0, 999),
		ruleOnSIP(1, 2000, 2999),
		fullRule(2),
	}
	part, err := Group(RuleSet{Rules: rules}, DefaultMaxSubsets)
	require.NoError(t, err)

	forest, err := Build(part, 0)
	require.NoError(t, err)

	require.Len(t, forest.Stats(), len(part.Subsets))
}
