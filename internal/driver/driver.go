// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package driver wraps the build, group and search stages with the
// same wall-clock timing and progress logging as licheebrick/pc_plat's
// command-line driver (src/pc_plat.c's main, which brackets each stage
// with clock_gettime(CLOCK_MONOTONIC, ...) and reports microseconds
// and packets-per-second to stderr).
//
// Uses the standard log package the way gaissmai/bart's cmd/main.go
// does, rather than introducing a structured logger: this is a thin
// CLI-facing convenience, not a library concern.
package driver

import (
	"log"
	"time"

	"github.com/packetclsfy/hyperfence/internal/geom"
	"github.com/packetclsfy/hyperfence/internal/hypersplit"
	"github.com/packetclsfy/hyperfence/internal/rfg"
)

// BuildForest builds one HyperSplit tree per subset in part, logging
// the wall-clock time the pass took. maxNodes caps each tree's
// internal node count (0 means unlimited).
func BuildForest(part geom.Partition, maxNodes int) ([]*hypersplit.Tree, error) {
	log.Printf("building %d subset(s)", len(part.Subsets))
	start := time.Now()

	trees := make([]*hypersplit.Tree, len(part.Subsets))
	for i, subset := range part.Subsets {
		tree, err := hypersplit.BuildWithLimit(subset, maxNodes)
		if err != nil {
			return nil, err
		}
		trees[i] = tree
	}

	log.Printf("build pass: %s for %d tree(s)", time.Since(start), len(trees))
	return trees, nil
}

// GroupRules runs replication-free grouping over rs, logging the
// wall-clock time the pass took.
func GroupRules(rs geom.RuleSet, maxSubsets int) (geom.Partition, error) {
	log.Printf("grouping %d rule(s)", len(rs.Rules))
	start := time.Now()

	part, err := rfg.Group(rs, maxSubsets)
	if err != nil {
		return geom.Partition{}, err
	}

	log.Printf("grouping pass: %s, %d subset(s)", time.Since(start), len(part.Subsets))
	return part, nil
}

// SearchResult is one packet's lookup outcome across a forest: the
// lowest non-default priority reported by any subset tree wins (the
// first such tree on a tie), so a grouped rule set classifies the same
// way as the ungrouped one. With no non-default match, it names subset
// 0 and the shared default priority.
type SearchResult struct {
	MatchedSubset int
	Priority      int
}

// Search classifies every packet in pkts against trees, logging the
// wall-clock time and throughput of the pass.
func Search(trees []*hypersplit.Tree, pkts []geom.Packet) []SearchResult {
	log.Printf("searching %d packet(s) against %d tree(s)", len(pkts), len(trees))
	start := time.Now()

	results := make([]SearchResult, len(pkts))
	for i, p := range pkts {
		results[i] = matchAcrossForest(trees, p)
	}

	elapsed := time.Since(start)
	pps := float64(0)
	if elapsed > 0 {
		pps = float64(len(pkts)) / elapsed.Seconds()
	}
	log.Printf("search pass: %s (%.0f pps)", elapsed, pps)
	return results
}

func matchAcrossForest(trees []*hypersplit.Tree, p geom.Packet) SearchResult {
	best := SearchResult{MatchedSubset: -1, Priority: -1}
	for i, t := range trees {
		pri := t.Lookup(p)
		if pri == t.DefaultPriority {
			continue
		}
		if best.Priority == -1 || pri < best.Priority {
			best = SearchResult{MatchedSubset: i, Priority: pri}
		}
	}
	if best.Priority == -1 && len(trees) > 0 {
		best = SearchResult{MatchedSubset: 0, Priority: trees[0].DefaultPriority}
	}
	return best
}
