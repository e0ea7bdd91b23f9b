// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package hypersplit

import "github.com/packetclsfy/hyperfence/internal/geom"

// LinearMatch is the brute-force classification oracle: the first rule
// (in priority order) whose box contains p, or the default priority if
// none do. It exists to check Tree.Lookup against, not to be fast.
//
// pc_plat folds this comparison into its search benchmark driver;
// keeping it separate here lets Tree.Lookup stay a pure decision-tree
// walk with no dependency on the full rule list.
func LinearMatch(rs geom.RuleSet) func(geom.Packet) int {
	def := rs.Default()
	candidates := rs.Rules[:len(rs.Rules)-1]
	return func(p geom.Packet) int {
		best := -1
		for _, r := range candidates {
			if !r.Matches(p) {
				continue
			}
			if best == -1 || r.Priority < best {
				best = r.Priority
			}
		}
		if best == -1 {
			return def.Priority
		}
		return best
	}
}
