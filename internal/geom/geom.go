// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package geom holds the geometric primitives shared by the grouping
// and tree-building stages: dimensions, boxes, rules and packets.
//
// The space has five dimensions with fixed bit widths, taken directly
// from the 5-tuple a firewall rule covers.
package geom

import "fmt"

// Dim indexes one of the five classification dimensions.
type Dim int

// The five dimensions, in the fixed scan order used throughout the
// builder and grouping engine.
const (
	SIP Dim = iota
	DIP
	SPORT
	DPORT
	PROTO
	DimCount
)

func (d Dim) String() string {
	switch d {
	case SIP:
		return "sip"
	case DIP:
		return "dip"
	case SPORT:
		return "sport"
	case DPORT:
		return "dport"
	case PROTO:
		return "proto"
	default:
		return fmt.Sprintf("dim(%d)", int(d))
	}
}

// widths holds the bit width of each dimension; it caps the valid
// coordinate range on that dimension.
var widths = [DimCount]uint{32, 32, 16, 16, 8}

// Width returns the bit width of d.
func (d Dim) Width() uint {
	return widths[d]
}

// Max returns the largest representable coordinate on d.
func (d Dim) Max() uint32 {
	if widths[d] >= 32 {
		return 0xFFFFFFFF
	}
	return uint32(1)<<widths[d] - 1
}

// Box is an axis-aligned rectangle over all five dimensions, used both
// as a rule's coverage and as the shrinking search-space a tree-build
// subproblem is confined to.
type Box struct {
	Lo, Hi [DimCount]uint32
}

// RootBox returns the box spanning the entire representable space.
func RootBox() Box {
	var b Box
	for d := Dim(0); d < DimCount; d++ {
		b.Lo[d] = 0
		b.Hi[d] = d.Max()
	}
	return b
}

// Covers reports whether b lies entirely within r (every dimension of
// b is a subset of the matching dimension of r).
func (r Box) Covers(b Box) bool {
	for d := Dim(0); d < DimCount; d++ {
		if b.Lo[d] < r.Lo[d] || b.Hi[d] > r.Hi[d] {
			return false
		}
	}
	return true
}

// Intersects reports whether r and b overlap on every dimension.
func (r Box) Intersects(b Box) bool {
	for d := Dim(0); d < DimCount; d++ {
		if r.Lo[d] > b.Hi[d] || r.Hi[d] < b.Lo[d] {
			return false
		}
	}
	return true
}

// Rule is a 5-dimensional rectangle with a match priority. Rules
// arrive in priority order: Priority equals the rule's original
// position in the input, and a lower Priority wins on a tie.
type Rule struct {
	Lo, Hi   [DimCount]uint32
	Priority int
}

// Box returns r's coverage as a Box.
func (r Rule) Box() Box {
	return Box{Lo: r.Lo, Hi: r.Hi}
}

// Matches reports whether packet p falls inside r on every dimension.
func (r Rule) Matches(p Packet) bool {
	for d := Dim(0); d < DimCount; d++ {
		if p.Dims[d] < r.Lo[d] || p.Dims[d] > r.Hi[d] {
			return false
		}
	}
	return true
}

// Packet is a single classification lookup key: one coordinate per
// dimension.
type Packet struct {
	Dims [DimCount]uint32
}

// RuleSet is an ordered, priority-sorted rule list. By construction
// the last rule is the fallback ("default") match for any packet that
// hits no other rule in the set.
type RuleSet struct {
	Rules []Rule
}

// Default returns the fallback rule, which must cover the entire
// space on every dimension.
func (rs RuleSet) Default() Rule {
	return rs.Rules[len(rs.Rules)-1]
}

// Partition is an ordered sequence of rule subsets. Across subsets a
// given original rule appears in at most one subset (the
// replication-free grouping invariant); every subset carries a copy of
// the same default rule so it remains independently searchable.
type Partition struct {
	Subsets []RuleSet
}

// TotalRules returns the number of rules across all subsets, counting
// each subset's default rule once per subset (matching the original
// rule-set size before grouping when called on a single-subset
// partition).
func (p Partition) TotalRules() int {
	n := 0
	for _, s := range p.Subsets {
		n += len(s.Rules)
	}
	return n
}

// Flatten reverts a partition back into a single rule set: every
// distinct rule (by priority) appears once, sorted by priority, with
// the shared default rule last. It is the inverse of grouping and is
// mainly used to sanity-check a partition loaded from a file against
// the rule count it claims to cover.
func Flatten(p Partition) RuleSet {
	seen := make(map[int]Rule)
	var def Rule
	haveDef := false
	for _, s := range p.Subsets {
		for i, r := range s.Rules {
			if i == len(s.Rules)-1 {
				def = r
				haveDef = true
				continue
			}
			seen[r.Priority] = r
		}
	}
	rules := make([]Rule, 0, len(seen)+1)
	for _, r := range seen {
		rules = append(rules, r)
	}
	sortRulesByPriority(rules)
	if haveDef {
		rules = append(rules, def)
	}
	return RuleSet{Rules: rules}
}

func sortRulesByPriority(rules []Rule) {
	// insertion sort: partitions are small (rule counts in the
	// thousands, not millions) and this keeps Flatten dependency-free.
	for i := 1; i < len(rules); i++ {
		for j := i; j > 0 && rules[j].Priority < rules[j-1].Priority; j-- {
			rules[j], rules[j-1] = rules[j-1], rules[j]
		}
	}
}
