// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package hypersplit

import (
	"errors"

	"github.com/packetclsfy/hyperfence/internal/geom"
	"github.com/packetclsfy/hyperfence/internal/hsnode"
	"github.com/packetclsfy/hyperfence/internal/pool"
	"github.com/packetclsfy/hyperfence/internal/shadow"
	"github.com/packetclsfy/hyperfence/internal/worklist"
)

// ErrNodeLimit is returned by BuildWithLimit when a tree would need
// more internal nodes than its configured cap.
var ErrNodeLimit = errors.New("hypersplit: node allocation exceeded configured limit")

// job is one pending subproblem: an already-allocated pool slot
// (nodeID) to fill in, the box it covers, and the rules intersecting
// that box in priority order. The rule id list always contains the
// subset's default rule, so it is never empty and its first entry is
// the highest-precedence rule alive in the box.
type job struct {
	box    geom.Box
	nodeID int
	ids    []int
	depth  int
}

// Build constructs one HyperSplit tree over rs with no node-count cap.
func Build(rs geom.RuleSet) (*Tree, error) {
	return BuildWithLimit(rs, 0)
}

// BuildWithLimit builds as Build does, but fails with ErrNodeLimit
// once the tree would need more than maxNodes internal nodes.
// maxNodes <= 0 means unlimited.
//
// The last rule in rs.Rules is the subset's default (catch-all) rule;
// like every other rule it participates in splitting, which is what
// guarantees every leaf names the highest-precedence rule covering its
// whole box.
//
// Grounded on f_hs_trigger/f_hs_process/f_hs_gather in
// src/clsfy/hypersplit.c: a worklist of (box, intersecting rules)
// entries, each split on the dimension with the lowest shadow-range
// measure until the first intersecting rule covers the entry's box.
func BuildWithLimit(rs geom.RuleSet, maxNodes int) (*Tree, error) {
	if len(rs.Rules) == 0 {
		return nil, ErrDegenerate
	}

	def := rs.Default()
	offset := hsnode.NewOffset(def.Priority)
	tree := &Tree{Offset: offset, DefaultPriority: def.Priority}
	root := geom.RootBox()

	// trigger: the highest-priority rule already covers the whole
	// space, so the tree is a single leaf.
	if rs.Rules[0].Box().Covers(root) {
		tree.Root = rs.Rules[0].Priority
		tree.Stats = Stats{ExternalCount: 1, MaxDepth: 1, MeanDepth: 1}
		return tree, nil
	}

	ids := make([]int, len(rs.Rules))
	for i := range ids {
		ids[i] = i
	}

	nodePool := pool.New[hsnode.Node](16)
	rootID := nodePool.Malloc()
	tree.Root = offset.Encode(rootID)

	q := worklist.New[job]()
	q.Push(job{box: root, nodeID: rootID, ids: ids, depth: 1})

	var leaves, maxDepth, depthSum int

	for {
		j, ok := q.Pop()
		if !ok {
			break
		}

		dim, rng, ok := chooseDim(rs.Rules, j.ids, j.box)
		if !ok {
			// the rules left are geometric duplicates within the box;
			// no cut can tell them apart.
			return nil, ErrDegenerate
		}

		threshold := choosePoint(rng)
		n := nodePool.Get(j.nodeID)
		n.Dim = dim
		n.Threshold = threshold

		for _, right := range []bool{false, true} {
			childBox := j.box
			if right {
				childBox.Lo[dim] = threshold + 1
			} else {
				childBox.Hi[dim] = threshold
			}

			childIDs := make([]int, 0, len(j.ids))
			for _, id := range j.ids {
				if rs.Rules[id].Lo[dim] <= childBox.Hi[dim] && rs.Rules[id].Hi[dim] >= childBox.Lo[dim] {
					childIDs = append(childIDs, id)
				}
			}

			var slot int
			switch {
			case len(childIDs) == 0:
				// only possible when the subset's last rule is not a
				// full-space catch-all; nothing matches here.
				slot = def.Priority
				leaves++
				depthSum += j.depth
				if j.depth > maxDepth {
					maxDepth = j.depth
				}
			case rs.Rules[childIDs[0]].Box().Covers(childBox):
				// external node: the top-precedence intersecting rule
				// decides the whole child box.
				slot = rs.Rules[childIDs[0]].Priority
				leaves++
				depthSum += j.depth
				if j.depth > maxDepth {
					maxDepth = j.depth
				}
			default:
				if maxNodes > 0 && nodePool.Len() >= maxNodes {
					return nil, ErrNodeLimit
				}
				childID := nodePool.Malloc()
				slot = offset.Encode(childID)
				q.Push(job{box: childBox, nodeID: childID, ids: childIDs, depth: j.depth + 1})
			}

			// Malloc may have grown the pool, so re-fetch the node
			// before writing the child slot.
			n = nodePool.Get(j.nodeID)
			if right {
				n.RChild = slot
			} else {
				n.LChild = slot
			}
		}
	}

	tree.Nodes = nodePool.Shrink()
	tree.Stats = Stats{
		InternalCount: len(tree.Nodes),
		ExternalCount: leaves,
		MaxDepth:      maxDepth,
	}
	if leaves > 0 {
		tree.Stats.MeanDepth = float64(depthSum) / float64(leaves)
	}
	return tree, nil
}

// chooseDim picks the dimension whose shadow range over ids (clipped
// to box) has the lowest measure, skipping any dimension whose shadow
// range is a single interval — such a dimension cannot separate the
// rules any further. ok is false when every dimension is unsplittable,
// meaning the rules are indistinguishable within box.
//
// Grounded on f_hs_dim_decision in src/clsfy/hypersplit.c.
func chooseDim(rules []geom.Rule, ids []int, box geom.Box) (dim geom.Dim, best shadow.Range, ok bool) {
	bestMeasure := 0
	for d := geom.Dim(0); d < geom.DimCount; d++ {
		rng := shadow.Project(rules, ids, d, box.Lo[d], box.Hi[d])
		if len(rng.Intervals) <= 1 {
			continue
		}
		m := rng.Measure()
		if !ok || m < bestMeasure {
			dim, best, ok, bestMeasure = d, rng, true, m
		}
	}
	return dim, best, ok
}

// choosePoint returns the split threshold for a chosen dimension's
// shadow range: the running cover count is accumulated interval by
// interval, stopping at the first interval (other than the last, so
// the right side is never empty) whose cumulative count reaches half
// the range's total.
//
// Grounded on f_hs_pnt_decision in src/clsfy/hypersplit.c.
func choosePoint(rng shadow.Range) uint32 {
	half := rng.Total / 2
	acc := 0
	last := len(rng.Intervals) - 1
	for i := 0; i < last; i++ {
		acc += rng.Intervals[i].Count
		if acc >= half {
			return rng.Intervals[i].Hi
		}
	}
	return rng.Intervals[last-1].Hi
}
