// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package ruleio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/packetclsfy/hyperfence/internal/geom"
)

// ParsePartition reads the partition dump format: a "#index,rule_num"
// header per subset followed by that many
// "@siplo,siphi,diplo,diphi,sportlo,sporthi,dportlo,dporthi,protolo,protohi,priority"
// rule lines.
//
// Grounded on load_partition/PART_HEAD_FMT_SCN/PART_RULE_FMT_SCN in
// src/common/rule_trace.c and inc/common/rule_trace.h.
func ParsePartition(r io.Reader) (geom.Partition, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var part geom.Partition
	line := 0
	for sc.Scan() {
		line++
		header := sc.Text()
		if header == "" {
			continue
		}

		var idx, ruleNum uint32
		if n, err := fmt.Sscanf(header, "#%d,%d", &idx, &ruleNum); err != nil || n != 2 {
			return geom.Partition{}, fmt.Errorf("ruleio: malformed partition header at line %d: %w", line, err)
		}

		rules := make([]geom.Rule, 0, ruleNum)
		for j := uint32(0); j < ruleNum; j++ {
			if !sc.Scan() {
				return geom.Partition{}, fmt.Errorf("ruleio: partition %d expected %d rules, ran out at %d", idx, ruleNum, j)
			}
			line++

			var r geom.Rule
			var pri int32
			n, err := fmt.Sscanf(sc.Text(), "@%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d",
				&r.Lo[geom.SIP], &r.Hi[geom.SIP],
				&r.Lo[geom.DIP], &r.Hi[geom.DIP],
				&r.Lo[geom.SPORT], &r.Hi[geom.SPORT],
				&r.Lo[geom.DPORT], &r.Hi[geom.DPORT],
				&r.Lo[geom.PROTO], &r.Hi[geom.PROTO],
				&pri)
			if err != nil || n != 11 {
				return geom.Partition{}, fmt.Errorf("ruleio: malformed partition rule at line %d: %w", line, err)
			}
			r.Priority = int(pri)
			rules = append(rules, r)
		}

		part.Subsets = append(part.Subsets, geom.RuleSet{Rules: rules})
	}
	if err := sc.Err(); err != nil {
		return geom.Partition{}, err
	}

	return part, nil
}

// WritePartition writes p in the partition dump format.
func WritePartition(w io.Writer, p geom.Partition) error {
	bw := bufio.NewWriter(w)
	for i, subset := range p.Subsets {
		if _, err := fmt.Fprintf(bw, "#%d,%d\n", i, len(subset.Rules)); err != nil {
			return err
		}
		for _, r := range subset.Rules {
			_, err := fmt.Fprintf(bw, "@%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d\n",
				r.Lo[geom.SIP], r.Hi[geom.SIP],
				r.Lo[geom.DIP], r.Hi[geom.DIP],
				r.Lo[geom.SPORT], r.Hi[geom.SPORT],
				r.Lo[geom.DPORT], r.Hi[geom.DPORT],
				r.Lo[geom.PROTO], r.Hi[geom.PROTO],
				r.Priority)
			if err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
