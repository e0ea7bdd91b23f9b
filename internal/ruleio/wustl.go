// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package ruleio reads and writes the WUSTL rule/trace text formats
// and the partition dump format, so a classifier can be built and
// exercised from the same kind of rule and trace files licheebrick's
// driver tools consume.
//
// Grounded on load_rules/load_trace/dump_partition/load_partition and
// the WUSTL_*_FMT_SCN/PART_*_FMT_* format strings in
// inc/common/rule_trace.h and src/common/rule_trace.c, re-expressed
// with bufio.Scanner and fmt.Sscanf in place of the original's fscanf
// loop over a fixed-size calloc'd array.
package ruleio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/packetclsfy/hyperfence/internal/geom"
)

// ParseRules reads a WUSTL-format rule file: one rule per line, as
//
//	@sip0.sip1.sip2.sip3/siplen dip0.dip1.dip2.dip3/diplen sportlo:sporthi dportlo:dporthi protoval/protomask
//
// The last rule read becomes the returned set's default rule, matching
// the convention that a WUSTL rule file's final line is a catch-all.
func ParseRules(r io.Reader) (geom.RuleSet, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var rules []geom.Rule
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if text == "" {
			continue
		}

		var s0, s1, s2, s3, sipLen uint32
		var d0, d1, d2, d3, dipLen uint32
		var sportLo, sportHi, dportLo, dportHi uint32
		var protoVal, protoMask uint32

		n, err := fmt.Sscanf(text, "@%d.%d.%d.%d/%d %d.%d.%d.%d/%d %d : %d %d : %d %x/%x",
			&s0, &s1, &s2, &s3, &sipLen,
			&d0, &d1, &d2, &d3, &dipLen,
			&sportLo, &sportHi, &dportLo, &dportHi,
			&protoVal, &protoMask)
		if err != nil || n != 16 {
			return geom.RuleSet{}, fmt.Errorf("ruleio: malformed rule at line %d: %w", line, err)
		}

		sip := s0<<24 | s1<<16 | s2<<8 | s3
		dip := d0<<24 | d1<<16 | d2<<8 | d3
		sipLo, sipHi := cidrRange(sip, sipLen)
		dipLo, dipHi := cidrRange(dip, dipLen)

		protoLo, protoHi := protoVal, protoMask
		switch protoMask {
		case 0xff:
			protoHi = protoVal
		case 0x00:
			protoLo, protoHi = 0, 0xff
		}

		rule := geom.Rule{Priority: len(rules)}
		rule.Lo[geom.SIP], rule.Hi[geom.SIP] = sipLo, sipHi
		rule.Lo[geom.DIP], rule.Hi[geom.DIP] = dipLo, dipHi
		rule.Lo[geom.SPORT], rule.Hi[geom.SPORT] = sportLo, sportHi
		rule.Lo[geom.DPORT], rule.Hi[geom.DPORT] = dportLo, dportHi
		rule.Lo[geom.PROTO], rule.Hi[geom.PROTO] = protoLo, protoHi
		rules = append(rules, rule)
	}
	if err := sc.Err(); err != nil {
		return geom.RuleSet{}, err
	}
	if len(rules) == 0 {
		return geom.RuleSet{}, fmt.Errorf("ruleio: rule file has no rules")
	}

	return geom.RuleSet{Rules: rules}, nil
}

// cidrRange expands a base address and prefix length into an
// inclusive [lo, hi] range, mirroring load_rules's mask arithmetic.
func cidrRange(base, prefixLen uint32) (lo, hi uint32) {
	if prefixLen >= 32 {
		return base, base
	}
	mask := ^uint32(0) << (32 - prefixLen)
	return base & mask, base | ^mask
}

// prefixLenOf reports the CIDR prefix length of [lo, hi] and whether
// the range is in fact a valid CIDR block (a power-of-two-sized,
// aligned interval).
func prefixLenOf(lo, hi uint32) (int, bool) {
	size := uint64(hi) - uint64(lo) + 1
	if size&(size-1) != 0 {
		return 0, false
	}
	bits := 0
	for s := size; s > 1; s >>= 1 {
		bits++
	}
	prefixLen := 32 - bits
	if lo&(^uint32(0)<<uint(bits)) != lo {
		return 0, false
	}
	return prefixLen, true
}

// WriteRules writes rs back out in the WUSTL rule format. SIP/DIP
// boxes must be valid CIDR blocks (true of anything ParseRules
// produced, since grouping and tree-building never alter a rule's
// geometry).
func WriteRules(w io.Writer, rs geom.RuleSet) error {
	bw := bufio.NewWriter(w)
	for _, r := range rs.Rules {
		sipLen, ok := prefixLenOf(r.Lo[geom.SIP], r.Hi[geom.SIP])
		if !ok {
			return fmt.Errorf("ruleio: rule %d sip range is not a CIDR block", r.Priority)
		}
		dipLen, ok := prefixLenOf(r.Lo[geom.DIP], r.Hi[geom.DIP])
		if !ok {
			return fmt.Errorf("ruleio: rule %d dip range is not a CIDR block", r.Priority)
		}

		sip, dip := r.Lo[geom.SIP], r.Lo[geom.DIP]
		protoVal, protoMask := r.Lo[geom.PROTO], uint32(0xff)
		if r.Lo[geom.PROTO] != r.Hi[geom.PROTO] {
			protoVal, protoMask = 0, 0
		}

		_, err := fmt.Fprintf(bw, "@%d.%d.%d.%d/%d %d.%d.%d.%d/%d %d : %d %d : %d %x/%x\n",
			sip>>24&0xff, sip>>16&0xff, sip>>8&0xff, sip&0xff, sipLen,
			dip>>24&0xff, dip>>16&0xff, dip>>8&0xff, dip&0xff, dipLen,
			r.Lo[geom.SPORT], r.Hi[geom.SPORT], r.Lo[geom.DPORT], r.Hi[geom.DPORT],
			protoVal, protoMask)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Trace is a sequence of classification lookups paired with the rule
// each is expected to match, as read from a WUSTL packet trace file.
// MatchRule holds 0-based rule priorities, the same space Rule.Priority
// and Tree.Lookup use; the file's match_rule field is 1-based and is
// converted on parse and write.
type Trace struct {
	Packets   []geom.Packet
	MatchRule []int
}

// ParseTrace reads a WUSTL-format packet trace: one packet per line,
// "sip dip sport dport proto match_rule". The file's 1-based
// match_rule is decremented to a 0-based priority, as load_trace does.
func ParseTrace(r io.Reader) (Trace, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var t Trace
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if text == "" {
			continue
		}

		var sip, dip, sport, dport, proto uint32
		var match int32
		n, err := fmt.Sscanf(text, "%d %d %d %d %d %d", &sip, &dip, &sport, &dport, &proto, &match)
		if err != nil || n != 6 {
			return Trace{}, fmt.Errorf("ruleio: malformed packet at line %d: %w", line, err)
		}

		t.Packets = append(t.Packets, geom.Packet{Dims: [geom.DimCount]uint32{sip, dip, sport, dport, proto}})
		t.MatchRule = append(t.MatchRule, int(match)-1)
	}
	if err := sc.Err(); err != nil {
		return Trace{}, err
	}
	return t, nil
}

// WriteTrace writes t back out in the WUSTL packet trace format,
// restoring the file's 1-based match_rule field.
func WriteTrace(w io.Writer, t Trace) error {
	bw := bufio.NewWriter(w)
	for i, p := range t.Packets {
		_, err := fmt.Fprintf(bw, "%d %d %d %d %d %d\n",
			p.Dims[geom.SIP], p.Dims[geom.DIP], p.Dims[geom.SPORT], p.Dims[geom.DPORT], p.Dims[geom.PROTO], t.MatchRule[i]+1)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}
