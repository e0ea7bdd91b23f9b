// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package rfg

// rangeRID is one rule's (length, begin) pair on the dimension being
// split, packed so that an ascending sort orders rules by increasing
// span first and increasing start second — the order f_rfg_gen_minrng
// needs to grow its non-overlapping "ack" ranges from the narrowest
// rule outward.
type rangeRID struct {
	Value  uint64
	RuleID int
}

// rangeIdx names one merged, non-overlapping sub-range of a raw array
// (by its [lo, hi] span on the split dimension) and the contiguous
// slice of that array, [Index[0], Index[1]], it covers.
type rangeIdx struct {
	Range [2]uint32
	Index [2]int
}

// genMinRange scans raw (already sorted by buildRaw) and greedily
// admits each distinct range, narrowest first, into a set of
// non-overlapping ranges (ack), pushing whatever overlaps an admitted
// range into rej instead. measure packs the ack range count in the
// high bits and the ack rule count in the low bits, so picking the
// largest measure across candidate dimensions prefers the dimension
// that yields the most non-overlapping ranges, and among those the one
// whose ranges hold the most rules.
//
// Grounded on f_rfg_gen_minrng in src/group/rfg.c, including its
// hybrid binary/linear overlap check: the acks accumulated before the
// first overlap was ever seen are a sorted, non-overlapping prefix and
// can be binary-searched; acks added after that point cannot be
// assumed sorted against a later-arriving wide range, so they're
// scanned linearly.
func genMinRange(raw []rangeRID) (rej, ack []rangeIdx, measure uint64) {
	num := len(raw)

	lastValue := raw[0].Value
	chkLo := uint32(lastValue)
	chkHi := chkLo + uint32(lastValue>>32)
	ack = append(ack, rangeIdx{Range: [2]uint32{chkLo, chkHi}, Index: [2]int{0, 0}})

	lastOverlap := false
	bchkNum := 0
	ackRuleNum := 0

	i := 1
	for ; i < num; i++ {
		value := raw[i].Value
		if value == lastValue {
			continue
		}
		lastValue = value
		lo := uint32(value)
		hi := lo + uint32(value>>32)

		if lastOverlap {
			rej[len(rej)-1].Index[1] = i - 1
		} else {
			ack[len(ack)-1].Index[1] = i - 1
			ackRuleNum += i - ack[len(ack)-1].Index[0]
		}

		key := rangeIdx{Range: [2]uint32{lo, hi}}
		if lo <= chkHi && hi >= chkLo && checkOverlap(key, ack, len(ack), bchkNum) {
			rej = append(rej, rangeIdx{Range: [2]uint32{lo, hi}, Index: [2]int{i, 0}})
			lastOverlap = true
			continue
		}

		ack = append(ack, rangeIdx{Range: [2]uint32{lo, hi}, Index: [2]int{i, 0}})
		lastOverlap = false

		if bchkNum == 0 && lo <= chkHi {
			bchkNum = len(ack) - 1
		}
		if chkLo > lo {
			chkLo = lo
		}
		if chkHi < hi {
			chkHi = hi
		}
	}

	if lastOverlap {
		rej[len(rej)-1].Index[1] = i - 1
	} else {
		ack[len(ack)-1].Index[1] = i - 1
		ackRuleNum += i - ack[len(ack)-1].Index[0]
	}

	measure = uint64(len(ack))<<32 | uint64(ackRuleNum)
	return rej, ack, measure
}

// cmpRngIdx orders two ranges for the binary-search portion of
// checkOverlap: 0 when they overlap, -1 when a is entirely below b,
// 1 when a is entirely above b.
//
// Grounded on rfg_rng_idx_cmp in src/common/impl.c.
func cmpRngIdx(a, b rangeIdx) int {
	if a.Range[0] <= b.Range[1] && a.Range[1] >= b.Range[0] {
		return 0
	}
	if b.Range[0] > a.Range[1] {
		return -1
	}
	return 1
}

func checkOverlap(key rangeIdx, ack []rangeIdx, ackRngNum, bchkNum int) bool {
	lo, hi := 0, bchkNum-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch cmpRngIdx(key, ack[mid]) {
		case 0:
			return true
		case -1:
			hi = mid - 1
		default:
			lo = mid + 1
		}
	}

	for i := bchkNum; i < ackRngNum; i++ {
		if key.Range[0] <= ack[i].Range[1] && key.Range[1] >= ack[i].Range[0] {
			return true
		}
	}

	return false
}
