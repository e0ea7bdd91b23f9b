// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package hsnode

import "testing"

func TestOffsetEncodeDecode(t *testing.T) {
	off := NewOffset(7) // default priority 7 -> offset 8

	if off.IsInternal(7) {
		t.Error("slot equal to the default priority should not be internal")
	}
	if !off.IsInternal(int(off)) {
		t.Error("slot at the offset itself should be internal")
	}

	slot := off.Encode(3)
	if !off.IsInternal(slot) {
		t.Fatalf("encoded slot %d should be internal", slot)
	}
	if got := off.Decode(slot); got != 3 {
		t.Errorf("Decode(Encode(3)) = %d, want 3", got)
	}
}
