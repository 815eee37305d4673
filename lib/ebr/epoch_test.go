package ebr

import "testing"

func TestEpochNextSkipsSentinel(t *testing.T) {
	if got := Epoch(41).Next(); got != 42 {
		t.Errorf("Expected 42, got %s", got)
	}
	if got := (Unpinned - 1).Next(); got != 0 {
		t.Errorf("Expected wrap to 0, got %s", got)
	}
}

func TestEpochSubAcrossWrap(t *testing.T) {
	last := Unpinned - 1

	tests := []struct {
		a, b Epoch
		want uint64
	}{
		{5, 5, 0},
		{7, 5, 2},
		{0, last, 1},
		{1, last, 2},
		{3, last - 1, 5},
	}

	for _, tt := range tests {
		if got := tt.a.Sub(tt.b); got != tt.want {
			t.Errorf("%s.Sub(%s) = %d, expected %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEpochBefore(t *testing.T) {
	last := Unpinned - 1

	if !Epoch(3).Before(4) {
		t.Error("3 should be before 4")
	}
	if Epoch(4).Before(4) {
		t.Error("an epoch is not before itself")
	}
	if Epoch(4).Before(3) {
		t.Error("4 should not be before 3")
	}
	if !last.Before(0) {
		t.Error("the last epoch before the wrap should be before 0")
	}
	if Epoch(0).Before(last) {
		t.Error("0 should not be before the last epoch after a wrap")
	}
}

func TestReclaimableNeedsTwoGenerations(t *testing.T) {
	last := Unpinned - 1

	if reclaimable(10, 10) || reclaimable(10, 11) {
		t.Error("items must survive one full generation")
	}
	if !reclaimable(10, 12) || !reclaimable(10, 100) {
		t.Error("items two generations old must be reclaimable")
	}
	if reclaimable(last, 0) {
		t.Error("one advancement across the wrap is not enough")
	}
	if !reclaimable(last, 1) {
		t.Error("two advancements across the wrap are enough")
	}
	if reclaimable(12, 10) {
		t.Error("items from the future are never reclaimable")
	}
}

func TestEpochString(t *testing.T) {
	if Unpinned.String() != "unpinned" {
		t.Errorf("unexpected sentinel string %q", Unpinned.String())
	}
	if Epoch(7).String() != "7" {
		t.Errorf("unexpected epoch string %q", Epoch(7).String())
	}
	if Unpinned.Pinned() || !Epoch(0).Pinned() {
		t.Error("Pinned must only be false for the sentinel")
	}
}
