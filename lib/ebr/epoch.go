package ebr

import "strconv"

// Epoch is a value of the global epoch counter.
//
// Epochs live on a ring of size 2^64-1: the value Unpinned is reserved as the
// "not observing shared state" marker and is skipped when the counter wraps.
// Comparisons are modular, which keeps them correct across a wrap as long as
// the oldest epoch still referenced (by a pinned slot or a retired item) is
// less than MaxWindow epochs behind the global epoch.
type Epoch uint64

const (
	// Unpinned is published by a slot whose owner is not inside a guard.
	Unpinned Epoch = ^Epoch(0)

	// MaxWindow is the largest distance between two epochs that still
	// compares correctly.
	MaxWindow uint64 = 1<<63 - 1
)

// Next returns the successor of e, wrapping around the Unpinned sentinel.
func (e Epoch) Next() Epoch {
	n := e + 1
	if n == Unpinned {
		return 0
	}
	return n
}

// Sub returns the number of advancements needed to get from o to e.
func (e Epoch) Sub(o Epoch) uint64 {
	if e >= o {
		return uint64(e - o)
	}
	// e wrapped past the sentinel, the ring has Unpinned values
	return uint64(e) + uint64(Unpinned-o)
}

// Before reports whether e is strictly older than o.
func (e Epoch) Before(o Epoch) bool {
	d := o.Sub(e)
	return d != 0 && d <= MaxWindow
}

// Pinned reports whether e is a published epoch rather than the sentinel.
func (e Epoch) Pinned() bool {
	return e != Unpinned
}

func (e Epoch) String() string {
	if e == Unpinned {
		return "unpinned"
	}
	return strconv.FormatUint(uint64(e), 10)
}

// reclaimable reports whether an item retired at retired may be freed once the
// global epoch is now: two full generations must separate them.
func reclaimable(retired, now Epoch) bool {
	d := now.Sub(retired)
	return d >= 2 && d <= MaxWindow
}
