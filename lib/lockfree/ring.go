package lockfree

import (
	"fmt"
	"sync/atomic"
)

// ringCell is one slot of the ring. seq tells producers and consumers whose
// turn it is: seq == pos means free for the producer of pos, seq == pos+1
// means filled for the consumer of pos.
type ringCell[T any] struct {
	seq   atomic.Uint64
	value T
}

// Ring is a bounded multi-producer multi-consumer queue over a fixed array.
// Cells are reused in place, so it never needs reclamation.
type Ring[T any] struct {
	cells []ringCell[T]
	mask  uint64
	_     [56]byte
	head  atomic.Uint64 // next position to pop
	_     [56]byte
	tail  atomic.Uint64 // next position to push
}

// NewRing creates a ring with the given capacity, which must be a power of two.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 || capacity&(capacity-1) != 0 {
		panic(fmt.Sprintf("lockfree: ring capacity must be a power of two, got %d", capacity))
	}
	r := &Ring[T]{
		cells: make([]ringCell[T], capacity),
		mask:  uint64(capacity - 1),
	}
	for i := range r.cells {
		r.cells[i].seq.Store(uint64(i))
	}
	Logger.Debugf("ring created with %d cells", capacity)
	return r
}

// Push appends v. Returns false if the ring is full.
func (r *Ring[T]) Push(v T) bool {
	for {
		pos := r.tail.Load()
		cell := &r.cells[pos&r.mask]
		seq := cell.seq.Load()
		switch diff := int64(seq - pos); {
		case diff == 0:
			if r.tail.CompareAndSwap(pos, pos+1) {
				cell.value = v
				cell.seq.Store(pos + 1)
				return true
			}
		case diff < 0:
			// the consumer of the previous lap has not freed the cell yet
			return false
		}
	}
}

// Pop removes the oldest value. Returns false if the ring is empty.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	for {
		pos := r.head.Load()
		cell := &r.cells[pos&r.mask]
		seq := cell.seq.Load()
		switch diff := int64(seq - (pos + 1)); {
		case diff == 0:
			if r.head.CompareAndSwap(pos, pos+1) {
				v := cell.value
				cell.value = zero
				cell.seq.Store(pos + r.mask + 1)
				return v, true
			}
		case diff < 0:
			return zero, false
		}
	}
}

// Len returns an approximate number of values in the ring.
func (r *Ring[T]) Len() int {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail < head {
		return 0
	}
	return int(tail - head)
}

// Cap returns the capacity of the ring.
func (r *Ring[T]) Cap() int {
	return len(r.cells)
}
