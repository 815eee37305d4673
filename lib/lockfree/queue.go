package lockfree

import (
	"runtime"
	"sync/atomic"

	"github.com/ValentinKolb/dEBR/lib/ebr"
)

// queueNode represents a single element in the queue
type queueNode[T any] struct {
	value T
	next  atomic.Pointer[queueNode[T]]
	freed atomic.Bool
}

// Queue is a lock-free multi-producer multi-consumer FIFO queue
// (Michael-Scott queue). It keeps a sentinel node at the head; every
// successful Dequeue retires the old sentinel through the caller's handle.
type Queue[T any] struct {
	head     atomic.Pointer[queueNode[T]]
	tail     atomic.Pointer[queueNode[T]]
	nodes    *NodePool[queueNode[T]]
	closed   atomic.Bool
	poisoned atomic.Int64
}

// NewQueue creates a new empty queue
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{
		nodes: NewNodePool(
			func() *queueNode[T] { return &queueNode[T]{} },
			func(n *queueNode[T]) {
				var zero T
				n.value = zero
				n.next.Store(nil)
				n.freed.Store(true)
			},
		),
	}

	// Set the initial head and tail to the sentinel node
	sentinel := q.nodes.Get()
	sentinel.freed.Store(false)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	return q
}

// Enqueue adds an item to the queue.
// Returns true if the item was added, or false if the queue is closed.
//
// Thread-safety: This method is thread-safe, every goroutine passes its own handle.
func (q *Queue[T]) Enqueue(h *ebr.Handle, value T) bool {
	if q.closed.Load() {
		return false
	}

	n := q.nodes.Get()
	n.value = value
	n.freed.Store(false)

	g := h.Pin()
	defer g.Release()

	var backoff uint8 = 0
	for {
		tail := q.tail.Load()
		if tail.freed.Load() {
			q.poisoned.Add(1)
		}

		next := tail.next.Load()
		if next == nil {
			// the tail has no next node yet, try to append our node
			if tail.next.CompareAndSwap(nil, n) {
				// may fail if another goroutine already helped, the tail moves either way
				q.tail.CompareAndSwap(tail, n)
				return true
			}
		} else {
			// help update the tail pointer if another producer has already appended a node but hasn't updated the tail yet
			q.tail.CompareAndSwap(tail, next)
		}

		/*
		 Exponential backoff under contention:
		  - At low contention (<10 retries): spin with Gosched to avoid thread scheduling overhead
		  - At higher contention: yield the processor once per retry
		*/
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// Dequeue removes and returns the oldest item. The boolean is false if the queue is empty.
//
// Thread-safety: This method is thread-safe, every goroutine passes its own handle.
func (q *Queue[T]) Dequeue(h *ebr.Handle) (T, bool) {
	g := h.Pin()
	defer g.Release()

	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head.freed.Load() {
			q.poisoned.Add(1)
		}

		if next == nil {
			var zero T
			return zero, false
		}

		if head == tail {
			// tail is lagging behind, help before the head overtakes it
			q.tail.CompareAndSwap(tail, next)
			continue
		}

		// capture value before the node becomes the new sentinel
		value := next.value
		if q.head.CompareAndSwap(head, next) {
			ebr.Retire(h, head, q.nodes.Put, &g)
			return value, true
		}
	}
}

// Close closes the queue, preventing further writes.
// Items already in the queue can still be dequeued.
func (q *Queue[T]) Close() {
	q.closed.Store(true)
}

// IsClosed returns true if the queue is closed.
func (q *Queue[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns an approximate count of the number of items in the queue.
// This is O(n) and should only be used for debugging.
func (q *Queue[T]) Len(h *ebr.Handle) int {
	g := h.Pin()
	defer g.Release()

	count := 0
	current := q.head.Load()
	for {
		next := current.next.Load()
		if next == nil {
			break
		}
		count++
		current = next
	}

	return count
}

// Poisoned returns how often an operation ran into a recycled node. Anything
// but zero means a node was reclaimed while still reachable.
func (q *Queue[T]) Poisoned() int64 {
	return q.poisoned.Load()
}

// Outstanding returns the number of nodes not yet returned to the node pool,
// the sentinel included.
func (q *Queue[T]) Outstanding() int64 {
	return q.nodes.Outstanding()
}
