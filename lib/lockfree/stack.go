package lockfree

import (
	"sync/atomic"

	"github.com/ValentinKolb/dEBR/lib/ebr"
)

type stackNode[T any] struct {
	value T
	next  atomic.Pointer[stackNode[T]]
	freed atomic.Bool
}

// Stack is a lock-free LIFO stack (Treiber stack). Popped nodes are retired
// through the caller's ebr.Handle and recycled once no reader can see them.
type Stack[T any] struct {
	head     atomic.Pointer[stackNode[T]]
	nodes    *NodePool[stackNode[T]]
	size     atomic.Int64
	poisoned atomic.Int64
}

// NewStack creates an empty stack.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{
		nodes: NewNodePool(
			func() *stackNode[T] { return &stackNode[T]{} },
			func(n *stackNode[T]) {
				var zero T
				n.value = zero
				n.next.Store(nil)
				n.freed.Store(true)
			},
		),
	}
}

// Push adds a value on top of the stack.
//
// Thread-safety: This method is thread-safe, every goroutine passes its own handle.
func (s *Stack[T]) Push(h *ebr.Handle, value T) {
	n := s.nodes.Get()
	n.value = value
	n.freed.Store(false)

	// pinning keeps the node we link to from being recycled under us (ABA)
	g := h.Pin()
	defer g.Release()

	for {
		top := s.head.Load()
		n.next.Store(top)
		if s.head.CompareAndSwap(top, n) {
			s.size.Add(1)
			return
		}
	}
}

// Pop removes and returns the top value. The boolean is false if the stack is empty.
//
// Thread-safety: This method is thread-safe, every goroutine passes its own handle.
func (s *Stack[T]) Pop(h *ebr.Handle) (T, bool) {
	g := h.Pin()
	defer g.Release()

	for {
		top := s.head.Load()
		if top == nil {
			var zero T
			return zero, false
		}
		if top.freed.Load() {
			s.poisoned.Add(1)
		}

		next := top.next.Load()
		if s.head.CompareAndSwap(top, next) {
			value := top.value
			s.size.Add(-1)
			ebr.Retire(h, top, s.nodes.Put, &g)
			return value, true
		}
	}
}

// Walk calls f for every value from the top down until f returns false. The
// whole traversal runs under one guard.
func (s *Stack[T]) Walk(h *ebr.Handle, f func(T) bool) {
	g := h.Pin()
	defer g.Release()

	for n := s.head.Load(); n != nil; n = n.next.Load() {
		if n.freed.Load() {
			s.poisoned.Add(1)
			return
		}
		if !f(n.value) {
			return
		}
	}
}

// Len returns the number of values in the stack.
func (s *Stack[T]) Len() int {
	return int(s.size.Load())
}

// Poisoned returns how often a reader ran into a recycled node. Anything but
// zero means a node was reclaimed while still reachable.
func (s *Stack[T]) Poisoned() int64 {
	return s.poisoned.Load()
}

// Outstanding returns the number of nodes not yet returned to the node pool,
// live nodes included.
func (s *Stack[T]) Outstanding() int64 {
	return s.nodes.Outstanding()
}
