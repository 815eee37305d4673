package lockfree

import (
	"fmt"

	"github.com/ValentinKolb/dEBR/lib/ebr"
)

// Container is the common surface of the reclaiming containers in this
// package, used by the conformance tests and the stress command.
type Container[T any] interface {
	// Put inserts a value. Returns false if the container refused it.
	Put(h *ebr.Handle, value T) bool
	// Take removes a value. Returns false if the container is empty.
	Take(h *ebr.Handle) (T, bool)
	// Poisoned returns how often an operation ran into a recycled node.
	Poisoned() int64
	// Outstanding returns the number of nodes not yet returned to the pool.
	Outstanding() int64
}

// Kind names a container implementation.
type Kind string

const (
	KindStack Kind = "stack"
	KindQueue Kind = "queue"
)

// Kinds lists all container kinds.
var Kinds = []Kind{KindStack, KindQueue}

// New creates an empty container of the given kind.
func New[T any](kind Kind) (Container[T], error) {
	switch kind {
	case KindStack:
		return NewStack[T](), nil
	case KindQueue:
		return NewQueue[T](), nil
	default:
		return nil, fmt.Errorf("unknown container kind %q (valid: %s, %s)", kind, KindStack, KindQueue)
	}
}

// Put implements Container.
func (s *Stack[T]) Put(h *ebr.Handle, value T) bool {
	s.Push(h, value)
	return true
}

// Take implements Container.
func (s *Stack[T]) Take(h *ebr.Handle) (T, bool) {
	return s.Pop(h)
}

// Put implements Container.
func (q *Queue[T]) Put(h *ebr.Handle, value T) bool {
	return q.Enqueue(h, value)
}

// Take implements Container.
func (q *Queue[T]) Take(h *ebr.Handle) (T, bool) {
	return q.Dequeue(h)
}
