/*
Package lockfree provides lock-free containers whose removed nodes are handed
to an ebr.Domain instead of being dropped. They serve as working examples of
the reclamation contract and as load for the stress and bench commands.

# Containers

  - Stack: Treiber stack, popped nodes are retired.
  - Queue: Michael-Scott queue, the previous sentinel is retired on every dequeue.
  - Ring: bounded array queue, cells are reused in place and need no reclamation.

Nodes come from a NodePool. Returning a node to the pool zeroes it and marks it
freed; any operation that later observes such a node increments the container's
Poisoned counter. A correct reclamation domain keeps that counter at zero.

# Handles

Every method that dereferences nodes takes the caller's *ebr.Handle. A handle
belongs to one goroutine:

	h := domain.NewHandle()
	defer h.Unregister()

	s := lockfree.NewStack[int]()
	s.Push(h, 42)
	v, ok := s.Pop(h)
*/
package lockfree

import "github.com/lni/dragonboat/v4/logger"

// Logger is the package logger
var Logger = logger.GetLogger("lockfree")
