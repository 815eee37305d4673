package lockfree

import (
	"sync"
	"sync/atomic"
)

// NodePool is a typed object pool for the nodes of the containers in this
// package. Put is the deleter handed to ebr.Retire: it resets the node and
// makes it available for reuse, which is exactly the moment a premature
// reclamation would become visible to a reader.
type NodePool[T any] struct {
	p     *sync.Pool
	reset func(*T)

	gets atomic.Int64
	puts atomic.Int64
}

// NewNodePool creates a pool. reset is applied by Put before the node is
// returned to the pool and may be nil.
func NewNodePool[T any](ctor func() *T, reset func(*T)) *NodePool[T] {
	return &NodePool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
		reset: reset,
	}
}

// Get retrieves a node from the pool.
func (p *NodePool[T]) Get() *T {
	p.gets.Add(1)
	return p.p.Get().(*T)
}

// Put resets a node and returns it to the pool.
func (p *NodePool[T]) Put(v *T) {
	if p.reset != nil {
		p.reset(v)
	}
	p.puts.Add(1)
	p.p.Put(v)
}

// Outstanding returns the number of nodes taken from the pool and not yet returned.
func (p *NodePool[T]) Outstanding() int64 {
	return p.gets.Load() - p.puts.Load()
}
