package lockfree

import (
	"testing"

	"github.com/ValentinKolb/dEBR/lib/ebr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	d := newTestDomain(t, ebr.DrainImmediate)
	h := d.NewHandle()
	defer h.Unregister()

	q := NewQueue[int]()
	for i := 0; i < 100; i++ {
		require.True(t, q.Enqueue(h, i))
	}
	assert.Equal(t, 100, q.Len(h))

	for i := 0; i < 100; i++ {
		v, ok := q.Dequeue(h)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := q.Dequeue(h)
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len(h))
}

func TestQueueClose(t *testing.T) {
	d := newTestDomain(t, ebr.DrainImmediate)
	h := d.NewHandle()
	defer h.Unregister()

	q := NewQueue[string]()
	require.True(t, q.Enqueue(h, "before"))
	assert.False(t, q.IsClosed())

	q.Close()
	assert.True(t, q.IsClosed())
	assert.False(t, q.Enqueue(h, "after"), "a closed queue must refuse new items")

	v, ok := q.Dequeue(h)
	require.True(t, ok, "items enqueued before Close stay available")
	assert.Equal(t, "before", v)
}

func TestQueueRetiresOldSentinel(t *testing.T) {
	d := newTestDomain(t, ebr.DrainImmediate)
	h := d.NewHandle()
	defer h.Unregister()

	q := NewQueue[int]()
	sentinel := q.head.Load()

	q.Enqueue(h, 1)
	_, ok := q.Dequeue(h)
	require.True(t, ok)

	assert.EqualValues(t, 1, d.Stats().Retired)
	assert.False(t, sentinel.freed.Load())

	h.Reclaim()
	assert.True(t, sentinel.freed.Load())
	// only the current sentinel is still out of the pool
	assert.EqualValues(t, 1, q.Outstanding())
}

func TestQueueOrderingUnderLoad(t *testing.T) {
	d := newTestDomain(t, ebr.DrainDeferred)
	q := NewQueue[int]()

	// a single producer must be observed in order
	const itemCount = 10000
	go func() {
		h := d.NewHandle()
		defer h.Unregister()
		for i := 0; i < itemCount; i++ {
			q.Enqueue(h, i)
		}
	}()

	h := d.NewHandle()
	defer h.Unregister()

	prev := -1
	for received := 0; received < itemCount; {
		v, ok := q.Dequeue(h)
		if !ok {
			continue
		}
		require.Greater(t, v, prev, "items out of order")
		prev = v
		received++
	}
	assert.Zero(t, q.Poisoned())
}

func TestQueueNodesAreRecycled(t *testing.T) {
	d := newTestDomain(t, ebr.DrainImmediate)
	h := d.NewHandle()
	defer h.Unregister()

	q := NewQueue[int]()
	for i := 0; i < 100000; i++ {
		q.Enqueue(h, i)
		q.Dequeue(h)
	}

	// garbage never grows much beyond the high-water mark
	assert.Less(t, q.Outstanding(), int64(64))
	assert.Less(t, h.Garbage(), 64)
}
