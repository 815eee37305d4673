package lockfree

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dEBR/lib/ebr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDomain(t *testing.T, drain ebr.DrainPolicy) *ebr.Domain {
	d, err := ebr.NewDomain(ebr.Config{
		Name:          t.Name(),
		Capacity:      16,
		HighWaterMark: 8,
		Drain:         drain,
	})
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestStackLIFO(t *testing.T) {
	d := newTestDomain(t, ebr.DrainImmediate)
	h := d.NewHandle()
	defer h.Unregister()

	s := NewStack[string]()
	s.Push(h, "a")
	s.Push(h, "b")
	s.Push(h, "c")
	assert.Equal(t, 3, s.Len())

	var walked []string
	s.Walk(h, func(v string) bool {
		walked = append(walked, v)
		return true
	})
	assert.Equal(t, []string{"c", "b", "a"}, walked)

	for _, want := range []string{"c", "b", "a"} {
		v, ok := s.Pop(h)
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
	_, ok := s.Pop(h)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStackWalkStops(t *testing.T) {
	d := newTestDomain(t, ebr.DrainImmediate)
	h := d.NewHandle()
	defer h.Unregister()

	s := NewStack[int]()
	for i := 0; i < 10; i++ {
		s.Push(h, i)
	}

	n := 0
	s.Walk(h, func(int) bool {
		n++
		return n < 3
	})
	assert.Equal(t, 3, n)
}

func TestStackPoppedNodeIsRecycledAfterGracePeriod(t *testing.T) {
	d := newTestDomain(t, ebr.DrainImmediate)
	h := d.NewHandle()
	defer h.Unregister()

	s := NewStack[int]()
	s.Push(h, 1)

	g := h.Pin()
	top := s.head.Load()
	g.Release()

	_, ok := s.Pop(h)
	require.True(t, ok)
	assert.False(t, top.freed.Load(), "node freed without a grace period")

	h.Reclaim()
	assert.True(t, top.freed.Load(), "node should have been recycled")
	assert.EqualValues(t, 0, s.Outstanding())
}

// A writer pops under an outer guard that lags one epoch behind a reader that
// already loaded the top node. The node must survive until the reader is done.
func TestStackPopUnderOldGuardKeepsNewerReaderSafe(t *testing.T) {
	d := newTestDomain(t, ebr.DrainImmediate)
	w := d.Register()
	other := d.Register()
	reader := d.Register()
	defer w.Unregister()
	defer other.Unregister()
	defer reader.Unregister()

	s := NewStack[int]()
	s.Push(w, 42)

	outer := w.Pin()
	require.True(t, other.TryAdvance())

	rg := reader.Pin()
	require.Equal(t, outer.Epoch().Next(), rg.Epoch())
	top := s.head.Load()

	v, ok := s.Pop(w)
	require.True(t, ok)
	assert.Equal(t, 42, v)
	outer.Release()

	w.Reclaim()
	assert.False(t, top.freed.Load(), "node recycled while a reader holding it was pinned")
	assert.Equal(t, 42, top.value)

	rg.Release()
	w.Reclaim()
	assert.True(t, top.freed.Load(), "node should have been recycled")
	assert.Zero(t, s.Poisoned())
}

// Readers walk the stack while writers pop and push. A reader must never
// reach a node that went back to the pool.
func TestStackReadersNeverSeeRecycledNodes(t *testing.T) {
	const (
		writers = 4
		readers = 2
		rounds  = 2000
	)
	d := newTestDomain(t, ebr.DrainDeferred)
	s := NewStack[int]()

	seed := d.NewHandle()
	for i := 0; i < 64; i++ {
		s.Push(seed, i)
	}
	seed.Unregister()

	var stop atomic.Bool
	var readerWg, writerWg sync.WaitGroup

	for r := 0; r < readers; r++ {
		readerWg.Add(1)
		go func() {
			defer readerWg.Done()
			h := d.NewHandle()
			defer h.Unregister()
			for !stop.Load() {
				s.Walk(h, func(int) bool { return true })
			}
		}()
	}

	for w := 0; w < writers; w++ {
		writerWg.Add(1)
		go func(w int) {
			defer writerWg.Done()
			h := d.NewHandle()
			defer h.Unregister()
			for i := 0; i < rounds; i++ {
				if v, ok := s.Pop(h); ok {
					s.Push(h, v)
				} else {
					s.Push(h, w)
				}
			}
		}(w)
	}

	writerWg.Wait()
	stop.Store(true)
	readerWg.Wait()

	assert.Zero(t, s.Poisoned())
	assert.Equal(t, 64, s.Len())
}
