package testing

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dEBR/lib/ebr"
	"github.com/ValentinKolb/dEBR/lib/lockfree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ContainerFactory is a function that creates a new, empty container
type ContainerFactory func() lockfree.Container[int]

// RunContainerTests runs the conformance suite for a container implementation.
func RunContainerTests(t *testing.T, name string, factory ContainerFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Put&Take", func(t *testing.T) {
			testPutTake(t, factory())
		})

		t.Run("Reclamation", func(t *testing.T) {
			testReclamation(t, factory())
		})

		t.Run("PinnedReaderDefersReclamation", func(t *testing.T) {
			testPinnedReader(t, factory())
		})

		t.Run("ConcurrentProducersConsumers", func(t *testing.T) {
			testConcurrent(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// newDomain creates a domain private to the test. Handles of concurrent
// workers leave while others are still pinned, so leftovers are deferred.
func newDomain(t testing.TB, highWaterMark int) *ebr.Domain {
	d, err := ebr.NewDomain(ebr.Config{
		Name:          t.Name(),
		Capacity:      16,
		HighWaterMark: highWaterMark,
		Drain:         ebr.DrainDeferred,
	})
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutTake(t *testing.T, c lockfree.Container[int]) {
	d := newDomain(t, 64)
	h := d.NewHandle()
	defer h.Unregister()

	_, ok := c.Take(h)
	require.False(t, ok, "take from an empty container")

	const n = 100
	for i := 0; i < n; i++ {
		require.True(t, c.Put(h, i))
	}

	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		v, ok := c.Take(h)
		require.True(t, ok, "take %d of %d", i, n)
		require.False(t, seen[v], "value %d taken twice", v)
		seen[v] = true
	}
	assert.Len(t, seen, n)

	_, ok = c.Take(h)
	assert.False(t, ok, "container should be empty again")
	assert.Zero(t, c.Poisoned())
}

func testReclamation(t *testing.T, c lockfree.Container[int]) {
	d := newDomain(t, 16)
	h := d.NewHandle()

	const n = 500
	for i := 0; i < n; i++ {
		require.True(t, c.Put(h, i))
		_, ok := c.Take(h)
		require.True(t, ok)
	}

	// every take retires exactly one node
	stats := d.Stats()
	require.EqualValues(t, n, stats.Retired)
	assert.Greater(t, stats.Reclaimed, uint64(0), "the high-water mark should have triggered reclamation")

	h.Reclaim()
	h.Unregister()
	d.Close()

	stats = d.Stats()
	assert.Zero(t, stats.Pending(), "all retired nodes should be reclaimed")
	// a queue keeps its sentinel node
	assert.LessOrEqual(t, c.Outstanding(), int64(1))
	assert.Zero(t, c.Poisoned())
}

func testPinnedReader(t *testing.T, c lockfree.Container[int]) {
	d := newDomain(t, 1<<20)
	writer := d.NewHandle()
	defer writer.Unregister()
	reader := d.NewHandle()
	defer reader.Unregister()

	g := reader.Pin()

	const n = 10
	for i := 0; i < n; i++ {
		c.Put(writer, i)
		c.Take(writer)
	}
	writer.Reclaim()
	require.Zero(t, d.Stats().Reclaimed, "nodes must survive while the reader is pinned")

	g.Release()
	writer.Reclaim()
	assert.EqualValues(t, n, d.Stats().Reclaimed)
	assert.Zero(t, c.Poisoned())
}

func testConcurrent(t *testing.T, c lockfree.Container[int]) {
	const (
		producers = 4
		consumers = 4
		perWorker = 2000
		total     = producers * perWorker
	)
	d := newDomain(t, 32)

	counts := make([]atomic.Int32, total)
	var taken atomic.Int64
	var wg sync.WaitGroup

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			h := d.NewHandle()
			defer h.Unregister()
			for i := 0; i < perWorker; i++ {
				c.Put(h, p*perWorker+i)
			}
		}(p)
	}

	for w := 0; w < consumers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := d.NewHandle()
			defer h.Unregister()
			for taken.Load() < total {
				v, ok := c.Take(h)
				if !ok {
					runtime.Gosched()
					continue
				}
				counts[v].Add(1)
				taken.Add(1)
			}
		}()
	}

	wg.Wait()

	for v := range counts {
		if n := counts[v].Load(); n != 1 {
			t.Fatalf("value %d taken %d times", v, n)
		}
	}
	assert.Zero(t, c.Poisoned(), "a node was recycled while still reachable")
	assert.Zero(t, d.ActiveSlots())
}
