package lockfree

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingCapacityMustBePowerOfTwo(t *testing.T) {
	for _, c := range []int{0, -1, 3, 100} {
		assert.Panics(t, func() { NewRing[int](c) }, "capacity %d", c)
	}
	assert.NotPanics(t, func() { NewRing[int](1) })
	assert.Equal(t, 64, NewRing[int](64).Cap())
}

func TestRingFullAndEmpty(t *testing.T) {
	r := NewRing[int](4)

	_, ok := r.Pop()
	assert.False(t, ok)

	for i := 0; i < 4; i++ {
		require.True(t, r.Push(i))
	}
	assert.False(t, r.Push(4), "ring should be full")
	assert.Equal(t, 4, r.Len())

	for i := 0; i < 4; i++ {
		v, ok := r.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok = r.Pop()
	assert.False(t, ok)

	// wrap around a few laps
	for i := 0; i < 20; i++ {
		require.True(t, r.Push(i))
		v, ok := r.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestRingConcurrent(t *testing.T) {
	const (
		producers = 4
		consumers = 4
		perWorker = 5000
		total     = producers * perWorker
	)
	r := NewRing[int](256)
	counts := make([]atomic.Int32, total)
	var taken atomic.Int64
	var wg sync.WaitGroup

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perWorker; {
				if r.Push(p*perWorker + i) {
					i++
				}
			}
		}(p)
	}
	for c := 0; c < consumers; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for taken.Load() < total {
				if v, ok := r.Pop(); ok {
					counts[v].Add(1)
					taken.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	for v := range counts {
		require.EqualValues(t, 1, counts[v].Load(), "value %d", v)
	}
	assert.Equal(t, 0, r.Len())
}
