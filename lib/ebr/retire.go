package ebr

import "unsafe"

// retired is an item of a garbage list: the deleter owns the retired object
// and is invoked exactly once, after the item has been removed from its list.
type retired struct {
	free  func()
	epoch Epoch
}

// --------------------------------------------------------------------------
// Retire
// --------------------------------------------------------------------------

// RetireFunc defers deleter until no pinned handle can still observe the
// object it releases. The object must already be unlinked from every path a
// reader can traverse, and deleter must release exactly that object.
//
// Once the handle's garbage reaches the configured high-water mark an
// advancement attempt runs as a side effect.
func (h *Handle) RetireFunc(deleter func(), g *Guard) {
	h.check(g)
	if deleter == nil {
		return
	}

	// the guard may be older than the epoch a concurrent reader pinned at when
	// it loaded the object, the global epoch at unlink time is not
	h.garbage = append(h.garbage, retired{free: deleter, epoch: h.domain.Epoch()})
	h.domain.metrics.retired.Inc()

	if len(h.garbage) >= h.domain.config.HighWaterMark {
		h.TryAdvance()
	}
}

// Retire hands obj to the handle's garbage list. Ownership of obj moves to the
// domain; deleter(obj) is called exactly once when the grace period is over.
//
// With Config.Debug set, retiring an object that is already waiting for
// reclamation panics with RetCDoubleRetire.
func Retire[T any](h *Handle, obj *T, deleter func(*T), g *Guard) {
	h.check(g)
	if obj == nil || deleter == nil {
		return
	}

	t := h.domain.tracker
	if t == nil {
		h.RetireFunc(func() { deleter(obj) }, g)
		return
	}

	key := uintptr(unsafe.Pointer(obj))
	t.retire(h.domain, key, h.domain.Epoch())
	h.RetireFunc(func() {
		// forget the key first, the deleter may make obj reusable
		t.release(key)
		deleter(obj)
	}, g)
}

// IsRetired reports whether obj has been retired and not yet freed. It always
// returns false unless the domain runs with Config.Debug.
func IsRetired[T any](d *Domain, obj *T) bool {
	if d.tracker == nil || obj == nil {
		return false
	}
	return d.tracker.contains(uintptr(unsafe.Pointer(obj)))
}

// --------------------------------------------------------------------------
// Epoch advancement
// --------------------------------------------------------------------------

// TryAdvance attempts to move the global epoch forward and frees the handle's
// garbage (and orphaned garbage) that is two generations old.
//
// The attempt aborts when an active slot is still pinned at an epoch older than
// the current global epoch. That is the normal outcome under load, not an
// error: the garbage stays queued for a later attempt.
func (h *Handle) TryAdvance() bool {
	// deleters run by this handle must not recurse into another attempt
	if h.index < 0 || h.advancing {
		return false
	}
	d := h.domain

	d.advance.Lock()
	cur := Epoch(d.global.Load())
	for i := range d.slots {
		s := &d.slots[i]
		if !s.active.Load() {
			continue
		}
		if e := Epoch(s.localEpoch.Load()); e.Pinned() && e.Before(cur) {
			d.advance.Unlock()
			d.metrics.aborted.Inc()
			Logger.Debugf("domain %q: slot %d pinned at epoch %s, global epoch stays at %s",
				d.config.Name, i, e, cur)
			return false
		}
	}

	next := cur.Next()
	d.global.Store(uint64(next))

	var orphans []retired
	if len(d.orphans) > 0 {
		orphans, d.orphans = split(d.orphans, next)
		d.orphanCount.Store(int64(len(d.orphans)))
	}
	d.advance.Unlock()
	d.metrics.advances.Inc()

	// own garbage is private, it is swept outside the lock
	var ready []retired
	ready, h.garbage = split(h.garbage, next)

	h.advancing = true
	defer func() { h.advancing = false }()
	d.free(ready, orphans)
	return true
}

// Reclaim runs advancement attempts until every item the handle had retired
// before the call is freed or an attempt aborts. It returns the number of
// items freed from the handle's own garbage.
func (h *Handle) Reclaim() int {
	before := len(h.garbage)
	// two successful advancements outlive every item retired so far
	for i := 0; i < 2 && len(h.garbage) > 0; i++ {
		if !h.TryAdvance() {
			break
		}
	}
	return before - len(h.garbage)
}

// split partitions items into those reclaimable at now and those that must
// wait. The order of both results is the retirement order.
func split(items []retired, now Epoch) (ready, keep []retired) {
	keep = items[:0]
	for _, it := range items {
		if reclaimable(it.epoch, now) {
			ready = append(ready, it)
		} else {
			keep = append(keep, it)
		}
	}
	clear(items[len(keep):])
	return ready, keep
}

// free invokes the deleters of items that are no longer on any list. A
// panicking deleter does not stop the others: every item is called once, then
// the first panic is raised again.
func (d *Domain) free(batches ...[]retired) {
	n := 0
	var failure any
	for _, items := range batches {
		for i := range items {
			f := items[i].free
			items[i].free = nil
			if r := invoke(f); r != nil && failure == nil {
				failure = r
			}
			d.metrics.reclaimed.Inc()
			n++
		}
	}
	if n > 0 {
		d.metrics.batch.Update(float64(n))
	}
	if failure != nil {
		Logger.Errorf("domain %q: deleter panicked: %v", d.config.Name, failure)
		panic(failure)
	}
}

func invoke(f func()) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	f()
	return nil
}
