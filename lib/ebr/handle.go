package ebr

// Handle is the per-goroutine capability to take part in a domain. It caches
// the registry slot and owns the private list of retired items.
//
// A Handle is not safe for concurrent use: each goroutine (or worker) that
// touches a reclaiming structure uses its own Handle, obtained once and reused
// for all of its accesses.
type Handle struct {
	domain *Domain
	index  int      // registry slot, -1 while unregistered
	gen    uint64   // incremented on every registration, invalidates old guards
	seq    uint64   // id of the most recent pin
	live   []uint64 // ids of the live guards, the nesting depth is len(live)
	epoch  Epoch    // epoch published by the outermost live guard

	garbage   []retired
	advancing bool
}

// register claims a slot for the handle if it does not own one yet.
func (h *Handle) register() error {
	if h.index >= 0 {
		return nil
	}
	i := h.domain.claim()
	if i < 0 {
		return h.domain.exhausted()
	}
	h.index = i
	h.gen++
	h.live = h.live[:0]
	Logger.Debugf("domain %q: handle registered in slot %d", h.domain.config.Name, i)
	return nil
}

// Domain returns the domain the handle belongs to.
func (h *Handle) Domain() *Domain {
	return h.domain
}

// Registered reports whether the handle currently owns a registry slot.
func (h *Handle) Registered() bool {
	return h.index >= 0
}

// Slot returns the registry slot of the handle, or -1 if it is not registered.
func (h *Handle) Slot() int {
	return h.index
}

// Pinned reports whether the handle has a live guard.
func (h *Handle) Pinned() bool {
	return len(h.live) > 0
}

// Garbage returns the number of items retired by this handle and not yet freed.
func (h *Handle) Garbage() int {
	return len(h.garbage)
}

// --------------------------------------------------------------------------
// Pin / Guard
// --------------------------------------------------------------------------

// Pin publishes the current global epoch in the handle's slot and returns a
// guard. While the guard is live, pointers loaded from a structure reclaimed
// through this domain stay valid. The handle registers itself on its first
// Pin; running out of slots is fatal.
//
// Nested pins reuse the epoch of the outermost guard; the slot is unpinned
// when the last live guard is released.
func (h *Handle) Pin() Guard {
	if h.index < 0 {
		if err := h.register(); err != nil {
			Logger.Errorf("%v", err)
			panic(err)
		}
	}
	if len(h.live) == 0 {
		s := &h.domain.slots[h.index]
		e := Epoch(h.domain.global.Load())
		for {
			s.localEpoch.Store(uint64(e))
			// the epoch may have moved between the load and the publication
			cur := Epoch(h.domain.global.Load())
			if cur == e {
				break
			}
			e = cur
		}
		h.epoch = e
	}
	h.seq++
	h.live = append(h.live, h.seq)
	return Guard{
		handle: h,
		gen:    h.gen,
		id:     h.seq,
		slot:   h.index,
		epoch:  h.epoch,
	}
}

// holds reports whether the pin with the given id is still live.
func (h *Handle) holds(id uint64) bool {
	for _, l := range h.live {
		if l == id {
			return true
		}
	}
	return false
}

// unpin ends the pin with the given id. It returns false if that pin was
// already ended, e.g. through a copy of its guard.
func (h *Handle) unpin(id uint64) bool {
	for i, l := range h.live {
		if l == id {
			h.live = append(h.live[:i], h.live[i+1:]...)
			return true
		}
	}
	return false
}

// Guard is the scoped token of an active pin. It must stay on the goroutine
// that owns the handle and should be released with defer right after Pin:
//
//	g := h.Pin()
//	defer g.Release()
type Guard struct {
	handle   *Handle
	gen      uint64
	id       uint64
	slot     int
	epoch    Epoch
	released bool
}

// Epoch returns the epoch observed when the guard was created.
func (g *Guard) Epoch() Epoch {
	return g.epoch
}

// Slot returns the registry slot the guard was issued for.
func (g *Guard) Slot() int {
	return g.slot
}

// Released reports whether Release was called on the guard.
func (g *Guard) Released() bool {
	return g.released
}

// Release ends the pin. Releasing a guard twice (or a copy of a released
// guard), or after its handle unregistered, has no effect.
func (g *Guard) Release() {
	if g.released || g.handle == nil {
		return
	}
	g.released = true

	h := g.handle
	if h.gen != g.gen || h.index < 0 || !h.unpin(g.id) {
		return
	}
	if len(h.live) == 0 {
		h.domain.slots[h.index].localEpoch.Store(uint64(Unpinned))
	}
}

// check panics if g cannot be used to retire through h.
func (h *Handle) check(g *Guard) {
	var err *Error
	switch {
	case g == nil || g.handle != h:
		err = NewError(RetCForeignGuard, "guard was not issued by this handle")
	case g.released || g.gen != h.gen || h.index < 0 || !h.holds(g.id):
		err = NewError(RetCReleasedGuard, "guard is no longer live")
	default:
		return
	}
	Logger.Errorf("domain %q: %v", h.domain.config.Name, err)
	panic(err)
}
