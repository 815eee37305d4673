package ebr

// Unregister ends the handle's participation in the domain: the slot is
// unpinned and released, so later advancement scans no longer consider it,
// and the handle's garbage is drained according to Config.Drain.
//
// After Unregister returns the handle owns no slot and no garbage. Guards
// issued before the call become inert. Calling Pin again registers the handle
// anew. Unregister on an unregistered handle does nothing.
func (h *Handle) Unregister() {
	if h.index < 0 {
		return
	}
	d := h.domain
	s := &d.slots[h.index]

	h.live = h.live[:0]
	s.localEpoch.Store(uint64(Unpinned))

	if d.config.Drain == DrainDeferred {
		// give the backlog a chance to age out while the slot still takes part
		h.Reclaim()
	}

	s.active.Store(false)
	Logger.Debugf("domain %q: handle released slot %d", d.config.Name, h.index)
	h.index = -1

	items := h.garbage
	h.garbage = nil
	if len(items) == 0 {
		return
	}

	switch d.config.Drain {
	case DrainDeferred:
		d.adopt(items)
	default:
		Logger.Debugf("domain %q: draining %d items on unregister", d.config.Name, len(items))
		d.free(items)
	}
}
