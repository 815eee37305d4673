package ebr

import "testing"

func TestUnregisterDrainsImmediately(t *testing.T) {
	d := newTestDomain(t, 2)
	h := d.Register()

	freed := 0
	for i := 0; i < 5; i++ {
		g := h.Pin()
		h.RetireFunc(func() { freed++ }, &g)
		g.Release()
	}

	g := h.Pin()
	h.Unregister()

	if freed != 5 {
		t.Errorf("expected all 5 items to be freed, got %d", freed)
	}
	if h.Garbage() != 0 || h.Registered() || h.Pinned() {
		t.Errorf("expected an empty, unregistered handle")
	}
	if d.ActiveSlots() != 0 {
		t.Errorf("expected the slot to be inactive, got %d active", d.ActiveSlots())
	}

	// the stale guard is inert and a second Unregister does nothing
	g.Release()
	h.Unregister()
}

func TestUnregisterIgnoresInactiveSlotInScan(t *testing.T) {
	d := newTestDomain(t, 2)
	gone := d.Register()
	h := d.Register()

	gone.Pin()
	gone.Unregister()

	// the unregistered slot was pinned at 0 but no longer takes part
	if !h.TryAdvance() || !h.TryAdvance() {
		t.Fatal("an unregistered slot must not block advancement")
	}
}

func TestHandleCanRegisterAgain(t *testing.T) {
	d := newTestDomain(t, 1)
	h := d.Register()
	h.Unregister()

	g := h.Pin()
	if !h.Registered() || h.Slot() != 0 {
		t.Fatal("Pin after Unregister must register the handle again")
	}
	g.Release()
}

func TestUnregisterDeferredHandsOffOrphans(t *testing.T) {
	d := newTestDomain(t, 3, func(c *Config) { c.Drain = DrainDeferred })
	reader := d.Register()
	leaving := d.Register()
	survivor := d.Register()

	freed := 0
	rg := reader.Pin()
	g := leaving.Pin()
	leaving.RetireFunc(func() { freed++ }, &g)
	g.Release()

	// reader is pinned at the retire epoch, so nothing can age out yet
	leaving.Unregister()
	if freed != 0 {
		t.Fatal("deferred drain must not free items a reader may still observe")
	}
	if leaving.Garbage() != 0 || leaving.Registered() {
		t.Fatal("unregistered handle must hold no garbage")
	}
	if d.Orphans() != 1 {
		t.Fatalf("expected one orphan, got %d", d.Orphans())
	}

	rg.Release()
	survivor.TryAdvance()
	if freed != 1 {
		t.Fatal("orphan must be freed by later advancements once the reader unpinned")
	}
	if d.Orphans() != 0 {
		t.Errorf("expected no orphans left, got %d", d.Orphans())
	}
	if st := d.Stats(); st.Orphaned != 1 {
		t.Errorf("expected one orphaned item in stats, got %d", st.Orphaned)
	}
}

func TestUnregisterDeferredFreesAgedItems(t *testing.T) {
	d := newTestDomain(t, 1, func(c *Config) { c.Drain = DrainDeferred })
	h := d.Register()

	freed := 0
	g := h.Pin()
	h.RetireFunc(func() { freed++ }, &g)
	g.Release()

	h.Unregister()
	if freed != 1 || d.Orphans() != 0 {
		t.Fatalf("with no other handle the backlog must age out on unregister, freed %d, orphans %d", freed, d.Orphans())
	}
}

func TestCloseFreesOrphans(t *testing.T) {
	d := newTestDomain(t, 2, func(c *Config) { c.Drain = DrainDeferred })
	reader := d.Register()
	h := d.Register()

	freed := 0
	rg := reader.Pin()
	g := h.Pin()
	h.RetireFunc(func() { freed++ }, &g)
	g.Release()
	h.Unregister()
	rg.Release()

	d.Close()
	if freed != 1 || d.Orphans() != 0 {
		t.Fatalf("Close must free all orphans, freed %d, orphans %d", freed, d.Orphans())
	}
}
