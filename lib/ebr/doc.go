// Package ebr implements epoch-based reclamation (EBR) for lock-free data
// structures. It lets readers dereference pointers loaded from a shared
// structure while other goroutines concurrently unlink and release the
// objects those pointers refer to.
//
// Go's garbage collector keeps unreachable memory alive for as long as a
// reader holds a pointer, but it cannot tell when an object may be recycled:
// returned to a pool, written over in an arena, unmapped or handed back to a
// foreign allocator. ebr answers exactly that question.
//
// Core Functionality:
//   - A Domain holds the global epoch and a fixed-size registry of slots
//   - A Handle is the per-goroutine capability that owns one slot and a
//     private list of retired objects
//   - Pin publishes the epoch a handle observes and returns a Guard; Release
//     ends the pin
//   - Retire and RetireFunc defer the release of an unlinked object until it
//     is provably unobservable
//
// Reclamation Protocol:
//
//	Retiring appends the object to the handle's garbage list, tagged with the
//	global epoch read at retirement (not the epoch of the retiring guard,
//	which may lag behind a reader that pinned later). When the list reaches
//	the high-water mark (64 by default) the handle tries to advance the global
//	epoch: under the domain's advance lock it scans every active slot and
//	gives up if any of them is still pinned at an epoch older than the
//	current one. Otherwise the epoch moves from E to E+1 and every item of the
//	handle's own list retired at E-1 or earlier is freed.
//
//	Any reader that could still reach the object pinned at an epoch no later
//	than the tag T. Freeing needs an advancement from T+1 to T+2, which only
//	succeeds once every active slot is pinned at T+1 or later, so each such
//	reader has released its guard by then.
//
//	An aborted attempt is not an error. The garbage stays queued and the next
//	retirement past the high-water mark tries again.
//
// Registry:
//
//	The registry has a fixed capacity (Config.Capacity, 32 by default).
//	Running out of slots means the capacity was chosen too small and is fatal
//	for Register and for the lazy registration done by Pin; TryRegister
//	reports it as an *Error instead.
//
// Shutdown:
//
//	Handle.Unregister releases the slot and drains the handle's garbage.
//	With DrainImmediate (the default) every remaining deleter runs at once,
//	which is only safe when no other handle can still be pinned at an epoch
//	that observed those objects. DrainDeferred first tries to age the
//	backlog out and hands what is left to the domain, where later
//	advancements free it under the normal grace period.
//
// Epoch Wraparound:
//
//	Epochs are compared modulo the counter range. Comparisons stay correct as
//	long as the oldest pinned or retired epoch is less than MaxWindow epochs
//	behind the global epoch.
//
// Debug Mode:
//
//	With Config.Debug the domain remembers every retired object until it is
//	freed. Retiring the same object twice panics, and IsRetired lets tests
//	detect use of an object after its retirement.
//
// Thread Safety:
//
//	Domain methods are safe for concurrent use. A Handle and the guards it
//	issues belong to a single goroutine at a time.
//
// Usage Example:
//
//	d := ebr.Default()
//	h := d.Register()
//	defer h.Unregister()
//
//	g := h.Pin()
//	defer g.Release()
//
//	old := head.Load()
//	if head.CompareAndSwap(old, old.next) {
//	    ebr.Retire(h, old, pool.Put, &g)
//	}
package ebr
