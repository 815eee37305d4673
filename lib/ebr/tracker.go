package ebr

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// tracker records the identity of every retired object that has not been
// freed yet. It only exists in debug mode.
type tracker struct {
	pending *xsync.MapOf[uintptr, Epoch]
}

func newTracker() *tracker {
	return &tracker{
		pending: xsync.NewMapOf[uintptr, Epoch](),
	}
}

// retire registers key or panics if it is already waiting for reclamation.
func (t *tracker) retire(d *Domain, key uintptr, epoch Epoch) {
	if prev, loaded := t.pending.LoadOrStore(key, epoch); loaded {
		err := NewError(RetCDoubleRetire,
			fmt.Sprintf("object %#x retired at epoch %s is retired again at epoch %s", key, prev, epoch))
		Logger.Errorf("domain %q: %v", d.config.Name, err)
		panic(err)
	}
}

func (t *tracker) release(key uintptr) {
	t.pending.Delete(key)
}

func (t *tracker) contains(key uintptr) bool {
	_, ok := t.pending.Load(key)
	return ok
}

func (t *tracker) size() int {
	return t.pending.Size()
}
