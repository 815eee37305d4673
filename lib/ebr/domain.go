package ebr

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("ebr")

// slot is one entry of the registry. Only the handle that claimed a slot
// writes its localEpoch; any handle reads it during an advancement scan.
type slot struct {
	active     atomic.Bool
	localEpoch atomic.Uint64
	_          [48]byte // keep neighbouring slots on separate cache lines
}

// Domain is a reclamation domain: a global epoch, a fixed registry of slots
// and the lock that serialises advancement attempts.
type Domain struct {
	config Config
	global atomic.Uint64
	slots  []slot

	// advance serialises advancement attempts and guards orphans
	advance sync.Mutex
	orphans []retired
	// orphanCount mirrors len(orphans) for lock-free diagnostics
	orphanCount atomic.Int64

	tracker *tracker
	metrics *domainMetrics
}

// NewDomain creates a new reclamation domain with the given configuration.
func NewDomain(config Config) (*Domain, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &Domain{
		config: config,
		slots:  make([]slot, config.Capacity),
	}
	for i := range d.slots {
		d.slots[i].localEpoch.Store(uint64(Unpinned))
	}
	if config.Debug {
		d.tracker = newTracker()
	}
	d.metrics = newDomainMetrics(d)

	Logger.Debugf("created domain %q with %d slots (high-water mark %d, drain %s)",
		config.Name, config.Capacity, config.HighWaterMark, config.Drain)
	return d, nil
}

// MustNewDomain is like NewDomain but panics on an invalid configuration.
func MustNewDomain(config Config) *Domain {
	d, err := NewDomain(config)
	if err != nil {
		panic(err)
	}
	return d
}

var (
	defaultDomain     *Domain
	defaultDomainOnce sync.Once
)

// Default returns the process-wide domain. It is created on first use with
// DefaultConfig and lives for the rest of the process.
func Default() *Domain {
	defaultDomainOnce.Do(func() {
		defaultDomain = MustNewDomain(DefaultConfig())
	})
	return defaultDomain
}

// Config returns the configuration the domain was created with.
func (d *Domain) Config() Config {
	return d.config
}

// Epoch returns the current global epoch.
func (d *Domain) Epoch() Epoch {
	return Epoch(d.global.Load())
}

// Capacity returns the number of registry slots.
func (d *Domain) Capacity() int {
	return len(d.slots)
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// claim scans the registry once and claims the first inactive slot.
// It returns -1 if every slot is taken.
func (d *Domain) claim() int {
	for i := range d.slots {
		s := &d.slots[i]
		if s.active.CompareAndSwap(false, true) {
			s.localEpoch.Store(uint64(Unpinned))
			return i
		}
	}
	return -1
}

// NewHandle returns a handle that registers itself on its first Pin.
func (d *Domain) NewHandle() *Handle {
	return &Handle{
		domain: d,
		index:  -1,
	}
}

// TryRegister returns a handle that already owns a registry slot, or an
// *Error with RetCRegistryExhausted if every slot is taken.
func (d *Domain) TryRegister() (*Handle, error) {
	h := d.NewHandle()
	if err := h.register(); err != nil {
		return nil, err
	}
	return h, nil
}

// Register returns a handle that already owns a registry slot. Running out of
// slots means the domain's capacity was configured too small; this is fatal.
func (d *Domain) Register() *Handle {
	h, err := d.TryRegister()
	if err != nil {
		Logger.Errorf("%v", err)
		panic(err)
	}
	return h
}

func (d *Domain) exhausted() *Error {
	return NewError(RetCRegistryExhausted,
		fmt.Sprintf("no free slot in domain %q (capacity %d), increase the capacity", d.config.Name, len(d.slots)))
}

// ActiveSlots returns the number of slots currently owned by a handle.
func (d *Domain) ActiveSlots() int {
	n := 0
	for i := range d.slots {
		if d.slots[i].active.Load() {
			n++
		}
	}
	return n
}

// SlotEpochs returns the epoch published by every active slot. Inactive
// slots are omitted, unpinned slots report Unpinned.
func (d *Domain) SlotEpochs() []Epoch {
	epochs := make([]Epoch, 0, len(d.slots))
	for i := range d.slots {
		s := &d.slots[i]
		if s.active.Load() {
			epochs = append(epochs, Epoch(s.localEpoch.Load()))
		}
	}
	return epochs
}

// OldestPinned returns the oldest epoch any active slot is pinned at.
// The boolean is false if no slot is pinned.
func (d *Domain) OldestPinned() (Epoch, bool) {
	oldest, found := Unpinned, false
	for _, e := range d.SlotEpochs() {
		if !e.Pinned() {
			continue
		}
		if !found || e.Before(oldest) {
			oldest, found = e, true
		}
	}
	return oldest, found
}

// --------------------------------------------------------------------------
// Orphans
// --------------------------------------------------------------------------

// Orphans returns the number of items handed over by unregistered handles
// that are still waiting for their grace period.
func (d *Domain) Orphans() int {
	return int(d.orphanCount.Load())
}

// adopt appends garbage of an unregistering handle to the orphan list.
func (d *Domain) adopt(items []retired) {
	if len(items) == 0 {
		return
	}
	d.advance.Lock()
	d.orphans = append(d.orphans, items...)
	d.orphanCount.Store(int64(len(d.orphans)))
	d.advance.Unlock()

	d.metrics.orphaned.Add(len(items))
	Logger.Infof("domain %q adopted %d orphaned items", d.config.Name, len(items))
}

// Close frees every orphaned item without waiting for its grace period.
// It is meant for process teardown, after all handles have unregistered.
func (d *Domain) Close() {
	d.advance.Lock()
	items := d.orphans
	d.orphans = nil
	d.orphanCount.Store(0)
	d.advance.Unlock()

	if len(items) > 0 {
		Logger.Infof("domain %q closing, freeing %d orphaned items", d.config.Name, len(items))
	}
	d.free(items)
}
