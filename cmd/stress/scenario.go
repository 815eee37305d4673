package stress

import (
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dEBR/lib/ebr"
	"github.com/ValentinKolb/dEBR/lib/lockfree"
	"github.com/ValentinKolb/dEBR/lib/util"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rcrowley/go-metrics"
	"github.com/sourcegraph/conc/pool"
)

var Logger = logger.GetLogger("stress")

// Options configures a stress run
type Options struct {
	// Writers is the number of goroutines retiring objects
	Writers int
	// Objects is the number of objects every writer retires
	Objects int
	// Readers is the number of goroutines that keep pinning the domain
	Readers int
	// Container is an optional lock-free container the writers push and pop
	// through on every iteration. Empty means no container.
	Container lockfree.Kind
	// Domain configures the reclamation domain under test
	Domain ebr.Config
}

// object is the unit of retirement. Its deleter checks that no reader is
// still pinned at or before the epoch it was retired in.
type object struct {
	id    int64
	epoch ebr.Epoch
}

// Report is the outcome of a stress run
type Report struct {
	Options  Options
	Duration time.Duration
	Domain   ebr.Stats

	Expected   int64 // objects retired
	Freed      int64 // distinct objects freed
	Duplicates int64 // deleter calls beyond the first per object
	Premature  int64 // objects freed while a reader was pinned at or before their retire epoch
	Poisoned   int64 // container operations that ran into a recycled node

	WriterDurations util.DistributionStats
	ReaderPins      util.DistributionStats

	Registry metrics.Registry
	domain   *ebr.Domain
}

// Violations lists every safety property the run broke. An empty list means the run passed.
func (r *Report) Violations() []string {
	var v []string
	if r.Freed != r.Expected {
		v = append(v, fmt.Sprintf("%d of %d objects were never freed", r.Expected-r.Freed, r.Expected))
	}
	if r.Duplicates > 0 {
		v = append(v, fmt.Sprintf("%d objects were freed more than once", r.Duplicates))
	}
	if r.Premature > 0 {
		v = append(v, fmt.Sprintf("%d objects were freed while a reader could still observe them", r.Premature))
	}
	if r.Poisoned > 0 {
		v = append(v, fmt.Sprintf("container touched a recycled node %d times", r.Poisoned))
	}
	return v
}

// Run executes the scenario: writers retire objects while readers hold short
// pins, then every handle leaves the domain and the domain is closed. Every
// deleter call is recorded, so the report can tell whether each object was
// freed exactly once and never while a reader could see it.
func Run(opts Options) (*Report, error) {
	if opts.Writers < 1 || opts.Objects < 1 || opts.Readers < 0 {
		return nil, fmt.Errorf("need at least one writer and one object, got %d writers and %d objects", opts.Writers, opts.Objects)
	}
	if workers := opts.Writers + opts.Readers; workers > opts.Domain.Capacity {
		return nil, fmt.Errorf("registry capacity %d is too small for %d workers", opts.Domain.Capacity, workers)
	}

	d, err := ebr.NewDomain(opts.Domain)
	if err != nil {
		return nil, err
	}

	var container lockfree.Container[int64]
	if opts.Container != "" {
		if container, err = lockfree.New[int64](opts.Container); err != nil {
			return nil, err
		}
	}

	registry := metrics.NewRegistry()
	pinTimer := metrics.NewRegisteredTimer("writer.pin", registry)
	retireMeter := metrics.NewRegisteredMeter("writer.retire", registry)
	readerPins := metrics.NewRegisteredCounter("reader.pins", registry)
	defer pinTimer.Stop()
	defer retireMeter.Stop()

	report := &Report{
		Options:  opts,
		Expected: int64(opts.Writers) * int64(opts.Objects),
		Registry: registry,
		domain:   d,
	}

	// pinned[i] holds the epoch reader i is pinned at plus one, zero while unpinned
	pinned := make([]atomic.Uint64, opts.Readers)
	ledger := xsync.NewMapOf[int64, int32]()
	var premature atomic.Int64

	free := func(o *object) {
		for i := range pinned {
			p := pinned[i].Load()
			if p == 0 {
				continue
			}
			if at := ebr.Epoch(p - 1); !o.epoch.Before(at) {
				premature.Add(1)
				Logger.Errorf("object %d retired at epoch %s freed while reader %d is pinned at %s",
					o.id, o.epoch, i, at)
			}
		}
		ledger.Compute(o.id, func(old int32, _ bool) (int32, bool) {
			return old + 1, false
		})
	}

	start := time.Now()

	// readers
	var stop atomic.Bool
	pins := make([]int64, opts.Readers)
	readerHandles := make([]*ebr.Handle, opts.Readers)
	readers := pool.New().WithErrors()
	for r := 0; r < opts.Readers; r++ {
		r := r
		readers.Go(func() error {
			h, err := d.TryRegister()
			if err != nil {
				return err
			}
			readerHandles[r] = h
			for !stop.Load() {
				g := h.Pin()
				pinned[r].Store(uint64(g.Epoch()) + 1)
				runtime.Gosched()
				pinned[r].Store(0)
				g.Release()
				pins[r]++
				readerPins.Inc(1)
			}
			return nil
		})
	}

	// writers
	durations := make([]float64, opts.Writers)
	writerHandles := make([]*ebr.Handle, opts.Writers)
	writers := pool.New().WithErrors()
	for w := 0; w < opts.Writers; w++ {
		w := w
		writers.Go(func() error {
			h, err := d.TryRegister()
			if err != nil {
				return err
			}
			writerHandles[w] = h

			began := time.Now()
			for i := 0; i < opts.Objects; i++ {
				id := int64(w)*int64(opts.Objects) + int64(i)

				t := time.Now()
				g := h.Pin()
				pinTimer.UpdateSince(t)

				ebr.Retire(h, &object{id: id, epoch: d.Epoch()}, free, &g)
				if container != nil {
					container.Put(h, id)
					container.Take(h)
				}
				g.Release()
				retireMeter.Mark(1)
			}
			h.Reclaim()
			durations[w] = time.Since(began).Seconds()
			return nil
		})
	}

	writerErr := writers.Wait()
	stop.Store(true)
	readerErr := readers.Wait()

	// readers are gone, so draining the writers cannot free anything a reader still sees
	for _, h := range readerHandles {
		if h != nil {
			h.Unregister()
		}
	}
	for _, h := range writerHandles {
		if h != nil {
			h.Unregister()
		}
	}
	d.Close()

	if writerErr != nil {
		return nil, fmt.Errorf("writer failed: %w", writerErr)
	}
	if readerErr != nil {
		return nil, fmt.Errorf("reader failed: %w", readerErr)
	}

	report.Duration = time.Since(start)
	report.Domain = d.Stats()
	report.Premature = premature.Load()
	ledger.Range(func(_ int64, n int32) bool {
		report.Freed++
		if n > 1 {
			report.Duplicates += int64(n - 1)
		}
		return true
	})
	if container != nil {
		report.Poisoned = container.Poisoned()
	}
	report.WriterDurations = util.NewDistributionStats(durations)
	report.ReaderPins = util.NewDistributionStats(toFloats(pins))

	Logger.Infof("stress run finished in %s: %d retired, %d freed", report.Duration, report.Expected, report.Freed)
	return report, nil
}

func toFloats(values []int64) []float64 {
	floats := make([]float64, len(values))
	for i, v := range values {
		floats[i] = float64(v)
	}
	return floats
}

// Print writes a human readable summary of the report
func (r *Report) Print(w io.Writer) {
	addSection := func(title string) {
		fmt.Fprintf(w, "\n%s\n", title)
	}
	addField := func(name string, format string, args ...any) {
		fmt.Fprintf(w, "  %-22s: %s\n", name, fmt.Sprintf(format, args...))
	}

	addSection("RUN")
	addField("Writers", "%d x %d objects", r.Options.Writers, r.Options.Objects)
	addField("Readers", "%d", r.Options.Readers)
	container := string(r.Options.Container)
	if container == "" {
		container = "none"
	}
	addField("Container", "%s", container)
	addField("Duration", "%s", r.Duration.Round(time.Millisecond))

	addSection("RECLAMATION")
	addField("Global Epoch", "%s", r.Domain.GlobalEpoch)
	addField("Retired", "%d", r.Domain.Retired)
	addField("Reclaimed", "%d", r.Domain.Reclaimed)
	addField("Advances", "%d (%d aborted)", r.Domain.Advances, r.Domain.Aborted)
	addField("Orphaned", "%d", r.Domain.Orphaned)

	addSection("SAFETY")
	addField("Objects Freed", "%d / %d", r.Freed, r.Expected)
	addField("Freed Twice", "%d", r.Duplicates)
	addField("Freed Early", "%d", r.Premature)
	addField("Recycled Node Hits", "%d", r.Poisoned)

	addSection("WORKERS")
	addField("Writer Time", "mean %.3fs, min %.3fs, max %.3fs (quality %.2f)",
		r.WriterDurations.Mean, r.WriterDurations.Min, r.WriterDurations.Max, r.WriterDurations.DistributionQuality)
	if r.Options.Readers > 0 {
		addField("Reader Pins", "mean %.0f, min %.0f, max %.0f (quality %.2f)",
			r.ReaderPins.Mean, r.ReaderPins.Min, r.ReaderPins.Max, r.ReaderPins.DistributionQuality)
	}

	pin := metrics.GetOrRegisterTimer("writer.pin", r.Registry).Snapshot()
	retire := metrics.GetOrRegisterMeter("writer.retire", r.Registry).Snapshot()
	addField("Pin Latency", "mean %s, p99 %s",
		time.Duration(pin.Mean()).Round(time.Nanosecond), time.Duration(pin.Percentile(0.99)).Round(time.Nanosecond))
	addField("Retire Rate", "%.0f ops/sec", retire.RateMean())
}

// WriteMetrics writes the domain metrics in Prometheus text format followed
// by the worker metrics of the run.
func (r *Report) WriteMetrics(w io.Writer) {
	if r.domain != nil {
		r.domain.WriteMetrics(w)
	}
	metrics.WriteOnce(r.Registry, w)
}
