package ebr

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// domainMetrics is the per-domain metric set. Each domain owns its own
// metrics.Set so several domains (e.g. in tests) never collide on names.
type domainMetrics struct {
	set       *metrics.Set
	retired   *metrics.Counter
	reclaimed *metrics.Counter
	advances  *metrics.Counter
	aborted   *metrics.Counter
	orphaned  *metrics.Counter
	batch     *metrics.Histogram
}

func newDomainMetrics(d *Domain) *domainMetrics {
	set := metrics.NewSet()
	name := func(metric string) string {
		return fmt.Sprintf(`%s{domain=%q}`, metric, d.config.Name)
	}

	m := &domainMetrics{
		set:       set,
		retired:   set.NewCounter(name("ebr_retired_total")),
		reclaimed: set.NewCounter(name("ebr_reclaimed_total")),
		advances:  set.NewCounter(name("ebr_advance_total")),
		aborted:   set.NewCounter(name("ebr_advance_aborted_total")),
		orphaned:  set.NewCounter(name("ebr_orphaned_total")),
		batch:     set.NewHistogram(name("ebr_reclaim_batch_size")),
	}

	set.NewGauge(name("ebr_global_epoch"), func() float64 {
		return float64(d.Epoch())
	})
	set.NewGauge(name("ebr_active_slots"), func() float64 {
		return float64(d.ActiveSlots())
	})
	set.NewGauge(name("ebr_orphans"), func() float64 {
		return float64(d.Orphans())
	})

	return m
}

// WriteMetrics writes the domain's metrics in Prometheus text exposition format.
func (d *Domain) WriteMetrics(w io.Writer) {
	d.metrics.set.WritePrometheus(w)
}

// Stats is a point-in-time snapshot of a domain's counters.
type Stats struct {
	GlobalEpoch Epoch  `json:"global_epoch"`
	Capacity    int    `json:"capacity"`
	ActiveSlots int    `json:"active_slots"`
	Retired     uint64 `json:"retired"`
	Reclaimed   uint64 `json:"reclaimed"`
	Advances    uint64 `json:"advances"`
	Aborted     uint64 `json:"aborted"`
	Orphaned    uint64 `json:"orphaned"`
	Orphans     int    `json:"orphans"`
}

// Pending returns the number of retired items not yet reclaimed.
func (s Stats) Pending() uint64 {
	return s.Retired - s.Reclaimed
}

// Stats returns a snapshot of the domain's counters.
func (d *Domain) Stats() Stats {
	return Stats{
		GlobalEpoch: d.Epoch(),
		Capacity:    len(d.slots),
		ActiveSlots: d.ActiveSlots(),
		Retired:     d.metrics.retired.Get(),
		Reclaimed:   d.metrics.reclaimed.Get(),
		Advances:    d.metrics.advances.Get(),
		Aborted:     d.metrics.aborted.Get(),
		Orphaned:    d.metrics.orphaned.Get(),
		Orphans:     d.Orphans(),
	}
}
