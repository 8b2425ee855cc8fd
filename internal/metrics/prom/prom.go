// Package prom exports page cache and decoder metrics to Prometheus.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"comet/internal/pages"
)

// Adapter implements pages.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits       prometheus.Counter
	misses     prometheus.Counter
	evicts     prometheus.Counter
	sizeEnt    prometheus.Gauge
	decoded    *prometheus.CounterVec
	prefetched prometheus.Counter
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns:           Prometheus namespace
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "cache",
			Name:        "hits_total",
			Help:        "Page handle cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "cache",
			Name:        "misses_total",
			Help:        "Page handle cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "cache",
			Name:        "evictions_total",
			Help:        "Handles released to stay within the cache limit",
			ConstLabels: constLabels,
		}),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   "cache",
			Name:        "size_entries",
			Help:        "Number of live handles, pinned pages included",
			ConstLabels: constLabels,
		}),
		decoded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "decoder",
				Name:        "pages_total",
				Help:        "Page decodes by result",
				ConstLabels: constLabels,
			},
			[]string{"result"},
		),
		prefetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "prefetch",
			Name:        "pages_total",
			Help:        "Pages decoded ahead of navigation",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.sizeEnt, a.decoded, a.prefetched)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter.
func (a *Adapter) Evict() { a.evicts.Inc() }

// Size updates the live handle gauge.
func (a *Adapter) Size(entries int) { a.sizeEnt.Set(float64(entries)) }

// Decoded counts a finished decode.
func (a *Adapter) Decoded(ok bool) {
	a.decoded.WithLabelValues(result(ok)).Inc()
}

// Prefetched counts a page loaded by the prefetcher.
func (a *Adapter) Prefetched() { a.prefetched.Inc() }

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "corrupt"
}

// Compile-time check: ensure Adapter implements pages.Metrics.
var _ pages.Metrics = (*Adapter)(nil)
