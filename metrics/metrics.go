// Package metrics wraps the prometheus counters and gauges persist's core
// exposes to its surrounding process: a metrics registry accepting
// counter/gauge handles, where the core consumes a Registry and never owns
// the global prometheus registerer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the handles encode/decode/migration/gc callers
// increment. It mirrors the style of a typed metrics struct registered
// once at process start, rather than package-level global vars, so tests
// can construct an isolated Registry per case.
type Registry struct {
	EncodeCalls       *prometheus.CounterVec
	DecodeCalls       *prometheus.CounterVec
	MigrationApplied  *prometheus.CounterVec
	DecodeCacheHits   prometheus.Counter
	DecodeCacheMisses prometheus.Counter
	GCIndexSize       prometheus.Gauge
}

// New constructs a Registry and registers its collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the global
// default registerer across parallel test binaries.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		EncodeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persist_encode_calls_total",
			Help: "Number of State/StateDiff encode calls, by message kind.",
		}, []string{"kind"}),
		DecodeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persist_decode_calls_total",
			Help: "Number of State/StateDiff decode calls, by message kind.",
		}, []string{"kind"}),
		MigrationApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persist_migration_applied_total",
			Help: "Number of times a migration synthesized a default for a legacy wire shape, by field.",
		}, []string{"field"}),
		DecodeCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "persist_decode_cache_hits_total",
			Help: "Number of rollup decodes served from the ristretto memoization cache.",
		}),
		DecodeCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "persist_decode_cache_misses_total",
			Help: "Number of rollup decodes that missed the memoization cache and re-parsed.",
		}),
		GCIndexSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "persist_gc_index_size",
			Help: "Number of blob keys currently tracked as live by the GC reference index.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.EncodeCalls, m.DecodeCalls, m.MigrationApplied,
			m.DecodeCacheHits, m.DecodeCacheMisses, m.GCIndexSize)
	}
	return m
}

// NewUnregistered builds a Registry whose collectors are never registered
// against any prometheus.Registerer; useful for call sites (and tests) that
// only want to read the handles back without exporting them.
func NewUnregistered() *Registry { return New(nil) }
