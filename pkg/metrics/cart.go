package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart mutation and persistence outcomes.
type CartMetrics struct {
	mutations      *prometheus.CounterVec
	persistLatency *prometheus.HistogramVec
	syncs          *prometheus.CounterVec
	rollbacks      prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer. A nil
// registerer yields a no-op recorder, which keeps tests quiet.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart store mutations by operation and outcome.",
	}, []string{"op", "outcome"})
	persistLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_persist_duration_seconds",
		Help:    "Duration of persistence writes by backing medium.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_syncs_total",
		Help: "Reconciliation runs by outcome.",
	}, []string{"outcome"})
	rollbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_rollbacks_total",
		Help: "Optimistic mutations rolled back after a failed persistence write.",
	})
	reg.MustRegister(mutations, persistLatency, syncs, rollbacks)
	return &CartMetrics{
		mutations:      mutations,
		persistLatency: persistLatency,
		syncs:          syncs,
		rollbacks:      rollbacks,
	}
}

// IncMutation counts one mutation attempt for the named operation.
func (c *CartMetrics) IncMutation(op, outcome string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// ObservePersist records the latency of one persistence write.
func (c *CartMetrics) ObservePersist(backend string, duration time.Duration) {
	if c == nil || c.persistLatency == nil {
		return
	}
	c.persistLatency.WithLabelValues(normalizeLabel(backend)).Observe(duration.Seconds())
}

// IncSync counts one reconciliation run.
func (c *CartMetrics) IncSync(outcome string) {
	if c == nil || c.syncs == nil {
		return
	}
	c.syncs.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncRollback counts one rolled-back optimistic mutation.
func (c *CartMetrics) IncRollback() {
	if c == nil || c.rollbacks == nil {
		return
	}
	c.rollbacks.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
