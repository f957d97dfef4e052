package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LookupMetrics contains Prometheus metrics for product lookups.
type LookupMetrics struct {
	lookupsTotal   *prometheus.CounterVec
	lookupDuration prometheus.Histogram
}

// NewLookupMetrics creates and registers lookup metrics.
func NewLookupMetrics(registry prometheus.Registerer) (*LookupMetrics, error) {
	m := &LookupMetrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "food_lookups_total",
				Help: "Total number of barcode lookups by outcome and reason",
			},
			[]string{"outcome", "reason"}, // reason is empty on success
		),
		lookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "food_lookup_duration_seconds",
			Help:    "Time taken by barcode lookups",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordLookup records a lookup outcome. An empty reason means the product was found.
func (m *LookupMetrics) RecordLookup(reason string, seconds float64) {
	if m == nil {
		return
	}
	outcome := OutcomeFound
	if reason != "" {
		outcome = OutcomeNotFound
	}
	m.lookupsTotal.WithLabelValues(outcome, reason).Inc()
	m.lookupDuration.Observe(seconds)
}

// Describe implements the prometheus.Collector interface.
func (m *LookupMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.lookupsTotal.Describe(ch)
	ch <- m.lookupDuration.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *LookupMetrics) Collect(ch chan<- prometheus.Metric) {
	m.lookupsTotal.Collect(ch)
	ch <- m.lookupDuration
}
