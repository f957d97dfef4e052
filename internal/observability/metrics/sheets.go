package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SheetsMetrics contains Prometheus metrics for spreadsheet gateway operations.
type SheetsMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	cacheTotal        *prometheus.CounterVec
	rowsGauge         *prometheus.GaugeVec
}

// NewSheetsMetrics creates and registers spreadsheet metrics.
func NewSheetsMetrics(registry prometheus.Registerer) (*SheetsMetrics, error) {
	m := &SheetsMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SheetsMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheets_operations_total",
			Help: "Total number of spreadsheet operations",
		},
		[]string{"collection", "operation", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "sheets_operation_duration_seconds",
			Help: "Time taken by spreadsheet operations",
			// 10ms .. ~40s, remote API round trips
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
		},
		[]string{"collection", "operation"},
	)

	m.cacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheets_read_cache_total",
			Help: "Read cache lookups by result",
		},
		[]string{"collection", "result"},
	)

	m.rowsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sheets_collection_rows",
			Help: "Number of data rows in a collection as of the last read or write",
		},
		[]string{"collection"},
	)
}

// RecordOperation records the outcome and duration of a gateway operation.
func (m *SheetsMetrics) RecordOperation(collection, operation string, err error, seconds float64) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.operationsTotal.WithLabelValues(collection, operation, status).Inc()
	m.operationDuration.WithLabelValues(collection, operation).Observe(seconds)
}

// RecordCache records a read cache hit or miss.
func (m *SheetsMetrics) RecordCache(collection string, hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cacheTotal.WithLabelValues(collection, result).Inc()
}

// SetRows records the current row count of a collection.
func (m *SheetsMetrics) SetRows(collection string, rows int) {
	if m == nil {
		return
	}
	m.rowsGauge.WithLabelValues(collection).Set(float64(rows))
}

// Describe implements the prometheus.Collector interface.
func (m *SheetsMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.cacheTotal.Describe(ch)
	m.rowsGauge.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *SheetsMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.cacheTotal.Collect(ch)
	m.rowsGauge.Collect(ch)
}
