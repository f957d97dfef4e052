// Package metrics provides the Prometheus collectors used by NutriApp components.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics tracks entry event publishing.
type MQTTMetrics struct {
	ConnectionStatus prometheus.Gauge
	EventsPublished  prometheus.Counter
	PublishErrors    *prometheus.CounterVec
	MessageSize      prometheus.Histogram
	PublishLatency   prometheus.Histogram
}

// NewMQTTMetrics creates and registers MQTT metrics.
func NewMQTTMetrics(registry prometheus.Registerer) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		ConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_connection_status",
			Help: "Current MQTT connection status (1 for connected, 0 for disconnected)",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_entry_events_published_total",
			Help: "Total number of entry events delivered to the broker",
		}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_errors_total",
			Help: "MQTT errors by stage",
		}, []string{"stage"}), // connect, publish, marshal
		MessageSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_message_size_bytes",
			Help:    "Size of published payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}),
		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_publish_latency_seconds",
			Help:    "Latency of MQTT publish operations in seconds",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateConnectionStatus updates the connection gauge.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.ConnectionStatus.Set(1)
	} else {
		m.ConnectionStatus.Set(0)
	}
}

// RecordPublish records a successful publish of size bytes that started at start.
func (m *MQTTMetrics) RecordPublish(size int, start time.Time) {
	if m == nil {
		return
	}
	m.EventsPublished.Inc()
	m.MessageSize.Observe(float64(size))
	m.PublishLatency.Observe(time.Since(start).Seconds())
}

// RecordError counts an error at the given stage.
func (m *MQTTMetrics) RecordError(stage string) {
	if m == nil {
		return
	}
	m.PublishErrors.WithLabelValues(stage).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.ConnectionStatus
	ch <- m.EventsPublished
	m.PublishErrors.Collect(ch)
	ch <- m.MessageSize
	ch <- m.PublishLatency
}

// Describe implements the prometheus.Collector interface.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.ConnectionStatus.Desc()
	ch <- m.EventsPublished.Desc()
	m.PublishErrors.Describe(ch)
	ch <- m.MessageSize.Desc()
	ch <- m.PublishLatency.Desc()
}
