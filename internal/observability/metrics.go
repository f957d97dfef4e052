// Package observability wires the Prometheus registry shared by all NutriApp
// components and exposes it over HTTP.
package observability

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JesusOliveto/CalCalculator/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Sheets    *metrics.SheetsMetrics
	Lookup    *metrics.LookupMetrics
	Nutrition *metrics.NutritionMetrics
	MQTT      *metrics.MQTTMetrics
}

// NewMetrics creates a registry with every collector registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sheetsMetrics, err := metrics.NewSheetsMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets metrics: %w", err)
	}

	lookupMetrics, err := metrics.NewLookupMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Lookup metrics: %w", err)
	}

	nutritionMetrics, err := metrics.NewNutritionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Nutrition metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Sheets:    sheetsMetrics,
		Lookup:    lookupMetrics,
		Nutrition: nutritionMetrics,
		MQTT:      mqttMetrics,
	}, nil
}

// Handler returns the /metrics handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
