package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NutritionMetrics tracks domain level activity.
type NutritionMetrics struct {
	EntriesRecorded prometheus.Counter
	FoodsUpserted   *prometheus.CounterVec
	KcalRecorded    prometheus.Counter
	GoalAlerts      prometheus.Counter
}

// NewNutritionMetrics creates and registers domain metrics.
func NewNutritionMetrics(registry prometheus.Registerer) (*NutritionMetrics, error) {
	m := &NutritionMetrics{
		EntriesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nutrition_entries_recorded_total",
			Help: "Total number of consumption entries recorded",
		}),
		FoodsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrition_foods_upserted_total",
			Help: "Foods written to the catalog, by action",
		}, []string{"action"}), // inserted, updated
		KcalRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nutrition_kcal_recorded_total",
			Help: "Sum of kcal over all recorded entries",
		}),
		GoalAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nutrition_goal_alerts_total",
			Help: "Number of goal exceeded notifications sent",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordEntry counts a recorded entry and its energy.
func (m *NutritionMetrics) RecordEntry(kcal float64) {
	if m == nil {
		return
	}
	m.EntriesRecorded.Inc()
	m.KcalRecorded.Add(kcal)
}

// RecordUpsert counts a catalog write.
func (m *NutritionMetrics) RecordUpsert(inserted bool) {
	if m == nil {
		return
	}
	action := "updated"
	if inserted {
		action = "inserted"
	}
	m.FoodsUpserted.WithLabelValues(action).Inc()
}

// RecordGoalAlert counts a goal exceeded notification.
func (m *NutritionMetrics) RecordGoalAlert() {
	if m == nil {
		return
	}
	m.GoalAlerts.Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *NutritionMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.EntriesRecorded.Desc()
	m.FoodsUpserted.Describe(ch)
	ch <- m.KcalRecorded.Desc()
	ch <- m.GoalAlerts.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *NutritionMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.EntriesRecorded
	m.FoodsUpserted.Collect(ch)
	ch <- m.KcalRecorded
	ch <- m.GoalAlerts
}
