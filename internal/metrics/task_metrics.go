// Package metrics содержит prometheus-коллекторы конвейера задач.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы обработки задачи для метки outcome.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomePanicked  = "panicked"
)

// TaskMetrics содержит метрики диспетчера задач.
type TaskMetrics struct {
	processed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	panics    prometheus.Counter
	depth     prometheus.Gauge
	idle      prometheus.Counter
}

// NewTaskMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewTaskMetrics() *TaskMetrics {
	return NewTaskMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewTaskMetricsWithRegisterer регистрирует метрики в registerer.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewTaskMetricsWithRegisterer(registerer prometheus.Registerer) *TaskMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &TaskMetrics{
		processed: register(registerer, "sapsync_tasks_processed_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sapsync_tasks_processed_total",
			Help: "Total number of processed tasks by type and outcome",
		}, []string{"task_type", "outcome"})),
		duration: register(registerer, "sapsync_task_duration_seconds", prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sapsync_task_duration_seconds",
			Help:    "Duration of task workflows in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"task_type"})),
		panics: register(registerer, "sapsync_task_panics_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sapsync_task_panics_total",
			Help: "Total number of panics recovered by the dispatcher",
		})),
		depth: register(registerer, "sapsync_queue_depth", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sapsync_queue_depth",
			Help: "Number of tasks waiting in the queue",
		})),
		idle: register(registerer, "sapsync_dispatcher_idle_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sapsync_dispatcher_idle_total",
			Help: "Total number of idle waits on an empty queue",
		})),
	}
}

func register[C prometheus.Collector](registerer prometheus.Registerer, name string, collector C) C {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if !errors.As(err, &alreadyRegistered) {
		panic(fmt.Sprintf("register collector %q: %v", name, err))
	}
	existing, ok := alreadyRegistered.ExistingCollector.(C)
	if !ok {
		panic(fmt.Sprintf("collector %q already registered with unexpected type", name))
	}
	return existing
}

// RecordTask учитывает обработанную задачу.
func (m *TaskMetrics) RecordTask(taskType, outcome string, duration time.Duration) {
	m.processed.WithLabelValues(taskType, outcome).Inc()
	m.duration.WithLabelValues(taskType).Observe(duration.Seconds())
}

// RecordPanic увеличивает счётчик перехваченных паник.
func (m *TaskMetrics) RecordPanic() {
	m.panics.Inc()
}

// SetQueueDepth фиксирует текущую длину очереди.
func (m *TaskMetrics) SetQueueDepth(n int) {
	m.depth.Set(float64(n))
}

// RecordIdle учитывает ожидание на пустой очереди.
func (m *TaskMetrics) RecordIdle() {
	m.idle.Inc()
}
