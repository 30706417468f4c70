package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(tasksProcessedTotal, taskRetriesTotal, taskDuration, queueDepth)
}

var tasksProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pipeline_tasks_processed_total",
		Help: "Total number of pipeline tasks processed, labeled by kind and outcome.",
	},
	[]string{"kind", "status"}, // 'completed', 'retried', 'dead'
)

var taskRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pipeline_task_retries_total",
		Help: "Total number of task retries scheduled, labeled by kind.",
	},
	[]string{"kind"},
)

var taskDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pipeline_task_duration_seconds",
		Help:    "Task handler execution time distribution.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	},
	[]string{"kind"},
)

var queueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "pipeline_queue_depth",
		Help: "Current number of tasks per queue segment.",
	},
	[]string{"kind", "segment"}, // 'waiting', 'processing', 'delayed', 'dead'
)

func IncTask(kind, status string) {
	tasksProcessedTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func IncTaskRetry(kind string) {
	taskRetriesTotal.WithLabelValues(norm(kind)).Inc()
}

func ObserveTaskDuration(kind string, seconds float64) {
	taskDuration.WithLabelValues(norm(kind)).Observe(seconds)
}

func SetQueueDepth(kind, segment string, n int64) {
	queueDepth.WithLabelValues(norm(kind), norm(segment)).Set(float64(n))
}

// norm lowercases and trims label values so variants collapse to one series.
func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
