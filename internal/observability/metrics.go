package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	queueDepth   *prometheus.GaugeVec
	submitTotal  *prometheus.CounterVec
	settleTotal  *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	waitDuration *prometheus.HistogramVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			queueDepth: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "serialqueue_depth",
					Help: "Current number of pending tasks by queue.",
				},
				[]string{"queue"},
			),
			submitTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "serialqueue_submit_total",
					Help: "Total task submissions by queue and insertion position.",
				},
				[]string{"queue", "position"},
			),
			settleTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "serialqueue_settle_total",
					Help: "Total settled tasks by queue and outcome status.",
				},
				[]string{"queue", "status"},
			),
			runDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "serialqueue_task_run_duration_seconds",
					Help:    "Task execution duration in seconds by queue.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"queue"},
			),
			waitDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "serialqueue_task_wait_duration_seconds",
					Help:    "Time tasks spend pending before execution in seconds by queue.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"queue"},
			),
		}

		prometheus.MustRegister(
			m.queueDepth,
			m.submitTotal,
			m.settleTotal,
			m.runDuration,
			m.waitDuration,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// MetricsHandler exposes the registered metrics over HTTP.
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// RecordSubmit counts a submission and updates the depth gauge.
// Position is "tail" or "head".
func RecordSubmit(queue, position string, depth int) {
	m := getMetrics()
	m.submitTotal.WithLabelValues(queue, position).Inc()
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordSettle records a task outcome together with its wait and run durations.
func RecordSettle(queue string, wait, run time.Duration, success bool, depth int) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.settleTotal.WithLabelValues(queue, status).Inc()
	m.runDuration.WithLabelValues(queue).Observe(run.Seconds())
	m.waitDuration.WithLabelValues(queue).Observe(wait.Seconds())
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}
