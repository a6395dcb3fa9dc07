package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "conductor_worker"

var (
	// HTTP metrics for the status server
	requestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	requestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_count_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Poll loop metrics
	pollCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Total number of poll attempts by task type and outcome",
		},
		[]string{"task_type", "outcome"},
	)

	ackCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acks_total",
			Help:      "Total number of task acknowledgements by task type and outcome",
		},
		[]string{"task_type", "outcome"},
	)

	taskCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Total number of executed tasks by type and reported status",
		},
		[]string{"task_type", "status"},
	)

	taskDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of task execution in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"task_type", "status"},
	)

	activeWorkersGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_active",
			Help:      "Number of running poll loops by task type",
		},
		[]string{"task_type"},
	)

	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "error_total",
			Help:      "Total number of errors by type and component",
		},
		[]string{"type", "component"},
	)
)

// MetricsHandler returns an http.Handler that serves the metrics endpoint
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware wraps an http.Handler and records metrics about the request
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		labels := prometheus.Labels{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": fmt.Sprintf("%d", sw.status),
		}

		requestDurationHistogram.With(labels).Observe(time.Since(start).Seconds())
		requestCounter.With(labels).Inc()
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Poll outcomes
const (
	OutcomeTask  = "task"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
	OutcomeAcked = "acked"
	OutcomeNack  = "rejected"
)

// RecordPoll records the outcome of a single poll attempt
func RecordPoll(taskType, outcome string) {
	pollCounter.WithLabelValues(taskType, outcome).Inc()
}

// RecordAck records the outcome of a task acknowledgement
func RecordAck(taskType, outcome string) {
	ackCounter.WithLabelValues(taskType, outcome).Inc()
}

// RecordTask records an executed task with the status reported to the server
func RecordTask(taskType, status string, duration time.Duration) {
	taskCounter.WithLabelValues(taskType, status).Inc()
	if duration > 0 {
		taskDurationHistogram.WithLabelValues(taskType, status).Observe(duration.Seconds())
	}
}

// AddActiveWorkers adjusts the running poll loop gauge
func AddActiveWorkers(taskType string, delta float64) {
	activeWorkersGauge.WithLabelValues(taskType).Add(delta)
}

// RecordError records an error occurrence by type and component
func RecordError(errorType string, component string) {
	errorCounter.WithLabelValues(errorType, component).Inc()
}
