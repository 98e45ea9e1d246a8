// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"attendtrack/internal/model"
)

// Metrics groups the service collectors so tests can use a private registry.
type Metrics struct {
	Marks           *prometheus.CounterVec
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Events          *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendtrack",
			Name:      "attendance_marks_total",
			Help:      "Attendance marks by status and whether a record was created or updated.",
		}, []string{"status", "outcome"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendtrack",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "attendtrack",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendtrack",
			Name:      "worker_events_total",
			Help:      "Queue events handled by the worker, by type and result.",
		}, []string{"type", "result"}),
	}
	reg.MustRegister(m.Marks, m.Requests, m.RequestDuration, m.Events)
	return m
}

// ObserveMark implements attendance.Observer.
func (m *Metrics) ObserveMark(status model.Status, created bool) {
	outcome := "updated"
	if created {
		outcome = "created"
	}
	m.Marks.WithLabelValues(string(status), outcome).Inc()
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, code int, seconds float64) {
	m.Requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(seconds)
}

// ObserveEvent records one handled worker event.
func (m *Metrics) ObserveEvent(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Events.WithLabelValues(eventType, result).Inc()
}
