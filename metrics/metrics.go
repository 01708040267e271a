// Package metrics provides Prometheus metrics for the edition service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	TransitionsTotal    *prometheus.CounterVec
	ClonesTotal         *prometheus.CounterVec
	SupersededTotal     prometheus.Counter
	ConflictsTotal      *prometheus.CounterVec
	CascadeDeletesTotal prometheus.Counter
	EditionsCreated     prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edition_publisher_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edition_publisher_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.TransitionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edition_publisher_workflow_transitions_total",
			Help: "Workflow actions attempted, by outcome",
		},
		[]string{"action", "status"},
	)

	m.ClonesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edition_publisher_clones_total",
			Help: "Editions cloned, by source and target format",
		},
		[]string{"from", "to"},
	)

	m.SupersededTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "edition_publisher_superseded_editions_total",
			Help: "Published editions archived because a newer version was published",
		},
	)

	m.ConflictsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edition_publisher_conflicts_total",
			Help: "Optimistic lock and version number conflicts",
		},
		[]string{"operation"},
	)

	m.CascadeDeletesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "edition_publisher_cascade_deletes_total",
			Help: "Artefacts destroyed with the last edition of their series",
		},
	)

	m.EditionsCreated = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "edition_publisher_editions_created_total",
			Help: "Editions created, first versions and clones",
		},
	)

	return m
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Transition(action string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "rejected"
	}
	m.TransitionsTotal.WithLabelValues(action, status).Inc()
}

func (m *Metrics) Clone(from, to string) {
	if m == nil {
		return
	}
	m.ClonesTotal.WithLabelValues(from, to).Inc()
	m.EditionsCreated.Inc()
}

func (m *Metrics) Superseded(n int) {
	if m == nil {
		return
	}
	m.SupersededTotal.Add(float64(n))
}

func (m *Metrics) Conflict(operation string) {
	if m == nil {
		return
	}
	m.ConflictsTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) CascadeDelete() {
	if m == nil {
		return
	}
	m.CascadeDeletesTotal.Inc()
}

func (m *Metrics) Created() {
	if m == nil {
		return
	}
	m.EditionsCreated.Inc()
}
