package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the contract workflows.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ContractsCreated   prometheus.Counter
	DraftsPromoted     prometheus.Counter
	StatusTransitions  *prometheus.CounterVec
	DependencyFailures *prometheus.CounterVec
	ViewDuration       *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer in
// main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ContractsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "contracts_created_total",
			Help: "Total number of contracts created",
		}),
		DraftsPromoted: factory.NewCounter(prometheus.CounterOpts{
			Name: "contracts_drafts_promoted_total",
			Help: "Total number of drafts consumed by contract creation",
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contracts_status_transitions_total",
			Help: "Recorded contract status transitions by target status",
		}, []string{"to"}),
		DependencyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contracts_dependency_failures_total",
			Help: "Transactional operations rolled back with a dependency failure",
		}, []string{"operation"}),
		ViewDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contracts_view_build_duration_seconds",
			Help:    "Time spent building aggregate contract views",
			Buckets: prometheus.DefBuckets,
		}, []string{"view"}),
	}
}

func (m *Metrics) IncContractsCreated() {
	if m == nil {
		return
	}
	m.ContractsCreated.Inc()
}

func (m *Metrics) IncDraftsPromoted() {
	if m == nil {
		return
	}
	m.DraftsPromoted.Inc()
}

func (m *Metrics) IncStatusTransition(to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) IncDependencyFailure(operation string) {
	if m == nil {
		return
	}
	m.DependencyFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveView(view string, start time.Time) {
	if m == nil {
		return
	}
	m.ViewDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
}
