// Package metrics expone colectores Prometheus de facturación electrónica.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// Metrics colectores de numeración, transiciones y llamadas a la DIAN.
type Metrics struct {
	allocated   *prometheus.CounterVec
	discarded   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	gatewayOps  *prometheus.CounterVec
	gatewayDur  *prometheus.HistogramVec
	jobs        *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// New registra las métricas en el registerer dado. Con nil usa el registerer por defecto de Prometheus.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = build(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return build(registerer)
}

func build(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		allocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockflow_billing_numbers_allocated_total",
			Help: "Consecutivos asignados por familia de numeración.",
		}, []string{"family"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockflow_billing_numbers_discarded_total",
			Help: "Consecutivos descartados (huecos registrados) por familia.",
		}, []string{"family"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockflow_billing_transitions_total",
			Help: "Transiciones de estado de documentos electrónicos.",
		}, []string{"family", "status"}),
		gatewayOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockflow_dian_requests_total",
			Help: "Llamadas al gateway DIAN por operación y resultado.",
		}, []string{"operation", "outcome"}),
		gatewayDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockflow_dian_request_duration_seconds",
			Help:    "Duración de las llamadas al gateway DIAN.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockflow_dian_status_checks_total",
			Help: "Consultas diferidas de estado ejecutadas por el worker.",
		}, []string{"family", "outcome"}),
	}
	registerer.MustRegister(m.allocated, m.discarded, m.transitions, m.gatewayOps, m.gatewayDur, m.jobs)
	return m
}

// NumberAllocated implementa billing.Observer.
func (m *Metrics) NumberAllocated(docType entity.DocumentType) {
	if m == nil {
		return
	}
	m.allocated.WithLabelValues(string(docType)).Inc()
}

// NumberDiscarded implementa billing.Observer.
func (m *Metrics) NumberDiscarded(docType entity.DocumentType) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(string(docType)).Inc()
}

// Transition implementa billing.Observer.
func (m *Metrics) Transition(docType entity.DocumentType, to entity.DocumentStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(docType), string(to)).Inc()
}

// StatusCheck cuenta una consulta diferida del worker.
func (m *Metrics) StatusCheck(docType entity.DocumentType, outcome string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(string(docType), outcome).Inc()
}
