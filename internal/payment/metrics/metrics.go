package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for payment lifecycle operations.
type Metrics struct {
	PaymentsCreated          *prometheus.CounterVec
	StatusTransitions        *prometheus.CounterVec
	AuthorisationTransitions *prometheus.CounterVec
	RefusedOperations        *prometheus.CounterVec
	VersionConflicts         *prometheus.CounterVec
	Rejected                 prometheus.Counter
	OperationLatency         *prometheus.HistogramVec
}

// New registers and returns payment metrics collectors.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers collectors on reg, so tests can use a private registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PaymentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xs2acms_payments_created_total",
			Help: "Total number of payments registered, labeled by payment type",
		}, []string{"payment_type"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xs2acms_payment_status_transitions_total",
			Help: "Committed transaction status changes, labeled by source and target status",
		}, []string{"from", "to"}),
		AuthorisationTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xs2acms_payment_authorisation_transitions_total",
			Help: "Committed payment authorisation SCA status changes, labeled by authorisation type and target status",
		}, []string{"authorisation_type", "sca_status"}),
		RefusedOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xs2acms_payment_refused_operations_total",
			Help: "Payment operations refused with a typed error, labeled by operation and error code",
		}, []string{"operation", "code"}),
		VersionConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xs2acms_payment_version_conflicts_total",
			Help: "Optimistic lock conflicts, labeled by outcome (retried or surfaced)",
		}, []string{"outcome"}),
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "xs2acms_payments_unconfirmed_rejected_total",
			Help: "Payments rejected because SCA did not complete in time",
		}),
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xs2acms_payment_operation_latency_seconds",
			Help:    "Latency of payment lifecycle operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementPaymentsCreated(paymentType string) {
	m.PaymentsCreated.WithLabelValues(paymentType).Inc()
}

func (m *Metrics) IncrementStatusTransition(from, to string) {
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncrementAuthorisationTransition(authType, scaStatus string) {
	m.AuthorisationTransitions.WithLabelValues(authType, scaStatus).Inc()
}

func (m *Metrics) IncrementRefused(operation, code string) {
	m.RefusedOperations.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) IncrementVersionConflict(outcome string) {
	m.VersionConflicts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementRejected() {
	m.Rejected.Inc()
}

// ObserveOperationLatency records the latency of a lifecycle operation.
func (m *Metrics) ObserveOperationLatency(operation string, durationSeconds float64) {
	m.OperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}
