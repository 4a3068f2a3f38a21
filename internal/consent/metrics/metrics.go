package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for consent lifecycle operations.
type Metrics struct {
	ConsentsCreated          *prometheus.CounterVec
	StatusTransitions        *prometheus.CounterVec
	AuthorisationTransitions *prometheus.CounterVec
	RefusedOperations        *prometheus.CounterVec
	ChecksumMismatches       prometheus.Counter
	VersionConflicts         *prometheus.CounterVec
	ExpiredBySweep           *prometheus.CounterVec
	OperationLatency         *prometheus.HistogramVec
}

// New registers and returns consent metrics collectors.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers collectors on reg, so tests can use a private registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConsentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xs2acms_consents_created_total",
			Help: "Total number of consents created, labeled by consent type",
		}, []string{"consent_type"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xs2acms_consent_status_transitions_total",
			Help: "Committed consent status changes, labeled by source and target status",
		}, []string{"from", "to"}),
		AuthorisationTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xs2acms_consent_authorisation_transitions_total",
			Help: "Committed consent authorisation SCA status changes, labeled by target status",
		}, []string{"sca_status"}),
		RefusedOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xs2acms_consent_refused_operations_total",
			Help: "Consent operations refused with a typed error, labeled by operation and error code",
		}, []string{"operation", "code"}),
		ChecksumMismatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "xs2acms_consent_checksum_mismatches_total",
			Help: "Saves blocked because immutable consent fields changed after activation",
		}),
		VersionConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xs2acms_consent_version_conflicts_total",
			Help: "Optimistic lock conflicts, labeled by outcome (retried or surfaced)",
		}, []string{"outcome"}),
		ExpiredBySweep: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xs2acms_consents_expired_total",
			Help: "Consents closed by the expiry sweeper, labeled by resulting status",
		}, []string{"status"}),
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xs2acms_consent_operation_latency_seconds",
			Help:    "Latency of consent lifecycle operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementConsentsCreated(consentType string) {
	m.ConsentsCreated.WithLabelValues(consentType).Inc()
}

func (m *Metrics) IncrementStatusTransition(from, to string) {
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncrementAuthorisationTransition(scaStatus string) {
	m.AuthorisationTransitions.WithLabelValues(scaStatus).Inc()
}

func (m *Metrics) IncrementRefused(operation, code string) {
	m.RefusedOperations.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) IncrementChecksumMismatch() {
	m.ChecksumMismatches.Inc()
}

func (m *Metrics) IncrementVersionConflict(outcome string) {
	m.VersionConflicts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementExpired(status string) {
	m.ExpiredBySweep.WithLabelValues(status).Inc()
}

// ObserveOperationLatency records the latency of a lifecycle operation.
func (m *Metrics) ObserveOperationLatency(operation string, durationSeconds float64) {
	m.OperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}
