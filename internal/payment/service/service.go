// Package service implements the payment lifecycle: ASPSP-driven transaction
// status changes and the SCA of payment initiation and cancellation.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"xs2acms/internal/audit"
	"xs2acms/internal/payment/metrics"
	"xs2acms/internal/payment/models"
	"xs2acms/internal/platform/tracer"
	"xs2acms/internal/sca/authorisation"
	"xs2acms/internal/sca/machine"
	scamodels "xs2acms/internal/sca/models"
	"xs2acms/internal/sca/redirect"
	id "xs2acms/pkg/domain"
)

// Store persists payments.
// Error Contract:
// - FindByID returns sentinel.ErrNotFound when no payment exists in the instance
// - Save returns sentinel.ErrConflict when the version moved since load
type Store interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID) (*models.Payment, error)
	Save(ctx context.Context, payment *models.Payment) error
	ListByPsu(ctx context.Context, instanceID id.InstanceID, psu scamodels.PsuIdData) ([]*models.Payment, error)
	ListExpirable(ctx context.Context, notConfirmedBefore time.Time, limit int) ([]*models.Payment, error)
}

// AuthorisationStore persists authorisations. It follows the Store error contract.
type AuthorisationStore interface {
	Create(ctx context.Context, auth *scamodels.Authorisation) error
	FindByID(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (*scamodels.Authorisation, error)
	ListByParent(ctx context.Context, instanceID id.InstanceID, parentType scamodels.ParentType, parentID uuid.UUID) ([]*scamodels.Authorisation, error)
	Save(ctx context.Context, auth *scamodels.Authorisation) error
}

// AuditPublisher receives committed lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	defaultNotConfirmedExpiration = 24 * time.Hour
	defaultSweepBatch             = 500
)

// Service is the payment lifecycle manager.
type Service struct {
	stores    Stores
	tx        PaymentStoreTx
	machine   *machine.Machine
	redirects *redirect.Signer
	auditor   AuditPublisher
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger

	profile                authorisation.Profile
	notConfirmedExpiration time.Duration
	sweepBatch             int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithProfile sets the ASPSP timings applied to new authorisations.
func WithProfile(p authorisation.Profile) Option {
	return func(s *Service) {
		s.profile = p
	}
}

// WithNotConfirmedExpiration bounds how long a payment may wait for SCA.
func WithNotConfirmedExpiration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notConfirmedExpiration = d
		}
	}
}

func WithMachine(m *machine.Machine) Option {
	return func(s *Service) {
		if m != nil {
			s.machine = m
		}
	}
}

// WithRedirectSigner makes new authorisations carry a signed redirect ID.
func WithRedirectSigner(signer *redirect.Signer) Option {
	return func(s *Service) {
		s.redirects = signer
	}
}

// WithSweepBatch limits how many payments one ExpirePayments call handles.
func WithSweepBatch(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sweepBatch = n
		}
	}
}

// NewService builds the payment lifecycle manager.
func NewService(stores Stores, tx PaymentStoreTx, opts ...Option) *Service {
	svc := &Service{
		stores:                 stores,
		tx:                     tx,
		machine:                machine.New(),
		tracer:                 tracer.NewNoop(),
		logger:                 slog.Default(),
		notConfirmedExpiration: defaultNotConfirmedExpiration,
		sweepBatch:             defaultSweepBatch,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}
