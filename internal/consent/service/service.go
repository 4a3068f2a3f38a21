// Package service implements the consent lifecycle: status transitions,
// authorisation progress and the aggregation of both into the consent status.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"xs2acms/internal/audit"
	"xs2acms/internal/consent/metrics"
	"xs2acms/internal/consent/models"
	"xs2acms/internal/platform/tracer"
	"xs2acms/internal/sca/authorisation"
	"xs2acms/internal/sca/machine"
	scamodels "xs2acms/internal/sca/models"
	"xs2acms/internal/sca/redirect"
	id "xs2acms/pkg/domain"
)

// Store persists consents.
// Error Contract:
// - FindByID returns sentinel.ErrNotFound when no consent exists in the instance
// - Save returns sentinel.ErrConflict when the version moved since load
type Store interface {
	Create(ctx context.Context, consent *models.Consent) error
	FindByID(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (*models.Consent, error)
	Save(ctx context.Context, consent *models.Consent) error
	ListByTpp(ctx context.Context, instanceID id.InstanceID, tppID string) ([]*models.Consent, error)
	ListByPsu(ctx context.Context, instanceID id.InstanceID, psu scamodels.PsuIdData) ([]*models.Consent, error)
	ListExpirable(ctx context.Context, now, notConfirmedBefore time.Time, limit int) ([]*models.Consent, error)
}

// AuthorisationStore persists authorisations. It follows the Store error contract.
type AuthorisationStore interface {
	Create(ctx context.Context, auth *scamodels.Authorisation) error
	FindByID(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (*scamodels.Authorisation, error)
	ListByParent(ctx context.Context, instanceID id.InstanceID, parentType scamodels.ParentType, parentID uuid.UUID) ([]*scamodels.Authorisation, error)
	Save(ctx context.Context, auth *scamodels.Authorisation) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*scamodels.Authorisation, error)
}

// AuditPublisher receives committed lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	defaultNotConfirmedExpiration = 24 * time.Hour
	defaultSweepBatch             = 500
)

// Service is the consent lifecycle manager.
type Service struct {
	stores    Stores
	tx        ConsentStoreTx
	machine   *machine.Machine
	redirects *redirect.Signer
	auditor   AuditPublisher
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger

	profile                authorisation.Profile
	notConfirmedExpiration time.Duration
	maxValidityDays        int
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

// WithNotConfirmedExpiration bounds how long a consent may stay RECEIVED.
func WithNotConfirmedExpiration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notConfirmedExpiration = d
		}
	}
}

// WithMaxValidityDays caps validUntil of new consents. Zero means unlimited.
func WithMaxValidityDays(days int) Option {
	return func(s *Service) {
		if days >= 0 {
			s.maxValidityDays = days
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
// Without it, redirect IDs are plain authorisation IDs.
func WithRedirectSigner(signer *redirect.Signer) Option {
	return func(s *Service) {
		s.redirects = signer
	}
}

// WithSweepBatch limits how many consents one ExpireConsents call handles.
func WithSweepBatch(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sweepBatch = n
		}
	}
}

// NewService builds the lifecycle manager. Reads outside a unit of work go
// to stores; every mutation runs inside tx.
func NewService(stores Stores, tx ConsentStoreTx, opts ...Option) *Service {
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
