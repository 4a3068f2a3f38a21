// Package expiry runs the periodic sweep that closes consents, payments and
// authorisations nobody touched after they expired.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	"xs2acms/pkg/requestcontext"
)

// ConsentSweeper is implemented by the consent lifecycle manager.
type ConsentSweeper interface {
	ExpireConsents(ctx context.Context, now time.Time) (int, error)
	ExpireAuthorisation(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (bool, error)
}

// PaymentSweeper is implemented by the payment lifecycle manager.
type PaymentSweeper interface {
	ExpirePayments(ctx context.Context, now time.Time) (int, error)
	ExpireAuthorisation(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (bool, error)
}

// AuthorisationLister finds open authorisations past their expiration.
type AuthorisationLister interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*scamodels.Authorisation, error)
}

// Result summarises one sweep.
type Result struct {
	ClosedConsents       int
	RejectedPayments     int
	FailedAuthorisations int
}

// Sweeper periodically expires lifecycle entities.
type Sweeper struct {
	consents       ConsentSweeper
	payments       PaymentSweeper
	authorisations AuthorisationLister
	interval       time.Duration
	batch          int
	clock          func() time.Time
	logger         *slog.Logger
}

type Option func(*Sweeper)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithBatch limits how many expired authorisations one sweep handles.
func WithBatch(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batch = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Sweeper) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(consents ConsentSweeper, payments PaymentSweeper, authorisations AuthorisationLister, opts ...Option) (*Sweeper, error) {
	if consents == nil || payments == nil || authorisations == nil {
		return nil, fmt.Errorf("consents, payments and authorisations are required")
	}
	s := &Sweeper{
		consents:       consents,
		payments:       payments,
		authorisations: authorisations,
		interval:       time.Minute,
		batch:          500,
		clock:          time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start sweeps periodically until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "expiry sweep failed", "error", err)
			}
			if res.ClosedConsents+res.RejectedPayments+res.FailedAuthorisations > 0 {
				s.logger.InfoContext(ctx, "expiry sweep closed entities",
					"consents", res.ClosedConsents,
					"payments", res.RejectedPayments,
					"authorisations", res.FailedAuthorisations,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep. The three parts run concurrently and one
// failing does not stop the others; their errors are joined.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	now := s.clock()
	ctx = requestcontext.WithTime(ctx, now)

	var res Result
	var consentErr, paymentErr, authErr error
	var g errgroup.Group
	g.Go(func() error {
		res.ClosedConsents, consentErr = s.consents.ExpireConsents(ctx, now)
		return nil
	})
	g.Go(func() error {
		res.RejectedPayments, paymentErr = s.payments.ExpirePayments(ctx, now)
		return nil
	})
	g.Go(func() error {
		res.FailedAuthorisations, authErr = s.expireAuthorisations(ctx, now)
		return nil
	})
	_ = g.Wait()

	var errs []error
	if consentErr != nil {
		errs = append(errs, fmt.Errorf("expire consents: %w", consentErr))
	}
	if paymentErr != nil {
		errs = append(errs, fmt.Errorf("expire payments: %w", paymentErr))
	}
	if authErr != nil {
		errs = append(errs, fmt.Errorf("expire authorisations: %w", authErr))
	}
	return res, errors.Join(errs...)
}

func (s *Sweeper) expireAuthorisations(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.authorisations.ListExpired(ctx, now, s.batch)
	if err != nil {
		return 0, err
	}
	failed := 0
	var errs []error
	for _, auth := range expired {
		var changed bool
		switch auth.ParentType {
		case scamodels.ParentConsent:
			changed, err = s.consents.ExpireAuthorisation(ctx, auth.InstanceID, auth.ID)
		case scamodels.ParentPayment:
			changed, err = s.payments.ExpireAuthorisation(ctx, auth.InstanceID, auth.ID)
		default:
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("authorisation %s: %w", auth.ID, err))
			continue
		}
		if changed {
			failed++
		}
	}
	return failed, errors.Join(errs...)
}
