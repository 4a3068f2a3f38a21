package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"xs2acms/internal/payment/models"
	"xs2acms/internal/platform/tracer"
	"xs2acms/internal/sca/expiry"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/platform/sentinel"
)

// unitOfWork is one attempt at load → decide → persist. It may be run twice.
type unitOfWork func(ctx context.Context, stores Stores, fx *effects) error

// runInTx runs fn inside the transaction boundary for key, retrying once on
// a version conflict. Side effects are flushed only after commit.
func (s *Service) runInTx(ctx context.Context, key string, fn unitOfWork) error {
	ctx = withTxKey(ctx, key)
	fx := &effects{}
	var err error
	for attempt := range 2 {
		fx.reset()
		err = s.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
			return fn(ctx, stores, fx)
		})
		if err == nil {
			s.flush(ctx, fx)
			return nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return err
		}
		if attempt == 0 {
			s.versionConflict(ctx, "retried")
		}
	}
	s.versionConflict(ctx, "surfaced")
	return dErrors.Wrap(err, dErrors.CodeConcurrentModification, "payment was modified concurrently")
}

// loadPayment returns nil, nil for an unknown payment.
func loadPayment(ctx context.Context, store Store, instanceID id.InstanceID, paymentID id.PaymentID) (*models.Payment, error) {
	p, err := store.FindByID(ctx, instanceID, paymentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	return p, nil
}

func findAuthorisation(ctx context.Context, store AuthorisationStore, instanceID id.InstanceID, authID id.AuthorisationID) (*scamodels.Authorisation, error) {
	auth, err := store.FindByID(ctx, instanceID, authID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load authorisation")
	}
	if auth.ParentType != scamodels.ParentPayment {
		return nil, nil
	}
	return auth, nil
}

// loadPair loads the payment and one of its authorisations. auth is nil
// when either is unknown or the authorisation belongs elsewhere.
func loadPair(ctx context.Context, stores Stores, instanceID id.InstanceID, paymentID id.PaymentID, authID id.AuthorisationID) (*models.Payment, *scamodels.Authorisation, error) {
	p, err := loadPayment(ctx, stores.Payments, instanceID, paymentID)
	if err != nil || p == nil {
		return nil, nil, err
	}
	auth, err := findAuthorisation(ctx, stores.Authorisations, instanceID, authID)
	if err != nil || auth == nil || !auth.BelongsTo(scamodels.ParentPayment, uuid.UUID(paymentID)) {
		return nil, nil, err
	}
	return p, auth, nil
}

func listAuthorisations(ctx context.Context, store AuthorisationStore, p *models.Payment) ([]*scamodels.Authorisation, error) {
	auths, err := store.ListByParent(ctx, p.InstanceID, scamodels.ParentPayment, uuid.UUID(p.ID))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list authorisations")
	}
	return auths, nil
}

func savePayment(ctx context.Context, store Store, p *models.Payment) error {
	if err := store.Save(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save payment")
	}
	return nil
}

func saveAuthorisation(ctx context.Context, store AuthorisationStore, auth *scamodels.Authorisation) error {
	if err := store.Save(ctx, auth); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save authorisation")
	}
	return nil
}

// unconfirmed reports whether p waited for SCA longer than the allowed window.
func (s *Service) unconfirmed(p *models.Payment, now time.Time) bool {
	return p.Status.AwaitsAuthorisation() && expiry.WindowElapsed(p.CreatedAt, s.notConfirmedExpiration, now)
}

// expireOnRead rejects an unconfirmed payment and persists it. It reports
// whether the payment changed.
func (s *Service) expireOnRead(ctx context.Context, stores Stores, fx *effects, p *models.Payment, now time.Time) (bool, error) {
	if !s.unconfirmed(p, now) {
		return false, nil
	}
	if err := s.applyStatus(ctx, stores, fx, p, models.StatusRejected, now); err != nil {
		return false, err
	}
	fx.rejectedUnconfirmed()
	return true, nil
}

func (s *Service) applyStatus(ctx context.Context, stores Stores, fx *effects, p *models.Payment, status models.TransactionStatus, now time.Time) error {
	previous := p.Status
	p.SetStatus(status, now)
	if err := savePayment(ctx, stores.Payments, p); err != nil {
		return err
	}
	fx.paymentStatus(p, previous)
	return nil
}

// observe opens a span for op and returns the func that closes it.
func (s *Service) observe(ctx context.Context, op, span string, attrs ...tracer.Attribute) (context.Context, func(*error)) {
	start := time.Now()
	ctx, sp := s.tracer.Start(ctx, span, attrs...)
	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		sp.End(err)
		if s.metrics == nil {
			return
		}
		s.metrics.ObserveOperationLatency(op, time.Since(start).Seconds())
		if err != nil {
			s.metrics.IncrementRefused(op, string(dErrors.CodeOf(err)))
		}
	}
}

func paymentAttrs(instanceID id.InstanceID, paymentID id.PaymentID) []tracer.Attribute {
	return []tracer.Attribute{
		tracer.String(tracer.AttrInstanceID, instanceID.String()),
		tracer.String(tracer.AttrPaymentID, paymentID.String()),
	}
}
