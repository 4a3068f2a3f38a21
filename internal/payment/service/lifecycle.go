package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"xs2acms/internal/payment/models"
	"xs2acms/internal/platform/tracer"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/requestcontext"
	"xs2acms/pkg/validation"
)

// Create stores a new payment in RCVD status.
func (s *Service) Create(ctx context.Context, req models.CreateRequest) (_ *models.Payment, err error) {
	ctx, done := s.observe(ctx, "create", tracer.SpanPaymentCreate,
		tracer.String(tracer.AttrInstanceID, req.InstanceID.String()))
	defer done(&err)

	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	paymentType, err := models.ParsePaymentType(string(req.PaymentType))
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	payment, err := models.NewPayment(id.NewPaymentID(), req.InstanceID, req.TppID, req.PaymentProduct, paymentType, now)
	if err != nil {
		return nil, err
	}
	payment.PsuDataList = slices.Clone(req.PsuDataList)
	payment.MultilevelScaRequired = req.MultilevelScaRequired
	payment.TppOKRedirectURI = req.TppOKRedirectURI
	payment.TppNOKRedirectURI = req.TppNOKRedirectURI
	payment.Payload = slices.Clone(req.Payload)

	err = s.runInTx(ctx, payment.ID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		p := payment.Clone()
		if err := stores.Payments.Create(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create payment")
		}
		payment = p
		fx.paymentCreated(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Get returns the payment, rejecting it first when it waited for SCA too
// long. It returns nil, nil for an unknown payment.
func (s *Service) Get(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID) (_ *models.Payment, err error) {
	ctx, done := s.observe(ctx, "get", tracer.SpanPaymentStatus, paymentAttrs(instanceID, paymentID)...)
	defer done(&err)

	p, err := loadPayment(ctx, s.stores.Payments, instanceID, paymentID)
	if err != nil || p == nil {
		return nil, err
	}
	if !s.unconfirmed(p, requestcontext.Now(ctx)) {
		return p, nil
	}

	var result *models.Payment
	err = s.runInTx(ctx, paymentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		p, err := loadPayment(ctx, stores.Payments, instanceID, paymentID)
		if err != nil || p == nil {
			result = p
			return err
		}
		if _, err := s.expireOnRead(ctx, stores, fx, p, requestcontext.Now(ctx)); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdatePaymentStatus applies a transaction status reported by the ASPSP.
//
// The status is parsed case-insensitively; an unknown code is
// CodeInvalidInput. An unknown payment is false, nil. Re-applying the current
// status is a no-op success. Leaving a terminal status is CodeInvalidState.
func (s *Service) UpdatePaymentStatus(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, status string) (ok bool, err error) {
	ctx, done := s.observe(ctx, "update_status", tracer.SpanPaymentStatus,
		append(paymentAttrs(instanceID, paymentID), tracer.String(tracer.AttrTargetStatus, status))...)
	defer done(&err)

	target, err := models.ParseStatus(status)
	if err != nil {
		return false, err
	}

	var refused error
	err = s.runInTx(ctx, paymentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		ok, refused = false, nil
		p, err := loadPayment(ctx, stores.Payments, instanceID, paymentID)
		if err != nil || p == nil {
			return err
		}
		if p.Status == target {
			ok = true
			return nil
		}
		if p.Status.IsFinalised() {
			refused = dErrors.New(dErrors.CodeInvalidState, "payment is already "+p.Status.String())
			return nil
		}
		if err := s.applyStatus(ctx, stores, fx, p, target, requestcontext.Now(ctx)); err != nil {
			return err
		}
		ok = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if refused != nil {
		s.logger.InfoContext(ctx, "payment status change refused",
			"payment_id", paymentID.String(),
			"instance_id", instanceID.String(),
			"target_status", target.String(),
			"reason", refused.Error(),
		)
		return false, refused
	}
	if !ok {
		s.logger.InfoContext(ctx, "payment not found", "payment_id", paymentID.String(), "instance_id", instanceID.String())
	}
	return ok, nil
}

// UpdateMultilevelScaRequired switches between single and multilevel SCA.
// It is false for an unknown or terminal payment.
func (s *Service) UpdateMultilevelScaRequired(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, required bool) (ok bool, err error) {
	ctx, done := s.observe(ctx, "update_multilevel_sca", tracer.SpanPaymentStatus, paymentAttrs(instanceID, paymentID)...)
	defer done(&err)

	err = s.runInTx(ctx, paymentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		ok = false
		p, err := loadPayment(ctx, stores.Payments, instanceID, paymentID)
		if err != nil || p == nil || p.Status.IsFinalised() {
			return err
		}
		if p.MultilevelScaRequired != required {
			p.MultilevelScaRequired = required
			p.UpdatedAt = requestcontext.Now(ctx)
			if err := savePayment(ctx, stores.Payments, p); err != nil {
				return err
			}
		}
		ok = true
		return nil
	})
	return ok, err
}

// GetPsuDataList returns the PSUs of the payment, or nil for an unknown payment.
func (s *Service) GetPsuDataList(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID) ([]scamodels.PsuIdData, error) {
	p, err := loadPayment(ctx, s.stores.Payments, instanceID, paymentID)
	if err != nil || p == nil {
		return nil, err
	}
	return append([]scamodels.PsuIdData{}, p.PsuDataList...), nil
}

// PaymentsForPsu lists the payments the PSU takes part in.
func (s *Service) PaymentsForPsu(ctx context.Context, instanceID id.InstanceID, psu scamodels.PsuIdData) ([]*models.Payment, error) {
	if psu.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "PSU ID required")
	}
	payments, err := s.stores.Payments.ListByPsu(ctx, instanceID, psu)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments for PSU")
	}
	return payments, nil
}

// ExpirePayments rejects one batch of payments that waited for SCA longer
// than the not-confirmed window. It returns how many it rejected.
func (s *Service) ExpirePayments(ctx context.Context, now time.Time) (_ int, err error) {
	ctx, done := s.observe(ctx, "expire", tracer.SpanPaymentExpire)
	defer done(&err)

	ctx = requestcontext.WithTime(ctx, now)
	candidates, err := s.stores.Payments.ListExpirable(ctx, now.Add(-s.notConfirmedExpiration), s.sweepBatch)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expirable payments")
	}

	rejected := 0
	var errs []error
	for _, candidate := range candidates {
		changed := false
		err := s.runInTx(ctx, candidate.ID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
			changed = false
			p, err := loadPayment(ctx, stores.Payments, candidate.InstanceID, candidate.ID)
			if err != nil || p == nil {
				return err
			}
			changed, err = s.expireOnRead(ctx, stores, fx, p, now)
			return err
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			rejected++
		}
	}
	return rejected, errors.Join(errs...)
}
