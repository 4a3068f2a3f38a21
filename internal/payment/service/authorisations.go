package service

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"xs2acms/internal/payment/aggregate"
	"xs2acms/internal/payment/models"
	"xs2acms/internal/platform/tracer"
	"xs2acms/internal/sca/authorisation"
	"xs2acms/internal/sca/expiry"
	"xs2acms/internal/sca/machine"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/requestcontext"
)

// AuthorisationRequest starts an initiation or cancellation SCA on a payment.
type AuthorisationRequest struct {
	InstanceID        id.InstanceID
	PaymentID         id.PaymentID
	Type              scamodels.AuthorisationType
	PsuData           *scamodels.PsuIdData
	ScaApproach       scamodels.ScaApproach
	ScaStatus         scamodels.ScaStatus
	TppOKRedirectURI  string
	TppNOKRedirectURI string
}

type CreatedAuthorisation struct {
	Authorisation *scamodels.Authorisation
	RedirectID    string
}

type RedirectResult struct {
	Payment           *models.Payment
	Authorisation     *scamodels.Authorisation
	TppOKRedirectURI  string
	TppNOKRedirectURI string
}

type CodeResult struct {
	Matched   bool
	ScaStatus scamodels.ScaStatus
}

// CreateAuthorisation starts an authorisation of req.Type on the payment.
//
// Open authorisations of the same type and PSU are failed. An authorisation
// started in a final status is aggregated into the payment status at once.
// An unknown payment is nil, nil; a terminal one is CodeInvalidState.
func (s *Service) CreateAuthorisation(ctx context.Context, req AuthorisationRequest) (_ *CreatedAuthorisation, err error) {
	ctx, done := s.observe(ctx, "create_authorisation", tracer.SpanPaymentAuthorisation, paymentAttrs(req.InstanceID, req.PaymentID)...)
	defer done(&err)

	authType := scamodels.AuthorisationTypeCreation
	if req.Type != "" {
		if authType, err = scamodels.ParseAuthorisationType(string(req.Type)); err != nil {
			return nil, err
		}
	}
	if req.ScaStatus != "" && !req.ScaStatus.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown SCA status "+req.ScaStatus.String())
	}

	var created *scamodels.Authorisation
	var refused error
	err = s.runInTx(ctx, req.PaymentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		created, refused = nil, nil
		p, err := loadPayment(ctx, stores.Payments, req.InstanceID, req.PaymentID)
		if err != nil || p == nil {
			return err
		}
		now := requestcontext.Now(ctx)
		if _, err := s.expireOnRead(ctx, stores, fx, p, now); err != nil {
			return err
		}
		if p.Status.IsFinalised() {
			refused = dErrors.New(dErrors.CodeInvalidState, "payment is already "+p.Status.String())
			return nil
		}

		existing, err := listAuthorisations(ctx, stores.Authorisations, p)
		if err != nil {
			return err
		}
		closed := authorisation.ClosePrevious(existing, authType, req.PsuData, now)
		auth := authorisation.New(authorisation.Request{
			InstanceID:        p.InstanceID,
			ParentID:          uuid.UUID(p.ID),
			ParentType:        scamodels.ParentPayment,
			Type:              authType,
			PsuData:           req.PsuData,
			ScaApproach:       req.ScaApproach,
			ScaStatus:         req.ScaStatus,
			TppOKRedirectURI:  firstNonEmpty(req.TppOKRedirectURI, p.TppOKRedirectURI),
			TppNOKRedirectURI: firstNonEmpty(req.TppNOKRedirectURI, p.TppNOKRedirectURI),
		}, s.profile, now)

		joined := auth.PsuData != nil && !p.HasPsu(*auth.PsuData)
		if joined {
			p.PsuDataList = authorisation.MergePsu(p.PsuDataList, *auth.PsuData)
			p.UpdatedAt = now
		}
		next := p.Status
		if auth.ScaStatus.IsFinalised() {
			next = aggregate.Recompute(p, append(authorisation.Replace(existing, closed...), auth))
		}
		for _, old := range closed {
			if err := saveAuthorisation(ctx, stores.Authorisations, old); err != nil {
				return err
			}
			fx.authorisationStatus(old, statusBefore(existing, old.ID))
		}
		if err := stores.Authorisations.Create(ctx, auth); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create authorisation")
		}
		fx.authorisationCreated(auth)
		switch {
		case next != p.Status:
			if err := s.applyStatus(ctx, stores, fx, p, next, now); err != nil {
				return err
			}
		case joined:
			if err := savePayment(ctx, stores.Payments, p); err != nil {
				return err
			}
		}
		created = auth
		return nil
	})
	if err != nil {
		return nil, err
	}
	if refused != nil {
		return nil, refused
	}
	if created == nil {
		s.logger.InfoContext(ctx, "payment not found", "payment_id", req.PaymentID.String(), "instance_id", req.InstanceID.String())
		return nil, nil
	}
	redirectID, err := s.redirectID(created)
	if err != nil {
		return nil, err
	}
	return &CreatedAuthorisation{Authorisation: created, RedirectID: redirectID}, nil
}

// UpdateAuthorisationStatus moves one authorisation and re-aggregates the
// payment. It follows the same rules as the consent variant: expiry wins,
// re-applying a status is a no-op and a terminal payment refuses changes.
func (s *Service) UpdateAuthorisationStatus(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, authID id.AuthorisationID, target scamodels.ScaStatus, input *scamodels.AuthenticationInput) (ok bool, err error) {
	ctx, done := s.observe(ctx, "update_authorisation_status", tracer.SpanPaymentAuthorisation,
		append(paymentAttrs(instanceID, paymentID),
			tracer.String(tracer.AttrAuthorisationID, authID.String()),
			tracer.String(tracer.AttrTargetStatus, target.String()))...)
	defer done(&err)

	err = s.runInTx(ctx, paymentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		ok = false
		p, auth, err := loadPair(ctx, stores, instanceID, paymentID, authID)
		if err != nil || auth == nil {
			return err
		}
		now := requestcontext.Now(ctx)
		out, err := s.machine.Transition(auth, target, input, now)
		if err != nil {
			return err
		}
		if !out.Changed {
			ok = true
			return nil
		}
		if p.Status.IsFinalised() {
			return dErrors.New(dErrors.CodeInvalidState, "payment is already "+p.Status.String())
		}
		if err := s.commitAuthorisation(ctx, stores, fx, p, out.Authorisation, out.Previous, now); err != nil {
			return err
		}
		ok = true
		return nil
	})
	if !ok && err == nil {
		s.logger.InfoContext(ctx, "authorisation not found",
			"payment_id", paymentID.String(),
			"authorisation_id", authID.String(),
			"instance_id", instanceID.String(),
		)
	}
	return ok, err
}

// ConfirmAuthorisationCode checks a decoupled confirmation code. It returns
// nil, nil for an unknown payment or authorisation.
func (s *Service) ConfirmAuthorisationCode(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, authID id.AuthorisationID, code string) (_ *CodeResult, err error) {
	ctx, done := s.observe(ctx, "confirm_authorisation_code", tracer.SpanPaymentAuthorisation,
		append(paymentAttrs(instanceID, paymentID), tracer.String(tracer.AttrAuthorisationID, authID.String()))...)
	defer done(&err)

	var result *CodeResult
	err = s.runInTx(ctx, paymentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		result = nil
		p, auth, err := loadPair(ctx, stores, instanceID, paymentID, authID)
		if err != nil || auth == nil {
			return err
		}
		if p.Status.IsFinalised() {
			return dErrors.New(dErrors.CodeInvalidState, "payment is already "+p.Status.String())
		}
		now := requestcontext.Now(ctx)
		out, matched, err := s.machine.VerifyCode(auth, code, now)
		if err != nil {
			return err
		}
		if out.Changed {
			if err := s.commitAuthorisation(ctx, stores, fx, p, out.Authorisation, out.Previous, now); err != nil {
				return err
			}
		}
		result = &CodeResult{Matched: matched, ScaStatus: out.Authorisation.ScaStatus}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExpireAuthorisation fails a payment authorisation whose expiration passed
// and re-aggregates the payment. It reports whether anything changed.
func (s *Service) ExpireAuthorisation(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (changed bool, err error) {
	ctx, done := s.observe(ctx, "expire_authorisation", tracer.SpanPaymentExpire,
		tracer.String(tracer.AttrInstanceID, instanceID.String()),
		tracer.String(tracer.AttrAuthorisationID, authID.String()))
	defer done(&err)

	found, err := findAuthorisation(ctx, s.stores.Authorisations, instanceID, authID)
	if err != nil || found == nil {
		return false, err
	}
	return s.closeExpired(ctx, instanceID, id.PaymentID(found.ParentID), authID, s.machine.Expire)
}

// closeExpired fails an authorisation through expire and folds the failure
// into the payment unless the payment is already final.
func (s *Service) closeExpired(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, authID id.AuthorisationID, expire func(*scamodels.Authorisation, time.Time) (*machine.Outcome, error)) (changed bool, err error) {
	err = s.runInTx(ctx, paymentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		changed = false
		p, auth, err := loadPair(ctx, stores, instanceID, paymentID, authID)
		if err != nil || auth == nil {
			return err
		}
		now := requestcontext.Now(ctx)
		out, err := expire(auth, now)
		if err != nil || !out.Changed {
			return err
		}
		if p.Status.IsFinalised() {
			if err := saveAuthorisation(ctx, stores.Authorisations, out.Authorisation); err != nil {
				return err
			}
			fx.authorisationStatus(out.Authorisation, out.Previous)
		} else if err := s.commitAuthorisation(ctx, stores, fx, p, out.Authorisation, out.Previous, now); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// commitAuthorisation persists a moved authorisation and, once it is final,
// folds it into the payment status in the same unit of work.
func (s *Service) commitAuthorisation(ctx context.Context, stores Stores, fx *effects, p *models.Payment, auth *scamodels.Authorisation, previousSca scamodels.ScaStatus, now time.Time) error {
	next := p.Status
	if auth.ScaStatus.IsFinalised() {
		auths, err := listAuthorisations(ctx, stores.Authorisations, p)
		if err != nil {
			return err
		}
		next = aggregate.Recompute(p, authorisation.Replace(auths, auth))
	}
	if err := saveAuthorisation(ctx, stores.Authorisations, auth); err != nil {
		return err
	}
	fx.authorisationStatus(auth, previousSca)
	if next == p.Status {
		return nil
	}
	return s.applyStatus(ctx, stores, fx, p, next, now)
}

// UpdatePsuDataInPayment binds the PSU to an authorisation and adds it to the
// payment. It is false when either is unknown, the authorisation is closed,
// or a different PSU already runs it.
func (s *Service) UpdatePsuDataInPayment(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID, psu scamodels.PsuIdData) (ok bool, err error) {
	ctx, done := s.observe(ctx, "update_psu_data", tracer.SpanPaymentAuthorisation,
		tracer.String(tracer.AttrInstanceID, instanceID.String()),
		tracer.String(tracer.AttrAuthorisationID, authID.String()),
		tracer.String(tracer.AttrPsuHash, tracer.HashPsuID(psu.PsuID)))
	defer done(&err)

	if psu.IsEmpty() {
		return false, dErrors.New(dErrors.CodeInvalidInput, "PSU ID required")
	}
	found, err := findAuthorisation(ctx, s.stores.Authorisations, instanceID, authID)
	if err != nil || found == nil {
		return false, err
	}
	paymentID := id.PaymentID(found.ParentID)

	err = s.runInTx(ctx, paymentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		ok = false
		p, auth, err := loadPair(ctx, stores, instanceID, paymentID, authID)
		if err != nil || auth == nil || auth.ScaStatus.IsFinalised() || p.Status.IsFinalised() {
			return err
		}
		now := requestcontext.Now(ctx)
		updated, assigned := authorisation.AssignPsu(auth, psu, now)
		if !assigned {
			return nil
		}
		if err := saveAuthorisation(ctx, stores.Authorisations, updated); err != nil {
			return err
		}
		fx.psuAssigned(updated)
		merged := authorisation.MergePsu(p.PsuDataList, psu)
		if !slices.Equal(merged, p.PsuDataList) {
			p.PsuDataList = merged
			p.UpdatedAt = now
			if err := savePayment(ctx, stores.Payments, p); err != nil {
				return err
			}
		}
		ok = true
		return nil
	})
	return ok, err
}

// GetAuthorisation returns the payment authorisation, or nil, nil when unknown.
func (s *Service) GetAuthorisation(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (*scamodels.Authorisation, error) {
	return findAuthorisation(ctx, s.stores.Authorisations, instanceID, authID)
}

// GetAuthorisationScaStatus returns the SCA status of an authorisation. A
// payment that was never confirmed in time is rejected and FAILED reported.
func (s *Service) GetAuthorisationScaStatus(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, authID id.AuthorisationID) (status scamodels.ScaStatus, found bool, err error) {
	p, auth, err := loadPair(ctx, s.stores, instanceID, paymentID, authID)
	if err != nil || auth == nil {
		return "", false, err
	}
	if auth.Type == scamodels.AuthorisationTypeCreation && s.unconfirmed(p, requestcontext.Now(ctx)) {
		if _, err := s.Get(ctx, instanceID, paymentID); err != nil {
			return "", false, err
		}
		return scamodels.ScaStatusFailed, true, nil
	}
	return auth.ScaStatus, true, nil
}

// ListAuthorisationIDs returns the IDs of the payment's authorisations of
// the given type, or nil for an unknown payment.
func (s *Service) ListAuthorisationIDs(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID, authType scamodels.AuthorisationType) ([]id.AuthorisationID, error) {
	p, err := loadPayment(ctx, s.stores.Payments, instanceID, paymentID)
	if err != nil || p == nil {
		return nil, err
	}
	auths, err := listAuthorisations(ctx, s.stores.Authorisations, p)
	if err != nil {
		return nil, err
	}
	ids := make([]id.AuthorisationID, 0, len(auths))
	for _, a := range auths {
		if authType == "" || a.Type == authType {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

// CheckRedirectAndGetPayment resolves a redirect ID of an initiation
// authorisation. See checkRedirect for the outcomes.
func (s *Service) CheckRedirectAndGetPayment(ctx context.Context, instanceID id.InstanceID, redirectID string) (*RedirectResult, error) {
	return s.checkRedirect(ctx, instanceID, redirectID, scamodels.AuthorisationTypeCreation)
}

// CheckRedirectAndGetPaymentForCancellation resolves a redirect ID of a
// cancellation authorisation.
func (s *Service) CheckRedirectAndGetPaymentForCancellation(ctx context.Context, instanceID id.InstanceID, redirectID string) (*RedirectResult, error) {
	return s.checkRedirect(ctx, instanceID, redirectID, scamodels.AuthorisationTypeCancellation)
}

// checkRedirect returns nil, nil for an unknown redirect, one of another
// authorisation type, or one whose authorisation is already final. A lapsed
// redirect URL is CodeRedirectExpired and a lapsed authorisation
// CodeAuthorisationExpired, both carrying the TPP NOK redirect URI; the
// authorisation is failed before either is returned.
func (s *Service) checkRedirect(ctx context.Context, instanceID id.InstanceID, redirectID string, authType scamodels.AuthorisationType) (_ *RedirectResult, err error) {
	ctx, done := s.observe(ctx, "check_redirect", tracer.SpanPaymentRedirect,
		tracer.String(tracer.AttrInstanceID, instanceID.String()))
	defer done(&err)

	instanceID, authID, ok := s.resolveRedirect(instanceID, redirectID)
	if !ok {
		return nil, nil
	}
	auth, err := s.GetAuthorisation(ctx, instanceID, authID)
	if err != nil || auth == nil || auth.Type != authType || auth.ScaStatus.IsFinalised() {
		return nil, err
	}
	paymentID := id.PaymentID(auth.ParentID)
	if lapsed := redirectLapsed(auth, requestcontext.Now(ctx)); lapsed != nil {
		if _, err := s.closeExpired(ctx, instanceID, paymentID, auth.ID, s.machine.ExpireRedirect); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "authorisation failed on expired redirect",
			"payment_id", paymentID.String(),
			"authorisation_id", auth.ID.String(),
			"instance_id", instanceID.String(),
		)
		return nil, lapsed
	}
	p, err := s.Get(ctx, instanceID, paymentID)
	if err != nil || p == nil {
		return nil, err
	}
	return &RedirectResult{
		Payment:           p,
		Authorisation:     auth,
		TppOKRedirectURI:  auth.TppOKRedirectURI,
		TppNOKRedirectURI: auth.TppNOKRedirectURI,
	}, nil
}

func redirectLapsed(auth *scamodels.Authorisation, now time.Time) error {
	if expiry.IsExpired(auth.RedirectURLExpiresAt, now) {
		return dErrors.WithRedirect(dErrors.CodeRedirectExpired, "redirect URL expired", auth.TppNOKRedirectURI)
	}
	if expiry.IsExpired(auth.ExpiresAt, now) {
		return dErrors.WithRedirect(dErrors.CodeAuthorisationExpired, "authorisation expired", auth.TppNOKRedirectURI)
	}
	return nil
}

func (s *Service) resolveRedirect(instanceID id.InstanceID, redirectID string) (id.InstanceID, id.AuthorisationID, bool) {
	if s.redirects == nil {
		authID, err := id.ParseAuthorisationID(redirectID)
		return instanceID, authID, err == nil
	}
	target, err := s.redirects.Parse(redirectID)
	if err != nil || target.ParentType != scamodels.ParentPayment {
		return "", id.AuthorisationID{}, false
	}
	return target.InstanceID, target.AuthorisationID, true
}

func (s *Service) redirectID(auth *scamodels.Authorisation) (string, error) {
	if s.redirects == nil {
		return auth.ID.String(), nil
	}
	return s.redirects.Issue(auth)
}

func statusBefore(auths []*scamodels.Authorisation, authID id.AuthorisationID) scamodels.ScaStatus {
	for _, a := range auths {
		if a.ID == authID {
			return a.ScaStatus
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
