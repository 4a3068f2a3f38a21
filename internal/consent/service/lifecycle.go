package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"xs2acms/internal/consent/checksum"
	"xs2acms/internal/consent/models"
	"xs2acms/internal/platform/tracer"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/requestcontext"
	"xs2acms/pkg/validation"
)

// Create stores a new consent in RECEIVED status.
func (s *Service) Create(ctx context.Context, req models.CreateRequest) (_ *models.Consent, err error) {
	ctx, done := s.observe(ctx, "create", tracer.SpanConsentCreate,
		tracer.String(tracer.AttrInstanceID, req.InstanceID.String()))
	defer done(&err)

	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	consentType, err := models.ParseConsentType(string(req.ConsentType))
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	consent, err := models.NewConsent(id.NewConsentID(), req.InstanceID, req.TppID, consentType, s.capValidity(req.ValidUntil, now), now)
	if err != nil {
		return nil, err
	}
	consent.PsuDataList = slices.Clone(req.PsuDataList)
	consent.TppAccess = req.Access.Clone()
	consent.FrequencyPerDay = req.FrequencyPerDay
	consent.RecurringIndicator = req.RecurringIndicator
	consent.CombinedServiceIndicator = req.CombinedServiceIndicator
	consent.MultilevelScaRequired = req.MultilevelScaRequired
	consent.TppOKRedirectURI = req.TppOKRedirectURI
	consent.TppNOKRedirectURI = req.TppNOKRedirectURI
	consent.Payload = slices.Clone(req.Payload)

	err = s.runInTx(ctx, consent.ID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		c := consent.Clone()
		sum, err := checksum.Compute(c)
		if err != nil {
			return err
		}
		c.Checksum = sum
		if err := stores.Consents.Create(ctx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create consent")
		}
		consent = c
		fx.consentCreated(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consent, nil
}

// capValidity shortens validUntil to the last day allowed by the ASPSP.
func (s *Service) capValidity(validUntil, now time.Time) time.Time {
	if s.maxValidityDays <= 0 || validUntil.IsZero() {
		return validUntil
	}
	y, m, d := now.UTC().Date()
	limit := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, s.maxValidityDays-1)
	if validUntil.After(limit) {
		return limit
	}
	return validUntil
}

// Get returns the consent, closing it first when it expired. It returns
// nil, nil for an unknown consent.
func (s *Service) Get(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (_ *models.Consent, err error) {
	ctx, done := s.observe(ctx, "get", tracer.SpanConsentStatus, consentAttrs(instanceID, consentID)...)
	defer done(&err)

	c, err := loadConsent(ctx, s.stores.Consents, instanceID, consentID)
	if err != nil || c == nil {
		return nil, err
	}
	if _, expired := s.expiredStatus(c, requestcontext.Now(ctx)); !expired {
		return c, nil
	}

	var result *models.Consent
	err = s.runInTx(ctx, consentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		c, err := loadConsent(ctx, stores.Consents, instanceID, consentID)
		if err != nil || c == nil {
			result = c
			return err
		}
		if _, err := s.expireOnRead(ctx, stores, fx, c, requestcontext.Now(ctx)); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Confirm forces the consent to VALID, for SCA handled out of band.
func (s *Service) Confirm(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (bool, error) {
	return s.setStatus(ctx, "confirm", instanceID, consentID, models.StatusValid)
}

// Reject moves the consent to REJECTED.
func (s *Service) Reject(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (bool, error) {
	return s.setStatus(ctx, "reject", instanceID, consentID, models.StatusRejected)
}

// Revoke moves the consent to REVOKED_BY_PSU.
func (s *Service) Revoke(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (bool, error) {
	return s.setStatus(ctx, "revoke", instanceID, consentID, models.StatusRevokedByPsu)
}

// AuthorisePartially moves the consent to PARTIALLY_AUTHORISED.
func (s *Service) AuthorisePartially(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (bool, error) {
	return s.setStatus(ctx, "authorise_partially", instanceID, consentID, models.StatusPartiallyAuthorised)
}

// TerminateByTpp moves the consent to TERMINATED_BY_TPP.
func (s *Service) TerminateByTpp(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (bool, error) {
	return s.setStatus(ctx, "terminate_by_tpp", instanceID, consentID, models.StatusTerminatedByTpp)
}

// TerminateByAspsp moves the consent to TERMINATED_BY_ASPSP.
func (s *Service) TerminateByAspsp(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (bool, error) {
	return s.setStatus(ctx, "terminate_by_aspsp", instanceID, consentID, models.StatusTerminatedByAspsp)
}

// setStatus applies a directly requested status.
//
// An unknown consent is false, nil. Re-applying the current status is a
// no-op success. Leaving a terminal status, or falling back from VALID to
// PARTIALLY_AUTHORISED, is CodeInvalidState. A consent found expired is
// closed and the request refused with CodeInvalidState.
func (s *Service) setStatus(ctx context.Context, op string, instanceID id.InstanceID, consentID id.ConsentID, target models.Status) (ok bool, err error) {
	ctx, done := s.observe(ctx, op, tracer.SpanConsentStatus,
		append(consentAttrs(instanceID, consentID), tracer.String(tracer.AttrTargetStatus, target.String()))...)
	defer done(&err)

	var refused error
	err = s.runInTx(ctx, consentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		ok, refused = false, nil
		c, err := loadConsent(ctx, stores.Consents, instanceID, consentID)
		if err != nil || c == nil {
			return err
		}
		now := requestcontext.Now(ctx)
		expired, err := s.expireOnRead(ctx, stores, fx, c, now)
		if err != nil {
			return err
		}
		if c.Status == target {
			ok = true
			return nil
		}
		if expired || c.Status.IsFinalised() {
			refused = dErrors.New(dErrors.CodeInvalidState, "consent is already "+c.Status.String())
			return nil
		}
		if target == models.StatusPartiallyAuthorised && c.Status == models.StatusValid {
			refused = dErrors.New(dErrors.CodeInvalidState, "consent is already VALID")
			return nil
		}
		if err := s.applyStatus(ctx, stores, fx, c, target, now); err != nil {
			return err
		}
		ok = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if refused != nil {
		s.logger.InfoContext(ctx, "consent status change refused",
			"consent_id", consentID.String(),
			"instance_id", instanceID.String(),
			"target_status", target.String(),
			"reason", refused.Error(),
		)
		return false, refused
	}
	if !ok {
		s.logger.InfoContext(ctx, "consent not found", "consent_id", consentID.String(), "instance_id", instanceID.String())
	}
	return ok, nil
}

// UpdateMultilevelScaRequired switches between single and multilevel SCA.
// It is false for an unknown or closed consent.
func (s *Service) UpdateMultilevelScaRequired(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, required bool) (ok bool, err error) {
	ctx, done := s.observe(ctx, "update_multilevel_sca", tracer.SpanConsentStatus, consentAttrs(instanceID, consentID)...)
	defer done(&err)

	err = s.runInTx(ctx, consentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		ok = false
		c, err := loadConsent(ctx, stores.Consents, instanceID, consentID)
		if err != nil || c == nil || c.Status.IsFinalised() {
			return err
		}
		if c.MultilevelScaRequired != required {
			c.MultilevelScaRequired = required
			c.UpdatedAt = requestcontext.Now(ctx)
			if err := s.verifyAndSave(ctx, stores.Consents, c); err != nil {
				return err
			}
		}
		ok = true
		return nil
	})
	return ok, err
}

// UpdateAccountAccess records the accounts the ASPSP resolved for the consent.
//
// It is false for an unknown or closed consent. Once the consent has been
// activated any change to the access is CodeWrongChecksum; resubmitting the
// same access succeeds without writing.
func (s *Service) UpdateAccountAccess(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, access models.AccountAccess) (ok bool, err error) {
	ctx, done := s.observe(ctx, "update_account_access", tracer.SpanConsentAccess, consentAttrs(instanceID, consentID)...)
	defer done(&err)

	err = s.runInTx(ctx, consentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		ok = false
		c, err := loadConsent(ctx, stores.Consents, instanceID, consentID)
		if err != nil || c == nil || c.Status.IsFinalised() {
			return err
		}
		updated := access.Clone()
		c.AspspAccess = &updated
		if c.IsActivated() {
			if err := checksum.Verify(c, c.Checksum); err != nil {
				return err
			}
			ok = true
			return nil
		}
		c.UpdatedAt = requestcontext.Now(ctx)
		if err := s.verifyAndSave(ctx, stores.Consents, c); err != nil {
			return err
		}
		fx.accessUpdated(c)
		ok = true
		return nil
	})
	return ok, err
}

// GetPsuDataList returns the PSUs of the consent, or nil for an unknown consent.
func (s *Service) GetPsuDataList(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) ([]scamodels.PsuIdData, error) {
	c, err := loadConsent(ctx, s.stores.Consents, instanceID, consentID)
	if err != nil || c == nil {
		return nil, err
	}
	return append([]scamodels.PsuIdData{}, c.PsuDataList...), nil
}

// ConsentsForPsu lists the consents the PSU takes part in.
func (s *Service) ConsentsForPsu(ctx context.Context, instanceID id.InstanceID, psu scamodels.PsuIdData) ([]*models.Consent, error) {
	if psu.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "PSU ID required")
	}
	consents, err := s.stores.Consents.ListByPsu(ctx, instanceID, psu)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents for PSU")
	}
	return consents, nil
}

// ExpireConsents closes one batch of consents whose validity date passed or
// that were never confirmed in time. It returns how many it closed.
func (s *Service) ExpireConsents(ctx context.Context, now time.Time) (_ int, err error) {
	ctx, done := s.observe(ctx, "expire", tracer.SpanConsentExpire)
	defer done(&err)

	ctx = requestcontext.WithTime(ctx, now)
	candidates, err := s.stores.Consents.ListExpirable(ctx, now, now.Add(-s.notConfirmedExpiration), s.sweepBatch)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expirable consents")
	}

	closed := 0
	var errs []error
	for _, candidate := range candidates {
		changed := false
		err := s.runInTx(ctx, candidate.ID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
			changed = false
			c, err := loadConsent(ctx, stores.Consents, candidate.InstanceID, candidate.ID)
			if err != nil || c == nil {
				return err
			}
			changed, err = s.expireOnRead(ctx, stores, fx, c, now)
			return err
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			closed++
		}
	}
	return closed, errors.Join(errs...)
}
