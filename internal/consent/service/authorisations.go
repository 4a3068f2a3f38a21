package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"xs2acms/internal/consent/aggregate"
	"xs2acms/internal/consent/models"
	"xs2acms/internal/platform/tracer"
	"xs2acms/internal/sca/authorisation"
	"xs2acms/internal/sca/expiry"
	"xs2acms/internal/sca/machine"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/platform/sentinel"
	"xs2acms/pkg/requestcontext"
)

// AuthorisationRequest starts an SCA process on a consent.
type AuthorisationRequest struct {
	InstanceID        id.InstanceID
	ConsentID         id.ConsentID
	PsuData           *scamodels.PsuIdData
	ScaApproach       scamodels.ScaApproach
	ScaStatus         scamodels.ScaStatus
	TppOKRedirectURI  string
	TppNOKRedirectURI string
}

// CreatedAuthorisation is a started authorisation plus the ID the PSU's
// browser is redirected with.
type CreatedAuthorisation struct {
	Authorisation *scamodels.Authorisation
	RedirectID    string
}

// RedirectResult is what a PSU arriving through a redirect may act on.
type RedirectResult struct {
	Consent           *models.Consent
	Authorisation     *scamodels.Authorisation
	TppOKRedirectURI  string
	TppNOKRedirectURI string
}

// CodeResult reports the outcome of a confirmation code check.
type CodeResult struct {
	Matched   bool
	ScaStatus scamodels.ScaStatus
}

// CreateAuthorisation starts an authorisation on the consent.
//
// Open authorisations of the same PSU are failed and their redirect window
// closed. The PSU joins the consent's PSU list. An authorisation started
// in a final status is aggregated into the consent status at once. An
// unknown consent is nil, nil; a closed one is CodeInvalidState.
func (s *Service) CreateAuthorisation(ctx context.Context, req AuthorisationRequest) (_ *CreatedAuthorisation, err error) {
	ctx, done := s.observe(ctx, "create_authorisation", tracer.SpanConsentAuthorisation, consentAttrs(req.InstanceID, req.ConsentID)...)
	defer done(&err)

	if req.ScaStatus != "" && !req.ScaStatus.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown SCA status "+req.ScaStatus.String())
	}

	var created *scamodels.Authorisation
	var refused error
	err = s.runInTx(ctx, req.ConsentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		created, refused = nil, nil
		c, err := loadConsent(ctx, stores.Consents, req.InstanceID, req.ConsentID)
		if err != nil || c == nil {
			return err
		}
		now := requestcontext.Now(ctx)
		if _, err := s.expireOnRead(ctx, stores, fx, c, now); err != nil {
			return err
		}
		if c.Status.IsFinalised() {
			refused = dErrors.New(dErrors.CodeInvalidState, "consent is already "+c.Status.String())
			return nil
		}

		existing, err := listAuthorisations(ctx, stores.Authorisations, c)
		if err != nil {
			return err
		}
		closed := authorisation.ClosePrevious(existing, scamodels.AuthorisationTypeCreation, req.PsuData, now)
		auth := authorisation.New(authorisation.Request{
			InstanceID:        c.InstanceID,
			ParentID:          uuid.UUID(c.ID),
			ParentType:        scamodels.ParentConsent,
			Type:              scamodels.AuthorisationTypeCreation,
			PsuData:           req.PsuData,
			ScaApproach:       req.ScaApproach,
			ScaStatus:         req.ScaStatus,
			TppOKRedirectURI:  firstNonEmpty(req.TppOKRedirectURI, c.TppOKRedirectURI),
			TppNOKRedirectURI: firstNonEmpty(req.TppNOKRedirectURI, c.TppNOKRedirectURI),
		}, s.profile, now)

		previous := c.Status
		joined := auth.PsuData != nil && !c.HasPsu(*auth.PsuData)
		if joined {
			c.PsuDataList = authorisation.MergePsu(c.PsuDataList, *auth.PsuData)
			c.UpdatedAt = now
			if err := sealChecksum(c); err != nil {
				return err
			}
		}
		// An authorisation started in a final status counts towards the
		// consent status right away.
		staged := false
		if auth.ScaStatus.IsFinalised() {
			all := append(authorisation.Replace(existing, closed...), auth)
			if next := aggregate.Recompute(c, all); next != c.Status {
				if err := stageStatus(c, next, now); err != nil {
					return err
				}
				staged = true
			}
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
		case staged:
			if err := s.persistStatus(ctx, stores, fx, c, previous, now); err != nil {
				return err
			}
		case joined:
			if err := saveConsent(ctx, stores.Consents, c); err != nil {
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
		s.logger.InfoContext(ctx, "consent not found", "consent_id", req.ConsentID.String(), "instance_id", req.InstanceID.String())
		return nil, nil
	}
	redirectID, err := s.redirectID(created)
	if err != nil {
		return nil, err
	}
	return &CreatedAuthorisation{Authorisation: created, RedirectID: redirectID}, nil
}

// UpdateAuthorisationStatus moves one authorisation and re-aggregates the consent.
//
// Unknown consents and authorisations are false, nil. An expired
// authorisation is CodeAuthorisationExpired whatever the target, and takes
// precedence over every other check. Re-applying the current status is a
// no-op success even on a closed consent; any other change on a closed
// consent is CodeInvalidState.
func (s *Service) UpdateAuthorisationStatus(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, authID id.AuthorisationID, target scamodels.ScaStatus, input *scamodels.AuthenticationInput) (ok bool, err error) {
	ctx, done := s.observe(ctx, "update_authorisation_status", tracer.SpanConsentAuthorisation,
		append(consentAttrs(instanceID, consentID),
			tracer.String(tracer.AttrAuthorisationID, authID.String()),
			tracer.String(tracer.AttrTargetStatus, target.String()))...)
	defer done(&err)

	err = s.runInTx(ctx, consentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		ok = false
		c, auth, err := s.loadPair(ctx, stores, instanceID, consentID, authID)
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
		if c.Status.IsFinalised() {
			return dErrors.New(dErrors.CodeInvalidState, "consent is already "+c.Status.String())
		}
		if err := s.commitAuthorisation(ctx, stores, fx, c, out.Authorisation, out.Previous, now); err != nil {
			return err
		}
		ok = true
		return nil
	})
	if !ok && err == nil {
		s.logger.InfoContext(ctx, "authorisation not found",
			"consent_id", consentID.String(),
			"authorisation_id", authID.String(),
			"instance_id", instanceID.String(),
		)
	}
	return ok, err
}

// ConfirmAuthorisationCode checks a decoupled confirmation code. A match
// finalises the authorisation; mismatches follow the machine's retry rule.
// It returns nil, nil for an unknown consent or authorisation.
func (s *Service) ConfirmAuthorisationCode(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, authID id.AuthorisationID, code string) (_ *CodeResult, err error) {
	ctx, done := s.observe(ctx, "confirm_authorisation_code", tracer.SpanConsentAuthorisation,
		append(consentAttrs(instanceID, consentID), tracer.String(tracer.AttrAuthorisationID, authID.String()))...)
	defer done(&err)

	var result *CodeResult
	err = s.runInTx(ctx, consentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		result = nil
		c, auth, err := s.loadPair(ctx, stores, instanceID, consentID, authID)
		if err != nil || auth == nil {
			return err
		}
		if c.Status.IsFinalised() {
			return dErrors.New(dErrors.CodeInvalidState, "consent is already "+c.Status.String())
		}
		now := requestcontext.Now(ctx)
		out, matched, err := s.machine.VerifyCode(auth, code, now)
		if err != nil {
			return err
		}
		if out.Changed {
			if err := s.commitAuthorisation(ctx, stores, fx, c, out.Authorisation, out.Previous, now); err != nil {
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

// ExpireAuthorisation fails an authorisation whose expiration passed and
// re-aggregates its consent. It reports whether anything changed.
func (s *Service) ExpireAuthorisation(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (changed bool, err error) {
	ctx, done := s.observe(ctx, "expire_authorisation", tracer.SpanConsentExpire,
		tracer.String(tracer.AttrInstanceID, instanceID.String()),
		tracer.String(tracer.AttrAuthorisationID, authID.String()))
	defer done(&err)

	found, err := s.findAuthorisation(ctx, s.stores.Authorisations, instanceID, authID)
	if err != nil || found == nil || found.ParentType != scamodels.ParentConsent {
		return false, err
	}
	return s.closeExpired(ctx, instanceID, id.ConsentID(found.ParentID), authID, s.machine.Expire)
}

// closeExpired fails an authorisation through expire and folds the failure
// into the consent unless the consent is already closed.
func (s *Service) closeExpired(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, authID id.AuthorisationID, expire func(*scamodels.Authorisation, time.Time) (*machine.Outcome, error)) (changed bool, err error) {
	err = s.runInTx(ctx, consentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		changed = false
		c, auth, err := s.loadPair(ctx, stores, instanceID, consentID, authID)
		if err != nil || auth == nil {
			return err
		}
		now := requestcontext.Now(ctx)
		out, err := expire(auth, now)
		if err != nil || !out.Changed {
			return err
		}
		if c.Status.IsFinalised() {
			if err := saveAuthorisation(ctx, stores.Authorisations, out.Authorisation); err != nil {
				return err
			}
			fx.authorisationStatus(out.Authorisation, out.Previous)
		} else if err := s.commitAuthorisation(ctx, stores, fx, c, out.Authorisation, out.Previous, now); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// commitAuthorisation persists a moved authorisation and folds it into the
// consent status in the same unit of work.
func (s *Service) commitAuthorisation(ctx context.Context, stores Stores, fx *effects, c *models.Consent, auth *scamodels.Authorisation, previousSca scamodels.ScaStatus, now time.Time) error {
	previous := c.Status
	staged := false
	if auth.ScaStatus.IsFinalised() {
		auths, err := listAuthorisations(ctx, stores.Authorisations, c)
		if err != nil {
			return err
		}
		if next := aggregate.Recompute(c, authorisation.Replace(auths, auth)); next != c.Status {
			if err := stageStatus(c, next, now); err != nil {
				return err
			}
			staged = true
		}
	}
	if err := saveAuthorisation(ctx, stores.Authorisations, auth); err != nil {
		return err
	}
	fx.authorisationStatus(auth, previousSca)
	if !staged {
		return nil
	}
	return s.persistStatus(ctx, stores, fx, c, previous, now)
}

// UpdatePsuDataInConsent binds the PSU to an authorisation and adds it to the
// consent. It is false when either is unknown, the authorisation is closed,
// or a different PSU already runs it.
func (s *Service) UpdatePsuDataInConsent(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID, psu scamodels.PsuIdData) (ok bool, err error) {
	ctx, done := s.observe(ctx, "update_psu_data", tracer.SpanConsentAuthorisation,
		tracer.String(tracer.AttrInstanceID, instanceID.String()),
		tracer.String(tracer.AttrAuthorisationID, authID.String()),
		tracer.String(tracer.AttrPsuHash, tracer.HashPsuID(psu.PsuID)))
	defer done(&err)

	if psu.IsEmpty() {
		return false, dErrors.New(dErrors.CodeInvalidInput, "PSU ID required")
	}
	found, err := s.findAuthorisation(ctx, s.stores.Authorisations, instanceID, authID)
	if err != nil || found == nil || found.ParentType != scamodels.ParentConsent {
		return false, err
	}
	consentID := id.ConsentID(found.ParentID)

	err = s.runInTx(ctx, consentID.String(), func(ctx context.Context, stores Stores, fx *effects) error {
		ok = false
		c, auth, err := s.loadPair(ctx, stores, instanceID, consentID, authID)
		if err != nil || auth == nil || auth.ScaStatus.IsFinalised() || c.Status.IsFinalised() {
			return err
		}
		now := requestcontext.Now(ctx)
		updated, assigned := authorisation.AssignPsu(auth, psu, now)
		if !assigned {
			return nil
		}
		merged := authorisation.MergePsu(c.PsuDataList, psu)
		joined := !slices.Equal(merged, c.PsuDataList)
		if joined {
			c.PsuDataList = merged
			c.UpdatedAt = now
			if err := sealChecksum(c); err != nil {
				return err
			}
		}
		if err := saveAuthorisation(ctx, stores.Authorisations, updated); err != nil {
			return err
		}
		fx.psuAssigned(updated)
		if joined {
			if err := saveConsent(ctx, stores.Consents, c); err != nil {
				return err
			}
		}
		ok = true
		return nil
	})
	return ok, err
}

// GetAuthorisation returns the authorisation, or nil, nil when unknown.
func (s *Service) GetAuthorisation(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (*scamodels.Authorisation, error) {
	auth, err := s.findAuthorisation(ctx, s.stores.Authorisations, instanceID, authID)
	if err != nil || auth == nil || auth.ParentType != scamodels.ParentConsent {
		return nil, err
	}
	return auth, nil
}

// GetAuthorisationScaStatus returns the SCA status of an authorisation. When
// the consent was never confirmed in time it is closed and FAILED is reported.
// found is false for an unknown consent or authorisation.
func (s *Service) GetAuthorisationScaStatus(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, authID id.AuthorisationID) (status scamodels.ScaStatus, found bool, err error) {
	c, auth, err := s.loadPair(ctx, s.stores, instanceID, consentID, authID)
	if err != nil || auth == nil {
		return "", false, err
	}
	now := requestcontext.Now(ctx)
	if expired, ok := s.expiredStatus(c, now); ok && expired == models.StatusRejected {
		if _, err := s.Get(ctx, instanceID, consentID); err != nil {
			return "", false, err
		}
		return scamodels.ScaStatusFailed, true, nil
	}
	return auth.ScaStatus, true, nil
}

// ListAuthorisationIDs returns the IDs of the consent's authorisations of
// the given type, or nil for an unknown consent.
func (s *Service) ListAuthorisationIDs(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID, authType scamodels.AuthorisationType) ([]id.AuthorisationID, error) {
	c, err := loadConsent(ctx, s.stores.Consents, instanceID, consentID)
	if err != nil || c == nil {
		return nil, err
	}
	auths, err := listAuthorisations(ctx, s.stores.Authorisations, c)
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

// ListPsuDataAuthorisations pairs each PSU-bound authorisation with its PSU.
func (s *Service) ListPsuDataAuthorisations(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) ([]models.PsuAuthorisation, error) {
	c, err := loadConsent(ctx, s.stores.Consents, instanceID, consentID)
	if err != nil || c == nil {
		return nil, err
	}
	auths, err := listAuthorisations(ctx, s.stores.Authorisations, c)
	if err != nil {
		return nil, err
	}
	out := []models.PsuAuthorisation{}
	for _, a := range auths {
		if a.PsuData == nil || a.PsuData.IsEmpty() {
			continue
		}
		out = append(out, models.PsuAuthorisation{AuthorisationID: a.ID, PsuData: *a.PsuData, ScaStatus: a.ScaStatus})
	}
	return out, nil
}

// SaveAuthenticationMethods stores the SCA methods the ASPSP offers the PSU.
func (s *Service) SaveAuthenticationMethods(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID, methods []scamodels.ScaMethod) (bool, error) {
	return s.updateAuthorisation(ctx, "save_authentication_methods", instanceID, authID, func(auth *scamodels.Authorisation) bool {
		auth.AvailableMethods = slices.Clone(methods)
		return true
	})
}

// UpdateScaApproach switches the SCA approach of an open authorisation.
func (s *Service) UpdateScaApproach(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID, approach scamodels.ScaApproach) (bool, error) {
	return s.updateAuthorisation(ctx, "update_sca_approach", instanceID, authID, func(auth *scamodels.Authorisation) bool {
		auth.ScaApproach = approach
		return true
	})
}

// IsAuthenticationMethodDecoupled reports whether methodID is one of the
// authorisation's decoupled methods.
func (s *Service) IsAuthenticationMethodDecoupled(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID, methodID string) (bool, error) {
	auth, err := s.GetAuthorisation(ctx, instanceID, authID)
	if err != nil || auth == nil {
		return false, err
	}
	for _, m := range auth.AvailableMethods {
		if m.AuthenticationMethodID == methodID {
			return m.Decoupled, nil
		}
	}
	return false, nil
}

// updateAuthorisation edits non-status fields of an open consent authorisation.
func (s *Service) updateAuthorisation(ctx context.Context, op string, instanceID id.InstanceID, authID id.AuthorisationID, edit func(*scamodels.Authorisation) bool) (ok bool, err error) {
	ctx, done := s.observe(ctx, op, tracer.SpanConsentAuthorisation,
		tracer.String(tracer.AttrInstanceID, instanceID.String()),
		tracer.String(tracer.AttrAuthorisationID, authID.String()))
	defer done(&err)

	found, err := s.findAuthorisation(ctx, s.stores.Authorisations, instanceID, authID)
	if err != nil || found == nil || found.ParentType != scamodels.ParentConsent {
		return false, err
	}

	err = s.runInTx(ctx, id.ConsentID(found.ParentID).String(), func(ctx context.Context, stores Stores, fx *effects) error {
		ok = false
		auth, err := s.findAuthorisation(ctx, stores.Authorisations, instanceID, authID)
		if err != nil || auth == nil || auth.ParentType != scamodels.ParentConsent || auth.ScaStatus.IsFinalised() {
			return err
		}
		if !edit(auth) {
			return nil
		}
		auth.UpdatedAt = requestcontext.Now(ctx)
		if err := saveAuthorisation(ctx, stores.Authorisations, auth); err != nil {
			return err
		}
		ok = true
		return nil
	})
	return ok, err
}

// CheckRedirectAndGetConsent resolves a redirect ID for a PSU arriving at the ASPSP.
//
// An unknown redirect, or one of an authorisation that is already final, is
// nil, nil. A lapsed redirect URL is CodeRedirectExpired and a lapsed
// authorisation CodeAuthorisationExpired, both carrying the TPP NOK redirect
// URI; the authorisation is failed before either is returned.
func (s *Service) CheckRedirectAndGetConsent(ctx context.Context, instanceID id.InstanceID, redirectID string) (_ *RedirectResult, err error) {
	ctx, done := s.observe(ctx, "check_redirect", tracer.SpanConsentRedirect,
		tracer.String(tracer.AttrInstanceID, instanceID.String()))
	defer done(&err)

	instanceID, authID, ok := s.resolveRedirect(instanceID, redirectID)
	if !ok {
		return nil, nil
	}
	auth, err := s.GetAuthorisation(ctx, instanceID, authID)
	if err != nil || auth == nil || auth.ScaStatus.IsFinalised() {
		return nil, err
	}
	consentID := id.ConsentID(auth.ParentID)
	if lapsed := redirectLapsed(auth, requestcontext.Now(ctx)); lapsed != nil {
		if _, err := s.closeExpired(ctx, instanceID, consentID, auth.ID, s.machine.ExpireRedirect); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "authorisation failed on expired redirect",
			"consent_id", consentID.String(),
			"authorisation_id", auth.ID.String(),
			"instance_id", instanceID.String(),
		)
		return nil, lapsed
	}
	c, err := s.Get(ctx, instanceID, consentID)
	if err != nil || c == nil {
		return nil, err
	}
	return &RedirectResult{
		Consent:           c,
		Authorisation:     auth,
		TppOKRedirectURI:  auth.TppOKRedirectURI,
		TppNOKRedirectURI: auth.TppNOKRedirectURI,
	}, nil
}

// redirectLapsed returns the expiry error for a PSU arriving too late, or nil.
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
	if err != nil || target.ParentType != scamodels.ParentConsent {
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

// loadPair loads the consent and one of its authorisations. auth is nil when
// either is unknown.
func (s *Service) loadPair(ctx context.Context, stores Stores, instanceID id.InstanceID, consentID id.ConsentID, authID id.AuthorisationID) (*models.Consent, *scamodels.Authorisation, error) {
	c, err := loadConsent(ctx, stores.Consents, instanceID, consentID)
	if err != nil || c == nil {
		return nil, nil, err
	}
	auth, err := loadAuthorisation(ctx, stores.Authorisations, instanceID, consentID, authID)
	if err != nil || auth == nil {
		return nil, nil, err
	}
	return c, auth, nil
}

func (s *Service) findAuthorisation(ctx context.Context, store AuthorisationStore, instanceID id.InstanceID, authID id.AuthorisationID) (*scamodels.Authorisation, error) {
	auth, err := store.FindByID(ctx, instanceID, authID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load authorisation")
	}
	return auth, nil
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
