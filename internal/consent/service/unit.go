package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"xs2acms/internal/consent/checksum"
	"xs2acms/internal/consent/models"
	"xs2acms/internal/platform/tracer"
	"xs2acms/internal/sca/expiry"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/platform/sentinel"
)

// unitOfWork is one attempt at load → decide → persist. It may be run twice.
type unitOfWork func(ctx context.Context, stores Stores, fx *effects) error

// runInTx runs fn inside the transaction boundary for key. A version conflict
// retries the whole unit once; a second conflict is CodeConcurrentModification.
// Side effects are flushed only after a successful commit.
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
	return dErrors.Wrap(err, dErrors.CodeConcurrentModification, "consent was modified concurrently")
}

// loadConsent returns nil, nil for an unknown consent.
func loadConsent(ctx context.Context, store Store, instanceID id.InstanceID, consentID id.ConsentID) (*models.Consent, error) {
	c, err := store.FindByID(ctx, instanceID, consentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consent")
	}
	return c, nil
}

// loadAuthorisation returns nil, nil for an unknown authorisation or one that
// belongs to a different consent.
func loadAuthorisation(ctx context.Context, store AuthorisationStore, instanceID id.InstanceID, consentID id.ConsentID, authID id.AuthorisationID) (*scamodels.Authorisation, error) {
	auth, err := store.FindByID(ctx, instanceID, authID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load authorisation")
	}
	if !auth.BelongsTo(scamodels.ParentConsent, uuid.UUID(consentID)) {
		return nil, nil
	}
	return auth, nil
}

func listAuthorisations(ctx context.Context, store AuthorisationStore, c *models.Consent) ([]*scamodels.Authorisation, error) {
	auths, err := store.ListByParent(ctx, c.InstanceID, scamodels.ParentConsent, uuid.UUID(c.ID))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list authorisations")
	}
	return auths, nil
}

// sealChecksum prepares c for a write. An activated consent must still
// match its checksum snapshot; before activation the checksum follows the fields.
func sealChecksum(c *models.Consent) error {
	if checksum.Enforced(c) {
		return checksum.Verify(c, c.Checksum)
	}
	sum, err := checksum.Compute(c)
	if err != nil {
		return err
	}
	c.Checksum = sum
	return nil
}

// verifyAndSave is the only way a consent is written back.
func (s *Service) verifyAndSave(ctx context.Context, store Store, c *models.Consent) error {
	if err := sealChecksum(c); err != nil {
		return err
	}
	return saveConsent(ctx, store, c)
}

func saveConsent(ctx context.Context, store Store, c *models.Consent) error {
	if err := store.Save(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consent")
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

// activate snapshots the checksum the first time the consent becomes usable.
func activate(c *models.Consent, now time.Time) error {
	if c.IsActivated() || !c.Status.IsActivating() {
		return nil
	}
	sum, err := checksum.Compute(c)
	if err != nil {
		return err
	}
	c.Checksum = sum
	c.ActivatedAt = &now
	return nil
}

// expiredStatus reports the status a consent falls into on read, if any:
// EXPIRED once its validity date passed, REJECTED when it stayed RECEIVED
// longer than the not-confirmed window.
func (s *Service) expiredStatus(c *models.Consent, now time.Time) (models.Status, bool) {
	if c.Status.IsFinalised() {
		return "", false
	}
	if expiry.DateExpired(c.ValidUntil, now) {
		return models.StatusExpired, true
	}
	if c.Status == models.StatusReceived && expiry.WindowElapsed(c.CreatedAt, s.notConfirmedExpiration, now) {
		return models.StatusRejected, true
	}
	return "", false
}

// expireOnRead applies expiredStatus to c and persists it. It reports whether
// the consent changed.
func (s *Service) expireOnRead(ctx context.Context, stores Stores, fx *effects, c *models.Consent, now time.Time) (bool, error) {
	status, ok := s.expiredStatus(c, now)
	if !ok {
		return false, nil
	}
	previous := c.Status
	c.SetStatus(status, now)
	if err := s.verifyAndSave(ctx, stores.Consents, c); err != nil {
		return false, err
	}
	fx.consentStatus(c, previous)
	fx.expired(status)
	return true, nil
}

// applyStatus moves c to status, activates it when needed and persists it.
func (s *Service) applyStatus(ctx context.Context, stores Stores, fx *effects, c *models.Consent, status models.Status, now time.Time) error {
	previous := c.Status
	if err := stageStatus(c, status, now); err != nil {
		return err
	}
	return s.persistStatus(ctx, stores, fx, c, previous, now)
}

// stageStatus changes c in memory only, so a checksum mismatch is found
// before anything else of the unit of work is written.
func stageStatus(c *models.Consent, status models.Status, now time.Time) error {
	c.SetStatus(status, now)
	if err := activate(c, now); err != nil {
		return err
	}
	return sealChecksum(c)
}

// persistStatus writes a staged status change. A consent that became VALID
// terminates the TPP's older consents for the same PSUs.
func (s *Service) persistStatus(ctx context.Context, stores Stores, fx *effects, c *models.Consent, previous models.Status, now time.Time) error {
	if c.Status == models.StatusValid {
		if err := s.terminateOldConsents(ctx, stores, fx, c, now); err != nil {
			return err
		}
	}
	if err := saveConsent(ctx, stores.Consents, c); err != nil {
		return err
	}
	fx.consentStatus(c, previous)
	return nil
}

// terminateOldConsents closes the TPP's other recurring consents granted by
// exactly the same PSUs: unfinished ones are REJECTED, VALID ones TERMINATED_BY_TPP.
func (s *Service) terminateOldConsents(ctx context.Context, stores Stores, fx *effects, c *models.Consent, now time.Time) error {
	if !c.RecurringIndicator || len(c.PsuDataList) == 0 {
		return nil
	}
	candidates, err := stores.Consents.ListByTpp(ctx, c.InstanceID, c.TppID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list TPP consents")
	}
	for _, old := range candidates {
		if old.ID == c.ID || old.Status.IsFinalised() || old.ConsentType != c.ConsentType || !old.RecurringIndicator {
			continue
		}
		if !old.CreatedAt.Before(c.CreatedAt) || !scamodels.SamePsuList(old.PsuDataList, c.PsuDataList) {
			continue
		}
		target := models.StatusRejected
		if old.Status == models.StatusValid {
			target = models.StatusTerminatedByTpp
		}
		previous := old.Status
		old.SetStatus(target, now)
		if err := s.verifyAndSave(ctx, stores.Consents, old); err != nil {
			return err
		}
		fx.consentStatus(old, previous)
	}
	return nil
}

// observe opens a span for op and returns the func that closes it, recording
// latency and the code of a refused operation.
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
			code := dErrors.CodeOf(err)
			s.metrics.IncrementRefused(op, string(code))
			if code == dErrors.CodeWrongChecksum {
				s.metrics.IncrementChecksumMismatch()
			}
		}
	}
}

func consentAttrs(instanceID id.InstanceID, consentID id.ConsentID) []tracer.Attribute {
	return []tracer.Attribute{
		tracer.String(tracer.AttrInstanceID, instanceID.String()),
		tracer.String(tracer.AttrConsentID, consentID.String()),
	}
}
