// Package authorisation builds new authorisations and applies the
// bookkeeping rules shared by consents and payments.
package authorisation

import (
	"time"

	"github.com/google/uuid"

	"xs2acms/internal/sca/expiry"
	"xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
)

// Profile carries the ASPSP timing settings that apply to new authorisations.
type Profile struct {
	RedirectURLExpiration             time.Duration
	CancellationRedirectURLExpiration time.Duration
	AuthorisationExpiration           time.Duration
}

// Request describes an authorisation to start.
type Request struct {
	InstanceID        id.InstanceID
	ParentID          uuid.UUID
	ParentType        models.ParentType
	Type              models.AuthorisationType
	PsuData           *models.PsuIdData
	ScaApproach       models.ScaApproach
	ScaStatus         models.ScaStatus
	TppOKRedirectURI  string
	TppNOKRedirectURI string
}

// New builds an authorisation with expiry timestamps taken from the profile.
func New(req Request, profile Profile, now time.Time) *models.Authorisation {
	redirectTTL := profile.RedirectURLExpiration
	if req.Type == models.AuthorisationTypeCancellation && profile.CancellationRedirectURLExpiration > 0 {
		redirectTTL = profile.CancellationRedirectURLExpiration
	}
	status := req.ScaStatus
	if status == "" {
		status = models.ScaStatusReceived
	}
	approach := req.ScaApproach
	if approach == "" {
		approach = models.ScaApproachRedirect
	}

	auth := &models.Authorisation{
		ID:                   id.NewAuthorisationID(),
		InstanceID:           req.InstanceID,
		ParentID:             req.ParentID,
		ParentType:           req.ParentType,
		Type:                 req.Type,
		ScaStatus:            status,
		ScaApproach:          approach,
		RedirectURLExpiresAt: expiry.Deadline(now, redirectTTL),
		ExpiresAt:            expiry.Deadline(now, profile.AuthorisationExpiration),
		TppOKRedirectURI:     req.TppOKRedirectURI,
		TppNOKRedirectURI:    req.TppNOKRedirectURI,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if req.PsuData != nil && !req.PsuData.IsEmpty() {
		psu := *req.PsuData
		auth.PsuData = &psu
	}
	return auth
}

// ClosePrevious fails every open authorisation of the same type started by
// the same PSU, and ends their redirect window. It returns updated copies of
// the authorisations that changed.
func ClosePrevious(existing []*models.Authorisation, authType models.AuthorisationType, psu *models.PsuIdData, now time.Time) []*models.Authorisation {
	if psu == nil || psu.IsEmpty() {
		return nil
	}
	var closed []*models.Authorisation
	for _, a := range existing {
		if a.Type != authType || a.ScaStatus.IsFinalised() {
			continue
		}
		if a.PsuData == nil || !a.PsuData.SamePsu(*psu) {
			continue
		}
		cp := a.Clone()
		cp.ScaStatus = models.ScaStatusFailed
		cp.RedirectURLExpiresAt = &now
		cp.UpdatedAt = now
		closed = append(closed, cp)
	}
	return closed
}

// AssignPsu sets the PSU on an authorisation that has none, or enriches the
// type qualifiers of a matching PSU. It reports false when a different PSU is
// already bound.
func AssignPsu(auth *models.Authorisation, psu models.PsuIdData, now time.Time) (*models.Authorisation, bool) {
	if auth.PsuData != nil && !auth.PsuData.IsEmpty() && !auth.PsuData.SamePsu(psu) {
		return nil, false
	}
	cp := auth.Clone()
	cp.PsuData = &psu
	cp.UpdatedAt = now
	return cp, true
}

// MergePsu adds psu to list unless an entry for the same PSU exists, in which
// case that entry's qualifiers are refreshed.
func MergePsu(list []models.PsuIdData, psu models.PsuIdData) []models.PsuIdData {
	out := make([]models.PsuIdData, 0, len(list)+1)
	found := false
	for _, p := range list {
		if p.SamePsu(psu) {
			out = append(out, psu)
			found = true
			continue
		}
		out = append(out, p)
	}
	if !found {
		out = append(out, psu)
	}
	return out
}

// Replace swaps entries of auths by ID with their updated versions.
func Replace(auths []*models.Authorisation, updated ...*models.Authorisation) []*models.Authorisation {
	out := make([]*models.Authorisation, 0, len(auths))
	for _, a := range auths {
		for _, u := range updated {
			if u.ID == a.ID {
				a = u
				break
			}
		}
		out = append(out, a)
	}
	return out
}
