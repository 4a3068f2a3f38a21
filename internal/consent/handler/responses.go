package handler

import (
	"encoding/json"
	"time"

	"xs2acms/internal/consent/models"
	"xs2acms/internal/consent/service"
	scamodels "xs2acms/internal/sca/models"
)

type ConsentResponse struct {
	ConsentID                string                `json:"consentId"`
	TppID                    string                `json:"tppId"`
	ConsentType              string                `json:"consentType"`
	ConsentStatus            string                `json:"consentStatus"`
	PsuData                  []scamodels.PsuIdData `json:"psuData"`
	Access                   models.AccountAccess  `json:"access"`
	AspspAccess              *models.AccountAccess `json:"aspspAccess,omitempty"`
	ValidUntil               time.Time             `json:"validUntil"`
	FrequencyPerDay          int                   `json:"frequencyPerDay"`
	RecurringIndicator       bool                  `json:"recurringIndicator"`
	CombinedServiceIndicator bool                  `json:"combinedServiceIndicator"`
	MultilevelScaRequired    bool                  `json:"multilevelScaRequired"`
	LastActionDate           *time.Time            `json:"lastActionDate,omitempty"`
	StatusChangedAt          time.Time             `json:"statusChangeTimestamp"`
	CreatedAt                time.Time             `json:"creationTimestamp"`
	Payload                  json.RawMessage       `json:"payload,omitempty"`
}

func toConsentResponse(c *models.Consent) ConsentResponse {
	psus := c.PsuDataList
	if psus == nil {
		psus = []scamodels.PsuIdData{}
	}
	return ConsentResponse{
		ConsentID:                c.ID.String(),
		TppID:                    c.TppID,
		ConsentType:              string(c.ConsentType),
		ConsentStatus:            c.Status.String(),
		PsuData:                  psus,
		Access:                   c.TppAccess,
		AspspAccess:              c.AspspAccess,
		ValidUntil:               c.ValidUntil,
		FrequencyPerDay:          c.FrequencyPerDay,
		RecurringIndicator:       c.RecurringIndicator,
		CombinedServiceIndicator: c.CombinedServiceIndicator,
		MultilevelScaRequired:    c.MultilevelScaRequired,
		LastActionDate:           c.LastActionDate,
		StatusChangedAt:          c.StatusChangedAt,
		CreatedAt:                c.CreatedAt,
		Payload:                  c.Payload,
	}
}

func toConsentResponses(consents []*models.Consent) []ConsentResponse {
	out := make([]ConsentResponse, 0, len(consents))
	for _, c := range consents {
		out = append(out, toConsentResponse(c))
	}
	return out
}

type AuthorisationResponse struct {
	AuthorisationID      string                `json:"authorisationId"`
	ParentID             string                `json:"parentId"`
	Type                 string                `json:"authorisationType"`
	ScaStatus            string                `json:"scaStatus"`
	ScaApproach          string                `json:"scaApproach,omitempty"`
	PsuData              *scamodels.PsuIdData  `json:"psuData,omitempty"`
	ChosenMethodID       string                `json:"chosenScaMethod,omitempty"`
	AvailableMethods     []scamodels.ScaMethod `json:"availableScaMethods,omitempty"`
	RedirectURLExpiresAt *time.Time            `json:"redirectUrlExpirationTimestamp,omitempty"`
	ExpiresAt            *time.Time            `json:"authorisationExpirationTimestamp,omitempty"`
}

func toAuthorisationResponse(a *scamodels.Authorisation) AuthorisationResponse {
	return AuthorisationResponse{
		AuthorisationID:      a.ID.String(),
		ParentID:             a.ParentID.String(),
		Type:                 string(a.Type),
		ScaStatus:            a.ScaStatus.String(),
		ScaApproach:          string(a.ScaApproach),
		PsuData:              a.PsuData,
		ChosenMethodID:       a.ChosenMethodID,
		AvailableMethods:     a.AvailableMethods,
		RedirectURLExpiresAt: a.RedirectURLExpiresAt,
		ExpiresAt:            a.ExpiresAt,
	}
}

type CreateAuthorisationResponse struct {
	AuthorisationID string `json:"authorisationId"`
	RedirectID      string `json:"redirectId"`
	ScaStatus       string `json:"scaStatus"`
}

type RedirectResponse struct {
	Consent           ConsentResponse       `json:"consent"`
	Authorisation     AuthorisationResponse `json:"authorisation"`
	TppOkRedirectURI  string                `json:"tppOkRedirectUri,omitempty"`
	TppNokRedirectURI string                `json:"tppNokRedirectUri,omitempty"`
}

func toRedirectResponse(r *service.RedirectResult) RedirectResponse {
	return RedirectResponse{
		Consent:           toConsentResponse(r.Consent),
		Authorisation:     toAuthorisationResponse(r.Authorisation),
		TppOkRedirectURI:  r.TppOKRedirectURI,
		TppNokRedirectURI: r.TppNOKRedirectURI,
	}
}

type ScaStatusResponse struct {
	ScaStatus string `json:"scaStatus"`
}

type CodeResponse struct {
	CodeCorrect bool   `json:"codeCorrect"`
	ScaStatus   string `json:"scaStatus"`
}

type PsuAuthorisationResponse struct {
	AuthorisationID string              `json:"authorisationId"`
	PsuData         scamodels.PsuIdData `json:"psuData"`
	ScaStatus       string              `json:"scaStatus"`
}

type DecoupledResponse struct {
	Decoupled bool `json:"decoupled"`
}
