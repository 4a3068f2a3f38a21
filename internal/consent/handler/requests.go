package handler

import (
	"encoding/json"
	"strings"
	"time"

	"xs2acms/internal/consent/models"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/platform/validation"
)

// CreateConsentRequest is the consent as forwarded by the XS2A interface.
type CreateConsentRequest struct {
	TppID                    string                `json:"tppId" validate:"required,notblank"`
	ConsentType              string                `json:"consentType" validate:"required,oneof=AIS PIIS FUNDS_CONFIRMATION"`
	PsuData                  []scamodels.PsuIdData `json:"psuData,omitempty"`
	Access                   models.AccountAccess  `json:"access"`
	ValidUntil               time.Time             `json:"validUntil" validate:"required"`
	FrequencyPerDay          int                   `json:"frequencyPerDay" validate:"min=0"`
	RecurringIndicator       bool                  `json:"recurringIndicator"`
	CombinedServiceIndicator bool                  `json:"combinedServiceIndicator"`
	MultilevelScaRequired    bool                  `json:"multilevelScaRequired"`
	TppRedirectURI           string                `json:"tppRedirectUri,omitempty" validate:"omitempty,url"`
	TppNokRedirectURI        string                `json:"tppNokRedirectUri,omitempty" validate:"omitempty,url"`
	Payload                  json.RawMessage       `json:"payload,omitempty"`
}

func (r *CreateConsentRequest) Normalize() {
	r.TppID = strings.TrimSpace(r.TppID)
	r.ConsentType = strings.ToUpper(strings.TrimSpace(r.ConsentType))
}

func (r *CreateConsentRequest) Validate() error {
	if err := validation.CheckAll(
		validation.CheckStringLength("tppId", r.TppID, validation.MaxTppIDLength),
		validation.CheckSliceCount("psuData", len(r.PsuData), validation.MaxPsuDataEntries),
		validation.CheckSliceCount("access.accounts", len(r.Access.Accounts), validation.MaxAccountReferences),
		validation.CheckSliceCount("access.balances", len(r.Access.Balances), validation.MaxAccountReferences),
		validation.CheckSliceCount("access.transactions", len(r.Access.Transactions), validation.MaxAccountReferences),
	); err != nil {
		return err
	}
	for _, p := range r.PsuData {
		if err := validation.CheckStringLength("psuId", p.PsuID, validation.MaxPsuIDLength); err != nil {
			return err
		}
		if p.IsEmpty() {
			return dErrors.New(dErrors.CodeValidation, "psuData entries must carry a psuId")
		}
	}
	return nil
}

func (r *CreateConsentRequest) toModel(instanceID id.InstanceID) models.CreateRequest {
	return models.CreateRequest{
		InstanceID:               instanceID,
		TppID:                    r.TppID,
		ConsentType:              models.ConsentType(r.ConsentType),
		PsuDataList:              r.PsuData,
		Access:                   r.Access,
		ValidUntil:               r.ValidUntil,
		FrequencyPerDay:          r.FrequencyPerDay,
		RecurringIndicator:       r.RecurringIndicator,
		CombinedServiceIndicator: r.CombinedServiceIndicator,
		MultilevelScaRequired:    r.MultilevelScaRequired,
		TppOKRedirectURI:         r.TppRedirectURI,
		TppNOKRedirectURI:        r.TppNokRedirectURI,
		Payload:                  r.Payload,
	}
}

// CreateAuthorisationRequest starts an SCA on a consent.
type CreateAuthorisationRequest struct {
	PsuData           *scamodels.PsuIdData `json:"psuData,omitempty"`
	ScaApproach       string               `json:"scaApproach,omitempty" validate:"omitempty,oneof=REDIRECT DECOUPLED EMBEDDED"`
	ScaStatus         string               `json:"scaStatus,omitempty"`
	TppRedirectURI    string               `json:"tppRedirectUri,omitempty" validate:"omitempty,url"`
	TppNokRedirectURI string               `json:"tppNokRedirectUri,omitempty" validate:"omitempty,url"`
}

func (r *CreateAuthorisationRequest) Normalize() {
	r.ScaApproach = strings.ToUpper(strings.TrimSpace(r.ScaApproach))
	r.ScaStatus = strings.ToUpper(strings.TrimSpace(r.ScaStatus))
}

func (r *CreateAuthorisationRequest) Validate() error {
	if r.ScaStatus == "" {
		return nil
	}
	_, err := scamodels.ParseScaStatus(r.ScaStatus)
	return err
}

// ConfirmationCodeRequest carries the code the PSU typed.
type ConfirmationCodeRequest struct {
	Code string `json:"code" validate:"required,notblank"`
}

func (r *ConfirmationCodeRequest) Validate() error {
	return validation.CheckStringLength("code", r.Code, validation.MaxConfirmationCodeLength)
}

// AuthenticationMethodsRequest replaces the SCA methods offered to the PSU.
type AuthenticationMethodsRequest struct {
	Methods []scamodels.ScaMethod `json:"methods" validate:"required,min=1,dive"`
}

func (r *AuthenticationMethodsRequest) Validate() error {
	if err := validation.CheckSliceCount("methods", len(r.Methods), validation.MaxAuthenticationMethods); err != nil {
		return err
	}
	for _, m := range r.Methods {
		if strings.TrimSpace(m.AuthenticationMethodID) == "" {
			return dErrors.New(dErrors.CodeValidation, "authenticationMethodId is required")
		}
	}
	return nil
}
