package handler

import (
	"encoding/json"
	"strings"

	"xs2acms/internal/payment/models"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/platform/validation"
)

// CreatePaymentRequest is the payment initiation as forwarded by the XS2A interface.
type CreatePaymentRequest struct {
	TppID                 string                `json:"tppId" validate:"required,notblank"`
	PaymentProduct        string                `json:"paymentProduct" validate:"required,notblank"`
	PaymentType           string                `json:"paymentType" validate:"required,oneof=SINGLE PERIODIC BULK"`
	PsuData               []scamodels.PsuIdData `json:"psuData,omitempty"`
	MultilevelScaRequired bool                  `json:"multilevelScaRequired"`
	TppRedirectURI        string                `json:"tppRedirectUri,omitempty" validate:"omitempty,url"`
	TppNokRedirectURI     string                `json:"tppNokRedirectUri,omitempty" validate:"omitempty,url"`
	Payload               json.RawMessage       `json:"payload,omitempty"`
}

func (r *CreatePaymentRequest) Normalize() {
	r.TppID = strings.TrimSpace(r.TppID)
	r.PaymentProduct = strings.TrimSpace(r.PaymentProduct)
	r.PaymentType = strings.ToUpper(strings.TrimSpace(r.PaymentType))
}

func (r *CreatePaymentRequest) Validate() error {
	if err := validation.CheckAll(
		validation.CheckStringLength("tppId", r.TppID, validation.MaxTppIDLength),
		validation.CheckStringLength("paymentProduct", r.PaymentProduct, validation.MaxPaymentProductLength),
		validation.CheckSliceCount("psuData", len(r.PsuData), validation.MaxPsuDataEntries),
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

func (r *CreatePaymentRequest) toModel(instanceID id.InstanceID) models.CreateRequest {
	return models.CreateRequest{
		InstanceID:            instanceID,
		TppID:                 r.TppID,
		PaymentProduct:        r.PaymentProduct,
		PaymentType:           models.PaymentType(r.PaymentType),
		PsuDataList:           r.PsuData,
		MultilevelScaRequired: r.MultilevelScaRequired,
		TppOKRedirectURI:      r.TppRedirectURI,
		TppNOKRedirectURI:     r.TppNokRedirectURI,
		Payload:               r.Payload,
	}
}

// CreateAuthorisationRequest starts an initiation or cancellation SCA.
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

type ConfirmationCodeRequest struct {
	Code string `json:"code" validate:"required,notblank"`
}

func (r *ConfirmationCodeRequest) Validate() error {
	return validation.CheckStringLength("code", r.Code, validation.MaxConfirmationCodeLength)
}
