package handler

import (
	"encoding/json"
	"time"

	"xs2acms/internal/payment/models"
	"xs2acms/internal/payment/service"
	scamodels "xs2acms/internal/sca/models"
)

type PaymentResponse struct {
	PaymentID             string                `json:"paymentId"`
	TppID                 string                `json:"tppId"`
	PaymentProduct        string                `json:"paymentProduct"`
	PaymentType           string                `json:"paymentType"`
	TransactionStatus     string                `json:"transactionStatus"`
	PsuData               []scamodels.PsuIdData `json:"psuData"`
	MultilevelScaRequired bool                  `json:"multilevelScaRequired"`
	StatusChangedAt       time.Time             `json:"statusChangeTimestamp"`
	CreatedAt             time.Time             `json:"creationTimestamp"`
	Payload               json.RawMessage       `json:"payload,omitempty"`
}

func toPaymentResponse(p *models.Payment) PaymentResponse {
	psus := p.PsuDataList
	if psus == nil {
		psus = []scamodels.PsuIdData{}
	}
	return PaymentResponse{
		PaymentID:             p.ID.String(),
		TppID:                 p.TppID,
		PaymentProduct:        p.PaymentProduct,
		PaymentType:           string(p.PaymentType),
		TransactionStatus:     p.Status.String(),
		PsuData:               psus,
		MultilevelScaRequired: p.MultilevelScaRequired,
		StatusChangedAt:       p.StatusChangedAt,
		CreatedAt:             p.CreatedAt,
		Payload:               p.Payload,
	}
}

type AuthorisationResponse struct {
	AuthorisationID      string               `json:"authorisationId"`
	PaymentID            string               `json:"paymentId"`
	Type                 string               `json:"authorisationType"`
	ScaStatus            string               `json:"scaStatus"`
	ScaApproach          string               `json:"scaApproach,omitempty"`
	PsuData              *scamodels.PsuIdData `json:"psuData,omitempty"`
	RedirectURLExpiresAt *time.Time           `json:"redirectUrlExpirationTimestamp,omitempty"`
	ExpiresAt            *time.Time           `json:"authorisationExpirationTimestamp,omitempty"`
}

func toAuthorisationResponse(a *scamodels.Authorisation) AuthorisationResponse {
	return AuthorisationResponse{
		AuthorisationID:      a.ID.String(),
		PaymentID:            a.ParentID.String(),
		Type:                 string(a.Type),
		ScaStatus:            a.ScaStatus.String(),
		ScaApproach:          string(a.ScaApproach),
		PsuData:              a.PsuData,
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
	Payment           PaymentResponse       `json:"payment"`
	Authorisation     AuthorisationResponse `json:"authorisation"`
	TppOkRedirectURI  string                `json:"tppOkRedirectUri,omitempty"`
	TppNokRedirectURI string                `json:"tppNokRedirectUri,omitempty"`
}

func toRedirectResponse(r *service.RedirectResult) RedirectResponse {
	return RedirectResponse{
		Payment:           toPaymentResponse(r.Payment),
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
