package main

import (
	"context"

	"github.com/google/uuid"

	consentservice "xs2acms/internal/consent/service"
	paymentservice "xs2acms/internal/payment/service"
	"xs2acms/internal/sca/decoupled"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
)

// consentDecoupledAdapter lets decoupled notifications drive the consent manager.
type consentDecoupledAdapter struct {
	svc *consentservice.Service
}

func (a consentDecoupledAdapter) UpdateAuthorisationStatus(ctx context.Context, instanceID id.InstanceID, parentID uuid.UUID, authID id.AuthorisationID, status scamodels.ScaStatus) (bool, error) {
	return a.svc.UpdateAuthorisationStatus(ctx, instanceID, id.ConsentID(parentID), authID, status, nil)
}

func (a consentDecoupledAdapter) ConfirmAuthorisationCode(ctx context.Context, instanceID id.InstanceID, parentID uuid.UUID, authID id.AuthorisationID, code string) (bool, error) {
	res, err := a.svc.ConfirmAuthorisationCode(ctx, instanceID, id.ConsentID(parentID), authID, code)
	if err != nil {
		return false, err
	}
	return res != nil, nil
}

// paymentDecoupledAdapter lets decoupled notifications drive the payment manager.
type paymentDecoupledAdapter struct {
	svc *paymentservice.Service
}

func (a paymentDecoupledAdapter) UpdateAuthorisationStatus(ctx context.Context, instanceID id.InstanceID, parentID uuid.UUID, authID id.AuthorisationID, status scamodels.ScaStatus) (bool, error) {
	return a.svc.UpdateAuthorisationStatus(ctx, instanceID, id.PaymentID(parentID), authID, status, nil)
}

func (a paymentDecoupledAdapter) ConfirmAuthorisationCode(ctx context.Context, instanceID id.InstanceID, parentID uuid.UUID, authID id.AuthorisationID, code string) (bool, error) {
	res, err := a.svc.ConfirmAuthorisationCode(ctx, instanceID, id.PaymentID(parentID), authID, code)
	if err != nil {
		return false, err
	}
	return res != nil, nil
}

var (
	_ decoupled.Manager = consentDecoupledAdapter{}
	_ decoupled.Manager = paymentDecoupledAdapter{}
)
