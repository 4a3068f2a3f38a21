package models

import (
	"encoding/json"
	"slices"
	"time"

	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
)

// Payment is a payment initiation tracked by the CMS.
//
// While the status is RCVD or PATC it is a cache of the aggregate of the
// CREATION authorisations. A FINALISED CANCELLATION authorisation moves it
// to CANC. Every other change is set by the ASPSP.
type Payment struct {
	ID                    id.PaymentID
	InstanceID            id.InstanceID
	TppID                 string
	PaymentProduct        string
	PaymentType           PaymentType
	Status                TransactionStatus
	PsuDataList           []scamodels.PsuIdData
	MultilevelScaRequired bool
	TppOKRedirectURI      string
	TppNOKRedirectURI     string
	// Payload is the payment initiation itself, kept opaque.
	Payload         json.RawMessage
	StatusChangedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
}

// NewPayment creates a payment in RCVD status with domain invariant checks.
func NewPayment(paymentID id.PaymentID, instanceID id.InstanceID, tppID, product string, paymentType PaymentType, now time.Time) (*Payment, error) {
	if paymentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment ID required")
	}
	if tppID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "TPP ID required")
	}
	if product == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment product required")
	}
	if instanceID == "" {
		instanceID = id.DefaultInstanceID
	}
	return &Payment{
		ID:              paymentID,
		InstanceID:      instanceID,
		TppID:           tppID,
		PaymentProduct:  product,
		PaymentType:     paymentType,
		Status:          StatusReceived,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// SetStatus records a status change and the time it happened.
func (p *Payment) SetStatus(status TransactionStatus, now time.Time) {
	if p.Status == status {
		return
	}
	p.Status = status
	p.StatusChangedAt = now
	p.UpdatedAt = now
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	cp := *p
	cp.PsuDataList = slices.Clone(p.PsuDataList)
	cp.Payload = slices.Clone(p.Payload)
	return &cp
}

// HasPsu reports whether psu is one of the payment's PSUs.
func (p *Payment) HasPsu(psu scamodels.PsuIdData) bool {
	return scamodels.ContainsPsu(p.PsuDataList, psu)
}
