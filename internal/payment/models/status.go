package models

import (
	"strings"

	dErrors "xs2acms/pkg/domain-errors"
)

// TransactionStatus is the ISO 20022 status of a payment as used by the Berlin Group.
type TransactionStatus string

const (
	StatusReceived                TransactionStatus = "RCVD"
	StatusPending                 TransactionStatus = "PDNG"
	StatusPartiallyAccepted       TransactionStatus = "PATC"
	StatusAcceptedTechnical       TransactionStatus = "ACTC"
	StatusAcceptedFundsChecked    TransactionStatus = "ACFC"
	StatusAcceptedCustomerProfile TransactionStatus = "ACCP"
	StatusAcceptedWithChange      TransactionStatus = "ACWC"
	StatusAcceptedWithoutPosting  TransactionStatus = "ACWP"
	StatusAcceptedSettlementInPrc TransactionStatus = "ACSP"
	StatusAcceptedSettlementDone  TransactionStatus = "ACSC"
	StatusAcceptedCreditSettled   TransactionStatus = "ACCC"
	StatusPartiallyAcceptedBulk   TransactionStatus = "PART"
	StatusRejected                TransactionStatus = "RJCT"
	StatusCancelled               TransactionStatus = "CANC"
)

var validStatuses = map[TransactionStatus]bool{
	StatusReceived:                true,
	StatusPending:                 true,
	StatusPartiallyAccepted:       true,
	StatusAcceptedTechnical:       true,
	StatusAcceptedFundsChecked:    true,
	StatusAcceptedCustomerProfile: true,
	StatusAcceptedWithChange:      true,
	StatusAcceptedWithoutPosting:  true,
	StatusAcceptedSettlementInPrc: true,
	StatusAcceptedSettlementDone:  true,
	StatusAcceptedCreditSettled:   true,
	StatusPartiallyAcceptedBulk:   true,
	StatusRejected:                true,
	StatusCancelled:               true,
}

// ParseStatus accepts any casing; output is always the canonical uppercase code.
func ParseStatus(s string) (TransactionStatus, error) {
	status := TransactionStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown transaction status: "+s)
	}
	return status, nil
}

func (s TransactionStatus) IsValid() bool {
	return validStatuses[s]
}

// IsFinalised reports whether no further status change is allowed.
func (s TransactionStatus) IsFinalised() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusAcceptedSettlementDone, StatusAcceptedCreditSettled:
		return true
	default:
		return false
	}
}

// AwaitsAuthorisation reports whether creation SCA still decides the status.
func (s TransactionStatus) AwaitsAuthorisation() bool {
	return s == StatusReceived || s == StatusPartiallyAccepted
}

func (s TransactionStatus) String() string { return string(s) }

// PaymentType is the shape of a payment initiation.
type PaymentType string

const (
	PaymentTypeSingle   PaymentType = "SINGLE"
	PaymentTypePeriodic PaymentType = "PERIODIC"
	PaymentTypeBulk     PaymentType = "BULK"
)

func ParsePaymentType(s string) (PaymentType, error) {
	t := PaymentType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case PaymentTypeSingle, PaymentTypePeriodic, PaymentTypeBulk:
		return t, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown payment type: "+s)
	}
}
