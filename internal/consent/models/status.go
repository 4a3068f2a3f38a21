package models

import (
	"strings"

	dErrors "xs2acms/pkg/domain-errors"
)

// Status represents the lifecycle state of a consent.
type Status string

const (
	StatusReceived            Status = "RECEIVED"
	StatusRejected            Status = "REJECTED"
	StatusValid               Status = "VALID"
	StatusRevokedByPsu        Status = "REVOKED_BY_PSU"
	StatusExpired             Status = "EXPIRED"
	StatusTerminatedByTpp     Status = "TERMINATED_BY_TPP"
	StatusTerminatedByAspsp   Status = "TERMINATED_BY_ASPSP"
	StatusPartiallyAuthorised Status = "PARTIALLY_AUTHORISED"
)

// ValidStatuses is the single source of truth for consent status values.
var ValidStatuses = map[Status]bool{
	StatusReceived:            true,
	StatusRejected:            true,
	StatusValid:               true,
	StatusRevokedByPsu:        true,
	StatusExpired:             true,
	StatusTerminatedByTpp:     true,
	StatusTerminatedByAspsp:   true,
	StatusPartiallyAuthorised: true,
}

// ParseStatus accepts any casing; output is always the canonical uppercase value.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown consent status: "+s)
	}
	return status, nil
}

func (s Status) IsValid() bool {
	return ValidStatuses[s]
}

// IsFinalised reports whether the status is terminal.
func (s Status) IsFinalised() bool {
	switch s {
	case StatusRejected, StatusRevokedByPsu, StatusExpired, StatusTerminatedByTpp, StatusTerminatedByAspsp:
		return true
	default:
		return false
	}
}

// IsActivating reports whether reaching s locks the consent's immutable fields.
func (s Status) IsActivating() bool {
	return s == StatusValid || s == StatusPartiallyAuthorised
}

func (s Status) String() string { return string(s) }

// ConsentType is the product family a consent belongs to.
type ConsentType string

const (
	ConsentTypeAIS               ConsentType = "AIS"
	ConsentTypePIIS              ConsentType = "PIIS"
	ConsentTypeFundsConfirmation ConsentType = "FUNDS_CONFIRMATION"
)

func ParseConsentType(s string) (ConsentType, error) {
	t := ConsentType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case ConsentTypeAIS, ConsentTypePIIS, ConsentTypeFundsConfirmation:
		return t, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown consent type: "+s)
	}
}
