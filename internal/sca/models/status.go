package models

import (
	"strings"

	dErrors "xs2acms/pkg/domain-errors"
)

// ScaStatus is the Berlin Group status of a single authorisation.
type ScaStatus string

const (
	ScaStatusReceived          ScaStatus = "RECEIVED"
	ScaStatusPsuIdentified     ScaStatus = "PSUIDENTIFIED"
	ScaStatusPsuAuthenticated  ScaStatus = "PSUAUTHENTICATED"
	ScaStatusScaMethodSelected ScaStatus = "SCAMETHODSELECTED"
	ScaStatusStarted           ScaStatus = "STARTED"
	ScaStatusUnconfirmed       ScaStatus = "UNCONFIRMED"
	ScaStatusFinalised         ScaStatus = "FINALISED"
	ScaStatusFailed            ScaStatus = "FAILED"
	ScaStatusExempted          ScaStatus = "EXEMPTED"
)

// scaRank orders the forward path. UNCONFIRMED sits between STARTED and FINALISED.
var scaRank = map[ScaStatus]int{
	ScaStatusReceived:          0,
	ScaStatusPsuIdentified:     1,
	ScaStatusPsuAuthenticated:  2,
	ScaStatusScaMethodSelected: 3,
	ScaStatusStarted:           4,
	ScaStatusUnconfirmed:       5,
	ScaStatusFinalised:         6,
	ScaStatusFailed:            6,
	ScaStatusExempted:          6,
}

// ParseScaStatus accepts any casing and surrounding whitespace.
func ParseScaStatus(s string) (ScaStatus, error) {
	status := ScaStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown SCA status: "+s)
	}
	return status, nil
}

func (s ScaStatus) IsValid() bool {
	_, ok := scaRank[s]
	return ok
}

// IsFinalised reports whether no further transitions are possible.
func (s ScaStatus) IsFinalised() bool {
	return s == ScaStatusFinalised || s == ScaStatusFailed || s == ScaStatusExempted
}

// IsSuccessful reports whether the PSU passed (or was exempted from) SCA.
func (s ScaStatus) IsSuccessful() bool {
	return s == ScaStatusFinalised || s == ScaStatusExempted
}

// Rank returns the position of s on the forward path.
func (s ScaStatus) Rank() int {
	return scaRank[s]
}

func (s ScaStatus) String() string { return string(s) }

// ScaApproach is the SCA flavour chosen for an authorisation.
type ScaApproach string

const (
	ScaApproachRedirect  ScaApproach = "REDIRECT"
	ScaApproachDecoupled ScaApproach = "DECOUPLED"
	ScaApproachEmbedded  ScaApproach = "EMBEDDED"
)

func ParseScaApproach(s string) (ScaApproach, error) {
	approach := ScaApproach(strings.ToUpper(strings.TrimSpace(s)))
	switch approach {
	case ScaApproachRedirect, ScaApproachDecoupled, ScaApproachEmbedded:
		return approach, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown SCA approach: "+s)
	}
}

// AuthorisationType distinguishes initiation from cancellation authorisations.
type AuthorisationType string

const (
	AuthorisationTypeCreation     AuthorisationType = "CREATION"
	AuthorisationTypeCancellation AuthorisationType = "CANCELLATION"
)

func ParseAuthorisationType(s string) (AuthorisationType, error) {
	t := AuthorisationType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case AuthorisationTypeCreation, AuthorisationTypeCancellation:
		return t, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown authorisation type: "+s)
	}
}

// ParentType names the kind of entity an authorisation belongs to.
type ParentType string

const (
	ParentConsent ParentType = "CONSENT"
	ParentPayment ParentType = "PAYMENT"
)
