// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "xs2acms/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing ConsentID where PaymentID is expected.
type (
	ConsentID       uuid.UUID
	PaymentID       uuid.UUID
	AuthorisationID uuid.UUID
)

// InstanceID partitions all CMS data between ASPSP instances sharing one deployment.
// It is an opaque string and is passed explicitly to every storage call.
type InstanceID string

// DefaultInstanceID is used when a caller does not name an instance.
const DefaultInstanceID InstanceID = "UNDEFINED"

func NewConsentID() ConsentID             { return ConsentID(uuid.New()) }
func NewPaymentID() PaymentID             { return PaymentID(uuid.New()) }
func NewAuthorisationID() AuthorisationID { return AuthorisationID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseConsentID(s string) (ConsentID, error) {
	id, err := parseUUID(s, "consent ID")
	return ConsentID(id), err
}

func ParsePaymentID(s string) (PaymentID, error) {
	id, err := parseUUID(s, "payment ID")
	return PaymentID(id), err
}

func ParseAuthorisationID(s string) (AuthorisationID, error) {
	id, err := parseUUID(s, "authorisation ID")
	return AuthorisationID(id), err
}

// ParseInstanceID falls back to DefaultInstanceID for blank input.
func ParseInstanceID(s string) InstanceID {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultInstanceID
	}
	return InstanceID(s)
}

// String methods - for logging and debugging.

func (id ConsentID) String() string       { return uuid.UUID(id).String() }
func (id PaymentID) String() string       { return uuid.UUID(id).String() }
func (id AuthorisationID) String() string { return uuid.UUID(id).String() }
func (id InstanceID) String() string      { return string(id) }

// IsNil checks - used for service-layer validation.

func (id ConsentID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id AuthorisationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}
