package models

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	id "xs2acms/pkg/domain"
)

// PsuIdData identifies a payment service user (and, for corporates, the company).
type PsuIdData struct {
	PsuID              string `json:"psuId,omitempty"`
	PsuIDType          string `json:"psuIdType,omitempty"`
	PsuCorporateID     string `json:"psuCorporateId,omitempty"`
	PsuCorporateIDType string `json:"psuCorporateIdType,omitempty"`
}

func (p PsuIdData) IsEmpty() bool {
	return strings.TrimSpace(p.PsuID) == "" && strings.TrimSpace(p.PsuCorporateID) == ""
}

// Key identifies a PSU independently of the optional type qualifiers.
func (p PsuIdData) Key() string {
	return p.PsuID + "\x00" + p.PsuCorporateID
}

// SamePsu compares the identifying fields only.
func (p PsuIdData) SamePsu(other PsuIdData) bool {
	return p.Key() == other.Key()
}

// ContainsPsu reports whether list holds a PSU matching p.
func ContainsPsu(list []PsuIdData, p PsuIdData) bool {
	return slices.ContainsFunc(list, p.SamePsu)
}

// SamePsuList reports whether a and b name the same set of PSUs.
func SamePsuList(a, b []PsuIdData) bool {
	if len(a) != len(b) {
		return false
	}
	for _, p := range a {
		if !ContainsPsu(b, p) {
			return false
		}
	}
	return true
}

// ScaMethod is an authentication method offered to the PSU by the ASPSP.
type ScaMethod struct {
	AuthenticationMethodID string `json:"authenticationMethodId"`
	AuthenticationType     string `json:"authenticationType,omitempty"`
	Decoupled              bool   `json:"decoupled"`
}

// AuthenticationData is the chosen SCA method plus the one-time code, kept as a bcrypt hash.
// It is attached once, at SCAMETHODSELECTED or STARTED.
type AuthenticationData struct {
	MethodID string `json:"methodId"`
	CodeHash []byte `json:"codeHash,omitempty"`
}

// AuthenticationInput is the plaintext form supplied by the bank adapter.
type AuthenticationInput struct {
	MethodID string
	Code     string
}

// Authorisation is one SCA attempt by one PSU against a consent or payment.
type Authorisation struct {
	ID                   id.AuthorisationID
	InstanceID           id.InstanceID
	ParentID             uuid.UUID
	ParentType           ParentType
	Type                 AuthorisationType
	PsuData              *PsuIdData
	ScaStatus            ScaStatus
	ScaApproach          ScaApproach
	RedirectURLExpiresAt *time.Time
	ExpiresAt            *time.Time
	TppOKRedirectURI     string
	TppNOKRedirectURI    string
	ChosenMethodID       string
	AvailableMethods     []ScaMethod
	AuthenticationData   *AuthenticationData
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Version              int64
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (a *Authorisation) Clone() *Authorisation {
	if a == nil {
		return nil
	}
	cp := *a
	if a.PsuData != nil {
		psu := *a.PsuData
		cp.PsuData = &psu
	}
	cp.RedirectURLExpiresAt = clonePtr(a.RedirectURLExpiresAt)
	cp.ExpiresAt = clonePtr(a.ExpiresAt)
	cp.AvailableMethods = slices.Clone(a.AvailableMethods)
	if a.AuthenticationData != nil {
		data := *a.AuthenticationData
		data.CodeHash = slices.Clone(a.AuthenticationData.CodeHash)
		cp.AuthenticationData = &data
	}
	return &cp
}

// BelongsTo reports whether the authorisation hangs off the given parent.
func (a *Authorisation) BelongsTo(parentType ParentType, parentID uuid.UUID) bool {
	return a.ParentType == parentType && a.ParentID == parentID
}

// IsDecoupled reports whether the chosen SCA method is a decoupled one.
func (a *Authorisation) IsDecoupled() bool {
	if a.ScaApproach == ScaApproachDecoupled {
		return true
	}
	for _, m := range a.AvailableMethods {
		if m.AuthenticationMethodID == a.ChosenMethodID {
			return m.Decoupled
		}
	}
	return false
}

func clonePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
