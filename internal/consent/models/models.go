package models

import (
	"encoding/json"
	"slices"
	"time"

	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
)

// AccountReference identifies one account, card or phone-linked account.
type AccountReference struct {
	IBAN      string `json:"iban,omitempty"`
	BBAN      string `json:"bban,omitempty"`
	PAN       string `json:"pan,omitempty"`
	MaskedPAN string `json:"maskedPan,omitempty"`
	MSISDN    string `json:"msisdn,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// Key orders references deterministically for checksum computation.
func (r AccountReference) Key() string {
	return r.IBAN + "|" + r.BBAN + "|" + r.PAN + "|" + r.MaskedPAN + "|" + r.MSISDN + "|" + r.Currency
}

// AccountAccess lists the accounts a consent grants access to, per access kind.
type AccountAccess struct {
	Accounts                     []AccountReference `json:"accounts,omitempty"`
	Balances                     []AccountReference `json:"balances,omitempty"`
	Transactions                 []AccountReference `json:"transactions,omitempty"`
	AvailableAccounts            string             `json:"availableAccounts,omitempty"`
	AvailableAccountsWithBalance string             `json:"availableAccountsWithBalance,omitempty"`
	AllPsd2                      string             `json:"allPsd2,omitempty"`
}

// IsEmpty reports whether no access of any kind is granted.
func (a AccountAccess) IsEmpty() bool {
	return len(a.Accounts) == 0 && len(a.Balances) == 0 && len(a.Transactions) == 0 &&
		a.AvailableAccounts == "" && a.AvailableAccountsWithBalance == "" && a.AllPsd2 == ""
}

func (a AccountAccess) Clone() AccountAccess {
	cp := a
	cp.Accounts = slices.Clone(a.Accounts)
	cp.Balances = slices.Clone(a.Balances)
	cp.Transactions = slices.Clone(a.Transactions)
	return cp
}

// Consent is an AIS, PIIS or funds-confirmation consent.
//
// Status is a cache of the aggregate computed from the consent's authorisations,
// except for REJECTED, REVOKED_BY_PSU and TERMINATED_*, which callers set directly.
// Once ActivatedAt is set the fields covered by Checksum may no longer change.
type Consent struct {
	ID                       id.ConsentID
	InstanceID               id.InstanceID
	TppID                    string
	ConsentType              ConsentType
	Status                   Status
	PsuDataList              []scamodels.PsuIdData
	TppAccess                AccountAccess
	AspspAccess              *AccountAccess
	ValidUntil               time.Time
	FrequencyPerDay          int
	RecurringIndicator       bool
	CombinedServiceIndicator bool
	MultilevelScaRequired    bool
	TppOKRedirectURI         string
	TppNOKRedirectURI        string
	// Payload is the product-specific part of the consent, kept opaque.
	Payload         json.RawMessage
	Checksum        string
	ActivatedAt     *time.Time
	StatusChangedAt time.Time
	LastActionDate  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
}

// NewConsent creates a consent in RECEIVED status with domain invariant checks.
func NewConsent(consentID id.ConsentID, instanceID id.InstanceID, tppID string, consentType ConsentType, validUntil time.Time, now time.Time) (*Consent, error) {
	if consentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent ID required")
	}
	if tppID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "TPP ID required")
	}
	if validUntil.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "validUntil required")
	}
	if instanceID == "" {
		instanceID = id.DefaultInstanceID
	}
	return &Consent{
		ID:              consentID,
		InstanceID:      instanceID,
		TppID:           tppID,
		ConsentType:     consentType,
		Status:          StatusReceived,
		ValidUntil:      validUntil,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// SetStatus records a status change and the time it happened.
func (c *Consent) SetStatus(status Status, now time.Time) {
	if c.Status == status {
		return
	}
	c.Status = status
	c.StatusChangedAt = now
	c.UpdatedAt = now
	day := now.UTC().Truncate(24 * time.Hour)
	c.LastActionDate = &day
}

// IsActivated reports whether the consent has ever reached VALID or PARTIALLY_AUTHORISED.
func (c *Consent) IsActivated() bool {
	return c.ActivatedAt != nil
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (c *Consent) Clone() *Consent {
	if c == nil {
		return nil
	}
	cp := *c
	cp.PsuDataList = slices.Clone(c.PsuDataList)
	cp.TppAccess = c.TppAccess.Clone()
	if c.AspspAccess != nil {
		access := c.AspspAccess.Clone()
		cp.AspspAccess = &access
	}
	cp.Payload = slices.Clone(c.Payload)
	if c.ActivatedAt != nil {
		t := *c.ActivatedAt
		cp.ActivatedAt = &t
	}
	if c.LastActionDate != nil {
		t := *c.LastActionDate
		cp.LastActionDate = &t
	}
	return &cp
}

// HasPsu reports whether psu is one of the consent's PSUs.
func (c *Consent) HasPsu(psu scamodels.PsuIdData) bool {
	return scamodels.ContainsPsu(c.PsuDataList, psu)
}
