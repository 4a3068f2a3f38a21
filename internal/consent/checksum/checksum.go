// Package checksum fingerprints the immutable part of a consent.
//
// The checksum has the form "002_<tpp>" or "002_<tpp>_<aspsp>", where each
// part is the base64 SHA-512 of a canonical JSON projection. The TPP part
// covers what the TPP asked for; the ASPSP part covers the accounts the bank
// resolved for that request.
package checksum

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"slices"
	"strings"

	"xs2acms/internal/consent/models"
	dErrors "xs2acms/pkg/domain-errors"
)

const (
	version   = "002"
	separator = "_"
)

type tppProjection struct {
	ConsentType              models.ConsentType   `json:"consentType"`
	Access                   models.AccountAccess `json:"access"`
	ValidUntil               string               `json:"validUntil"`
	FrequencyPerDay          int                  `json:"frequencyPerDay"`
	RecurringIndicator       bool                 `json:"recurringIndicator"`
	CombinedServiceIndicator bool                 `json:"combinedServiceIndicator"`
}

// Compute returns the checksum of c's immutable fields.
func Compute(c *models.Consent) (string, error) {
	tpp, err := digest(tppProjection{
		ConsentType:              c.ConsentType,
		Access:                   canonical(c.TppAccess),
		ValidUntil:               c.ValidUntil.UTC().Format("2006-01-02"),
		FrequencyPerDay:          c.FrequencyPerDay,
		RecurringIndicator:       c.RecurringIndicator,
		CombinedServiceIndicator: c.CombinedServiceIndicator,
	})
	if err != nil {
		return "", err
	}
	parts := []string{version, tpp}
	if c.AspspAccess != nil && !c.AspspAccess.IsEmpty() {
		aspsp, err := digest(canonical(*c.AspspAccess))
		if err != nil {
			return "", err
		}
		parts = append(parts, aspsp)
	}
	return strings.Join(parts, separator), nil
}

// Enforced reports whether c's checksum must be verified before a save.
func Enforced(c *models.Consent) bool {
	return c.IsActivated()
}

// Verify recomputes the checksum and compares it with expected.
// A mismatch is CodeWrongChecksum.
func Verify(c *models.Consent, expected string) error {
	actual, err := Compute(c)
	if err != nil {
		return err
	}
	if expected == "" || subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) != 1 {
		return dErrors.New(dErrors.CodeWrongChecksum, "consent checksum mismatch: immutable fields were changed")
	}
	return nil
}

func digest(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode consent for checksum")
	}
	sum := sha512.Sum512(raw)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// canonical sorts references so reordering the same accounts keeps the checksum stable.
func canonical(a models.AccountAccess) models.AccountAccess {
	cp := a.Clone()
	for _, refs := range [][]models.AccountReference{cp.Accounts, cp.Balances, cp.Transactions} {
		slices.SortFunc(refs, func(x, y models.AccountReference) int {
			return strings.Compare(x.Key(), y.Key())
		})
	}
	return cp
}
