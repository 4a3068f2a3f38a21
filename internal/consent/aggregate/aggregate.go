// Package aggregate maps the SCA progress of a consent's authorisations onto
// the consent status.
package aggregate

import (
	"xs2acms/internal/consent/models"
	scaaggregate "xs2acms/internal/sca/aggregate"
	scamodels "xs2acms/internal/sca/models"
)

// Recompute returns the status the consent should hold given auths.
//
// Terminal statuses are never changed. A consent that already reached VALID
// stays VALID: the first decisive result wins.
func Recompute(c *models.Consent, auths []*scamodels.Authorisation) models.Status {
	if c.Status.IsFinalised() || c.Status == models.StatusValid {
		return c.Status
	}

	summary := scaaggregate.Evaluate(auths, c.PsuDataList, c.MultilevelScaRequired)
	switch summary.Decision {
	case scaaggregate.Complete:
		return models.StatusValid
	case scaaggregate.Partial:
		return models.StatusPartiallyAuthorised
	case scaaggregate.Failed:
		return models.StatusRejected
	default:
		return c.Status
	}
}
