// Package aggregate maps the SCA progress of a payment's authorisations onto
// its transaction status.
package aggregate

import (
	"xs2acms/internal/payment/models"
	scaaggregate "xs2acms/internal/sca/aggregate"
	scamodels "xs2acms/internal/sca/models"
)

// Recompute returns the status the payment should hold given auths.
//
// A completed cancellation moves any open payment to CANC. Creation SCA only
// decides while the payment is RCVD or PATC: complete gives ACTC, partial
// multilevel gives PATC and a failure gives RJCT. Terminal statuses never change.
func Recompute(p *models.Payment, auths []*scamodels.Authorisation) models.TransactionStatus {
	if p.Status.IsFinalised() {
		return p.Status
	}

	cancellation := scaaggregate.EvaluateType(scamodels.AuthorisationTypeCancellation, auths, p.PsuDataList, p.MultilevelScaRequired)
	if cancellation.Decision == scaaggregate.Complete {
		return models.StatusCancelled
	}

	if !p.Status.AwaitsAuthorisation() {
		return p.Status
	}
	creation := scaaggregate.Evaluate(auths, p.PsuDataList, p.MultilevelScaRequired)
	switch creation.Decision {
	case scaaggregate.Complete:
		return models.StatusAcceptedTechnical
	case scaaggregate.Partial:
		return models.StatusPartiallyAccepted
	case scaaggregate.Failed:
		return models.StatusRejected
	default:
		return p.Status
	}
}
