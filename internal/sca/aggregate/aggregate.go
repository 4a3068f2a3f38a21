// Package aggregate folds the authorisations of one consent or payment into a
// single decision. It knows nothing about consent or transaction statuses;
// callers map the Decision onto their own status vocabulary.
package aggregate

import (
	"xs2acms/internal/sca/models"
)

// Decision is the aggregated SCA outcome for a parent entity.
type Decision int

const (
	// Pending means no required PSU has reached a final result yet.
	Pending Decision = iota
	// Partial means some, but not all, required PSUs have authorised.
	Partial
	// Complete means every required PSU has authorised.
	Complete
	// Failed means a required PSU failed SCA.
	Failed
)

func (d Decision) String() string {
	switch d {
	case Partial:
		return "partial"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Summary describes how far a parent's SCA has progressed.
type Summary struct {
	Decision  Decision
	Finalised int
	Required  int
}

// Evaluate aggregates CREATION authorisations.
func Evaluate(auths []*models.Authorisation, required []models.PsuIdData, multilevel bool) Summary {
	return EvaluateType(models.AuthorisationTypeCreation, auths, required, multilevel)
}

// EvaluateType aggregates the authorisations of one type and ignores the rest.
//
// Only the most recently created authorisation per PSU counts, since older
// ones were closed when it was started. For single-level SCA any successful
// authorisation completes the parent and otherwise any failure fails it.
// For multilevel SCA every PSU in required must succeed; when required is
// empty the PSUs seen on the authorisations are used instead.
func EvaluateType(authType models.AuthorisationType, auths []*models.Authorisation, required []models.PsuIdData, multilevel bool) Summary {
	effective := latestPerPsu(auths, authType)

	if !multilevel {
		return evaluateSingle(effective)
	}

	if len(required) == 0 {
		for _, a := range effective {
			if a.PsuData != nil && !a.PsuData.IsEmpty() {
				required = append(required, *a.PsuData)
			}
		}
	}

	summary := Summary{Required: len(required)}
	for _, psu := range required {
		a := findForPsu(effective, psu)
		if a == nil {
			continue
		}
		switch {
		case a.ScaStatus.IsSuccessful():
			summary.Finalised++
		case a.ScaStatus == models.ScaStatusFailed:
			summary.Decision = Failed
			return summary
		}
	}

	switch {
	case summary.Required > 0 && summary.Finalised == summary.Required:
		summary.Decision = Complete
	case summary.Finalised > 0:
		summary.Decision = Partial
	default:
		summary.Decision = Pending
	}
	return summary
}

func evaluateSingle(effective []*models.Authorisation) Summary {
	summary := Summary{Required: 1}
	failed := false
	for _, a := range effective {
		if a.ScaStatus.IsSuccessful() {
			summary.Finalised = 1
			summary.Decision = Complete
			return summary
		}
		if a.ScaStatus == models.ScaStatusFailed {
			failed = true
		}
	}
	if failed {
		summary.Decision = Failed
	}
	return summary
}

// latestPerPsu keeps, per PSU, the most recently created authorisation of authType.
// auths is in creation order, so on equal CreatedAt the later entry wins.
// Authorisations without PSU data are each kept on their own.
func latestPerPsu(auths []*models.Authorisation, authType models.AuthorisationType) []*models.Authorisation {
	var out []*models.Authorisation
	index := make(map[string]int)
	for _, a := range auths {
		if a == nil || a.Type != authType {
			continue
		}
		if a.PsuData == nil || a.PsuData.IsEmpty() {
			out = append(out, a)
			continue
		}
		key := a.PsuData.Key()
		if i, ok := index[key]; ok {
			if !a.CreatedAt.Before(out[i].CreatedAt) {
				out[i] = a
			}
			continue
		}
		index[key] = len(out)
		out = append(out, a)
	}
	return out
}

func findForPsu(auths []*models.Authorisation, psu models.PsuIdData) *models.Authorisation {
	for _, a := range auths {
		if a.PsuData != nil && a.PsuData.SamePsu(psu) {
			return a
		}
	}
	return nil
}
