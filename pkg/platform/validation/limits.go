// Package validation holds the size limits applied at the PSU API boundary.
package validation

import (
	"fmt"

	dErrors "xs2acms/pkg/domain-errors"
)

// MaxBodySize bounds a request body. Consent payloads forwarded by the XS2A
// interface are the largest bodies the CMS accepts.
const MaxBodySize = 1 << 20

// Slice element count limits
const (
	// MaxPsuDataEntries bounds the PSUs of one multilevel SCA.
	MaxPsuDataEntries = 20

	// MaxAccountReferences bounds each access list of a consent.
	MaxAccountReferences = 100

	// MaxAuthenticationMethods bounds the SCA methods offered to a PSU.
	MaxAuthenticationMethods = 20
)

// String element length limits
const (
	MaxTppIDLength            = 128
	MaxPsuIDLength            = 256
	MaxConfirmationCodeLength = 64
	MaxPaymentProductLength   = 70
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckAll returns the first failing check.
func CheckAll(checks ...error) error {
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}
