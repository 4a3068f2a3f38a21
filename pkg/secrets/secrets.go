// Package secrets generates random key material.
package secrets

import (
	"crypto/rand"
	"encoding/base64"

	dErrors "xs2acms/pkg/domain-errors"
)

const defaultKeyBytes = 32

// Generate returns 32 random bytes, base64url encoded.
func Generate() (string, error) {
	return GenerateN(defaultKeyBytes)
}

// GenerateN returns n random bytes, base64url encoded.
func GenerateN(n int) (string, error) {
	if n <= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "secret length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
