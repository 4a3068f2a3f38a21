// Package store persists consents.
//
// Error contract shared by all implementations:
//   - lookups of an unknown ID (or one owned by another instance) return sentinel.ErrNotFound
//   - Save with a stale Version returns sentinel.ErrConflict and writes nothing
//   - Create sets Version to 1, Save increments it on the caller's copy
package store

import (
	"time"

	"xs2acms/internal/consent/models"
	"xs2acms/internal/sca/expiry"
)

const defaultListLimit = 1000

// expirable reports whether a non-terminal consent is due for the sweeper:
// its validity date passed, or it was never confirmed within the allowed window.
func expirable(c *models.Consent, now, notConfirmedBefore time.Time) bool {
	if c.Status.IsFinalised() {
		return false
	}
	if expiry.DateExpired(c.ValidUntil, now) {
		return true
	}
	return c.Status == models.StatusReceived && !notConfirmedBefore.IsZero() && c.CreatedAt.Before(notConfirmedBefore)
}
