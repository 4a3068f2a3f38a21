// Package store persists payments.
//
// Error contract shared by all implementations:
//   - lookups of an unknown ID (or one owned by another instance) return sentinel.ErrNotFound
//   - Save with a stale Version returns sentinel.ErrConflict and writes nothing
//   - Create sets Version to 1, Save increments it on the caller's copy
package store

import (
	"time"

	"xs2acms/internal/payment/models"
)

const defaultListLimit = 1000

// expirable reports whether a payment still waiting for SCA was created
// before the not-confirmed cutoff.
func expirable(p *models.Payment, notConfirmedBefore time.Time) bool {
	return p.Status.AwaitsAuthorisation() && p.CreatedAt.Before(notConfirmedBefore)
}
