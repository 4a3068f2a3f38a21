// Package store persists authorisations.
//
// Error contract shared by all implementations:
//   - lookups of an unknown ID (or an ID owned by another instance) return sentinel.ErrNotFound
//   - Save with a stale Version returns sentinel.ErrConflict and writes nothing
//   - Create sets Version to 1, Save increments it on the caller's copy
package store

import (
	"xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
)

func parentKey(instanceID id.InstanceID, parentType models.ParentType, parentID string) string {
	return string(instanceID) + "/" + string(parentType) + "/" + parentID
}
