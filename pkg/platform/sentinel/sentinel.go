package sentinel

import "errors"

// Sentinel dependency errors. Stores return these (optionally wrapped)
// so services can translate them into domain errors exactly once.
var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports that the persisted version moved since the entity was loaded.
	ErrConflict = errors.New("version conflict")
)
