package audit

import (
	"context"
)

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister is implemented by stores that can read events back.
type Lister interface {
	ListByEntity(ctx context.Context, entityID string) ([]Event, error)
}
