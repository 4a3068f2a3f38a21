package audit

import (
	"context"
	"log/slog"
)

// LogStore writes every event as a structured log line. It backs deployments
// without Kafka so lifecycle changes remain traceable.
type LogStore struct {
	logger *slog.Logger
}

func NewLogStore(logger *slog.Logger) *LogStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogStore{logger: logger}
}

func (s *LogStore) Append(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "lifecycle event",
		"action", event.Action,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"instance_id", event.InstanceID,
		"previous_status", event.PreviousStatus,
		"new_status", event.NewStatus,
		"authorisation_id", event.AuthorisationID,
		"request_id", event.RequestID,
	)
	return nil
}
