package service

import (
	"context"

	"xs2acms/internal/audit"
	"xs2acms/internal/consent/metrics"
	"xs2acms/internal/consent/models"
	"xs2acms/internal/platform/tracer"
	scamodels "xs2acms/internal/sca/models"
)

// effects collects what a unit of work wants to announce. It is discarded
// when the unit is retried and flushed once the transaction committed.
type effects struct {
	events  []audit.Event
	metrics []func(*metrics.Metrics)
}

func (fx *effects) reset() {
	fx.events = fx.events[:0]
	fx.metrics = fx.metrics[:0]
}

func (fx *effects) consentCreated(c *models.Consent) {
	fx.events = append(fx.events, audit.Event{
		InstanceID: c.InstanceID.String(),
		EntityType: audit.EntityConsent,
		EntityID:   c.ID.String(),
		Action:     audit.ActionConsentCreated,
		NewStatus:  c.Status.String(),
	})
	consentType := string(c.ConsentType)
	fx.metrics = append(fx.metrics, func(m *metrics.Metrics) {
		m.IncrementConsentsCreated(consentType)
	})
}

func (fx *effects) consentStatus(c *models.Consent, previous models.Status) {
	if previous == c.Status {
		return
	}
	fx.events = append(fx.events, audit.Event{
		InstanceID:     c.InstanceID.String(),
		EntityType:     audit.EntityConsent,
		EntityID:       c.ID.String(),
		Action:         audit.ActionConsentStatusChanged,
		PreviousStatus: previous.String(),
		NewStatus:      c.Status.String(),
	})
	from, to := previous.String(), c.Status.String()
	fx.metrics = append(fx.metrics, func(m *metrics.Metrics) {
		m.IncrementStatusTransition(from, to)
	})
}

func (fx *effects) accessUpdated(c *models.Consent) {
	fx.events = append(fx.events, audit.Event{
		InstanceID: c.InstanceID.String(),
		EntityType: audit.EntityConsent,
		EntityID:   c.ID.String(),
		Action:     audit.ActionConsentAccessUpdated,
		NewStatus:  c.Status.String(),
	})
}

func (fx *effects) expired(status models.Status) {
	label := status.String()
	fx.metrics = append(fx.metrics, func(m *metrics.Metrics) {
		m.IncrementExpired(label)
	})
}

func (fx *effects) authorisationCreated(auth *scamodels.Authorisation) {
	fx.events = append(fx.events, authorisationEvent(auth, audit.ActionAuthorisationCreated, ""))
}

func (fx *effects) authorisationStatus(auth *scamodels.Authorisation, previous scamodels.ScaStatus) {
	if previous == auth.ScaStatus {
		return
	}
	fx.events = append(fx.events, authorisationEvent(auth, audit.ActionAuthorisationStatusChanged, previous))
	status := auth.ScaStatus.String()
	fx.metrics = append(fx.metrics, func(m *metrics.Metrics) {
		m.IncrementAuthorisationTransition(status)
	})
}

func (fx *effects) psuAssigned(auth *scamodels.Authorisation) {
	fx.events = append(fx.events, authorisationEvent(auth, audit.ActionAuthorisationPsuAssigned, ""))
}

func authorisationEvent(auth *scamodels.Authorisation, action audit.Action, previous scamodels.ScaStatus) audit.Event {
	event := audit.Event{
		InstanceID:      auth.InstanceID.String(),
		EntityType:      audit.EntityAuthorisation,
		EntityID:        auth.ParentID.String(),
		Action:          action,
		PreviousStatus:  string(previous),
		NewStatus:       auth.ScaStatus.String(),
		AuthorisationID: auth.ID.String(),
	}
	if auth.PsuData != nil {
		event.PsuID = auth.PsuData.PsuID
	}
	return event
}

// flush publishes collected events and metrics. Audit failures are logged;
// the change they describe is already committed.
func (s *Service) flush(ctx context.Context, fx *effects) {
	if s.metrics != nil {
		for _, record := range fx.metrics {
			record(s.metrics)
		}
	}
	if s.auditor == nil {
		return
	}
	span := tracer.SpanFromContext(ctx)
	for _, event := range fx.events {
		if err := s.auditor.Emit(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to emit audit event",
				"error", err,
				"action", event.Action,
				"entity_id", event.EntityID,
			)
			continue
		}
		span.AddEvent(tracer.EventAuditEmitted, tracer.String("action", string(event.Action)))
	}
}

func (s *Service) versionConflict(ctx context.Context, outcome string) {
	tracer.SpanFromContext(ctx).AddEvent(tracer.EventVersionConflict, tracer.String("outcome", outcome))
	s.logger.WarnContext(ctx, "consent version conflict", "outcome", outcome)
	if s.metrics != nil {
		s.metrics.IncrementVersionConflict(outcome)
	}
}
