package audit

import "time"

// Event records one committed lifecycle change. Keep it transport-agnostic
// so stores and sinks can fan out.
type Event struct {
	Timestamp       time.Time `json:"timestamp"`
	InstanceID      string    `json:"instanceId"`
	EntityType      Entity    `json:"entityType"`
	EntityID        string    `json:"entityId"`
	Action          Action    `json:"action"`
	PreviousStatus  string    `json:"previousStatus,omitempty"`
	NewStatus       string    `json:"newStatus,omitempty"`
	AuthorisationID string    `json:"authorisationId,omitempty"`
	PsuID           string    `json:"psuId,omitempty"`
	PsuDevice       string    `json:"psuDevice,omitempty"`
	RequestID       string    `json:"requestId,omitempty"`
}

// Entity names the kind of record an event is about.
type Entity string

const (
	EntityConsent       Entity = "consent"
	EntityPayment       Entity = "payment"
	EntityAuthorisation Entity = "authorisation"
)

// Action names what happened.
type Action string

const (
	ActionConsentCreated             Action = "consent_created"
	ActionConsentStatusChanged       Action = "consent_status_changed"
	ActionConsentAccessUpdated       Action = "consent_access_updated"
	ActionPaymentCreated             Action = "payment_created"
	ActionPaymentStatusChanged       Action = "payment_status_changed"
	ActionAuthorisationCreated       Action = "authorisation_created"
	ActionAuthorisationStatusChanged Action = "authorisation_status_changed"
	ActionAuthorisationPsuAssigned   Action = "authorisation_psu_assigned"
)
