// Package decoupled applies decoupled-SCA results reported by the bank's
// authentication backend over Kafka.
package decoupled

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"xs2acms/internal/platform/kafka/consumer"
	"xs2acms/internal/platform/tracer"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	dErrors "xs2acms/pkg/domain-errors"
	"xs2acms/pkg/requestcontext"
	"xs2acms/pkg/validation"
)

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "xs2acms_decoupled_notifications_total",
	Help: "Decoupled SCA notifications by parent type and outcome",
}, []string{"parent_type", "outcome"})

const (
	outcomeApplied   = "applied"
	outcomeIgnored   = "ignored"
	outcomeRefused   = "refused"
	outcomeRetry     = "retry"
	outcomeMalformed = "malformed"
)

// Manager is the slice of a lifecycle manager a notification drives.
// Adapters for the consent and payment services live with the process wiring.
type Manager interface {
	// UpdateAuthorisationStatus reports false when the parent or authorisation is unknown.
	UpdateAuthorisationStatus(ctx context.Context, instanceID id.InstanceID, parentID uuid.UUID, authID id.AuthorisationID, status scamodels.ScaStatus) (bool, error)
	// ConfirmAuthorisationCode reports false when the parent or authorisation is unknown.
	ConfirmAuthorisationCode(ctx context.Context, instanceID id.InstanceID, parentID uuid.UUID, authID id.AuthorisationID, code string) (bool, error)
}

// Notification is the message published by the authentication backend.
// Exactly one of ScaStatus and ConfirmationCode is expected.
type Notification struct {
	ParentType       string `json:"parentType" validate:"required,oneof=CONSENT PAYMENT"`
	InstanceID       string `json:"instanceId"`
	ParentID         string `json:"parentId" validate:"required,uuid"`
	AuthorisationID  string `json:"authorisationId" validate:"required,uuid"`
	ScaStatus        string `json:"scaStatus" validate:"required_without=ConfirmationCode"`
	ConfirmationCode string `json:"confirmationCode"`
}

// Handler implements consumer.Handler.
type Handler struct {
	managers map[scamodels.ParentType]Manager
	tracer   tracer.Tracer
	logger   *slog.Logger
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(h *Handler) {
		if t != nil {
			h.tracer = t
		}
	}
}

func NewHandler(consents, payments Manager, opts ...Option) *Handler {
	h := &Handler{
		managers: map[scamodels.ParentType]Manager{
			scamodels.ParentConsent: consents,
			scamodels.ParentPayment: payments,
		},
		tracer: tracer.NewNoop(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle applies one notification. Malformed messages, unknown targets and
// refused transitions are logged and committed. Only failures worth a
// redelivery (version conflicts, store outages) are returned.
func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) (err error) {
	ctx, span := h.tracer.Start(ctx, tracer.SpanDecoupledNotification)
	defer func() { span.End(err) }()
	if rid := msg.Headers["request_id"]; rid != "" {
		ctx = requestcontext.WithRequestID(ctx, rid)
	}

	var n Notification
	if err := json.Unmarshal(msg.Value, &n); err != nil {
		h.discard(ctx, msg, "", err)
		return nil
	}
	if err := validation.Validate(n); err != nil {
		h.discard(ctx, msg, n.ParentType, err)
		return nil
	}
	parentType := scamodels.ParentType(n.ParentType)
	manager, ok := h.managers[parentType]
	if !ok || manager == nil {
		h.discard(ctx, msg, n.ParentType, dErrors.New(dErrors.CodeInvalidInput, "no manager for "+n.ParentType))
		return nil
	}
	parentID, err := uuid.Parse(n.ParentID)
	if err != nil {
		h.discard(ctx, msg, n.ParentType, err)
		return nil
	}
	authID, err := id.ParseAuthorisationID(n.AuthorisationID)
	if err != nil {
		h.discard(ctx, msg, n.ParentType, err)
		return nil
	}
	instanceID := id.ParseInstanceID(n.InstanceID)
	span.SetAttributes(
		tracer.String(tracer.AttrInstanceID, instanceID.String()),
		tracer.String(tracer.AttrAuthorisationID, authID.String()),
	)

	var found bool
	if n.ConfirmationCode != "" {
		found, err = manager.ConfirmAuthorisationCode(ctx, instanceID, parentID, authID, n.ConfirmationCode)
	} else {
		status, parseErr := scamodels.ParseScaStatus(n.ScaStatus)
		if parseErr != nil {
			h.discard(ctx, msg, n.ParentType, parseErr)
			return nil
		}
		span.SetAttributes(tracer.String(tracer.AttrScaStatus, status.String()))
		found, err = manager.UpdateAuthorisationStatus(ctx, instanceID, parentID, authID, status)
	}

	logAttrs := []any{
		"parent_type", n.ParentType,
		"parent_id", n.ParentID,
		"authorisation_id", n.AuthorisationID,
		"instance_id", instanceID.String(),
	}
	switch {
	case err != nil && retryable(err):
		notificationsTotal.WithLabelValues(n.ParentType, outcomeRetry).Inc()
		h.logger.WarnContext(ctx, "decoupled notification will be redelivered", append(logAttrs, "error", err)...)
		return err
	case err != nil:
		notificationsTotal.WithLabelValues(n.ParentType, outcomeRefused).Inc()
		h.logger.InfoContext(ctx, "decoupled notification refused", append(logAttrs, "error", err)...)
		return nil
	case !found:
		notificationsTotal.WithLabelValues(n.ParentType, outcomeIgnored).Inc()
		h.logger.InfoContext(ctx, "decoupled notification for unknown authorisation", logAttrs...)
		return nil
	default:
		notificationsTotal.WithLabelValues(n.ParentType, outcomeApplied).Inc()
		return nil
	}
}

func (h *Handler) discard(ctx context.Context, msg *consumer.Message, parentType string, err error) {
	notificationsTotal.WithLabelValues(parentType, outcomeMalformed).Inc()
	h.logger.WarnContext(ctx, "discarding malformed decoupled notification",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"error", err,
	)
}

// retryable reports whether a redelivery could succeed.
func retryable(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeConcurrentModification, dErrors.CodeInternal, dErrors.CodeTimeout:
		return true
	default:
		return false
	}
}
