// Package tracer provides a small tracing abstraction for the lifecycle services.
//
// Services depend on the Tracer interface only; OTelTracer adapts it to
// OpenTelemetry and NoopTracer is used in tests.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span; the returned context carries it.
	//
	// Example:
	//   ctx, span := tracer.Start(ctx, tracer.SpanConsentStatus,
	//       tracer.String(tracer.AttrConsentID, consentID.String()),
	//   )
	//   defer span.End(err)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type spanKey struct{}

// ContextWithSpan makes span retrievable from the returned context.
func ContextWithSpan(ctx context.Context, span Span) context.Context {
	return context.WithValue(ctx, spanKey{}, span)
}

// SpanFromContext returns the span started for ctx, or a no-op span.
func SpanFromContext(ctx context.Context) Span {
	if span, ok := ctx.Value(spanKey{}).(Span); ok {
		return span
	}
	return &noopSpan{}
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashPsuID returns a short SHA-256 prefix of a PSU identifier so traces can
// be correlated without carrying the identifier itself.
func HashPsuID(psuID string) string {
	if psuID == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(psuID))
	return hex.EncodeToString(hash[:8])
}

// Span names.
const (
	SpanConsentCreate         = "consent.create"
	SpanConsentStatus         = "consent.status"
	SpanConsentAuthorisation  = "consent.authorisation.update"
	SpanConsentRedirect       = "consent.redirect"
	SpanConsentAccess         = "consent.access.update"
	SpanConsentExpire         = "consent.expire"
	SpanPaymentCreate         = "payment.create"
	SpanPaymentStatus         = "payment.status"
	SpanPaymentAuthorisation  = "payment.authorisation.update"
	SpanPaymentRedirect       = "payment.redirect"
	SpanPaymentExpire         = "payment.expire"
	SpanDecoupledNotification = "sca.decoupled.notification"
)

// Attribute keys.
const (
	AttrInstanceID      = "instance_id"
	AttrConsentID       = "consent_id"
	AttrPaymentID       = "payment_id"
	AttrAuthorisationID = "authorisation_id"
	AttrScaStatus       = "sca_status"
	AttrTargetStatus    = "target_status"
	AttrPsuHash         = "psu.hash"
	AttrRetried         = "retried"
	AttrChanged         = "changed"
)

// Event names.
const (
	EventAuditEmitted    = "audit.emitted"
	EventVersionConflict = "version.conflict"
)
