package audit

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"xs2acms/pkg/platform/circuit"
)

var fallbackEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "xs2acms_audit_fallback_events_total",
	Help: "Lifecycle events written to the fallback sink, by reason",
}, []string{"reason"})

// FallbackStore appends to primary and diverts events to fallback when
// primary fails or its breaker is open.
type FallbackStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewFallbackStore(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger) *FallbackStore {
	if breaker == nil {
		breaker = circuit.New("audit")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (s *FallbackStore) Append(ctx context.Context, event Event) error {
	if !s.breaker.Allow() {
		fallbackEvents.WithLabelValues("circuit_open").Inc()
		return s.fallback.Append(ctx, event)
	}

	if err := s.primary.Append(ctx, event); err != nil {
		if change := s.breaker.RecordFailure(); change.Opened {
			s.logger.WarnContext(ctx, "audit sink circuit opened", "sink", s.breaker.Name(), "error", err)
		}
		fallbackEvents.WithLabelValues("primary_failed").Inc()
		return s.fallback.Append(ctx, event)
	}

	if change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "audit sink circuit closed", "sink", s.breaker.Name())
	}
	return nil
}
