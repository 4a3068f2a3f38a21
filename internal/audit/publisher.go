package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"xs2acms/pkg/requestcontext"
)

// Publisher captures lifecycle events. It is append-only and delegates
// persistence to one or more stores so tests can swap sinks easily.
type Publisher struct {
	stores []Store
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and persisted in a background goroutine.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithStore adds another sink that receives every event.
func WithStore(store Store) PublisherOption {
	return func(p *Publisher) {
		if store != nil {
			p.stores = append(p.stores, store)
		}
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{stores: []Store{store}}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

// processEvents runs in a goroutine and persists events from the channel.
func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"entity_id", event.EntityID,
			)
		}
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

// Emit records base, filling the timestamp and request metadata from ctx.
func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = requestcontext.Now(ctx)
	}
	if base.RequestID == "" {
		base.RequestID = requestcontext.RequestID(ctx)
	}
	if base.PsuDevice == "" {
		base.PsuDevice = requestcontext.PsuDevice(ctx)
	}
	if p.async {
		// Non-blocking send; drop event if buffer is full to avoid blocking hot path
		select {
		case p.events <- base:
			return nil
		default:
			if p.logger != nil {
				p.logger.Warn("audit buffer full, event dropped",
					"action", base.Action,
					"entity_id", base.EntityID,
				)
			}
			return nil
		}
	}
	return p.append(ctx, base)
}

// List reads events back from the first store that supports it.
func (p *Publisher) List(ctx context.Context, entityID string) ([]Event, error) {
	for _, s := range p.stores {
		if l, ok := s.(Lister); ok {
			return l.ListByEntity(ctx, entityID)
		}
	}
	return nil, nil
}

func (p *Publisher) append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range p.stores {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
