package event

import (
	"context"
	"sync/atomic"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// InMemoryEventBus implements EventBus with in-memory pub/sub.
// Events are dispatched synchronously on the publishing goroutine, after
// the transaction that raised them has committed.
type InMemoryEventBus struct {
	registry   *HandlerRegistry
	logger     *zap.Logger
	running    atomic.Bool
	dispatched atomic.Int64
	failed     atomic.Int64
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(log *zap.Logger) *InMemoryEventBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   log,
	}
}

// Publish hands each event to every handler registered for its type.
// A failing handler is logged and does not stop the others.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		for _, handler := range b.registry.HandlersFor(event.EventType()) {
			b.dispatched.Add(1)
			if err := b.dispatchToHandler(ctx, handler, event); err != nil {
				b.failed.Add(1)
				logger.Enrich(ctx, b.logger).Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("aggregate_id", event.AggregateID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types; without types the
// handler's own EventTypes are used
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start starts the event bus
func (b *InMemoryEventBus) Start(_ context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Int("handlers", b.registry.Len()))
	return nil
}

// Stop stops the event bus
func (b *InMemoryEventBus) Stop(_ context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped",
		zap.Int64("dispatched", b.dispatched.Load()),
		zap.Int64("failed", b.failed.Load()),
	)
	return nil
}

// IsRunning reports whether Start was called without a matching Stop
func (b *InMemoryEventBus) IsRunning() bool {
	return b.running.Load()
}

// Stats returns the number of handler invocations and failures so far
func (b *InMemoryEventBus) Stats() (dispatched, failed int64) {
	return b.dispatched.Load(), b.failed.Load()
}

// dispatchToHandler turns a handler panic into an error
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Enrich(ctx, b.logger).Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
			err = errHandlerPanicked
		}
	}()

	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
