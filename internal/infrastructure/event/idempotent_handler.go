package event

import (
	"context"
	"sync/atomic"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// IdempotencyStats is a snapshot of an IdempotentHandler's counters.
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotentHandler runs the wrapped handler at most once per event id
// within the store's TTL. Republishing an event is then harmless.
type IdempotentHandler struct {
	inner  shared.EventHandler
	store  shared.IdempotencyStore
	config shared.IdempotencyConfig
	log    *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

func NewIdempotentHandler(inner shared.EventHandler, store shared.IdempotencyStore, config shared.IdempotencyConfig, log *zap.Logger) *IdempotentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &IdempotentHandler{inner: inner, store: store, config: config, log: log}
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.inner.EventTypes()
}

func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.seen(ctx, event) {
		h.duplicate.Add(1)
		return nil
	}
	if err := h.inner.Handle(ctx, event); err != nil {
		h.failed.Add(1)
		return err
	}
	h.processed.Add(1)
	return nil
}

// seen claims the event id. Store errors count as unseen so that an
// outage never drops activity.
func (h *IdempotentHandler) seen(ctx context.Context, event shared.DomainEvent) bool {
	if !h.config.Enabled || h.store == nil {
		return false
	}
	log := logger.Enrich(ctx, h.log).With(
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	)
	claimed, err := h.store.MarkProcessed(ctx, shared.IdempotencyKey("event", event.EventID().String()), h.config.TTL)
	switch {
	case err != nil:
		log.Warn("failed to check idempotency, processing anyway", zap.Error(err))
		return false
	case !claimed:
		log.Debug("duplicate event skipped")
		return true
	}
	return false
}

func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: h.processed.Load(),
		EventsDuplicate: h.duplicate.Load(),
		EventsFailed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
