package wms

import (
	"context"
	"fmt"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/domain/wms"
	"go.uber.org/zap"
)

// ItemActivityHandler writes committed item activity to the operational log
type ItemActivityHandler struct {
	logger *zap.Logger
}

// NewItemActivityHandler creates a new handler for item events
func NewItemActivityHandler(logger *zap.Logger) *ItemActivityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemActivityHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ItemActivityHandler) EventTypes() []string {
	return []string{
		wms.EventTypeItemProvisioned,
		wms.EventTypeItemMoved,
		wms.EventTypeRepairDecided,
	}
}

// Handle processes an item event
func (h *ItemActivityHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *wms.ItemProvisionedEvent:
		h.logger.Info("item provisioned",
			zap.String("item_id", e.AggregateID().String()),
			zap.String("item_uid", e.ItemUID),
			zap.String("location", e.Location.String()),
			zap.String("provenance", string(e.ProvenanceKind)),
		)
	case *wms.ItemMovedEvent:
		h.logger.Info("item moved",
			zap.String("item_id", e.AggregateID().String()),
			zap.String("from", e.From.String()),
			zap.String("to", e.To.String()),
			zap.String("status", e.NextStatus.String()),
		)
	case *wms.RepairDecidedEvent:
		h.logger.Info("repair decided",
			zap.String("item_id", e.AggregateID().String()),
			zap.String("decision", string(e.DecisionType)),
			zap.String("vendor", e.VendorName),
		)
	default:
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}

// Ensure ItemActivityHandler implements shared.EventHandler
var _ shared.EventHandler = (*ItemActivityHandler)(nil)
