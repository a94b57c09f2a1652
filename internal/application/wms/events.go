package wms

import (
	"context"

	"github.com/casa/wms/internal/domain/shared"
	"go.uber.org/zap"
)

// publishDomainEvents publishes the pending events of committed aggregates.
// Publish failures are logged, never returned: the state change already
// committed.
func publishDomainEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, aggregates ...shared.AggregateRoot) {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		events := agg.PullEvents()
		if len(events) == 0 || publisher == nil {
			continue
		}
		if err := publisher.Publish(ctx, events...); err != nil {
			logger.Warn("failed to publish domain events",
				zap.String("aggregate_id", agg.GetID().String()),
				zap.Int("count", len(events)),
				zap.Error(err),
			)
		}
	}
}
