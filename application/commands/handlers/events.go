package handlers

import (
	"context"

	"go.uber.org/zap"

	"treeservice/application/ports"
	"treeservice/domain/events"
)

// eventSource is an entity that buffers domain events
type eventSource interface {
	GetUncommittedEvents() []events.DomainEvent
	MarkEventsAsCommitted()
}

// publishEvents publishes and clears pending events. Publishing never fails
// the command; the write it describes has already happened.
func publishEvents(ctx context.Context, publisher ports.EventPublisher, logger *zap.Logger, source eventSource) {
	pending := source.GetUncommittedEvents()
	if len(pending) == 0 {
		return
	}
	if publisher != nil {
		if err := publisher.Publish(ctx, pending...); err != nil {
			logger.Warn("Failed to publish events", zap.Int("count", len(pending)), zap.Error(err))
		}
	}
	source.MarkEventsAsCommitted()
}
