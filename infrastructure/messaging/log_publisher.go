package messaging

import (
	"context"

	"go.uber.org/zap"

	"treeservice/application/ports"
	"treeservice/domain/events"
)

// LogPublisher writes events to the log. It is used when no event bus is
// configured.
type LogPublisher struct {
	logger *zap.Logger
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, domainEvents ...events.DomainEvent) error {
	for _, e := range domainEvents {
		p.logger.Info("Domain event",
			zap.String("eventType", e.GetEventType()),
			zap.String("aggregateID", e.GetAggregateID()),
			zap.Int("version", e.GetVersion()),
			zap.Time("timestamp", e.GetTimestamp()),
		)
	}
	return nil
}
