package ledger

import (
	"context"

	"github.com/propmgr/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// hooks holds the optional collaborators shared by every ledger service
type hooks struct {
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
	metrics        MetricsRecorder
}

func newHooks(logger *zap.Logger) hooks {
	if logger == nil {
		logger = zap.NewNop()
	}
	return hooks{logger: logger, metrics: noopMetrics{}}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (h *hooks) SetEventPublisher(publisher shared.EventPublisher) {
	h.eventPublisher = publisher
}

// SetMetrics sets the metrics recorder
func (h *hooks) SetMetrics(metrics MetricsRecorder) {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	h.metrics = metrics
}

// publishDomainEvents publishes and clears the pending events of the aggregates.
// Must only be called after the changes are committed.
func (h *hooks) publishDomainEvents(ctx context.Context, aggregates ...shared.AggregateRoot) {
	var events []shared.DomainEvent
	for _, a := range aggregates {
		events = append(events, a.GetDomainEvents()...)
		a.ClearDomainEvents()
	}
	h.publishEvents(ctx, events...)
}

func (h *hooks) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if h.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := h.eventPublisher.Publish(ctx, events...); err != nil {
		h.logger.Warn("Failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}
