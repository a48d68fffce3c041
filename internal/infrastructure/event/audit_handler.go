package event

import (
	"context"
	"encoding/json"

	"github.com/propmgr/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes every ledger event it receives to the log as a JSON payload
type AuditLogHandler struct {
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewAuditLogHandler creates the handler
func NewAuditLogHandler(serializer *EventSerializer, logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{serializer: serializer, logger: logger.Named("ledger_audit")}
}

// Handle logs evt
func (h *AuditLogHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	payload, err := h.serializer.Serialize(evt)
	if err != nil {
		return err
	}
	h.logger.Info("ledger event",
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()),
		zap.String("tenant_id", evt.TenantID().String()),
		zap.String("aggregate_type", evt.AggregateType()),
		zap.String("aggregate_id", evt.AggregateID().String()),
		zap.Time("occurred_at", evt.OccurredAt()),
		zap.Any("payload", json.RawMessage(payload)),
	)
	return nil
}

// EventTypes subscribes to the serializer's registered types
func (h *AuditLogHandler) EventTypes() []string {
	return h.serializer.RegisteredTypes()
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
