package ledger

import (
	"context"

	"github.com/google/uuid"
)

// MetricsRecorder receives counts of ledger activity.
// The telemetry package provides the OpenTelemetry implementation.
type MetricsRecorder interface {
	RecordAccountsCreated(ctx context.Context, tenantID uuid.UUID, count int)
	RecordPosting(ctx context.Context, tenantID uuid.UUID, lineCount int, totalCents int64, reversal bool)
	RecordPostingRejected(ctx context.Context, tenantID uuid.UUID, reason string)
	RecordChartInitialized(ctx context.Context, tenantID uuid.UUID, templateName string)
}

type noopMetrics struct{}

func (noopMetrics) RecordAccountsCreated(context.Context, uuid.UUID, int) {}
func (noopMetrics) RecordPosting(context.Context, uuid.UUID, int, int64, bool) {}
func (noopMetrics) RecordPostingRejected(context.Context, uuid.UUID, string) {}
func (noopMetrics) RecordChartInitialized(context.Context, uuid.UUID, string) {}
