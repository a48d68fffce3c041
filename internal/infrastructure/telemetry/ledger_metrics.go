package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the ledger metrics
const MeterName = "github.com/propmgr/ledger"

// LedgerMetrics records ledger activity as OpenTelemetry instruments
type LedgerMetrics struct {
	accountsCreated   *Counter
	postings          *Counter
	postedCents       *Counter
	postingLines      *Histogram
	postingsRejected  *Counter
	chartsInitialized *Counter
}

// NewLedgerMetrics creates the instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	var (
		m   LedgerMetrics
		err error
	)
	if m.accountsCreated, err = NewCounter(meter, "ledger.accounts.created",
		"GL accounts created", "{account}"); err != nil {
		return nil, err
	}
	if m.postings, err = NewCounter(meter, "ledger.postings",
		"Ledger transactions committed", "{transaction}"); err != nil {
		return nil, err
	}
	if m.postedCents, err = NewCounter(meter, "ledger.postings.amount",
		"Total debits of committed transactions", "{cent}"); err != nil {
		return nil, err
	}
	if m.postingLines, err = NewHistogram(meter, "ledger.postings.lines",
		"Lines per committed transaction", "{line}", PostingLineBuckets...); err != nil {
		return nil, err
	}
	if m.postingsRejected, err = NewCounter(meter, "ledger.postings.rejected",
		"Transactions rejected before commit", "{transaction}"); err != nil {
		return nil, err
	}
	if m.chartsInitialized, err = NewCounter(meter, "ledger.charts.initialized",
		"Charts of accounts created from a template", "{chart}"); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordAccountsCreated counts new accounts
func (m *LedgerMetrics) RecordAccountsCreated(ctx context.Context, tenantID uuid.UUID, count int) {
	m.accountsCreated.Add(ctx, int64(count), AttrTenantID.String(tenantID.String()))
}

// RecordPosting counts a committed transaction
func (m *LedgerMetrics) RecordPosting(ctx context.Context, tenantID uuid.UUID, lineCount int, totalCents int64, reversal bool) {
	attrs := []attribute.KeyValue{AttrTenantID.String(tenantID.String()), AttrReversal.Bool(reversal)}
	m.postings.Inc(ctx, attrs...)
	m.postedCents.Add(ctx, totalCents, attrs...)
	m.postingLines.Record(ctx, int64(lineCount), attrs...)
}

// RecordPostingRejected counts a rejected transaction by error code
func (m *LedgerMetrics) RecordPostingRejected(ctx context.Context, tenantID uuid.UUID, reason string) {
	m.postingsRejected.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrReason.String(reason))
}

// RecordChartInitialized counts a template application
func (m *LedgerMetrics) RecordChartInitialized(ctx context.Context, tenantID uuid.UUID, templateName string) {
	m.chartsInitialized.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrTemplate.String(templateName))
}
