package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// Mock implementations

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.GLAccount, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.GLAccount), args.Error(1)
}

func (m *mockAccountRepository) FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*ledger.GLAccount, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.GLAccount), args.Error(1)
}

func (m *mockAccountRepository) FindByAccountNumber(ctx context.Context, tenantID uuid.UUID, number string) (*ledger.GLAccount, error) {
	args := m.Called(ctx, tenantID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.GLAccount), args.Error(1)
}

func (m *mockAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.GLAccountFilter) ([]*ledger.GLAccount, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.GLAccount), args.Error(1)
}

func (m *mockAccountRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.GLAccountFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccountRepository) Snapshot(ctx context.Context, tenantID uuid.UUID) ([]*ledger.GLAccount, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.GLAccount), args.Error(1)
}

func (m *mockAccountRepository) SnapshotForUpdate(ctx context.Context, tenantID uuid.UUID) ([]*ledger.GLAccount, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.GLAccount), args.Error(1)
}

func (m *mockAccountRepository) ExistsForTenant(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccountRepository) ExistsByAccountNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	args := m.Called(ctx, tenantID, number)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccountRepository) Create(ctx context.Context, accounts ...*ledger.GLAccount) error {
	args := m.Called(ctx, accounts)
	return args.Error(0)
}

func (m *mockAccountRepository) SaveWithLock(ctx context.Context, account *ledger.GLAccount, expectedVersion int) error {
	args := m.Called(ctx, account, expectedVersion)
	return args.Error(0)
}

func (m *mockAccountRepository) DeactivateWithLock(ctx context.Context, account *ledger.GLAccount, expectedVersion int) error {
	args := m.Called(ctx, account, expectedVersion)
	return args.Error(0)
}

func (m *mockAccountRepository) ApplyDelta(ctx context.Context, tenantID, accountID uuid.UUID, balanceDelta, debitCents, creditCents int64) error {
	args := m.Called(ctx, tenantID, accountID, balanceDelta, debitCents, creditCents)
	return args.Error(0)
}

type mockTransactionRepository struct {
	mock.Mock
}

func (m *mockTransactionRepository) Create(ctx context.Context, tx *ledger.LedgerTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.LedgerTransaction, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.LedgerTransaction), args.Error(1)
}

func (m *mockTransactionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.LedgerTransactionFilter) ([]*ledger.LedgerTransaction, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.LedgerTransaction), args.Error(1)
}

func (m *mockTransactionRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.LedgerTransactionFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTransactionRepository) ExistsReversalOf(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Bool(0), args.Error(1)
}

type mockTaxRateRepository struct {
	mock.Mock
}

func (m *mockTaxRateRepository) FindByID(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (*ledger.TaxRate, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.TaxRate), args.Error(1)
}

func (m *mockTaxRateRepository) FindCandidates(ctx context.Context, tenantID uuid.UUID, jurisdiction, regionCode string, asOf time.Time) ([]*ledger.TaxRate, error) {
	args := m.Called(ctx, tenantID, jurisdiction, regionCode, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.TaxRate), args.Error(1)
}

func (m *mockTaxRateRepository) FindAll(ctx context.Context, tenantID *uuid.UUID, filter ledger.TaxRateFilter) ([]*ledger.TaxRate, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.TaxRate), args.Error(1)
}

func (m *mockTaxRateRepository) Create(ctx context.Context, rate *ledger.TaxRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

func (m *mockTaxRateRepository) SaveWithLock(ctx context.Context, rate *ledger.TaxRate, expectedVersion int) error {
	args := m.Called(ctx, rate, expectedVersion)
	return args.Error(0)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type mockInitLock struct {
	mock.Mock
}

func (m *mockInitLock) TryLock(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *mockInitLock) Unlock(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

// staticCatalog serves templates from a map
type staticCatalog map[string]*ledger.ChartTemplateDefinition

func (c staticCatalog) Get(name, jurisdiction string) (*ledger.ChartTemplateDefinition, error) {
	def, ok := c[ledger.TemplateKey(name, jurisdiction)]
	if !ok {
		return nil, shared.NewNotFoundError("TEMPLATE_NOT_FOUND", "no such template")
	}
	return def, nil
}

func (c staticCatalog) List() []*ledger.ChartTemplateDefinition {
	out := make([]*ledger.ChartTemplateDefinition, 0, len(c))
	for _, d := range c {
		out = append(out, d)
	}
	return out
}

// recordingMetrics captures what the services report
type recordingMetrics struct {
	accountsCreated int
	postings        int
	rejected        []string
	charts          []string
}

func (r *recordingMetrics) RecordAccountsCreated(_ context.Context, _ uuid.UUID, count int) {
	r.accountsCreated += count
}

func (r *recordingMetrics) RecordPosting(_ context.Context, _ uuid.UUID, _ int, _ int64, _ bool) {
	r.postings++
}

func (r *recordingMetrics) RecordPostingRejected(_ context.Context, _ uuid.UUID, reason string) {
	r.rejected = append(r.rejected, reason)
}

func (r *recordingMetrics) RecordChartInitialized(_ context.Context, _ uuid.UUID, templateName string) {
	r.charts = append(r.charts, templateName)
}

// Test fixtures

func newAccount(t *testing.T, tenantID uuid.UUID, number string, accountType ledger.AccountType, isHeader bool) *ledger.GLAccount {
	t.Helper()
	a, err := ledger.NewGLAccount(tenantID, ledger.AccountFields{
		AccountNumber:   number,
		Name:            "Account " + number,
		AccountType:     accountType,
		IsHeaderAccount: isHeader,
	})
	if err != nil {
		t.Fatalf("new account %s: %v", number, err)
	}
	a.ClearDomainEvents()
	return a
}

func childOf(child, parent *ledger.GLAccount) *ledger.GLAccount {
	id := parent.ID
	child.ParentAccountID = &id
	return child
}

func ptr[T any](v T) *T {
	return &v
}
