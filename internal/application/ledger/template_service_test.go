package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func smallTemplate() *ledger.ChartTemplateDefinition {
	// Children listed before their parents on purpose
	return &ledger.ChartTemplateDefinition{
		Name:         "property_management",
		Jurisdiction: "US",
		Entries: []ledger.ChartTemplateEntry{
			{AccountNumber: "1100", Name: "Operating Cash", AccountType: ledger.AccountTypeAsset, ParentAccountNumber: "1000", IsBank: true},
			{AccountNumber: "1000", Name: "Assets", AccountType: ledger.AccountTypeAsset, IsHeader: true},
			{AccountNumber: "4000", Name: "Income", AccountType: ledger.AccountTypeRevenue, IsHeader: true},
			{AccountNumber: "4100", Name: "Rent Income", AccountType: ledger.AccountTypeRevenue, ParentAccountNumber: "4000"},
		},
	}
}

type templateFixture struct {
	svc      *TemplateService
	accounts *mockAccountRepository
	lock     *mockInitLock
	metrics  *recordingMetrics
	tenantID uuid.UUID
}

func newTemplateFixture(t *testing.T, defs ...*ledger.ChartTemplateDefinition) *templateFixture {
	catalog := staticCatalog{}
	for _, d := range defs {
		catalog[d.Key()] = d
	}
	f := &templateFixture{
		accounts: new(mockAccountRepository),
		lock:     new(mockInitLock),
		metrics:  &recordingMetrics{},
		tenantID: uuid.New(),
	}
	f.svc = NewTemplateService(f.accounts, NewNoOpTransactionScope(f.accounts, new(mockTransactionRepository)),
		catalog, f.lock, zaptest.NewLogger(t))
	f.svc.SetMetrics(f.metrics)
	return f
}

func TestTemplateService_Initialize(t *testing.T) {
	ctx := context.Background()

	t.Run("creates accounts then wires parents", func(t *testing.T) {
		f := newTemplateFixture(t, smallTemplate())
		publisher := new(mockEventPublisher)
		f.svc.SetEventPublisher(publisher)

		var created []*ledger.GLAccount
		f.accounts.On("ExistsForTenant", mock.Anything, f.tenantID).Return(false, nil)
		f.lock.On("TryLock", mock.Anything, f.tenantID).Return(true, nil)
		f.lock.On("Unlock", mock.Anything, f.tenantID).Return(nil)
		f.accounts.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			created = args.Get(1).([]*ledger.GLAccount)
			for _, a := range created {
				assert.Nil(t, a.ParentAccountID, "accounts are inserted unparented")
			}
		}).Return(nil)
		f.accounts.On("SaveWithLock", mock.Anything, mock.Anything, 1).Return(nil)
		publisher.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 1 && events[0].EventType() == ledger.EventTypeChartOfAccountsInitialized
		})).Return(nil)

		resp, err := f.svc.Initialize(ctx, f.tenantID, "Property_Management", "us")
		require.NoError(t, err)
		assert.Equal(t, 4, resp.AccountsCreated)
		f.accounts.AssertNumberOfCalls(t, "SaveWithLock", 2)

		byNumber := map[string]*ledger.GLAccount{}
		for _, a := range created {
			byNumber[a.AccountNumber] = a
		}
		require.NotNil(t, byNumber["1100"].ParentAccountID)
		assert.Equal(t, byNumber["1000"].ID, *byNumber["1100"].ParentAccountID)
		assert.Equal(t, byNumber["4000"].ID, *byNumber["4100"].ParentAccountID)
		assert.Nil(t, byNumber["1000"].ParentAccountID)

		_, err = ledger.BuildTree(f.tenantID, created)
		require.NoError(t, err)
		assert.Equal(t, 4, f.metrics.accountsCreated)
		assert.Equal(t, []string{"property_management"}, f.metrics.charts)
		f.lock.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("refuses a tenant that already has accounts", func(t *testing.T) {
		f := newTemplateFixture(t, smallTemplate())
		f.accounts.On("ExistsForTenant", mock.Anything, f.tenantID).Return(true, nil)

		_, err := f.svc.Initialize(ctx, f.tenantID, "property_management", "US")
		assert.True(t, errors.Is(err, shared.NewTemplateError("CHART_ALREADY_INITIALIZED", "")))
		assert.True(t, errors.Is(err, shared.ErrState))
		f.lock.AssertNotCalled(t, "TryLock", mock.Anything, mock.Anything)
		f.accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown template", func(t *testing.T) {
		f := newTemplateFixture(t, smallTemplate())
		f.accounts.On("ExistsForTenant", mock.Anything, f.tenantID).Return(false, nil)

		_, err := f.svc.Initialize(ctx, f.tenantID, "property_management", "FR")
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("invalid template is rejected before any write", func(t *testing.T) {
		def := smallTemplate()
		def.Entries[0].ParentAccountNumber = "1999"
		f := newTemplateFixture(t, def)
		f.accounts.On("ExistsForTenant", mock.Anything, f.tenantID).Return(false, nil)

		_, err := f.svc.Initialize(ctx, f.tenantID, "property_management", "US")
		assert.True(t, errors.Is(err, shared.ErrTemplate))
		f.lock.AssertNotCalled(t, "TryLock", mock.Anything, mock.Anything)
		f.accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("concurrent initialization holds the lock", func(t *testing.T) {
		f := newTemplateFixture(t, smallTemplate())
		f.accounts.On("ExistsForTenant", mock.Anything, f.tenantID).Return(false, nil)
		f.lock.On("TryLock", mock.Anything, f.tenantID).Return(false, nil)

		_, err := f.svc.Initialize(ctx, f.tenantID, "property_management", "US")
		assert.True(t, errors.Is(err, shared.NewTemplateError("INITIALIZATION_IN_PROGRESS", "")))
		f.lock.AssertNotCalled(t, "Unlock", mock.Anything, mock.Anything)
	})

	t.Run("a duplicate insert means someone else initialized", func(t *testing.T) {
		f := newTemplateFixture(t, smallTemplate())
		f.accounts.On("ExistsForTenant", mock.Anything, f.tenantID).Return(false, nil)
		f.lock.On("TryLock", mock.Anything, f.tenantID).Return(true, nil)
		f.lock.On("Unlock", mock.Anything, f.tenantID).Return(nil)
		f.accounts.On("Create", mock.Anything, mock.Anything).
			Return(shared.NewValidationError("DUPLICATE_ACCOUNT_NUMBER", "taken"))

		_, err := f.svc.Initialize(ctx, f.tenantID, "property_management", "US")
		assert.True(t, errors.Is(err, shared.NewTemplateError("CHART_ALREADY_INITIALIZED", "")))
		assert.True(t, errors.Is(err, shared.ErrState))
		f.lock.AssertExpectations(t)
	})
}

func TestTemplateService_ListTemplates(t *testing.T) {
	f := newTemplateFixture(t, smallTemplate())
	list := f.svc.ListTemplates()
	require.Len(t, list, 1)
	assert.Equal(t, "property_management", list[0].Name)
	assert.Equal(t, 4, list[0].AccountCount)
}
