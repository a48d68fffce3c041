package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	appledger "github.com/propmgr/ledger/internal/application/ledger"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/propmgr/ledger/internal/infrastructure/config"
	"github.com/propmgr/ledger/internal/infrastructure/persistence"
	"github.com/propmgr/ledger/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDatabase(t *testing.T) *persistence.Database {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.LedgerModels()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return &persistence.Database{DB: db}
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "ledger", Env: "test"},
		Log: config.LogConfig{Level: "info", Format: "json", Output: "stdout"},
		Ledger: config.LedgerConfig{
			InitLockBackend: config.InitLockMemory,
			InitLockTTL:     time.Minute,
			MaxPostingLines: 4,
		},
	}
}

func TestNew_WiresLedgerServices(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)

	app, err := New(ctx, testConfig(), WithLogger(zap.New(core)), WithDatabase(newTestDatabase(t)))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close(ctx)) })
	assert.False(t, app.Telemetry.Enabled())

	tenantID := uuid.New()
	resp, err := app.Templates.Initialize(ctx, tenantID, "property_management", "US")
	require.NoError(t, err)
	assert.Positive(t, resp.AccountsCreated)

	audit := logs.FilterMessage("ledger event").FilterField(zap.String("event_type", ledger.EventTypeChartOfAccountsInitialized))
	assert.Equal(t, 1, audit.Len(), "the audit handler is subscribed to the bus")

	cash, err := app.Accounts.GetAccountByNumber(ctx, tenantID, "1110")
	require.NoError(t, err)
	rent, err := app.Accounts.GetAccountByNumber(ctx, tenantID, "4100")
	require.NoError(t, err)

	_, err = app.Postings.Post(ctx, tenantID, appledger.PostTransactionRequest{
		TransactionDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Reference:       "RENT-2026-03",
		Lines: []appledger.PostingLineRequest{
			{AccountID: cash.ID, Direction: "debit", AmountCents: 185000},
			{AccountID: rent.ID, Direction: "credit", AmountCents: 185000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("ledger event").
		FilterField(zap.String("event_type", ledger.EventTypeLedgerTransactionPosted)).Len())

	balance, err := app.Accounts.GetAccountBalance(ctx, tenantID, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(185000), balance.BalanceCents)

	// max_posting_lines is applied
	lines := make([]appledger.PostingLineRequest, 5)
	for i := range lines {
		lines[i] = appledger.PostingLineRequest{AccountID: cash.ID, Direction: "debit", AmountCents: 1}
	}
	_, err = app.Postings.Post(ctx, tenantID, appledger.PostTransactionRequest{
		TransactionDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Lines:           lines,
	})
	assert.True(t, errors.Is(err, shared.NewValidationError("TOO_MANY_LINES", "")))
}

func TestNew_RejectsMissingCatalog(t *testing.T) {
	cfg := testConfig()
	cfg.Ledger.TemplateCatalogPath = t.TempDir() + "/missing.yaml"

	app, err := New(context.Background(), cfg, WithLogger(zap.NewNop()), WithDatabase(newTestDatabase(t)))
	require.Error(t, err)
	assert.Nil(t, app)
	assert.Contains(t, err.Error(), "load chart templates")
}
