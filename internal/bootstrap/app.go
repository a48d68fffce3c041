// Package bootstrap wires configuration, infrastructure and the ledger services together
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	appledger "github.com/propmgr/ledger/internal/application/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/propmgr/ledger/internal/infrastructure/cache"
	"github.com/propmgr/ledger/internal/infrastructure/config"
	"github.com/propmgr/ledger/internal/infrastructure/event"
	"github.com/propmgr/ledger/internal/infrastructure/logger"
	"github.com/propmgr/ledger/internal/infrastructure/persistence"
	"github.com/propmgr/ledger/internal/infrastructure/telemetry"
	"github.com/propmgr/ledger/internal/infrastructure/template"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ appledger.MetricsRecorder = (*telemetry.LedgerMetrics)(nil)

// App holds the ledger services and the resources they depend on
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Telemetry *telemetry.Providers
	Database  *persistence.Database
	EventBus  *event.InMemoryEventBus

	Accounts  *appledger.AccountService
	Hierarchy *appledger.HierarchyService
	Postings  *appledger.PostingService
	Taxes     *appledger.TaxService
	Templates *appledger.TemplateService

	closers []func(context.Context) error
}

type options struct {
	logger   *zap.Logger
	database *persistence.Database
}

// Option customizes New
type Option func(*options)

// WithLogger uses l instead of building a logger from the log section
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDatabase uses db instead of connecting with the database section. App.Close does not close it.
func WithDatabase(db *persistence.Database) Option {
	return func(o *options) { o.database = db }
}

// New builds the application. On error every resource opened so far is released.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	log := o.logger
	if log == nil {
		if log, err = logger.New(logger.FromLogConfig(cfg.Log)); err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		app.onClose(func(context.Context) error { _ = log.Sync(); return nil })
	}

	app.Telemetry, err = telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	app.onClose(app.Telemetry.Shutdown)
	if app.Telemetry.Enabled() {
		otelCore := app.Telemetry.ZapCore(log.Level())
		log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, otelCore)
		}))
	}
	app.Logger = log

	app.Database = o.database
	if app.Database == nil {
		tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log)
		app.Database, err = persistence.NewDatabase(&cfg.Database,
			persistence.WithLogger(log, logger.GormLevel(cfg.Log.Level)),
			persistence.WithTracing(tracing))
		if err != nil {
			return nil, err
		}
		app.onClose(func(context.Context) error { return app.Database.Close() })
	}
	log.Info("Database connected")

	catalog, err := loadCatalog(cfg.Ledger.TemplateCatalogPath)
	if err != nil {
		return nil, err
	}

	lock, err := cache.NewInitLockFactory(cfg.Redis, cfg.Ledger,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env == "development"),
	).CreateLock()
	if err != nil {
		return nil, err
	}
	if closer, ok := lock.(io.Closer); ok {
		app.onClose(func(context.Context) error { return closer.Close() })
	}

	metrics, err := telemetry.NewLedgerMetrics(app.Telemetry.Meter(telemetry.MeterName))
	if err != nil {
		return nil, fmt.Errorf("init ledger metrics: %w", err)
	}

	app.EventBus = event.NewInMemoryEventBus(log)
	app.EventBus.Subscribe(event.NewAuditLogHandler(event.NewLedgerEventSerializer(), log))

	db := app.Database.DB
	accountRepo := persistence.NewGormGLAccountRepository(db)
	taxRateRepo := persistence.NewGormTaxRateRepository(db)
	transactionRepo := persistence.NewGormLedgerTransactionRepository(db)
	txScope := persistence.NewGormTransactionScope(db)

	app.Accounts = appledger.NewAccountService(accountRepo, txScope, log)
	app.Hierarchy = appledger.NewHierarchyService(accountRepo, txScope, log)
	app.Postings = appledger.NewPostingService(txScope, transactionRepo, log)
	app.Postings.SetMaxLines(cfg.Ledger.MaxPostingLines)
	app.Taxes = appledger.NewTaxService(taxRateRepo, log)
	app.Templates = appledger.NewTemplateService(accountRepo, txScope, catalog, lock, log)

	for _, svc := range []interface {
		SetEventPublisher(publisher shared.EventPublisher)
		SetMetrics(metrics appledger.MetricsRecorder)
	}{app.Accounts, app.Hierarchy, app.Postings, app.Taxes, app.Templates} {
		svc.SetEventPublisher(app.EventBus)
		svc.SetMetrics(metrics)
	}

	log.Info("Ledger services ready",
		zap.String("env", cfg.App.Env),
		zap.String("init_lock_backend", cfg.Ledger.InitLockBackend),
		zap.Int("templates", len(catalog.List())),
		zap.Bool("telemetry", app.Telemetry.Enabled()))
	return app, nil
}

func loadCatalog(path string) (*template.Catalog, error) {
	if path == "" {
		return template.LoadDefault()
	}
	catalog, err := template.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load chart templates from %s: %w", path, err)
	}
	return catalog, nil
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in the reverse order they were acquired
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
