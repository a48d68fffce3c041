package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/propmgr/ledger/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans (dev only)
	SlowQueryThresh time.Duration // queries above this get db.slow_query=true
	DBSystem        string
}

// DBTracingConfigFrom derives the database tracing settings from the telemetry section
func DBTracingConfigFrom(cfg config.TelemetryConfig) DBTracingConfig {
	return DBTracingConfig{
		Enabled:         cfg.DBTraceEnabled,
		LogFullSQL:      cfg.DBLogFullSQL,
		SlowQueryThresh: cfg.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}
}

type queryStartKey struct{}

// DBTracingPlugin registers otelgorm plus slow-query annotation on a gorm.DB
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates the plugin
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Register installs the plugin on db. It does nothing when tracing is disabled.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	// The annotation must run before otelgorm ends the statement span and restores the parent context
	if err := errors.Join(
		cb.Create().Before("gorm:create").Register("ledger_tracing:before_create", markQueryStart),
		cb.Query().Before("gorm:query").Register("ledger_tracing:before_query", markQueryStart),
		cb.Update().Before("gorm:update").Register("ledger_tracing:before_update", markQueryStart),
		cb.Delete().Before("gorm:delete").Register("ledger_tracing:before_delete", markQueryStart),
		cb.Row().Before("gorm:row").Register("ledger_tracing:before_row", markQueryStart),
		cb.Raw().Before("gorm:raw").Register("ledger_tracing:before_raw", markQueryStart),
		cb.Create().After("gorm:create").Before("otel:after:create").Register("ledger_tracing:after_create", p.annotate),
		cb.Query().After("gorm:query").Before("otel:after:select").Register("ledger_tracing:after_query", p.annotate),
		cb.Update().After("gorm:update").Before("otel:after:update").Register("ledger_tracing:after_update", p.annotate),
		cb.Delete().After("gorm:delete").Before("otel:after:delete").Register("ledger_tracing:after_delete", p.annotate),
		cb.Row().After("gorm:row").Before("otel:after:row").Register("ledger_tracing:after_row", p.annotate),
		cb.Raw().After("gorm:raw").Before("otel:after:raw").Register("ledger_tracing:after_raw", p.annotate),
	); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh))
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

// annotate flags statements slower than the threshold on the statement span.
// otelgorm itself records the statement, table, rows affected and errors.
func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed <= p.config.SlowQueryThresh {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
	)
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.slow_query.table", db.Statement.Table))
	}
	span.AddEvent("slow_query", trace.WithAttributes(
		attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
	))
}
