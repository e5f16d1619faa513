package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include bound variables in db.statement (development only)
	SlowQueryThresh time.Duration // queries slower than this get db.slow_query=true
	DBName          string
}

// DefaultDBTracingConfig returns the secure default: tracing off, no variables.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          "reception",
	}
}

// DBTracingPlugin is a gorm.Plugin installing otelgorm plus slow-query annotation.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Name implements gorm.Plugin.
func (p *DBTracingPlugin) Name() string {
	return "otel_tracing"
}

// Initialize implements gorm.Plugin. It installs otelgorm and the slow-query
// callbacks, and is a no-op when tracing is disabled.
func (p *DBTracingPlugin) Initialize(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := registerAroundCallbacks(db, "otel_slow_query", markQueryStart(queryStartTimeKey), p.annotate); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

// annotate adds rows affected, table, error status and the slow query flag
// to the span otelgorm opened for the statement.
func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if elapsed, ok := sinceQueryStart(ctx, queryStartTimeKey); ok && elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}

type contextKey string

const (
	queryStartTimeKey   contextKey = "otel_query_start_time"
	metricsStartTimeKey contextKey = "metrics_query_start_time"
)

func markQueryStart(key contextKey) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = context.WithValue(db.Statement.Context, key, time.Now())
		}
	}
}

func sinceQueryStart(ctx context.Context, key contextKey) (time.Duration, bool) {
	start, ok := ctx.Value(key).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

// registerAroundCallbacks registers before and after hooks on every gorm
// processor under "<name>:before_<op>" and "<name>:after_<op>".
func registerAroundCallbacks(db *gorm.DB, name string, before, after func(*gorm.DB)) error {
	cb := db.Callback()
	steps := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register(name+":before_create", before) },
		func() error { return cb.Query().Before("gorm:query").Register(name+":before_query", before) },
		func() error { return cb.Update().Before("gorm:update").Register(name+":before_update", before) },
		func() error { return cb.Delete().Before("gorm:delete").Register(name+":before_delete", before) },
		func() error { return cb.Row().Before("gorm:row").Register(name+":before_row", before) },
		func() error { return cb.Raw().Before("gorm:raw").Register(name+":before_raw", before) },
		func() error { return cb.Create().After("gorm:create").Register(name+":after_create", after) },
		func() error { return cb.Query().After("gorm:query").Register(name+":after_query", after) },
		func() error { return cb.Update().After("gorm:update").Register(name+":after_update", after) },
		func() error { return cb.Delete().After("gorm:delete").Register(name+":after_delete", after) },
		func() error { return cb.Row().After("gorm:row").Register(name+":after_row", after) },
		func() error { return cb.Raw().After("gorm:raw").Register(name+":after_raw", after) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
