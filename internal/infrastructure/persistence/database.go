package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/reception/internal/infrastructure/config"
	"github.com/erp/reception/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database is an open gorm handle plus the pool behind it
type Database struct {
	DB  *gorm.DB
	sql *sql.DB
}

// DatabaseOption customizes Open
type DatabaseOption func(*openOptions)

type openOptions struct {
	log     *zap.Logger
	slow    time.Duration
	plugins []gorm.Plugin
}

// WithZapLogger routes gorm's SQL log through zap. Queries slower than
// slowThreshold are logged at warn.
func WithZapLogger(l *zap.Logger, slowThreshold time.Duration) DatabaseOption {
	return func(o *openOptions) {
		o.log = l
		o.slow = slowThreshold
	}
}

// WithPlugins installs gorm plugins such as tracing and metrics once the
// pool answers
func WithPlugins(plugins ...gorm.Plugin) DatabaseOption {
	return func(o *openOptions) { o.plugins = append(o.plugins, plugins...) }
}

// NewDatabase connects to the PostgreSQL server described by cfg
func NewDatabase(cfg *config.DatabaseConfig, opts ...DatabaseOption) (*Database, error) {
	return Open(postgres.Open(cfg.DSN()), cfg, opts...)
}

// Open connects through dialector, sizes the pool from cfg and checks the
// connection. TranslateError is on, so unique violations surface as
// gorm.ErrDuplicatedKey whatever the driver.
func Open(dialector gorm.Dialector, cfg *config.DatabaseConfig, opts ...DatabaseOption) (*Database, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	var gl gormlogger.Interface = gormlogger.Discard
	if o.log != nil {
		gl = logger.NewGormLogger(o.log,
			logger.MapGormLogLevel(cfg.LogLevel),
			logger.WithSlowThreshold(o.slow),
			logger.WithIgnoreRecordNotFoundError(true),
		)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}
	configurePool(pool, cfg)

	d := &Database{DB: db, sql: pool}
	if err := d.Ping(context.Background()); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, p := range o.plugins {
		if err := db.Use(p); err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("register gorm plugin %s: %w", p.Name(), err)
		}
	}
	return d, nil
}

func configurePool(pool *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

// Ping checks that a connection can be obtained
func (d *Database) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.sql.Close()
}
