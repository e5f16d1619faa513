package telemetry

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig holds configuration for database metrics collection.
type DBMetricsConfig struct {
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

// DefaultDBMetricsConfig returns default configuration for database metrics.
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		SlowQueryThreshold: 200 * time.Millisecond,
		PoolStatsInterval:  15 * time.Second,
	}
}

// DBMetrics records query counts, latencies and connection pool usage.
// It implements gorm.Plugin.
type DBMetrics struct {
	poolConnections metric.Int64Gauge
	queryTotal      metric.Int64Counter
	queryDuration   metric.Float64Histogram
	slowQueryTotal  metric.Int64Counter

	config   DBMetricsConfig
	logger   *zap.Logger
	sqlDB    *sql.DB
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDBMetrics creates the database instruments on meter.
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultDBMetricsConfig()
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = defaults.SlowQueryThreshold
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = defaults.PoolStatsInterval
	}

	in := &instruments{meter: meter}
	m := &DBMetrics{
		poolConnections: in.gauge("db_pool_connections", "Connections in the pool by state", "{connection}"),
		queryTotal:      in.counter("db_query_total", "Database queries by operation", "{query}"),
		queryDuration:   in.seconds("db_query_duration_seconds", "Database query latency in seconds", DBDurationBuckets),
		slowQueryTotal:  in.counter("db_slow_query_total", "Database queries above the slow threshold", "{query}"),
		config:          cfg,
		logger:          logger,
		stopCh:          make(chan struct{}),
	}
	if err := in.err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Name implements gorm.Plugin.
func (m *DBMetrics) Name() string {
	return "db_metrics"
}

// Initialize implements gorm.Plugin. It registers the query callbacks and
// remembers the pool for StartPoolStatsCollection.
func (m *DBMetrics) Initialize(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	m.sqlDB = sqlDB
	return registerAroundCallbacks(db, "db_metrics", markQueryStart(metricsStartTimeKey), m.afterStatement)
}

func (m *DBMetrics) afterStatement(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	elapsed, _ := sinceQueryStart(ctx, metricsStartTimeKey)
	m.RecordQuery(ctx, detectOperationType(db.Statement.SQL.String()), db.Statement.Table, elapsed)
}

// RecordQuery records one executed statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "OTHER"
	}
	op := attrs(AttrDBOperation.String(operation))
	m.queryTotal.Add(ctx, 1, op)
	m.queryDuration.Record(ctx, duration.Seconds(), op)

	if duration > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Add(ctx, 1, attrs(AttrDBTable.String(table)))
	}
}

// StartPoolStatsCollection samples the pool every PoolStatsInterval until
// Stop is called or ctx is done.
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context) {
	if m.sqlDB == nil {
		m.logger.Warn("Cannot start pool stats collection: plugin not initialized")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.collectPoolStats(ctx)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	stats := m.sqlDB.Stats()
	for state, n := range map[string]int{
		"idle":   stats.Idle,
		"in_use": stats.InUse,
		"open":   stats.OpenConnections,
		"max":    stats.MaxOpenConnections,
	} {
		m.poolConnections.Record(ctx, int64(n), attrs(AttrDBState.String(state)))
	}
}

// Stop ends pool stats collection. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

func detectOperationType(stmt string) string {
	stmt = strings.ToUpper(strings.TrimSpace(stmt))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(stmt, op) {
			return op
		}
	}
	return "OTHER"
}
