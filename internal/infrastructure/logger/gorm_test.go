package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)
	changed, ok := gl.LogMode(gormlogger.Error).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, gl.logLevel, "original is unchanged")
	assert.Equal(t, gormlogger.Error, changed.logLevel)
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("error is logged", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn)
		gl.Trace(context.Background(), time.Now(), sqlFn("UPDATE products SET stock = stock + 5", 0), errors.New("deadlock"))

		entries := recorded.FilterMessage("SQL Error").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	})

	t.Run("record not found is ignored by default", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn)
		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("record not found can be logged", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn, WithIgnoreRecordNotFoundError(false))
		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 1, recorded.Len())
	})

	t.Run("slow query warns", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(10*time.Millisecond))
		gl.Trace(context.Background(), time.Now().Add(-50*time.Millisecond), sqlFn("SELECT * FROM receptions", 3), nil)

		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, zapcore.WarnLevel, recorded.All()[0].Level)
		assert.Contains(t, recorded.All()[0].Message, "SLOW SQL")
	})

	t.Run("fast query only at info level", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn)
		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 1), nil)
		assert.Equal(t, 0, recorded.Len())

		gl, recorded = newObservedGormLogger(gormlogger.Info)
		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 1), nil)
		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, zapcore.DebugLevel, recorded.All()[0].Level)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Silent)
		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 1), errors.New("boom"))
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("request id is attached", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Info)
		ctx := context.WithValue(context.Background(), RequestIDKey, "req-5")
		gl.Trace(ctx, time.Now(), sqlFn("SELECT 1", 1), nil)
		assert.Equal(t, 1, recorded.FilterField(zap.String("request_id", "req-5")).Len())
	})
}

func TestGormLogger_Messages(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Warn)
	gl.Info(context.Background(), "info %d", 1)
	gl.Warn(context.Background(), "warn %d", 2)
	gl.Error(context.Background(), "error %d", 3)

	assert.Equal(t, 0, recorded.FilterMessage("info 1").Len())
	assert.Equal(t, 1, recorded.FilterMessage("warn 2").Len())
	assert.Equal(t, 1, recorded.FilterMessage("error 3").Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("INFO"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
