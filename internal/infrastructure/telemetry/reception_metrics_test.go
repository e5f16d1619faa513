package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumByAttr(t *testing.T, m metricdata.Metrics, key string) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestReceptionMetrics(t *testing.T) {
	reader, mp := newManualMeter(t)
	m, err := NewReceptionMetrics(mp.Meter(ReceptionMeterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSequenceAllocation(ctx, "REC")
	m.RecordSequenceAllocation(ctx, "REC")
	m.RecordTransition(ctx, "PENDIENTE")
	m.RecordTransition(ctx, "PENDIENTE")
	m.RecordTransition(ctx, "ACEPTADO")
	m.RecordUnitsReceived(ctx, 95)
	m.RecordUnitsReceived(ctx, 0)

	metrics := collect(t, reader)

	transitions := sumByAttr(t, metrics["reception_transitions_total"], "state")
	assert.Equal(t, int64(2), transitions["PENDIENTE"])
	assert.Equal(t, int64(1), transitions["ACEPTADO"])

	allocations := sumByAttr(t, metrics["reception_sequence_allocations_total"], "prefix")
	assert.Equal(t, int64(2), allocations["REC"])

	units := metrics["reception_units_received_total"].Data.(metricdata.Sum[int64])
	require.Len(t, units.DataPoints, 1)
	assert.Equal(t, int64(95), units.DataPoints[0].Value)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	reader, mp := newManualMeter(t)
	m, err := NewDBMetrics(mp.Meter("db.client"), DBMetricsConfig{SlowQueryThreshold: 100 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordQuery(ctx, "select", "receptions", 5*time.Millisecond)
	m.RecordQuery(ctx, "UPDATE", "reception_sequences", 300*time.Millisecond)
	m.RecordQuery(ctx, "", "", 150*time.Millisecond)

	metrics := collect(t, reader)
	queries := sumByAttr(t, metrics["db_query_total"], "db.operation")
	assert.Equal(t, int64(1), queries["SELECT"])
	assert.Equal(t, int64(1), queries["UPDATE"])
	assert.Equal(t, int64(1), queries["OTHER"])

	slow := sumByAttr(t, metrics["db_slow_query_total"], "db.table")
	assert.Equal(t, int64(1), slow["reception_sequences"])
	assert.Equal(t, int64(1), slow["unknown"])
	assert.NotContains(t, slow, "receptions")

	_, ok := metrics["db_query_duration_seconds"].Data.(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestDetectOperationType(t *testing.T) {
	assert.Equal(t, "SELECT", detectOperationType("  select * from receptions"))
	assert.Equal(t, "INSERT", detectOperationType("INSERT INTO stock_movements"))
	assert.Equal(t, "UPDATE", detectOperationType("update products set stock = stock + 1"))
	assert.Equal(t, "DELETE", detectOperationType("DELETE FROM reception_details"))
	assert.Equal(t, "OTHER", detectOperationType("PRAGMA foreign_keys"))
}
