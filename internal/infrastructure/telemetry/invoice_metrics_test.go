package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/infinity-9427/invoicing/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

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

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func newTestMetrics(t *testing.T) (*telemetry.InvoiceMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := telemetry.NewInvoiceMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func TestInvoiceMetrics_Counters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.InvoiceCreated(ctx)
	m.InvoiceCreated(ctx)
	m.StatusChanged(ctx, "paid")
	m.OverdueSwept(ctx, 3)
	m.OverdueSwept(ctx, 0)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["invoices_created_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["invoice_status_changes_total"]))
	assert.Equal(t, int64(3), sumOf(t, got["invoice_overdue_swept_total"]))
}

func TestInvoiceMetrics_PDFOperation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.PDFOperation(ctx, telemetry.PDFOperationGenerate, 300*time.Millisecond, nil)
	m.PDFOperation(ctx, telemetry.PDFOperationRegenerate, time.Second, errors.New("render failed"))
	m.PDFOperation(ctx, telemetry.PDFOperationDelete, 0, nil)

	got := collect(t, reader)
	ops := got["invoice_pdf_operations_total"].Data.(metricdata.Sum[int64])
	require.Len(t, ops.DataPoints, 3)

	var failures int64
	for _, dp := range ops.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key("outcome")); ok && v.AsString() == "failure" {
			failures += dp.Value
		}
	}
	assert.Equal(t, int64(1), failures)

	hist := got["invoice_pdf_render_duration_seconds"].Data.(metricdata.Histogram[float64])
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count, "delete does not record a duration")
}

func TestInvoiceMetrics_NilSafe(t *testing.T) {
	var m *telemetry.InvoiceMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.InvoiceCreated(ctx)
		m.StatusChanged(ctx, "paid")
		m.PDFOperation(ctx, telemetry.PDFOperationGenerate, time.Second, nil)
		m.OverdueSwept(ctx, 1)
	})
}
