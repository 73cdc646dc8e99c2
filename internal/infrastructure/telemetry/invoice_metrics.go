package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PDF operations recorded by InvoiceMetrics
const (
	PDFOperationGenerate   = "generate"
	PDFOperationRegenerate = "regenerate"
	PDFOperationDelete     = "delete"
)

// InvoiceMetrics records the invoicing counters and histograms. A nil
// *InvoiceMetrics discards every measurement.
type InvoiceMetrics struct {
	created       metric.Int64Counter
	statusChanges metric.Int64Counter
	pdfDuration   metric.Float64Histogram
	pdfOperations metric.Int64Counter
	overdueSwept  metric.Int64Counter
}

// NewInvoiceMetrics registers the instruments on meter
func NewInvoiceMetrics(meter metric.Meter) (*InvoiceMetrics, error) {
	m := &InvoiceMetrics{}
	var err error
	if m.created, err = meter.Int64Counter("invoices_created_total",
		metric.WithDescription("Invoices created"),
		metric.WithUnit("{invoice}")); err != nil {
		return nil, err
	}
	if m.statusChanges, err = meter.Int64Counter("invoice_status_changes_total",
		metric.WithDescription("Invoice status transitions by target status"),
		metric.WithUnit("{transition}")); err != nil {
		return nil, err
	}
	if m.pdfDuration, err = meter.Float64Histogram("invoice_pdf_render_duration_seconds",
		metric.WithDescription("Time spent rendering invoice PDFs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30)); err != nil {
		return nil, err
	}
	if m.pdfOperations, err = meter.Int64Counter("invoice_pdf_operations_total",
		metric.WithDescription("PDF artifact operations by kind and outcome"),
		metric.WithUnit("{operation}")); err != nil {
		return nil, err
	}
	if m.overdueSwept, err = meter.Int64Counter("invoice_overdue_swept_total",
		metric.WithDescription("Invoices flipped to overdue by the sweep"),
		metric.WithUnit("{invoice}")); err != nil {
		return nil, err
	}
	return m, nil
}

// InvoiceCreated counts one new invoice
func (m *InvoiceMetrics) InvoiceCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.created.Add(ctx, 1)
}

// StatusChanged counts one transition into status
func (m *InvoiceMetrics) StatusChanged(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.statusChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// PDFOperation records a PDF operation outcome. Render duration is only
// recorded for generate and regenerate.
func (m *InvoiceMetrics) PDFOperation(ctx context.Context, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.pdfOperations.Add(ctx, 1, attrs)
	if operation != PDFOperationDelete {
		m.pdfDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// OverdueSwept counts invoices flipped by one sweep
func (m *InvoiceMetrics) OverdueSwept(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.overdueSwept.Add(ctx, int64(n))
}
