package invoice

import (
	"context"
	"time"

	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/infinity-9427/invoicing/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OverdueSweeper flips pending invoices past their due date to overdue. The
// status write happens here; the document refresh is left to the event
// consumers of the InvoiceUpdated events it publishes.
type OverdueSweeper struct {
	repo      invoice.Repository
	publisher shared.EventPublisher
	metrics   *telemetry.InvoiceMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewOverdueSweeper creates an OverdueSweeper
func NewOverdueSweeper(repo invoice.Repository, publisher shared.EventPublisher, metrics *telemetry.InvoiceMetrics, logger *zap.Logger) *OverdueSweeper {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueSweeper{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Run sweeps as of the current time. It matches the scheduler job signature.
func (s *OverdueSweeper) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx, s.now())
	return err
}

// Sweep marks every pending invoice due strictly before now as overdue and
// publishes one status update per flipped invoice
func (s *OverdueSweeper) Sweep(ctx context.Context, now time.Time) (result *SweepResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "sweep_overdue")
	defer func() { telemetry.EndSpan(span, err) }()

	flipped, err := s.repo.MarkOverdue(ctx, now)
	if err != nil {
		return nil, err
	}

	result = &SweepResult{CheckedAt: now, Count: len(flipped), Invoices: make([]OverdueInvoice, 0, len(flipped))}
	events := make([]shared.DomainEvent, 0, len(flipped))
	for i := range flipped {
		inv := &flipped[i]
		before := inv.Snapshot()
		before.Status = invoice.StatusPending.String()
		events = append(events, invoice.NewInvoiceUpdatedEvent(inv, before, []invoice.Field{invoice.FieldStatus}))

		result.Invoices = append(result.Invoices, OverdueInvoice{
			ID:            inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			DueDate:       inv.DueDate.Format(DateLayout),
			TotalAmount:   inv.TotalAmount,
			DaysOverdue:   inv.DaysOverdue(now),
		})
	}
	span.SetAttributes(attribute.Int("invoice.flipped", len(flipped)))

	if len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Error("Failed to publish overdue updates", zap.Int("count", len(events)), zap.Error(err))
		}
	}
	s.metrics.OverdueSwept(ctx, len(flipped))
	s.logger.Info("Overdue sweep finished",
		zap.Time("checked_at", now),
		zap.Int("flipped", len(flipped)))
	return result, nil
}
