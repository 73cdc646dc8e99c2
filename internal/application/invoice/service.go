// Package invoice implements the invoice use cases: issuing, editing,
// deleting, status changes, listings and the overdue sweep.
package invoice

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/application/printing"
	"github.com/infinity-9427/invoicing/internal/domain/client"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/infinity-9427/invoicing/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// maxNumberAttempts bounds retries when concurrent creators race for the
	// same generated number
	maxNumberAttempts  = 5
	defaultRecentLimit = 10
	maxRecentLimit     = 50
)

// DocumentDescriber resolves stored PDF references for read models
type DocumentDescriber interface {
	Describe(ctx context.Context, ref *string) printing.PDFInfo
}

// Option configures a Service
type Option func(*Service)

// WithDocuments enriches responses with PDF availability
func WithDocuments(d DocumentDescriber) Option {
	return func(s *Service) { s.documents = d }
}

// WithMetrics records invoice metrics
func WithMetrics(m *telemetry.InvoiceMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source used for numbering and overdue flags
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service handles invoice business operations
type Service struct {
	repo      invoice.Repository
	clients   client.Repository
	publisher shared.EventPublisher
	documents DocumentDescriber
	metrics   *telemetry.InvoiceMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new invoice Service
func NewService(repo invoice.Repository, clients client.Repository, publisher shared.EventPublisher, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		clients:   clients,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	if s.publisher == nil {
		s.publisher = shared.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create issues a new invoice for the actor
func (s *Service) Create(ctx context.Context, actor identity.Actor, req CreateInvoiceRequest) (resp *InvoiceResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := invoice.AuthorizeCreate(actor); err != nil {
		return nil, err
	}
	if err := s.ensureClient(ctx, req.ClientID); err != nil {
		return nil, err
	}
	issue, err := parseDate("issue_date", req.IssueDate)
	if err != nil {
		return nil, err
	}
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		return nil, err
	}
	var status invoice.Status
	if req.Status != "" {
		if status, err = invoice.ParseStatus(req.Status); err != nil {
			return nil, err
		}
	}

	params := invoice.CreateParams{
		ClientID:        req.ClientID,
		UserID:          actor.UserID,
		Description:     req.Description,
		AdditionalNotes: req.AdditionalNotes,
		IssueDate:       issue,
		DueDate:         due,
		Status:          status,
		AttachmentPath:  normalizePath(req.AttachmentPath),
		Items:           toLineSpecs(req.Items),
	}

	var inv *invoice.Invoice
	if number := strings.TrimSpace(req.InvoiceNumber); number != "" {
		params.InvoiceNumber = number
		inv, err = s.createWithNumber(ctx, params)
	} else {
		inv, err = s.createWithGeneratedNumber(ctx, params)
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("invoice.number", inv.InvoiceNumber))

	s.publish(ctx, inv)
	s.metrics.InvoiceCreated(ctx)
	s.logger.Info("Invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("user_id", actor.UserID.String()),
		zap.String("total_amount", inv.TotalAmount.StringFixed(2)))

	return s.load(ctx, inv.ID)
}

func (s *Service) createWithNumber(ctx context.Context, params invoice.CreateParams) (*invoice.Invoice, error) {
	exists, err := s.repo.ExistsByNumber(ctx, params.InvoiceNumber, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, invoice.ErrNumberConflict
	}
	inv, err := invoice.NewInvoice(params)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// createWithGeneratedNumber retries on a number conflict; the unique index is
// the only authority on which creator won
func (s *Service) createWithGeneratedNumber(ctx context.Context, params invoice.CreateParams) (*invoice.Invoice, error) {
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		number, err := s.repo.NextNumber(ctx, s.now())
		if err != nil {
			return nil, err
		}
		params.InvoiceNumber = number
		inv, err := invoice.NewInvoice(params)
		if err != nil {
			return nil, err
		}
		err = s.repo.Create(ctx, inv)
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, invoice.ErrNumberConflict) {
			return nil, err
		}
		s.logger.Debug("Generated invoice number taken, retrying",
			zap.String("invoice_number", number),
			zap.Int("attempt", attempt))
	}
	return nil, invoice.ErrNumberConflict
}

// Update applies a partial update
func (s *Service) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, req UpdateInvoiceRequest) (resp *InvoiceResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "update",
		telemetry.WithAttributes(attribute.String("invoice.id", id.String())))
	defer func() { telemetry.EndSpan(span, err) }()

	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Authorize(actor, invoice.ActionUpdate, inv); err != nil {
		return nil, err
	}

	params, err := s.updateParams(ctx, inv, req)
	if err != nil {
		return nil, err
	}
	changed, err := inv.ApplyUpdate(params)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return s.toResponse(ctx, inv), nil
	}

	if err := s.repo.Update(ctx, inv, changed); err != nil {
		return nil, err
	}
	s.publish(ctx, inv)
	if slices.Contains(changed, invoice.FieldStatus) {
		s.metrics.StatusChanged(ctx, inv.Status.String())
	}
	s.logger.Info("Invoice updated",
		zap.String("invoice_id", inv.ID.String()),
		zap.Any("changed_fields", changed))

	return s.load(ctx, inv.ID)
}

func (s *Service) updateParams(ctx context.Context, inv *invoice.Invoice, req UpdateInvoiceRequest) (invoice.UpdateParams, error) {
	p := invoice.UpdateParams{
		Description:     req.Description,
		AdditionalNotes: req.AdditionalNotes,
		AttachmentPath:  req.AttachmentPath,
	}
	if req.InvoiceNumber != nil {
		number := strings.TrimSpace(*req.InvoiceNumber)
		if number != inv.InvoiceNumber {
			exists, err := s.repo.ExistsByNumber(ctx, number, &inv.ID)
			if err != nil {
				return p, err
			}
			if exists {
				return p, invoice.ErrNumberConflict
			}
		}
		p.InvoiceNumber = &number
	}
	if req.ClientID != nil {
		if *req.ClientID != inv.ClientID {
			if err := s.ensureClient(ctx, *req.ClientID); err != nil {
				return p, err
			}
		}
		p.ClientID = req.ClientID
	}
	if req.IssueDate != nil {
		d, err := parseDate("issue_date", *req.IssueDate)
		if err != nil {
			return p, err
		}
		p.IssueDate = &d
	}
	if req.DueDate != nil {
		d, err := parseDate("due_date", *req.DueDate)
		if err != nil {
			return p, err
		}
		p.DueDate = &d
	}
	if req.Status != nil {
		st, err := invoice.ParseStatus(*req.Status)
		if err != nil {
			return p, err
		}
		p.Status = &st
	}
	if req.Items != nil {
		specs := toLineSpecs(*req.Items)
		p.Items = &specs
	}
	return p, nil
}

// Delete removes an invoice and its items
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "delete",
		telemetry.WithAttributes(attribute.String("invoice.id", id.String())))
	defer func() { telemetry.EndSpan(span, err) }()

	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := invoice.Authorize(actor, invoice.ActionDelete, inv); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	inv.MarkDeleted()
	s.publish(ctx, inv)
	s.logger.Info("Invoice deleted",
		zap.String("invoice_id", id.String()),
		zap.String("invoice_number", inv.InvoiceNumber))
	return nil
}

// UpdateStatus sets the payment status explicitly
func (s *Service) UpdateStatus(ctx context.Context, actor identity.Actor, id uuid.UUID, raw string) (resp *InvoiceResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "update_status",
		telemetry.WithAttributes(attribute.String("invoice.id", id.String())))
	defer func() { telemetry.EndSpan(span, err) }()

	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Authorize(actor, invoice.ActionUpdateStatus, inv); err != nil {
		return nil, err
	}
	status, err := invoice.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	previous := inv.Status
	if err := inv.ChangeStatus(status); err != nil {
		return nil, err
	}
	if len(inv.GetDomainEvents()) == 0 {
		return s.toResponse(ctx, inv), nil
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.publish(ctx, inv)
	s.metrics.StatusChanged(ctx, status.String())
	s.logger.Info("Invoice status changed",
		zap.String("invoice_id", id.String()),
		zap.String("from", previous.String()),
		zap.String("to", status.String()))

	return s.load(ctx, id)
}

// GetByID returns a hydrated invoice
func (s *Service) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Authorize(actor, invoice.ActionView, inv); err != nil {
		return nil, err
	}
	return s.toResponse(ctx, inv), nil
}

// List returns a page of invoices visible to the actor
func (s *Service) List(ctx context.Context, actor identity.Actor, req ListInvoicesRequest) (*shared.Paginated[InvoiceResponse], error) {
	filter, err := toFilter(req)
	if err != nil {
		return nil, err
	}
	if filter, err = invoice.ScopeFilter(actor, filter); err != nil {
		return nil, err
	}
	invs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]InvoiceResponse, len(invs))
	for i := range invs {
		items[i] = *s.toResponse(ctx, &invs[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Recent returns the actor's most recently created invoices
func (s *Service) Recent(ctx context.Context, actor identity.Actor, limit int) ([]InvoiceResponse, error) {
	if limit < 1 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	filter := invoice.DefaultListFilter()
	filter.PageSize = limit
	filter, err := invoice.ScopeFilter(actor, filter)
	if err != nil {
		return nil, err
	}
	invs, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]InvoiceResponse, len(invs))
	for i := range invs {
		out[i] = *s.toResponse(ctx, &invs[i])
	}
	return out, nil
}

// Statistics aggregates the invoices visible to the actor
func (s *Service) Statistics(ctx context.Context, actor identity.Actor) (*invoice.Statistics, error) {
	if actor.IsGuest() {
		return nil, shared.NewForbiddenError("You are not allowed to view invoice statistics")
	}
	var userID *uuid.UUID
	if !actor.IsAdmin() {
		id := actor.UserID
		userID = &id
	}
	return s.repo.Statistics(ctx, userID)
}

func (s *Service) ensureClient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.clients.FindByID(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return client.ErrClientNotFound
		}
		return err
	}
	return nil
}

// publish hands the aggregate's pending events to the bus. The mutation has
// committed, so a publish failure is logged rather than returned.
func (s *Service) publish(ctx context.Context, inv *invoice.Invoice) {
	events := inv.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish invoice events",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err))
	}
	inv.ClearDomainEvents()
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, inv), nil
}

func (s *Service) toResponse(ctx context.Context, inv *invoice.Invoice) *InvoiceResponse {
	now := s.now()
	resp := &InvoiceResponse{
		ID:              inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		ClientID:        inv.ClientID,
		UserID:          inv.UserID,
		Description:     inv.Description,
		AdditionalNotes: inv.AdditionalNotes,
		IssueDate:       inv.IssueDate.Format(DateLayout),
		DueDate:         inv.DueDate.Format(DateLayout),
		TotalAmount:     inv.TotalAmount,
		Status:          inv.Status.String(),
		IsOverdue:       inv.Status == invoice.StatusOverdue || inv.IsOverdueAt(now),
		AttachmentPath:  inv.AttachmentPath,
		Client:          inv.Client,
		User:            inv.User,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
		Items:           make([]ItemResponse, len(inv.Items)),
	}
	if resp.IsOverdue {
		resp.DaysOverdue = inv.DaysOverdue(now)
	}
	for i, it := range inv.Items {
		resp.Items[i] = ItemResponse{
			ID:          it.ID,
			Name:        it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     it.TaxRate,
			TaxAmount:   it.TaxAmount,
			TotalAmount: it.TotalAmount,
		}
	}
	if s.documents != nil {
		info := s.documents.Describe(ctx, inv.PDFPath)
		resp.HasPDF = info.HasPDF
		resp.PDFURL = info.PDFURL
		resp.PDFSize = info.PDFSize
	}
	return resp
}

func toLineSpecs(items []ItemRequest) []invoice.LineSpec {
	specs := make([]invoice.LineSpec, len(items))
	for i, it := range items {
		specs[i] = invoice.LineSpec{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			TaxRate:   it.TaxRate,
		}
	}
	return specs
}

func toFilter(req ListInvoicesRequest) (invoice.Filter, error) {
	f := invoice.DefaultListFilter()
	f.Page = req.Page
	f.PageSize = req.PageSize
	f.Search = strings.TrimSpace(req.Search)
	if req.OrderBy != "" {
		f.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		f.OrderDir = req.OrderDir
	}
	f.Filter = f.Filter.Normalize()
	f.Number = strings.TrimSpace(req.Number)
	f.ClientID = req.ClientID
	f.AmountMin = req.AmountMin
	f.AmountMax = req.AmountMax
	if req.Status != "" {
		st, err := invoice.ParseStatus(req.Status)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}
	dates := []struct {
		field string
		raw   string
		dst   **time.Time
	}{
		{"issue_date_from", req.IssueDateFrom, &f.IssueDateFrom},
		{"issue_date_to", req.IssueDateTo, &f.IssueDateTo},
		{"due_date_from", req.DueDateFrom, &f.DueDateFrom},
		{"due_date_to", req.DueDateTo, &f.DueDateTo},
	}
	for _, d := range dates {
		if d.raw == "" {
			continue
		}
		t, err := parseDate(d.field, d.raw)
		if err != nil {
			return f, err
		}
		*d.dst = &t
	}
	return f, nil
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, shared.NewDomainError("INVALID_DATE", field+" must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

func normalizePath(p *string) *string {
	if p == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*p)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
