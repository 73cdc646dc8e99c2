package printing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	infra "github.com/infinity-9427/invoicing/internal/infrastructure/printing"
	"github.com/infinity-9427/invoicing/internal/infrastructure/storage"
	"github.com/infinity-9427/invoicing/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultRenderTimeout = 30 * time.Second
	// maxRenderAttempts bounds re-renders when the invoice keeps changing
	// while its document is produced
	maxRenderAttempts = 3
)

// Artifact error codes
const (
	CodeGenerationFailed = "PDF_GENERATION_FAILED"
	CodeStorageFailed    = "PDF_STORAGE_FAILED"
)

// Renderer turns invoice document data into PDF bytes
type Renderer interface {
	Render(ctx context.Context, data *infra.DocumentData) ([]byte, error)
}

// ManagerConfig holds the Manager's tunables
type ManagerConfig struct {
	Company       string
	RenderTimeout time.Duration
	// RedirectDownloads answers downloads with the object URL instead of
	// streaming the bytes through the server
	RedirectDownloads bool
	Metrics       *telemetry.InvoiceMetrics
	Logger        *zap.Logger
}

// Manager keeps every invoice's PDF in step with the invoice. It consumes
// invoice events and serves download, regenerate and info requests. Work on
// one invoice is serialized, and a reference is only recorded for a document
// rendered from the invoice's current state.
type Manager struct {
	repo     invoice.Repository
	renderer Renderer
	storage  storage.BlobStorage
	company  string
	timeout  time.Duration
	redirect bool
	metrics  *telemetry.InvoiceMetrics
	logger   *zap.Logger
	locks    *invoiceLocks
	now      func() time.Time
}

// NewManager creates a Manager
func NewManager(repo invoice.Repository, renderer Renderer, blobs storage.BlobStorage, cfg ManagerConfig) *Manager {
	m := &Manager{
		repo:     repo,
		renderer: renderer,
		storage:  blobs,
		company:  cfg.Company,
		timeout:  cfg.RenderTimeout,
		redirect: cfg.RedirectDownloads,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		locks:    newInvoiceLocks(),
		now:      time.Now,
	}
	if m.timeout <= 0 {
		m.timeout = defaultRenderTimeout
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// EventTypes returns the invoice lifecycle events
func (m *Manager) EventTypes() []string {
	return []string{
		invoice.EventTypeInvoiceCreated,
		invoice.EventTypeInvoiceUpdated,
		invoice.EventTypeInvoiceDeleted,
	}
}

// Handle reacts to an invoice lifecycle event. Errors are returned to the bus
// for logging only; the invoice mutation has already committed.
func (m *Manager) Handle(ctx context.Context, event shared.DomainEvent) error {
	unlock := m.locks.lock(event.AggregateID())
	defer unlock()

	var err error
	switch e := event.(type) {
	case *invoice.InvoiceCreatedEvent:
		err = m.onCreated(ctx, e)
	case *invoice.InvoiceUpdatedEvent:
		err = m.onUpdated(ctx, e)
	case *invoice.InvoiceDeletedEvent:
		err = m.onDeleted(ctx, e)
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	if errors.Is(err, shared.ErrNotFound) {
		m.logger.Info("Invoice removed while its document was being processed",
			zap.String("invoice_id", event.AggregateID().String()),
			zap.String("event", event.EventType()))
		return nil
	}
	return err
}

func (m *Manager) onCreated(ctx context.Context, e *invoice.InvoiceCreatedEvent) error {
	inv, err := m.repo.FindByID(ctx, e.InvoiceID)
	if err != nil {
		return fmt.Errorf("load invoice for document: %w", err)
	}
	if inv.HasPDF() {
		if ok, _ := m.storage.Exists(ctx, *inv.PDFPath); ok {
			return nil
		}
	}
	_, err = m.generate(ctx, inv, telemetry.PDFOperationGenerate)
	return err
}

func (m *Manager) onUpdated(ctx context.Context, e *invoice.InvoiceUpdatedEvent) error {
	if !e.AffectsRendering() {
		m.logger.Debug("Update does not affect the document",
			zap.String("invoice_id", e.InvoiceID.String()),
			zap.Any("changed_fields", e.ChangedFields))
		return nil
	}
	inv, err := m.repo.FindByID(ctx, e.InvoiceID)
	if err != nil {
		return fmt.Errorf("load invoice for document: %w", err)
	}
	if err := m.discard(ctx, inv); err != nil {
		return err
	}
	_, err = m.generate(ctx, inv, telemetry.PDFOperationRegenerate)
	return err
}

func (m *Manager) onDeleted(ctx context.Context, e *invoice.InvoiceDeletedEvent) error {
	if e.PDFPath == nil || *e.PDFPath == "" {
		return nil
	}
	start := time.Now()
	err := m.storage.Delete(ctx, *e.PDFPath)
	m.metrics.PDFOperation(ctx, telemetry.PDFOperationDelete, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", *e.PDFPath, err)
	}
	m.logger.Info("Invoice document deleted",
		zap.String("invoice_id", e.InvoiceID.String()),
		zap.String("pdf_path", *e.PDFPath))
	return nil
}

// Download returns the invoice PDF, generating it first when the reference is
// missing or points at a vanished object
func (m *Manager) Download(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Document, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	inv, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Authorize(actor, invoice.ActionDownloadPDF, inv); err != nil {
		return nil, err
	}

	key := ""
	if inv.HasPDF() {
		exists, err := m.storage.Exists(ctx, *inv.PDFPath)
		if err != nil {
			return nil, shared.NewArtifactError(CodeStorageFailed, "Failed to access the invoice document", err)
		}
		if exists {
			key = *inv.PDFPath
		}
	}
	if key == "" {
		if key, err = m.generate(ctx, inv, telemetry.PDFOperationGenerate); err != nil {
			return nil, err
		}
	}

	doc := &Document{Filename: DownloadFilename(inv.InvoiceNumber), ContentType: contentTypePDF, Key: key}
	if reader, ok := m.storage.(storage.Reader); ok && !m.redirect {
		if doc.Content, err = reader.Get(ctx, key); err != nil {
			return nil, shared.NewArtifactError(CodeStorageFailed, "Failed to read the invoice document", err)
		}
		return doc, nil
	}
	if doc.URL, err = m.storage.URL(ctx, key); err != nil {
		return nil, shared.NewArtifactError(CodeStorageFailed, "Failed to resolve the invoice document URL", err)
	}
	return doc, nil
}

// Regenerate replaces the invoice PDF after checking the actor's access
func (m *Manager) Regenerate(ctx context.Context, actor identity.Actor, id uuid.UUID) (*PDFInfo, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	inv, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Authorize(actor, invoice.ActionRegenPDF, inv); err != nil {
		return nil, err
	}
	return m.regenerate(ctx, inv)
}

// RegenerateByID replaces the invoice PDF without an access check. It is
// meant for operator tooling.
func (m *Manager) RegenerateByID(ctx context.Context, id uuid.UUID) (*PDFInfo, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	inv, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.regenerate(ctx, inv)
}

func (m *Manager) regenerate(ctx context.Context, inv *invoice.Invoice) (*PDFInfo, error) {
	if err := m.discard(ctx, inv); err != nil {
		return nil, shared.NewArtifactError(CodeStorageFailed, "Failed to remove the previous invoice document", err)
	}
	key, err := m.generate(ctx, inv, telemetry.PDFOperationRegenerate)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Invoice document regenerated",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("pdf_path", key))
	info := m.Describe(ctx, &key)
	info.InvoiceID = inv.ID
	return &info, nil
}

// Info reports whether the invoice has a stored document
func (m *Manager) Info(ctx context.Context, actor identity.Actor, id uuid.UUID) (*PDFInfo, error) {
	inv, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Authorize(actor, invoice.ActionView, inv); err != nil {
		return nil, err
	}
	info := m.Describe(ctx, inv.PDFPath)
	info.InvoiceID = inv.ID
	info.PDFPath = inv.PDFPath
	return &info, nil
}

// Describe resolves a document reference. HasPDF requires both the reference
// and the stored object. Storage failures degrade to "no document".
func (m *Manager) Describe(ctx context.Context, ref *string) PDFInfo {
	if ref == nil || *ref == "" {
		return PDFInfo{}
	}
	info := PDFInfo{}
	if url, err := m.storage.URL(ctx, *ref); err == nil {
		info.PDFURL = &url
	}
	exists, err := m.storage.Exists(ctx, *ref)
	if err != nil {
		m.logger.Warn("Failed to check invoice document", zap.String("pdf_path", *ref), zap.Error(err))
		return info
	}
	info.HasPDF = exists
	if !exists {
		return info
	}
	if sizer, ok := m.storage.(storage.Sizer); ok {
		if n, err := sizer.Size(ctx, *ref); err == nil {
			size := HumanSize(n)
			info.PDFSize = &size
		}
	}
	return info
}

// generate renders inv, stores it under a fresh key and records the
// reference. Before recording, the invoice is read again; when a rendering
// field moved on meanwhile the object is dropped and the current state is
// rendered instead. If the invoice vanished the new object is removed.
func (m *Manager) generate(ctx context.Context, inv *invoice.Invoice, operation string) (key string, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice_pdf", operation,
		telemetry.WithAttributes(attribute.String("invoice.id", inv.ID.String())))
	start := time.Now()
	defer func() {
		m.metrics.PDFOperation(ctx, operation, time.Since(start), err)
		telemetry.EndSpan(span, err)
	}()

	var current *invoice.Invoice
	for attempt := 1; ; attempt++ {
		if key, err = m.store(ctx, inv, operation); err != nil {
			return "", err
		}
		if current, err = m.repo.FindByID(ctx, inv.ID); err != nil {
			m.drop(ctx, key)
			return "", err
		}
		if !invoice.AffectsRendering(invoice.Diff(inv.Snapshot(), current.Snapshot())) {
			break
		}
		m.drop(ctx, key)
		if attempt == maxRenderAttempts {
			return "", shared.NewArtifactError(CodeGenerationFailed,
				"Invoice changed while its document was generated", nil)
		}
		m.logger.Debug("Invoice changed during rendering, rendering again",
			zap.String("invoice_id", inv.ID.String()),
			zap.Int("attempt", attempt))
		current.PDFPath = inv.PDFPath
		*inv = *current
	}

	if err = m.repo.SetPDFReference(ctx, inv.ID, &key); err != nil {
		m.drop(ctx, key)
		if errors.Is(err, shared.ErrNotFound) {
			return "", err
		}
		return "", shared.NewArtifactError(CodeStorageFailed, "Failed to record the invoice document", err)
	}
	inv.PDFPath = &key

	m.logger.Info("Invoice document generated",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("pdf_path", key))
	return key, nil
}

// store renders inv under the render timeout and writes the object
func (m *Manager) store(ctx context.Context, inv *invoice.Invoice, operation string) (string, error) {
	renderCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var (
		pdf []byte
		err error
	)
	telemetry.WithProfilingLabels(renderCtx, map[string]string{"operation": "invoice_pdf_" + operation}, func(c context.Context) {
		pdf, err = m.renderer.Render(c, infra.NewDocumentData(inv, m.company))
	})
	if err != nil {
		return "", shared.NewArtifactError(CodeGenerationFailed, "Failed to generate the invoice document", err)
	}

	key := objectKey(inv.InvoiceNumber, m.now(), randomSuffix())
	if err := m.storage.Put(ctx, key, pdf, contentTypePDF); err != nil {
		return "", shared.NewArtifactError(CodeStorageFailed, "Failed to store the invoice document", err)
	}
	return key, nil
}

// drop removes an object that will not be referenced
func (m *Manager) drop(ctx context.Context, key string) {
	if err := m.storage.Delete(ctx, key); err != nil {
		m.logger.Warn("Failed to remove orphaned document", zap.String("pdf_path", key), zap.Error(err))
	}
}

// discard deletes the current object and clears the reference so a failed
// regeneration never leaves a dangling path
func (m *Manager) discard(ctx context.Context, inv *invoice.Invoice) error {
	if !inv.HasPDF() {
		return nil
	}
	if err := m.storage.Delete(ctx, *inv.PDFPath); err != nil {
		return fmt.Errorf("delete document %s: %w", *inv.PDFPath, err)
	}
	if err := m.repo.SetPDFReference(ctx, inv.ID, nil); err != nil {
		return err
	}
	inv.PDFPath = nil
	return nil
}

var _ shared.EventHandler = (*Manager)(nil)
