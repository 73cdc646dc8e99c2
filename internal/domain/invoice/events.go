package invoice

import (
	"slices"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
)

// AggregateTypeInvoice identifies invoice events
const AggregateTypeInvoice = "Invoice"

// Event type constants
const (
	EventTypeInvoiceCreated = "InvoiceCreated"
	EventTypeInvoiceUpdated = "InvoiceUpdated"
	EventTypeInvoiceDeleted = "InvoiceDeleted"
)

// InvoiceCreatedEvent is raised after an invoice and its items are committed
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	UserID        uuid.UUID `json:"user_id"`
	Snapshot      Snapshot  `json:"snapshot"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		UserID:          inv.UserID,
		Snapshot:        inv.Snapshot(),
	}
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return EventTypeInvoiceCreated
}

// InvoiceUpdatedEvent carries the explicit before/after diff of an update
type InvoiceUpdatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	ChangedFields []Field   `json:"changed_fields"`
	Before        Snapshot  `json:"before"`
	After         Snapshot  `json:"after"`
	// PDFPath is the artifact reference at the time of the update
	PDFPath *string `json:"pdf_path,omitempty"`
}

// NewInvoiceUpdatedEvent creates a new InvoiceUpdatedEvent
func NewInvoiceUpdatedEvent(inv *Invoice, before Snapshot, changed []Field) *InvoiceUpdatedEvent {
	return &InvoiceUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceUpdated, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		ChangedFields:   changed,
		Before:          before,
		After:           inv.Snapshot(),
		PDFPath:         inv.PDFPath,
	}
}

// EventType returns the event type name
func (e *InvoiceUpdatedEvent) EventType() string {
	return EventTypeInvoiceUpdated
}

// Changed reports whether any of fields changed
func (e *InvoiceUpdatedEvent) Changed(fields ...Field) bool {
	for _, f := range fields {
		if slices.Contains(e.ChangedFields, f) {
			return true
		}
	}
	return false
}

// AffectsRendering reports whether the update invalidates the PDF
func (e *InvoiceUpdatedEvent) AffectsRendering() bool {
	return AffectsRendering(e.ChangedFields)
}

// InvoiceDeletedEvent is raised after an invoice and its items are removed
type InvoiceDeletedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	PDFPath       *string   `json:"pdf_path,omitempty"`
}

// NewInvoiceDeletedEvent creates a new InvoiceDeletedEvent
func NewInvoiceDeletedEvent(inv *Invoice) *InvoiceDeletedEvent {
	return &InvoiceDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceDeleted, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PDFPath:         inv.PDFPath,
	}
}

// EventType returns the event type name
func (e *InvoiceDeletedEvent) EventType() string {
	return EventTypeInvoiceDeleted
}
