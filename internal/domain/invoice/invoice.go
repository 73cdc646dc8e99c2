package invoice

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ClientSummary is the client data hydrated alongside an invoice
type ClientSummary struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	DocumentType   string    `json:"document_type"`
	DocumentNumber string    `json:"document_number"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
}

// FullName returns first and last name joined
func (c ClientSummary) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// UserSummary is the issuing user hydrated alongside an invoice
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Invoice is the aggregate root of the invoicing context. Items are owned by
// the invoice and always persisted together with it.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber   string
	ClientID        uuid.UUID
	UserID          uuid.UUID
	Description     string
	AdditionalNotes string
	IssueDate       time.Time
	DueDate         time.Time
	TotalAmount     decimal.Decimal
	Status          Status
	AttachmentPath  *string
	// PDFPath is maintained by the document subsystem only
	PDFPath *string
	Items   []Item

	Client *ClientSummary
	User   *UserSummary
}

// CreateParams are the inputs of NewInvoice
type CreateParams struct {
	InvoiceNumber   string
	ClientID        uuid.UUID
	UserID          uuid.UUID
	Description     string
	AdditionalNotes string
	IssueDate       time.Time
	DueDate         time.Time
	Status          Status
	AttachmentPath  *string
	Items           []LineSpec
}

// NewInvoice validates params, derives item amounts and the total, and
// raises InvoiceCreated. An empty status defaults to pending.
func NewInvoice(p CreateParams) (*Invoice, error) {
	number, err := ValidateNumber(p.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	if p.ClientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client is required")
	}
	if p.UserID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Issuing user is required")
	}
	if err := validateDescription(p.Description); err != nil {
		return nil, err
	}
	if err := validateDates(p.IssueDate, p.DueDate); err != nil {
		return nil, err
	}
	status := p.Status
	if status == "" {
		status = StatusPending
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Status must be one of: pending, paid, overdue")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     number,
		ClientID:          p.ClientID,
		UserID:            p.UserID,
		Description:       strings.TrimSpace(p.Description),
		AdditionalNotes:   strings.TrimSpace(p.AdditionalNotes),
		IssueDate:         p.IssueDate,
		DueDate:           p.DueDate,
		Status:            status,
		AttachmentPath:    p.AttachmentPath,
	}
	items, total, err := buildItems(inv.ID, p.Items)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	inv.TotalAmount = total

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// UpdateParams describes a partial update. Nil fields are left unchanged.
type UpdateParams struct {
	InvoiceNumber   *string
	ClientID        *uuid.UUID
	Description     *string
	AdditionalNotes *string
	IssueDate       *time.Time
	DueDate         *time.Time
	Status          *Status
	AttachmentPath  *string
	// Items, when set, replaces the whole item set
	Items *[]LineSpec
}

// ApplyUpdate applies params and returns the changed fields. InvoiceUpdated is
// raised only when at least one tracked field changed.
func (i *Invoice) ApplyUpdate(p UpdateParams) ([]Field, error) {
	before := i.Snapshot()
	next := *i

	if p.InvoiceNumber != nil {
		number, err := ValidateNumber(*p.InvoiceNumber)
		if err != nil {
			return nil, err
		}
		next.InvoiceNumber = number
	}
	if p.ClientID != nil {
		if *p.ClientID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_CLIENT", "Client is required")
		}
		next.ClientID = *p.ClientID
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return nil, err
		}
		next.Description = strings.TrimSpace(*p.Description)
	}
	if p.AdditionalNotes != nil {
		next.AdditionalNotes = strings.TrimSpace(*p.AdditionalNotes)
	}
	if p.IssueDate != nil {
		next.IssueDate = *p.IssueDate
	}
	if p.DueDate != nil {
		next.DueDate = *p.DueDate
	}
	if err := validateDates(next.IssueDate, next.DueDate); err != nil {
		return nil, err
	}
	if p.Status != nil {
		if !i.Status.CanTransitionTo(*p.Status) {
			return nil, shared.NewDomainError("INVALID_STATUS", "Status must be one of: pending, paid, overdue")
		}
		next.Status = *p.Status
	}
	if p.AttachmentPath != nil {
		path := strings.TrimSpace(*p.AttachmentPath)
		if path == "" {
			next.AttachmentPath = nil
		} else {
			next.AttachmentPath = &path
		}
	}
	if p.Items != nil {
		items, total, err := buildItems(i.ID, *p.Items)
		if err != nil {
			return nil, err
		}
		next.Items = items
		next.TotalAmount = total
	}

	changed := Diff(before, next.Snapshot())
	if len(changed) == 0 {
		return nil, nil
	}

	*i = next
	i.Touch()
	i.AddDomainEvent(NewInvoiceUpdatedEvent(i, before, changed))
	return changed, nil
}

// ChangeStatus sets the status explicitly. Any valid status may be set from
// any state. Setting the current status is a no-op and raises no event.
func (i *Invoice) ChangeStatus(status Status) error {
	if !i.Status.CanTransitionTo(status) {
		return shared.NewDomainError("INVALID_STATUS", "Status must be one of: pending, paid, overdue")
	}
	if i.Status == status {
		return nil
	}
	before := i.Snapshot()
	i.Status = status
	i.Touch()
	i.AddDomainEvent(NewInvoiceUpdatedEvent(i, before, []Field{FieldStatus}))
	return nil
}

// MarkOverdue flips a pending, past-due invoice to overdue as observed at now.
// It reports whether the status changed.
func (i *Invoice) MarkOverdue(now time.Time) bool {
	if !i.IsOverdueAt(now) {
		return false
	}
	before := i.Snapshot()
	i.Status = StatusOverdue
	i.Touch()
	i.AddDomainEvent(NewInvoiceUpdatedEvent(i, before, []Field{FieldStatus}))
	return true
}

// MarkDeleted raises InvoiceDeleted carrying the current PDF reference
func (i *Invoice) MarkDeleted() {
	i.AddDomainEvent(NewInvoiceDeletedEvent(i))
}

// IsOverdueAt reports whether the invoice is pending with a due date strictly
// before now.
func (i *Invoice) IsOverdueAt(now time.Time) bool {
	return i.Status == StatusPending && i.DueDate.Before(now)
}

// DaysOverdue returns whole days elapsed since the due date, or 0
func (i *Invoice) DaysOverdue(now time.Time) int {
	if !i.DueDate.Before(now) {
		return 0
	}
	return int(now.Sub(i.DueDate).Hours() / 24)
}

// HasPDF reports whether a document reference is recorded
func (i *Invoice) HasPDF() bool {
	return i.PDFPath != nil && *i.PDFPath != ""
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) > 1000 {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 1000 characters")
	}
	return nil
}

func validateDates(issue, due time.Time) error {
	if issue.IsZero() {
		return shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}
	if due.IsZero() {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}
	if due.Before(issue) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date must be on or after the issue date")
	}
	return nil
}
