package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Invoice errors
var (
	ErrInvoiceNotFound = shared.NewNotFoundError("INVOICE_NOT_FOUND", "Invoice not found")
	ErrNumberConflict  = shared.NewConflictError("INVOICE_NUMBER_CONFLICT", "Invoice number already exists")
)

// Filter narrows invoice listings
type Filter struct {
	shared.Filter
	ClientID *uuid.UUID
	// UserID scopes the listing to one issuer
	UserID        *uuid.UUID
	Status        *Status
	Number        string
	IssueDateFrom *time.Time
	IssueDateTo   *time.Time
	DueDateFrom   *time.Time
	DueDateTo     *time.Time
	AmountMin     *decimal.Decimal
	AmountMax     *decimal.Decimal
}

// DefaultListFilter returns a filter with default paging and ordering
func DefaultListFilter() Filter {
	return Filter{Filter: shared.DefaultFilter()}
}

// Statistics aggregates invoice counts and amounts per status
type Statistics struct {
	TotalInvoices   int64           `json:"total_invoices"`
	PendingInvoices int64           `json:"pending_invoices"`
	PaidInvoices    int64           `json:"paid_invoices"`
	OverdueInvoices int64           `json:"overdue_invoices"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	PendingAmount   decimal.Decimal `json:"pending_amount"`
	OverdueAmount   decimal.Decimal `json:"overdue_amount"`
}

// Repository persists invoices together with their items
type Repository interface {
	// Create stores header and items atomically. A duplicate number
	// returns ErrNumberConflict.
	Create(ctx context.Context, inv *Invoice) error
	// Update writes only the changed header fields and, when FieldItems is
	// among them, swaps the whole item set in the same transaction.
	Update(ctx context.Context, inv *Invoice, changed []Field) error
	Delete(ctx context.Context, id uuid.UUID) error
	// FindByID returns the invoice hydrated with items, client and user
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, filter Filter) ([]Invoice, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	// MarkOverdue flips every pending invoice due strictly before now and
	// returns the invoices it actually changed. Each row is guarded so a
	// concurrent status change wins.
	MarkOverdue(ctx context.Context, now time.Time) ([]Invoice, error)
	// SetPDFReference writes the document path without raising events
	SetPDFReference(ctx context.Context, id uuid.UUID, path *string) error
	ExistsByNumber(ctx context.Context, number string, excludeID *uuid.UUID) (bool, error)
	// NextNumber returns the next free generated number for at's month
	NextNumber(ctx context.Context, at time.Time) (string, error)
	Statistics(ctx context.Context, userID *uuid.UUID) (*Statistics, error)
}
