package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of issue and due dates
const DateLayout = "2006-01-02"

// ItemRequest is one line of a create or update request
type ItemRequest struct {
	Name      string           `json:"name" binding:"required,max=255"`
	Quantity  int              `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	TaxRate   *decimal.Decimal `json:"tax_rate"`
}

// CreateInvoiceRequest creates an invoice. An empty InvoiceNumber is
// generated from the current month.
type CreateInvoiceRequest struct {
	InvoiceNumber   string        `json:"invoice_number" binding:"max=255"`
	ClientID        uuid.UUID     `json:"client_id" binding:"required"`
	Description     string        `json:"description" binding:"max=1000"`
	AdditionalNotes string        `json:"additional_notes"`
	IssueDate       string        `json:"issue_date" binding:"required,datetime=2006-01-02"`
	DueDate         string        `json:"due_date" binding:"required,datetime=2006-01-02"`
	Status          string        `json:"status" binding:"omitempty,oneof=pending paid overdue"`
	AttachmentPath  *string       `json:"attachment_path" binding:"omitempty,max=500"`
	Items           []ItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateInvoiceRequest is a partial update; omitted fields stay unchanged.
// Items, when present, replaces every line.
type UpdateInvoiceRequest struct {
	InvoiceNumber   *string        `json:"invoice_number" binding:"omitempty,min=1,max=255"`
	ClientID        *uuid.UUID     `json:"client_id"`
	Description     *string        `json:"description" binding:"omitempty,max=1000"`
	AdditionalNotes *string        `json:"additional_notes"`
	IssueDate       *string        `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	DueDate         *string        `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Status          *string        `json:"status" binding:"omitempty,oneof=pending paid overdue"`
	AttachmentPath  *string        `json:"attachment_path" binding:"omitempty,max=500"`
	Items           *[]ItemRequest `json:"items" binding:"omitempty,min=1,dive"`
}

// UpdateStatusRequest sets the payment status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending paid overdue"`
}

// ListInvoicesRequest carries listing filters from the query string
type ListInvoicesRequest struct {
	Page          int              `form:"page" binding:"omitempty,min=1"`
	PageSize      int              `form:"per_page" binding:"omitempty,min=1,max=100"`
	OrderBy       string           `form:"sort_by"`
	OrderDir      string           `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	Search        string           `form:"search"`
	Number        string           `form:"invoice_number"`
	ClientID      *uuid.UUID       `form:"client_id"`
	Status        string           `form:"status" binding:"omitempty,oneof=pending paid overdue"`
	IssueDateFrom string           `form:"issue_date_from" binding:"omitempty,datetime=2006-01-02"`
	IssueDateTo   string           `form:"issue_date_to" binding:"omitempty,datetime=2006-01-02"`
	DueDateFrom   string           `form:"due_date_from" binding:"omitempty,datetime=2006-01-02"`
	DueDateTo     string           `form:"due_date_to" binding:"omitempty,datetime=2006-01-02"`
	AmountMin     *decimal.Decimal `form:"amount_min"`
	AmountMax     *decimal.Decimal `form:"amount_max"`
}

// ItemResponse is one line of an invoice response
type ItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// InvoiceResponse is the hydrated read model of an invoice
type InvoiceResponse struct {
	ID              uuid.UUID              `json:"id"`
	InvoiceNumber   string                 `json:"invoice_number"`
	ClientID        uuid.UUID              `json:"client_id"`
	UserID          uuid.UUID              `json:"user_id"`
	Description     string                 `json:"description"`
	AdditionalNotes string                 `json:"additional_notes"`
	IssueDate       string                 `json:"issue_date"`
	DueDate         string                 `json:"due_date"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	Status          string                 `json:"status"`
	IsOverdue       bool                   `json:"is_overdue"`
	DaysOverdue     int                    `json:"days_overdue"`
	AttachmentPath  *string                `json:"attachment_path"`
	HasPDF          bool                   `json:"has_pdf"`
	PDFURL          *string                `json:"pdf_url"`
	PDFSize         *string                `json:"pdf_size"`
	Items           []ItemResponse         `json:"items"`
	Client          *invoice.ClientSummary `json:"client,omitempty"`
	User            *invoice.UserSummary   `json:"user,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// OverdueInvoice is one invoice flipped by a sweep
type OverdueInvoice struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	DueDate       string          `json:"due_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DaysOverdue   int             `json:"days_overdue"`
}

// SweepResult summarizes one overdue sweep
type SweepResult struct {
	CheckedAt time.Time        `json:"checked_at"`
	Count     int              `json:"count"`
	Invoices  []OverdueInvoice `json:"invoices"`
}
