package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for invoice headers
type InvoiceModel struct {
	BaseModel
	InvoiceNumber   string             `gorm:"type:varchar(255);not null;uniqueIndex:idx_invoices_number"`
	ClientID        uuid.UUID          `gorm:"type:uuid;not null;index"`
	UserID          uuid.UUID          `gorm:"type:uuid;not null;index"`
	Description     string             `gorm:"type:text"`
	AdditionalNotes string             `gorm:"type:text"`
	IssueDate       time.Time          `gorm:"not null"`
	DueDate         time.Time          `gorm:"not null;index:idx_invoices_status_due,priority:2"`
	TotalAmount     decimal.Decimal    `gorm:"type:decimal(12,2);not null;default:0"`
	Status          invoice.Status     `gorm:"type:varchar(20);not null;default:'pending';index:idx_invoices_status_due,priority:1"`
	AttachmentPath  *string            `gorm:"type:varchar(500)"`
	PDFPath         *string            `gorm:"column:pdf_path;type:varchar(500)"`
	Items           []InvoiceItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
	Client          *ClientModel       `gorm:"foreignKey:ClientID;references:ID"`
	User            *UserModel         `gorm:"foreignKey:UserID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice. Items, client
// and user are hydrated when they were preloaded.
func (m *InvoiceModel) ToDomain() *invoice.Invoice {
	inv := &invoice.Invoice{
		BaseAggregateRoot: m.aggregateRoot(),
		InvoiceNumber:     m.InvoiceNumber,
		ClientID:          m.ClientID,
		UserID:            m.UserID,
		Description:       m.Description,
		AdditionalNotes:   m.AdditionalNotes,
		IssueDate:         m.IssueDate.UTC(),
		DueDate:           m.DueDate.UTC(),
		TotalAmount:       m.TotalAmount,
		Status:            m.Status,
		AttachmentPath:    m.AttachmentPath,
		PDFPath:           m.PDFPath,
	}
	inv.Items = make([]invoice.Item, len(m.Items))
	for i := range m.Items {
		inv.Items[i] = m.Items[i].ToDomain()
	}
	if m.Client != nil {
		inv.Client = &invoice.ClientSummary{
			ID:             m.Client.ID,
			FirstName:      m.Client.FirstName,
			LastName:       m.Client.LastName,
			DocumentType:   string(m.Client.DocumentType),
			DocumentNumber: m.Client.DocumentNumber,
			Email:          m.Client.Email,
			Phone:          m.Client.Phone,
		}
	}
	if m.User != nil {
		inv.User = &invoice.UserSummary{
			ID:    m.User.ID,
			Name:  m.User.Name,
			Email: m.User.Email,
		}
	}
	return inv
}

// FromDomain populates the header and items from a domain Invoice. The client
// and user associations are never written through the invoice.
func (m *InvoiceModel) FromDomain(inv *invoice.Invoice) {
	m.FromDomainBaseEntity(inv.BaseEntity)
	m.InvoiceNumber = inv.InvoiceNumber
	m.ClientID = inv.ClientID
	m.UserID = inv.UserID
	m.Description = inv.Description
	m.AdditionalNotes = inv.AdditionalNotes
	m.IssueDate = inv.IssueDate.UTC()
	m.DueDate = inv.DueDate.UTC()
	m.TotalAmount = inv.TotalAmount
	m.Status = inv.Status
	m.AttachmentPath = inv.AttachmentPath
	m.PDFPath = inv.PDFPath
	m.Items = make([]InvoiceItemModel, len(inv.Items))
	for i, item := range inv.Items {
		m.Items[i] = InvoiceItemModelFromDomain(inv.ID, item)
		m.Items[i].Position = i
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *invoice.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceItemModel is the persistence model for invoice line items
type InvoiceItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null;default:0"`
	Name        string          `gorm:"type:varchar(255);not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:19"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the persistence model to a domain Item
func (m *InvoiceItemModel) ToDomain() invoice.Item {
	return invoice.Item{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		Name:        m.Name,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		TaxRate:     m.TaxRate,
		TaxAmount:   m.TaxAmount,
		TotalAmount: m.TotalAmount,
	}
}

// InvoiceItemModelFromDomain creates a persistence model for an item
func InvoiceItemModelFromDomain(invoiceID uuid.UUID, item invoice.Item) InvoiceItemModel {
	id := item.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return InvoiceItemModel{
		ID:          id,
		InvoiceID:   invoiceID,
		Name:        item.Name,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		TaxRate:     item.TaxRate,
		TaxAmount:   item.TaxAmount,
		TotalAmount: item.TotalAmount,
		CreatedAt:   time.Now().UTC(),
	}
}

// All returns every model in dependency order, for AutoMigrate in tests and
// local development.
func All() []any {
	return []any{&UserModel{}, &ClientModel{}, &InvoiceModel{}, &InvoiceItemModel{}}
}
