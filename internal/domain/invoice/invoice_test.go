package invoice

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok, "expected DomainError, got %T", err)
	assert.Equal(t, code, de.Code)
}

var testIssueDate = time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)

func testParams() CreateParams {
	return CreateParams{
		InvoiceNumber: "INV-202610-0001",
		ClientID:      uuid.New(),
		UserID:        uuid.New(),
		Description:   "October services",
		IssueDate:     testIssueDate,
		DueDate:       testIssueDate.AddDate(0, 0, 30),
		Items: []LineSpec{
			{Name: "Consulting", UnitPrice: dec("100"), Quantity: 2, TaxRate: decPtr("19")},
			{Name: "Hosting", UnitPrice: dec("50"), Quantity: 1, TaxRate: decPtr("19")},
		},
	}
}

func createTestInvoice(t *testing.T) *Invoice {
	inv, err := NewInvoice(testParams())
	require.NoError(t, err)
	return inv
}

func TestNewInvoice(t *testing.T) {
	inv := createTestInvoice(t)

	assert.NotEqual(t, uuid.Nil, inv.ID)
	assert.Equal(t, StatusPending, inv.Status)
	assert.Equal(t, "297.50", inv.TotalAmount.StringFixed(2))
	require.Len(t, inv.Items, 2)
	for _, it := range inv.Items {
		assert.Equal(t, inv.ID, it.InvoiceID)
	}
	assert.Nil(t, inv.PDFPath)

	events := inv.GetDomainEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(*InvoiceCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, EventTypeInvoiceCreated, created.EventType())
	assert.Equal(t, inv.ID, created.AggregateID())
	assert.Equal(t, AggregateTypeInvoice, created.AggregateType())
}

func TestNewInvoice_DueEqualsIssue(t *testing.T) {
	p := testParams()
	p.DueDate = p.IssueDate
	_, err := NewInvoice(p)
	assert.NoError(t, err)
}

func TestNewInvoice_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *CreateParams)
		code   string
	}{
		{"due before issue", func(p *CreateParams) { p.DueDate = p.IssueDate.Add(-time.Second) }, "INVALID_DUE_DATE"},
		{"no items", func(p *CreateParams) { p.Items = nil }, "INVALID_ITEMS"},
		{"no client", func(p *CreateParams) { p.ClientID = uuid.Nil }, "INVALID_CLIENT"},
		{"no issue date", func(p *CreateParams) { p.IssueDate = time.Time{} }, "INVALID_ISSUE_DATE"},
		{"bad status", func(p *CreateParams) { p.Status = "void" }, "INVALID_STATUS"},
		{"blank number", func(p *CreateParams) { p.InvoiceNumber = "" }, "INVALID_INVOICE_NUMBER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(&p)
			_, err := NewInvoice(p)
			requireCode(t, err, tt.code)
			assert.Equal(t, shared.KindValidation, shared.KindOf(err))
		})
	}
}

func TestInvoice_ApplyUpdate_DescriptionOnly(t *testing.T) {
	inv := createTestInvoice(t)
	inv.ClearDomainEvents()

	desc := "Updated description"
	changed, err := inv.ApplyUpdate(UpdateParams{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldDescription}, changed)

	events := inv.GetDomainEvents()
	require.Len(t, events, 1)
	updated := events[0].(*InvoiceUpdatedEvent)
	assert.False(t, updated.AffectsRendering())
	assert.Equal(t, "October services", updated.Before.Description)
	assert.Equal(t, desc, updated.After.Description)
}

func TestInvoice_ApplyUpdate_Items(t *testing.T) {
	inv := createTestInvoice(t)
	inv.ClearDomainEvents()

	items := []LineSpec{{Name: "Single", UnitPrice: dec("10"), Quantity: 1, TaxRate: decPtr("0")}}
	changed, err := inv.ApplyUpdate(UpdateParams{Items: &items})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Field{FieldItems, FieldTotal}, changed)
	assert.Equal(t, "10.00", inv.TotalAmount.StringFixed(2))
	require.Len(t, inv.Items, 1)

	updated := inv.GetDomainEvents()[0].(*InvoiceUpdatedEvent)
	assert.True(t, updated.AffectsRendering())
}

func TestNewInvoice_TrimsItemNames(t *testing.T) {
	params := testParams()
	params.Items[0].Name = "  Consulting\t"
	inv, err := NewInvoice(params)
	require.NoError(t, err)
	assert.Equal(t, "Consulting", inv.Items[0].Name)

	items := []LineSpec{{Name: " Hosting ", UnitPrice: dec("10"), Quantity: 1}}
	_, err = inv.ApplyUpdate(UpdateParams{Items: &items})
	require.NoError(t, err)
	assert.Equal(t, "Hosting", inv.Items[0].Name)
}

func TestInvoice_ApplyUpdate_NoChange(t *testing.T) {
	inv := createTestInvoice(t)
	inv.ClearDomainEvents()

	same := inv.Description
	changed, err := inv.ApplyUpdate(UpdateParams{Description: &same})
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Empty(t, inv.GetDomainEvents())
}

func TestInvoice_ApplyUpdate_InvalidLeavesInvoiceUntouched(t *testing.T) {
	inv := createTestInvoice(t)
	inv.ClearDomainEvents()

	desc := "changed"
	due := inv.IssueDate.Add(-time.Hour)
	_, err := inv.ApplyUpdate(UpdateParams{Description: &desc, DueDate: &due})
	requireCode(t, err, "INVALID_DUE_DATE")
	assert.Equal(t, "October services", inv.Description)
	assert.Empty(t, inv.GetDomainEvents())
}

func TestInvoice_ChangeStatus(t *testing.T) {
	inv := createTestInvoice(t)
	inv.ClearDomainEvents()

	require.NoError(t, inv.ChangeStatus(StatusPaid))
	assert.Equal(t, StatusPaid, inv.Status)
	require.Len(t, inv.GetDomainEvents(), 1)

	require.NoError(t, inv.ChangeStatus(StatusPending))
	assert.Equal(t, StatusPending, inv.Status)

	require.NoError(t, inv.ChangeStatus(StatusPending))
	assert.Len(t, inv.GetDomainEvents(), 2)

	requireCode(t, inv.ChangeStatus(Status("void")), "INVALID_STATUS")
}

func TestInvoice_IsOverdueAt(t *testing.T) {
	inv := createTestInvoice(t)
	now := inv.DueDate

	assert.False(t, inv.IsOverdueAt(now), "due equal to now is not overdue")
	assert.True(t, inv.IsOverdueAt(now.Add(time.Second)))

	inv.Status = StatusPaid
	assert.False(t, inv.IsOverdueAt(now.Add(time.Hour)))
}

func TestInvoice_MarkOverdue(t *testing.T) {
	inv := createTestInvoice(t)
	inv.ClearDomainEvents()

	assert.False(t, inv.MarkOverdue(inv.DueDate))
	assert.True(t, inv.MarkOverdue(inv.DueDate.Add(48*time.Hour+time.Minute)))
	assert.Equal(t, StatusOverdue, inv.Status)
	assert.Equal(t, 2, inv.DaysOverdue(inv.DueDate.Add(48*time.Hour+time.Minute)))

	updated := inv.GetDomainEvents()[0].(*InvoiceUpdatedEvent)
	assert.Equal(t, []Field{FieldStatus}, updated.ChangedFields)
}

func TestInvoice_MarkDeleted(t *testing.T) {
	inv := createTestInvoice(t)
	inv.ClearDomainEvents()
	path := "invoices/a.pdf"
	inv.PDFPath = &path

	inv.MarkDeleted()
	deleted := inv.GetDomainEvents()[0].(*InvoiceDeletedEvent)
	assert.Equal(t, EventTypeInvoiceDeleted, deleted.EventType())
	require.NotNil(t, deleted.PDFPath)
	assert.Equal(t, path, *deleted.PDFPath)
}
