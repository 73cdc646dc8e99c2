package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/infinity-9427/invoicing/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestGormInvoiceRepository_CreateAndFind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.store(t, f.newInvoice(t, 1, f.owner, baseDay.AddDate(0, 0, 5)))

	got, err := f.invoices.FindByID(ctx, inv.ID)
	require.NoError(t, err)

	assert.Equal(t, "INV-202610-0001", got.InvoiceNumber)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("297.50")), "total %s", got.TotalAmount)
	assert.Equal(t, invoice.StatusPending, got.Status)
	assert.Nil(t, got.PDFPath)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Widget", got.Items[0].Name)
	assert.Equal(t, "Support", got.Items[1].Name)
	assert.True(t, got.Items[0].TaxAmount.Equal(decimal.RequireFromString("38.00")))

	require.NotNil(t, got.Client)
	assert.Equal(t, "Maria Gomez", got.Client.FullName())
	require.NotNil(t, got.User)
	assert.Equal(t, f.owner.Email, got.User.Email)
	assert.True(t, got.DueDate.Equal(inv.DueDate))
}

func TestGormInvoiceRepository_Create_NumberConflict(t *testing.T) {
	f := newFixture(t)
	f.store(t, f.newInvoice(t, 1, f.owner, baseDay))

	err := f.invoices.Create(context.Background(), f.newInvoice(t, 1, f.admin, baseDay))
	require.Error(t, err)
	assert.ErrorIs(t, err, invoice.ErrNumberConflict)
	assert.Equal(t, shared.KindConflict, shared.KindOf(err))

	_, total, err := f.invoices.List(context.Background(), invoice.DefaultListFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "failed create must not leave a partial row")
}

func TestGormInvoiceRepository_FindByID_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.invoices.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, invoice.ErrInvoiceNotFound)
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestGormInvoiceRepository_Update(t *testing.T) {
	t.Run("replaces the whole item set", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		inv := f.store(t, f.newInvoice(t, 1, f.owner, baseDay))

		items := []invoice.LineSpec{{Name: "Audit", Quantity: 3, UnitPrice: decimal.RequireFromString("10.00"), TaxRate: decPtr("0")}}
		changed, err := inv.ApplyUpdate(invoice.UpdateParams{Items: &items})
		require.NoError(t, err)
		require.Contains(t, changed, invoice.FieldItems)
		require.NoError(t, f.invoices.Update(ctx, inv, changed))

		got, err := f.invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "Audit", got.Items[0].Name)
		assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("30.00")))

		var count int64
		require.NoError(t, f.db.Model(&models.InvoiceItemModel{}).Where("invoice_id = ?", inv.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("keeps items and document reference when only the header changes", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		inv := f.store(t, f.newInvoice(t, 1, f.owner, baseDay))
		require.NoError(t, f.invoices.SetPDFReference(ctx, inv.ID, strPtr("invoices/a.pdf")))

		changed, err := inv.ApplyUpdate(invoice.UpdateParams{Description: strPtr("Revised scope")})
		require.NoError(t, err)
		require.NoError(t, f.invoices.Update(ctx, inv, changed))

		got, err := f.invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "Revised scope", got.Description)
		assert.Len(t, got.Items, 2)
		require.NotNil(t, got.PDFPath)
		assert.Equal(t, "invoices/a.pdf", *got.PDFPath)
	})

	t.Run("renumbering onto a taken number conflicts", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.store(t, f.newInvoice(t, 1, f.owner, baseDay))
		second := f.store(t, f.newInvoice(t, 2, f.owner, baseDay))

		changed, err := second.ApplyUpdate(invoice.UpdateParams{InvoiceNumber: strPtr("INV-202610-0001")})
		require.NoError(t, err)
		assert.ErrorIs(t, f.invoices.Update(ctx, second, changed), invoice.ErrNumberConflict)
	})

	t.Run("missing invoice is not found", func(t *testing.T) {
		f := newFixture(t)
		ghost := f.newInvoice(t, 9, f.owner, baseDay)
		assert.ErrorIs(t, f.invoices.Update(context.Background(), ghost, []invoice.Field{invoice.FieldItems}), invoice.ErrInvoiceNotFound)
	})

	t.Run("leaves unchanged columns to concurrent writers", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		inv := f.store(t, f.newInvoice(t, 1, f.owner, baseDay.AddDate(0, 0, -1)))

		loaded, err := f.invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		changed, err := loaded.ApplyUpdate(invoice.UpdateParams{Description: strPtr("Revised scope")})
		require.NoError(t, err)
		require.Equal(t, []invoice.Field{invoice.FieldDescription}, changed)

		flipped, err := f.invoices.MarkOverdue(ctx, baseDay)
		require.NoError(t, err)
		require.Len(t, flipped, 1)

		require.NoError(t, f.invoices.Update(ctx, loaded, changed))

		got, err := f.invoices.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "Revised scope", got.Description)
		assert.Equal(t, invoice.StatusOverdue, got.Status)
		assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("297.50")))
	})
}

func TestGormInvoiceRepository_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.store(t, f.newInvoice(t, 1, f.owner, baseDay))

	require.NoError(t, f.invoices.Delete(ctx, inv.ID))

	_, err := f.invoices.FindByID(ctx, inv.ID)
	assert.ErrorIs(t, err, invoice.ErrInvoiceNotFound)

	var items int64
	require.NoError(t, f.db.Model(&models.InvoiceItemModel{}).Where("invoice_id = ?", inv.ID).Count(&items).Error)
	assert.Zero(t, items)

	assert.ErrorIs(t, f.invoices.Delete(ctx, inv.ID), invoice.ErrInvoiceNotFound)
}

func TestGormInvoiceRepository_UpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.store(t, f.newInvoice(t, 1, f.owner, baseDay))

	require.NoError(t, f.invoices.UpdateStatus(ctx, inv.ID, invoice.StatusPaid))
	got, err := f.invoices.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPaid, got.Status)

	assert.ErrorIs(t, f.invoices.UpdateStatus(ctx, uuid.New(), invoice.StatusPaid), invoice.ErrInvoiceNotFound)
}

func TestGormInvoiceRepository_MarkOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := baseDay

	past := f.store(t, f.newInvoice(t, 1, f.owner, now.Add(-time.Hour)))
	boundary := f.store(t, f.newInvoice(t, 2, f.owner, now))
	future := f.store(t, f.newInvoice(t, 3, f.owner, now.Add(time.Hour)))
	paid := f.store(t, f.newInvoice(t, 4, f.owner, now.AddDate(0, 0, -3)))
	require.NoError(t, f.invoices.UpdateStatus(ctx, paid.ID, invoice.StatusPaid))

	flipped, err := f.invoices.MarkOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, flipped, 1)
	assert.Equal(t, past.ID, flipped[0].ID)
	assert.Equal(t, invoice.StatusOverdue, flipped[0].Status)
	assert.Len(t, flipped[0].Items, 2)

	for id, want := range map[uuid.UUID]invoice.Status{
		boundary.ID: invoice.StatusPending,
		future.ID:   invoice.StatusPending,
		paid.ID:     invoice.StatusPaid,
	} {
		got, err := f.invoices.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}

	again, err := f.invoices.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestGormInvoiceRepository_SetPDFReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.store(t, f.newInvoice(t, 1, f.owner, baseDay))
	before, err := f.invoices.FindByID(ctx, inv.ID)
	require.NoError(t, err)

	require.NoError(t, f.invoices.SetPDFReference(ctx, inv.ID, strPtr("invoices/INV-202610-0001.pdf")))
	got, err := f.invoices.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PDFPath)
	assert.Equal(t, "invoices/INV-202610-0001.pdf", *got.PDFPath)
	assert.True(t, got.UpdatedAt.Equal(before.UpdatedAt), "document bookkeeping must not bump updated_at")

	require.NoError(t, f.invoices.SetPDFReference(ctx, inv.ID, nil))
	got, err = f.invoices.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PDFPath)

	assert.ErrorIs(t, f.invoices.SetPDFReference(ctx, uuid.New(), nil), invoice.ErrInvoiceNotFound)
}

func TestGormInvoiceRepository_NextNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.invoices.NextNumber(ctx, baseDay)
	require.NoError(t, err)
	assert.Equal(t, "INV-202610-0001", first)

	f.store(t, f.newInvoice(t, 1, f.owner, baseDay))
	f.store(t, f.newInvoice(t, 7, f.owner, baseDay))

	next, err := f.invoices.NextNumber(ctx, baseDay)
	require.NoError(t, err)
	assert.Equal(t, "INV-202610-0008", next)

	nextMonth, err := f.invoices.NextNumber(ctx, baseDay.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, "INV-202611-0001", nextMonth)

	exists, err := f.invoices.ExistsByNumber(ctx, "INV-202610-0007", nil)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGormInvoiceRepository_ExistsByNumber_ExcludesSelf(t *testing.T) {
	f := newFixture(t)
	inv := f.store(t, f.newInvoice(t, 1, f.owner, baseDay))

	exists, err := f.invoices.ExistsByNumber(context.Background(), inv.InvoiceNumber, uuidPtr(inv.ID))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormInvoiceRepository_Statistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store(t, f.newInvoice(t, 1, f.owner, baseDay))
	paid := f.store(t, f.newInvoice(t, 2, f.owner, baseDay))
	f.store(t, f.newInvoice(t, 3, f.admin, baseDay))
	require.NoError(t, f.invoices.UpdateStatus(ctx, paid.ID, invoice.StatusPaid))

	all, err := f.invoices.Statistics(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.TotalInvoices)
	assert.Equal(t, int64(2), all.PendingInvoices)
	assert.Equal(t, int64(1), all.PaidInvoices)
	assert.True(t, all.TotalAmount.Equal(decimal.RequireFromString("892.50")), "total %s", all.TotalAmount)
	assert.True(t, all.PaidAmount.Equal(decimal.RequireFromString("297.50")))

	mine, err := f.invoices.Statistics(ctx, uuidPtr(f.owner.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.TotalInvoices)
	assert.Zero(t, mine.OverdueInvoices)
}

func TestGormInvoiceRepository_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for seq := 1; seq <= 4; seq++ {
		f.store(t, f.newInvoice(t, seq, f.owner, baseDay.AddDate(0, 0, seq)))
	}
	adminInv := f.store(t, f.newInvoice(t, 5, f.admin, baseDay))
	require.NoError(t, f.invoices.UpdateStatus(ctx, adminInv.ID, invoice.StatusPaid))

	t.Run("pages with a stable order", func(t *testing.T) {
		filter := invoice.DefaultListFilter()
		filter.PageSize = 2
		filter.OrderBy = "invoice_number"
		filter.OrderDir = "asc"

		page, total, err := f.invoices.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, page, 2)
		assert.Equal(t, "INV-202610-0001", page[0].InvoiceNumber)

		filter.Page = 3
		last, _, err := f.invoices.List(ctx, filter)
		require.NoError(t, err)
		require.Len(t, last, 1)
		assert.Equal(t, "INV-202610-0005", last[0].InvoiceNumber)
	})

	t.Run("scopes to an issuer", func(t *testing.T) {
		filter := invoice.DefaultListFilter()
		filter.UserID = uuidPtr(f.admin.ID)
		page, total, err := f.invoices.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, adminInv.ID, page[0].ID)
	})

	t.Run("filters by status", func(t *testing.T) {
		status := invoice.StatusPending
		filter := invoice.DefaultListFilter()
		filter.Status = &status
		_, total, err := f.invoices.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
	})

	t.Run("searches number, description and client", func(t *testing.T) {
		filter := invoice.DefaultListFilter()
		filter.Search = "0003"
		_, total, err := f.invoices.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		filter.Search = "GOMEZ"
		_, total, err = f.invoices.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)

		filter.Search = "100%"
		_, total, err = f.invoices.List(ctx, filter)
		require.NoError(t, err)
		assert.Zero(t, total, "wildcards in the search term are literal")
	})

	t.Run("filters by due date and amount", func(t *testing.T) {
		from := baseDay.AddDate(0, 0, 3)
		filter := invoice.DefaultListFilter()
		filter.DueDateFrom = &from
		_, total, err := f.invoices.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		filter = invoice.DefaultListFilter()
		filter.AmountMin = decPtr("300")
		_, total, err = f.invoices.List(ctx, filter)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("ignores unknown sort columns", func(t *testing.T) {
		filter := invoice.DefaultListFilter()
		filter.OrderBy = "total_amount; DROP TABLE invoices"
		_, total, err := f.invoices.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
	})
}

func TestGormInvoiceRepository_SetPDFReference_SQL(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	repo := NewGormInvoiceRepository(gormDB)

	id := uuid.New()
	mock.ExpectExec(`UPDATE "invoices" SET "pdf_path"=\$1 WHERE id = \$2`).
		WithArgs("invoices/x.pdf", id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetPDFReference(context.Background(), id, strPtr("invoices/x.pdf")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceRepository_PersistenceErrorsHideDriverText(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	repo := NewGormInvoiceRepository(gormDB)

	mock.ExpectExec(`UPDATE "invoices"`).WillReturnError(assert.AnError)

	err = repo.UpdateStatus(context.Background(), uuid.New(), invoice.StatusPaid)
	require.Error(t, err)
	assert.Equal(t, shared.KindPersistence, shared.KindOf(err))
	assert.NotContains(t, err.Error(), assert.AnError.Error())
	assert.ErrorIs(t, err, assert.AnError)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
