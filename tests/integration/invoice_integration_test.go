package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	app "github.com/infinity-9427/invoicing/internal/application/invoice"
	"github.com/infinity-9427/invoicing/internal/application/printing"
	"github.com/infinity-9427/invoicing/internal/domain/client"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/infinity-9427/invoicing/internal/infrastructure/event"
	"github.com/infinity-9427/invoicing/internal/infrastructure/persistence"
	infra "github.com/infinity-9427/invoicing/internal/infrastructure/printing"
	"github.com/infinity-9427/invoicing/internal/infrastructure/storage"
	"github.com/infinity-9427/invoicing/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pdfStub struct{}

func (pdfStub) Render(_ context.Context, data *infra.DocumentData) ([]byte, error) {
	return []byte("%PDF-1.4 " + data.Number + " " + data.Status), nil
}

type stack struct {
	db      *TestDB
	repo    *persistence.GormInvoiceRepository
	svc     *app.Service
	sweeper *app.OverdueSweeper
	blobs   *storage.FileSystemStorage
	admin   *identity.User
	owner   *identity.User
	client  *client.Client
	now     time.Time
}

func newStack(t *testing.T) *stack {
	t.Helper()
	tdb := NewTestDB(t)
	blobs, err := storage.NewFileSystemStorage(t.TempDir(), "http://files.test", zap.NewNop())
	require.NoError(t, err)

	s := &stack{
		db:    tdb,
		repo:  persistence.NewGormInvoiceRepository(tdb.DB),
		blobs: blobs,
		now:   time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC),
	}
	manager := printing.NewManager(s.repo, pdfStub{}, blobs, printing.ManagerConfig{Company: "Acme"})
	bus := event.NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(manager)

	s.svc = app.NewService(s.repo, persistence.NewGormClientRepository(tdb.DB), bus, zap.NewNop(),
		app.WithDocuments(manager),
		app.WithClock(func() time.Time { return s.now }))
	s.sweeper = app.NewOverdueSweeper(s.repo, bus, nil, zap.NewNop())

	s.admin = testutil.NewUser(t, tdb.DB, "Ada Admin", "ada@example.com", identity.RoleAdmin)
	s.owner = testutil.NewUser(t, tdb.DB, "Owen Owner", "owen@example.com", identity.RoleUser)
	s.client = testutil.NewClient(t, tdb.DB, "CC-1001", "maria@example.com")
	return s
}

func (s *stack) request(issue, due string) app.CreateInvoiceRequest {
	return app.CreateInvoiceRequest{
		ClientID:  s.client.ID,
		IssueDate: issue,
		DueDate:   due,
		Items: []app.ItemRequest{
			{Name: "Widget", Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
			{Name: "Support", Quantity: 1, UnitPrice: decimal.NewFromInt(50)},
		},
	}
}

func TestInvoiceLifecycle_Postgres(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	actor := s.owner.Actor()

	created, err := s.svc.Create(ctx, actor, s.request("2026-10-15", "2026-11-14"))
	require.NoError(t, err)
	assert.Equal(t, "INV-202610-0001", created.InvoiceNumber)
	assert.True(t, decimal.RequireFromString("297.50").Equal(created.TotalAmount), "total %s", created.TotalAmount)
	assert.True(t, created.HasPDF)
	require.NotNil(t, created.Client)
	assert.Equal(t, "CC-1001", created.Client.DocumentNumber)

	items := []app.ItemRequest{{Name: "Audit", Quantity: 3, UnitPrice: decimal.RequireFromString("10.10")}}
	updated, err := s.svc.Update(ctx, actor, created.ID, app.UpdateInvoiceRequest{Items: &items})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	// 30.30 + 19% tax = 36.057 -> 36.06
	assert.True(t, decimal.RequireFromString("36.06").Equal(updated.TotalAmount), "total %s", updated.TotalAmount)

	paid, err := s.svc.UpdateStatus(ctx, actor, created.ID, "paid")
	require.NoError(t, err)
	assert.Equal(t, "paid", paid.Status)
	assert.True(t, paid.HasPDF)

	stored, err := s.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PDFPath)
	ok, err := s.blobs.Exists(ctx, *stored.PDFPath)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.svc.Delete(ctx, actor, created.ID))
	_, err = s.repo.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var orphaned int64
	require.NoError(t, s.db.DB.Table("invoice_items").Where("invoice_id = ?", created.ID).Count(&orphaned).Error)
	assert.Zero(t, orphaned)

	ok, err = s.blobs.Exists(ctx, *stored.PDFPath)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentCreate_GeneratesDistinctNumbers(t *testing.T) {
	s := newStack(t)

	const creators = 5
	numbers := make([]string, creators)
	errs := make([]error, creators)
	var wg sync.WaitGroup
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := s.svc.Create(context.Background(), s.owner.Actor(), s.request("2026-10-15", "2026-11-14"))
			errs[i] = err
			if err == nil {
				numbers[i] = resp.InvoiceNumber
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < creators; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[numbers[i]], "duplicate number %s", numbers[i])
		seen[numbers[i]] = true
	}
	for seq := 1; seq <= creators; seq++ {
		assert.True(t, seen[fmt.Sprintf("INV-202610-%04d", seq)], "missing sequence %d", seq)
	}
}

func TestCreate_DuplicateExplicitNumberIsRejectedByIndex(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	first, err := invoice.NewInvoice(invoice.CreateParams{
		InvoiceNumber: "INV-202610-0100",
		ClientID:      s.client.ID,
		UserID:        s.owner.ID,
		IssueDate:     s.now,
		DueDate:       s.now.AddDate(0, 0, 30),
		Items:         []invoice.LineSpec{{Name: "Widget", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
	})
	require.NoError(t, err)
	require.NoError(t, s.repo.Create(ctx, first))

	second, err := invoice.NewInvoice(invoice.CreateParams{
		InvoiceNumber: "INV-202610-0100",
		ClientID:      s.client.ID,
		UserID:        s.owner.ID,
		IssueDate:     s.now,
		DueDate:       s.now.AddDate(0, 0, 30),
		Items:         []invoice.LineSpec{{Name: "Widget", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
	})
	require.NoError(t, err)
	err = s.repo.Create(ctx, second)
	assert.ErrorIs(t, err, invoice.ErrNumberConflict)

	_, err = s.repo.FindByID(ctx, second.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "a rejected header leaves no rows behind")
}

func TestOverdueSweep_Postgres(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	actor := s.owner.Actor()

	late, err := s.svc.Create(ctx, actor, s.request("2026-09-01", "2026-10-01"))
	require.NoError(t, err)
	dueToday, err := s.svc.Create(ctx, actor, s.request("2026-09-15", "2026-10-15"))
	require.NoError(t, err)
	paidLate, err := s.svc.Create(ctx, actor, s.request("2026-09-01", "2026-10-01"))
	require.NoError(t, err)
	_, err = s.svc.UpdateStatus(ctx, actor, paidLate.ID, "paid")
	require.NoError(t, err)

	startOfDay := time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)
	result, err := s.sweeper.Sweep(ctx, startOfDay)
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, late.InvoiceNumber, result.Invoices[0].InvoiceNumber)

	got, err := s.svc.GetByID(ctx, actor, late.ID)
	require.NoError(t, err)
	assert.Equal(t, "overdue", got.Status)

	got, err = s.svc.GetByID(ctx, actor, dueToday.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Status)

	got, err = s.svc.GetByID(ctx, actor, paidLate.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", got.Status)

	again, err := s.sweeper.Sweep(ctx, startOfDay)
	require.NoError(t, err)
	assert.Zero(t, again.Count)
}

func TestStatisticsAndScoping_Postgres(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.svc.Create(ctx, s.owner.Actor(), s.request("2026-10-15", "2026-11-14"))
	require.NoError(t, err)
	adminInv, err := s.svc.Create(ctx, s.admin.Actor(), s.request("2026-10-15", "2026-11-14"))
	require.NoError(t, err)
	_, err = s.svc.UpdateStatus(ctx, s.admin.Actor(), adminInv.ID, "paid")
	require.NoError(t, err)

	all, err := s.svc.Statistics(ctx, s.admin.Actor())
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.TotalInvoices)
	assert.EqualValues(t, 1, all.PaidInvoices)
	assert.True(t, decimal.RequireFromString("595.00").Equal(all.TotalAmount), "total %s", all.TotalAmount)

	mine, err := s.svc.Statistics(ctx, s.owner.Actor())
	require.NoError(t, err)
	assert.EqualValues(t, 1, mine.TotalInvoices)
	assert.EqualValues(t, 1, mine.PendingInvoices)
	assert.EqualValues(t, 0, mine.PaidInvoices)

	page, err := s.svc.List(ctx, s.owner.Actor(), app.ListInvoicesRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	_, err = s.svc.GetByID(ctx, s.owner.Actor(), adminInv.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}
