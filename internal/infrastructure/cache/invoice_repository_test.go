package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockInvoiceRepository struct {
	mock.Mock
	invoice.Repository
}

func (m *mockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*invoice.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepository) Statistics(ctx context.Context, userID *uuid.UUID) (*invoice.Statistics, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*invoice.Statistics), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status invoice.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockInvoiceRepository) SetPDFReference(ctx context.Context, id uuid.UUID, path *string) error {
	return m.Called(ctx, id, path).Error(0)
}

func (m *mockInvoiceRepository) MarkOverdue(ctx context.Context, now time.Time) ([]invoice.Invoice, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]invoice.Invoice), args.Error(1)
}

func newCachedInvoice(t *testing.T) *invoice.Invoice {
	t.Helper()
	issue := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	inv, err := invoice.NewInvoice(invoice.CreateParams{
		InvoiceNumber: "INV-202610-0001",
		ClientID:      uuid.New(),
		UserID:        uuid.New(),
		IssueDate:     issue,
		DueDate:       issue.AddDate(0, 0, 30),
		Items: []invoice.LineSpec{
			{Name: "Widget", Quantity: 2, UnitPrice: decimal.RequireFromString("100.00")},
		},
	})
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

func TestInvoiceRepository_FindByIDIsCached(t *testing.T) {
	ctx := context.Background()
	inv := newCachedInvoice(t)
	next := &mockInvoiceRepository{}
	next.On("FindByID", ctx, inv.ID).Return(inv, nil).Once()
	store := NewMemoryStore()
	defer store.Close()
	repo := NewInvoiceRepository(next, store, time.Minute, nil)

	first, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)

	next.AssertExpectations(t)
	assert.Equal(t, inv.InvoiceNumber, second.InvoiceNumber)
	assert.True(t, second.TotalAmount.Equal(first.TotalAmount))
	require.Len(t, second.Items, 1)
	assert.True(t, second.Items[0].TaxRate.Equal(decimal.NewFromInt(19)))
	assert.NotSame(t, first, second)
}

func TestInvoiceRepository_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	next := &mockInvoiceRepository{}
	next.On("FindByID", ctx, id).Return(nil, invoice.ErrInvoiceNotFound).Twice()
	store := NewMemoryStore()
	defer store.Close()
	repo := NewInvoiceRepository(next, store, time.Minute, nil)

	for range 2 {
		_, err := repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, invoice.ErrInvoiceNotFound)
	}
	next.AssertExpectations(t)
}

func TestInvoiceRepository_WritesEvict(t *testing.T) {
	ctx := context.Background()
	inv := newCachedInvoice(t)
	next := &mockInvoiceRepository{}
	next.On("FindByID", ctx, inv.ID).Return(inv, nil).Twice()
	next.On("SetPDFReference", ctx, inv.ID, mock.Anything).Return(nil)
	store := NewMemoryStore()
	defer store.Close()
	repo := NewInvoiceRepository(next, store, time.Minute, nil)

	_, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	path := "invoices/x.pdf"
	require.NoError(t, repo.SetPDFReference(ctx, inv.ID, &path))
	_, err = repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)

	next.AssertExpectations(t)
}

func TestInvoiceRepository_FailedWriteStillEvicts(t *testing.T) {
	ctx := context.Background()
	inv := newCachedInvoice(t)
	next := &mockInvoiceRepository{}
	next.On("FindByID", ctx, inv.ID).Return(inv, nil).Twice()
	next.On("UpdateStatus", ctx, inv.ID, invoice.StatusPaid).Return(errors.New("boom"))
	store := NewMemoryStore()
	defer store.Close()
	repo := NewInvoiceRepository(next, store, time.Minute, nil)

	_, _ = repo.FindByID(ctx, inv.ID)
	assert.Error(t, repo.UpdateStatus(ctx, inv.ID, invoice.StatusPaid))
	_, _ = repo.FindByID(ctx, inv.ID)

	next.AssertExpectations(t)
}

func TestInvoiceRepository_StatisticsGeneration(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	all := &invoice.Statistics{TotalInvoices: 3, TotalAmount: decimal.RequireFromString("892.50")}
	mine := &invoice.Statistics{TotalInvoices: 1}
	flipped := newCachedInvoice(t)

	next := &mockInvoiceRepository{}
	next.On("Statistics", ctx, (*uuid.UUID)(nil)).Return(all, nil).Twice()
	next.On("Statistics", ctx, &owner).Return(mine, nil).Once()
	next.On("MarkOverdue", ctx, mock.Anything).Return([]invoice.Invoice{*flipped}, nil)
	store := NewMemoryStore()
	defer store.Close()
	repo := NewInvoiceRepository(next, store, time.Minute, nil)

	got, err := repo.Statistics(ctx, nil)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(all.TotalAmount))
	_, _ = repo.Statistics(ctx, nil)

	scoped, err := repo.Statistics(ctx, &owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), scoped.TotalInvoices)

	_, err = repo.MarkOverdue(ctx, time.Now())
	require.NoError(t, err)
	_, _ = repo.Statistics(ctx, nil)

	next.AssertExpectations(t)
}
