package invoice_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	app "github.com/infinity-9427/invoicing/internal/application/invoice"
	"github.com/infinity-9427/invoicing/internal/domain/client"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	invoice.Repository
	mock.Mock
	created *invoice.Invoice
}

func (m *mockRepo) NextNumber(ctx context.Context, at time.Time) (string, error) {
	args := m.Called(ctx, at)
	return args.String(0), args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	args := m.Called(ctx, inv)
	if args.Error(0) == nil {
		m.created = inv
	}
	return args.Error(0)
}

func (m *mockRepo) FindByID(_ context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	if m.created == nil || m.created.ID != id {
		return nil, invoice.ErrInvoiceNotFound
	}
	return m.created, nil
}

type knownClients struct {
	client.Repository
}

func (knownClients) FindByID(_ context.Context, id uuid.UUID) (*client.Client, error) {
	return &client.Client{}, nil
}

func retryRequest() app.CreateInvoiceRequest {
	return app.CreateInvoiceRequest{
		ClientID:  uuid.New(),
		IssueDate: "2026-10-15",
		DueDate:   "2026-10-30",
		Items:     []app.ItemRequest{{Name: "Widget", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
	}
}

func TestService_Create_RetriesGeneratedNumberConflicts(t *testing.T) {
	repo := &mockRepo{}
	repo.On("NextNumber", mock.Anything, mock.Anything).Return("INV-202610-0007", nil).Twice()
	repo.On("NextNumber", mock.Anything, mock.Anything).Return("INV-202610-0008", nil).Once()
	repo.On("Create", mock.Anything, mock.Anything).Return(invoice.ErrNumberConflict).Twice()
	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	svc := app.NewService(repo, knownClients{}, nil, nil)
	actor := identity.NewActor(uuid.New(), identity.RoleUser)
	resp, err := svc.Create(context.Background(), actor, retryRequest())
	require.NoError(t, err)

	assert.Equal(t, "INV-202610-0008", resp.InvoiceNumber)
	repo.AssertNumberOfCalls(t, "NextNumber", 3)
	repo.AssertNumberOfCalls(t, "Create", 3)
}

func TestService_Create_GivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := &mockRepo{}
	repo.On("NextNumber", mock.Anything, mock.Anything).Return("INV-202610-0007", nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(invoice.ErrNumberConflict)

	svc := app.NewService(repo, knownClients{}, nil, nil)
	actor := identity.NewActor(uuid.New(), identity.RoleUser)
	_, err := svc.Create(context.Background(), actor, retryRequest())

	assert.ErrorIs(t, err, invoice.ErrNumberConflict)
	repo.AssertNumberOfCalls(t, "Create", 5)
}
