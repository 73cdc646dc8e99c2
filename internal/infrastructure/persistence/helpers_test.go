package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/client"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/infinity-9427/invoicing/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	identity.PasswordCost = bcrypt.MinCost
}

// newTestDB opens a private in-memory SQLite database with the schema migrated.
// A single connection keeps every statement on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type fixture struct {
	db       *gorm.DB
	invoices *GormInvoiceRepository
	clients  *GormClientRepository
	users    *GormUserRepository
	admin    *identity.User
	owner    *identity.User
	client   *client.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:       db,
		invoices: NewGormInvoiceRepository(db),
		clients:  NewGormClientRepository(db),
		users:    NewGormUserRepository(db),
	}
	ctx := context.Background()

	f.admin = mustUser(t, "Ada Admin", "ada@example.com", identity.RoleAdmin)
	f.owner = mustUser(t, "Owen Owner", "owen@example.com", identity.RoleUser)
	require.NoError(t, f.users.Create(ctx, f.admin))
	require.NoError(t, f.users.Create(ctx, f.owner))

	f.client = mustClient(t, "CC-1001", "maria@example.com")
	require.NoError(t, f.clients.Create(ctx, f.client))
	return f
}

func mustUser(t *testing.T, name, email string, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser(name, email, "s3cret-password", role)
	require.NoError(t, err)
	return u
}

func mustClient(t *testing.T, document, email string) *client.Client {
	t.Helper()
	c, err := client.NewClient(client.Details{
		FirstName:      "Maria",
		LastName:       "Gomez",
		DocumentType:   client.DocumentCedula,
		DocumentNumber: document,
		Email:          email,
		Phone:          "3001234567",
	})
	require.NoError(t, err)
	return c
}

var baseDay = time.Date(2026, time.October, 10, 12, 0, 0, 0, time.UTC)

// newInvoice builds an invoice numbered seq in baseDay's month, issued by
// issuer and due at due.
func (f *fixture) newInvoice(t *testing.T, seq int, issuer *identity.User, due time.Time) *invoice.Invoice {
	t.Helper()
	inv, err := invoice.NewInvoice(invoice.CreateParams{
		InvoiceNumber: invoice.FormatNumber(baseDay, seq),
		ClientID:      f.client.ID,
		UserID:        issuer.ID,
		Description:   fmt.Sprintf("Consulting batch %d", seq),
		IssueDate:     baseDay.AddDate(0, 0, -30),
		DueDate:       due,
		Items: []invoice.LineSpec{
			{Name: "Widget", Quantity: 2, UnitPrice: decimal.RequireFromString("100.00")},
			{Name: "Support", Quantity: 1, UnitPrice: decimal.RequireFromString("50.00")},
		},
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) store(t *testing.T, inv *invoice.Invoice) *invoice.Invoice {
	t.Helper()
	require.NoError(t, f.invoices.Create(context.Background(), inv))
	return inv
}

func strPtr(s string) *string { return &s }

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
