// Package testutil provides shared fixtures for service, handler and
// integration tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/infinity-9427/invoicing/internal/domain/client"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/infrastructure/persistence"
	"github.com/infinity-9427/invoicing/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultPassword is the password of every user created by NewUser
const DefaultPassword = "s3cret-password"

func init() {
	gin.SetMode(gin.TestMode)
	identity.PasswordCost = bcrypt.MinCost
}

// NewSQLiteDB opens a private in-memory SQLite database with the schema
// migrated. A single connection keeps every statement on the same database
// and serializes concurrent writers.
func NewSQLiteDB(t *testing.T) *gorm.DB {
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

// MockDB wraps a GORM handle backed by sqlmock with the postgres dialect
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a GORM database whose SQL is asserted through sqlmock
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	m := &MockDB{DB: db, Mock: mock, SqlDB: sqlDB}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return m
}

// ExpectationsWereMet fails the test when a queued expectation was not hit
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet())
}

// NewUser persists a user with DefaultPassword
func NewUser(t *testing.T, db *gorm.DB, name, email string, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser(name, email, DefaultPassword, role)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormUserRepository(db).Create(context.Background(), u))
	return u
}

// NewClient persists a client identified by a cedula document
func NewClient(t *testing.T, db *gorm.DB, document, email string) *client.Client {
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
	require.NoError(t, persistence.NewGormClientRepository(db).Create(context.Background(), c))
	return c
}

// RequireEventually polls condition until it holds or timeout elapses
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}
	require.Fail(t, "condition not met within timeout", msgAndArgs...)
}
