package persistence

import (
	"errors"
	"strings"

	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// uniqueViolation reports whether err is a unique-constraint violation and,
// when the driver exposes it, the violated constraint or column text.
func uniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName + " " + pgErr.Detail, true
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return msg, true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return msg, true
	}
	return "", false
}

// wrapErr maps driver errors to domain errors: not-found stays NotFound,
// anything unclassified becomes a PersistenceError.
func wrapErr(err error, notFound error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	if _, ok := shared.AsDomainError(err); ok {
		return err
	}
	return shared.NewPersistenceError("Failed to "+op, err)
}
