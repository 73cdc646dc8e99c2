package dto

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind shared.ErrorKind
		want int
	}{
		{shared.KindValidation, http.StatusUnprocessableEntity},
		{shared.KindNotFound, http.StatusNotFound},
		{shared.KindConflict, http.StatusConflict},
		{shared.KindUnauthorized, http.StatusUnauthorized},
		{shared.KindForbidden, http.StatusForbidden},
		{shared.KindDerivedArtifact, http.StatusBadGateway},
		{shared.KindPersistence, http.StatusInternalServerError},
		{shared.ErrorKind("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForKind(tt.kind))
		})
	}
}

func TestErrorFor(t *testing.T) {
	t.Run("domain error keeps its code", func(t *testing.T) {
		status, code, msg := ErrorFor(fmt.Errorf("create: %w", invoice.ErrNumberConflict))
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, invoice.ErrNumberConflict.Code, code)
		assert.Equal(t, invoice.ErrNumberConflict.Message, msg)
	})

	t.Run("persistence hides the cause", func(t *testing.T) {
		err := shared.NewPersistenceError("insert invoices failed: pq: connection refused", errors.New("boom"))
		status, code, msg := ErrorFor(err)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "PERSISTENCE_ERROR", code)
		assert.NotContains(t, msg, "pq")
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		status, code, msg := ErrorFor(errors.New("driver: bad connection"))
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, ErrCodeInternal, code)
		assert.Equal(t, internalMessage, msg)
	})
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse(shared.NewPaginated[string](nil, 31, 2, 15))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{}, resp.Data)
	assert.Equal(t, &Meta{Total: 31, Page: 2, PageSize: 15, TotalPages: 3}, resp.Meta)
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Validation failed", "req-1", []ValidationDetail{{Field: "email", Message: "email is required", Tag: "required"}})
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 1)
}
