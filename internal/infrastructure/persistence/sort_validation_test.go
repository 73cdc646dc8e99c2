package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "DESC"},
		{"asc", "ASC"},
		{"ASC", "ASC"},
		{" asc ", "ASC"},
		{"desc", "DESC"},
		{"ascending", "DESC"},
		{"ASC; DELETE FROM invoices", "DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortOrder(tt.in))
		})
	}
}

func TestValidateSortField_Invoices(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty uses default", "", "created_at"},
		{"due date", "due_date", "due_date"},
		{"total", "total_amount", "total_amount"},
		{"trimmed", "  invoice_number ", "invoice_number"},
		{"case sensitive", "DUE_DATE", "created_at"},
		{"unknown column", "pdf_path", "created_at"},
		{"subquery", "total_amount, (SELECT password FROM users)", "created_at"},
		{"statement", "status; DROP TABLE invoice_items", "created_at"},
		{"quoted", "status'--", "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.in, InvoiceSortFields, "created_at"))
		})
	}
}

func TestSortWhitelists_ShareTimestamps(t *testing.T) {
	for name, fields := range map[string]map[string]bool{
		"invoices": InvoiceSortFields,
		"clients":  ClientSortFields,
		"users":    UserSortFields,
	} {
		assert.True(t, fields["created_at"], name)
		assert.True(t, fields["updated_at"], name)
		assert.False(t, fields["password"], name)
	}
}
