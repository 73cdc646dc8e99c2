package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/infinity-9427/invoicing/internal/domain/shared"
)

// NumberPrefix starts every generated invoice number
const NumberPrefix = "INV"

// MonthPrefix returns the generated-number prefix for t's year and month,
// e.g. "INV-202610-".
func MonthPrefix(t time.Time) string {
	return fmt.Sprintf("%s-%04d%02d-", NumberPrefix, t.Year(), int(t.Month()))
}

// FormatNumber builds "INV-{yyyy}{mm}-{seq:04d}"
func FormatNumber(t time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", MonthPrefix(t), seq)
}

// ParseSequence extracts the sequence from a number carrying prefix
func ParseSequence(number, prefix string) (int, bool) {
	if !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(number, prefix))
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// NextNumber returns the number following last within t's month. An empty or
// foreign last number starts the sequence at 1.
func NextNumber(t time.Time, last string) string {
	seq, ok := ParseSequence(last, MonthPrefix(t))
	if !ok {
		seq = 0
	}
	return FormatNumber(t, seq+1)
}

// ValidateNumber checks an explicitly supplied invoice number
func ValidateNumber(number string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(number) > 255 {
		return "", shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 255 characters")
	}
	return number, nil
}
