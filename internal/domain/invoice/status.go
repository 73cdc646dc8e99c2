package invoice

import (
	"strings"

	"github.com/infinity-9427/invoicing/internal/domain/shared"
)

// Status is the payment status of an invoice
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// AllStatuses lists every valid status
func AllStatuses() []Status {
	return []Status{StatusPending, StatusPaid, StatusOverdue}
}

// IsValid reports whether s is a valid status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// CanTransitionTo reports whether an explicit status change to target is
// allowed. Manual corrections may move between any two valid statuses.
func (s Status) CanTransitionTo(target Status) bool {
	return target.IsValid()
}

// ParseStatus parses a status string
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", shared.NewDomainError("INVALID_STATUS", "Status must be one of: pending, paid, overdue")
	}
	return s, nil
}
