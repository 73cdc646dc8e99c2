package client

import (
	"context"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
)

// Error codes for client uniqueness violations
var (
	ErrClientNotFound    = shared.NewNotFoundError("CLIENT_NOT_FOUND", "Client not found")
	ErrDocumentConflict  = shared.NewConflictError("CLIENT_DOCUMENT_CONFLICT", "A client with this document number already exists")
	ErrEmailConflict     = shared.NewConflictError("CLIENT_EMAIL_CONFLICT", "A client with this email already exists")
	ErrClientHasInvoices = shared.NewConflictError("CLIENT_HAS_INVOICES", "Client has invoices and cannot be deleted")
)

// Repository persists clients
type Repository interface {
	// Create inserts a client. Unique violations map to ErrDocumentConflict or ErrEmailConflict.
	Create(ctx context.Context, c *Client) error

	// Update saves client details
	Update(ctx context.Context, c *Client) error

	// Delete removes a client; ErrClientHasInvoices if invoices reference it
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds a client by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)

	// FindAll returns clients matching the filter with the total count
	FindAll(ctx context.Context, filter Filter) ([]*Client, int64, error)

	// ExistsByDocumentNumber checks document uniqueness, ignoring excludeID
	ExistsByDocumentNumber(ctx context.Context, number string, excludeID *uuid.UUID) (bool, error)

	// ExistsByEmail checks email uniqueness, ignoring excludeID
	ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
}

// Filter narrows client listings
type Filter struct {
	shared.Filter
	DocumentType *DocumentType
}
