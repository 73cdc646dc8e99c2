// Package client implements client management. Any authenticated user may
// read clients; only admins may change them.
package client

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/client"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"go.uber.org/zap"
)

// Service handles client business operations
type Service struct {
	repo   client.Repository
	logger *zap.Logger
}

// NewService creates a new client Service
func NewService(repo client.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Create registers a client
func (s *Service) Create(ctx context.Context, actor identity.Actor, req ClientRequest) (*ClientResponse, error) {
	if err := authorizeManage(actor); err != nil {
		return nil, err
	}
	c, err := client.NewClient(req.details())
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, c, nil); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("Client created",
		zap.String("client_id", c.ID.String()),
		zap.String("document_number", c.DocumentNumber))
	return toResponse(c), nil
}

// Update replaces a client's details
func (s *Service) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, req ClientRequest) (*ClientResponse, error) {
	if err := authorizeManage(actor); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Update(req.details()); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, c, &c.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("Client updated", zap.String("client_id", id.String()))
	return toResponse(c), nil
}

// Delete removes a client that has no invoices
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := authorizeManage(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Client deleted", zap.String("client_id", id.String()))
	return nil
}

// GetByID returns one client
func (s *Service) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*ClientResponse, error) {
	if err := authorizeRead(actor); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(c), nil
}

// List returns a page of clients
func (s *Service) List(ctx context.Context, actor identity.Actor, req ListClientsRequest) (*shared.Paginated[ClientResponse], error) {
	if err := authorizeRead(actor); err != nil {
		return nil, err
	}
	filter := client.Filter{Filter: shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   strings.TrimSpace(req.Search),
	}.Normalize()}
	if req.DocumentType != "" {
		dt := client.DocumentType(req.DocumentType)
		if !dt.IsValid() {
			return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type must be cedula, pasaporte, or nit")
		}
		filter.DocumentType = &dt
	}

	clients, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]ClientResponse, len(clients))
	for i, c := range clients {
		items[i] = *toResponse(c)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// ensureUnique checks document and email uniqueness up front so the caller
// gets a precise conflict; the unique indexes remain the final authority
func (s *Service) ensureUnique(ctx context.Context, c *client.Client, excludeID *uuid.UUID) error {
	exists, err := s.repo.ExistsByDocumentNumber(ctx, c.DocumentNumber, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return client.ErrDocumentConflict
	}
	exists, err = s.repo.ExistsByEmail(ctx, c.Email, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return client.ErrEmailConflict
	}
	return nil
}

func authorizeRead(actor identity.Actor) error {
	if actor.IsGuest() {
		return shared.NewForbiddenError("You are not allowed to view clients")
	}
	return nil
}

func authorizeManage(actor identity.Actor) error {
	if !actor.IsAdmin() {
		return shared.NewForbiddenError("Only administrators can manage clients")
	}
	return nil
}
