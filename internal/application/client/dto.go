package client

import (
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/client"
)

// ClientRequest is the payload of create and full update
type ClientRequest struct {
	FirstName      string `json:"first_name" binding:"required,max=255"`
	LastName       string `json:"last_name" binding:"required,max=255"`
	DocumentType   string `json:"document_type" binding:"required,oneof=cedula pasaporte nit"`
	DocumentNumber string `json:"document_number" binding:"required,max=255"`
	Email          string `json:"email" binding:"required,email,max=255"`
	Phone          string `json:"phone" binding:"omitempty,max=20"`
}

func (r ClientRequest) details() client.Details {
	return client.Details{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		DocumentType:   client.DocumentType(r.DocumentType),
		DocumentNumber: r.DocumentNumber,
		Email:          r.Email,
		Phone:          r.Phone,
	}
}

// ListClientsRequest holds list query parameters
type ListClientsRequest struct {
	Page         int    `form:"page"`
	PageSize     int    `form:"per_page"`
	OrderBy      string `form:"sort_by" binding:"omitempty,oneof=first_name last_name email document_number created_at"`
	OrderDir     string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	Search       string `form:"search"`
	DocumentType string `form:"document_type" binding:"omitempty,oneof=cedula pasaporte nit"`
}

// ClientResponse is the client read model
type ClientResponse struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	FullName       string    `json:"full_name"`
	DocumentType   string    `json:"document_type"`
	DocumentNumber string    `json:"document_number"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toResponse(c *client.Client) *ClientResponse {
	return &ClientResponse{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		FullName:       c.FullName(),
		DocumentType:   string(c.DocumentType),
		DocumentNumber: c.DocumentNumber,
		Email:          c.Email,
		Phone:          c.Phone,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
