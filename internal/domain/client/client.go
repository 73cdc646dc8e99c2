package client

import (
	"strings"

	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
)

// DocumentType is the kind of identity document a client is registered with
type DocumentType string

const (
	DocumentCedula    DocumentType = "cedula"
	DocumentPasaporte DocumentType = "pasaporte"
	DocumentNIT       DocumentType = "nit"
)

// IsValid reports whether d is a supported document type
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentCedula, DocumentPasaporte, DocumentNIT:
		return true
	}
	return false
}

// Client is a billable party. Document number and email are globally unique.
type Client struct {
	shared.BaseAggregateRoot
	FirstName      string
	LastName       string
	DocumentType   DocumentType
	DocumentNumber string
	Email          string
	Phone          string
}

// Details are the mutable attributes of a client
type Details struct {
	FirstName      string
	LastName       string
	DocumentType   DocumentType
	DocumentNumber string
	Email          string
	Phone          string
}

// NewClient validates details and creates a client
func NewClient(d Details) (*Client, error) {
	c := &Client{BaseAggregateRoot: shared.NewBaseAggregateRoot()}
	if err := c.apply(d); err != nil {
		return nil, err
	}
	return c, nil
}

// Update replaces the client's details
func (c *Client) Update(d Details) error {
	if err := c.apply(d); err != nil {
		return err
	}
	c.Touch()
	return nil
}

// FullName returns first and last name joined
func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c *Client) apply(d Details) error {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.DocumentNumber = strings.TrimSpace(d.DocumentNumber)
	d.Phone = strings.TrimSpace(d.Phone)

	if d.FirstName == "" || len(d.FirstName) > 255 {
		return shared.NewDomainError("INVALID_FIRST_NAME", "First name is required and cannot exceed 255 characters")
	}
	if d.LastName == "" || len(d.LastName) > 255 {
		return shared.NewDomainError("INVALID_LAST_NAME", "Last name is required and cannot exceed 255 characters")
	}
	if !d.DocumentType.IsValid() {
		return shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type must be cedula, pasaporte, or nit")
	}
	if d.DocumentNumber == "" || len(d.DocumentNumber) > 255 {
		return shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number is required and cannot exceed 255 characters")
	}
	if len(d.Phone) > 20 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 20 characters")
	}
	email, err := identity.NormalizeEmail(d.Email)
	if err != nil {
		return err
	}

	c.FirstName = d.FirstName
	c.LastName = d.LastName
	c.DocumentType = d.DocumentType
	c.DocumentNumber = d.DocumentNumber
	c.Email = email
	c.Phone = d.Phone
	return nil
}
