package models

import (
	"github.com/infinity-9427/invoicing/internal/domain/client"
)

// ClientModel is the persistence model for clients
type ClientModel struct {
	BaseModel
	FirstName      string              `gorm:"type:varchar(255);not null"`
	LastName       string              `gorm:"type:varchar(255);not null"`
	DocumentType   client.DocumentType `gorm:"type:varchar(20);not null"`
	DocumentNumber string              `gorm:"type:varchar(255);not null;uniqueIndex:idx_clients_document_number"`
	Email          string              `gorm:"type:varchar(255);not null;uniqueIndex:idx_clients_email"`
	Phone          string              `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client entity
func (m *ClientModel) ToDomain() *client.Client {
	return &client.Client{
		BaseAggregateRoot: m.aggregateRoot(),
		FirstName:         m.FirstName,
		LastName:          m.LastName,
		DocumentType:      m.DocumentType,
		DocumentNumber:    m.DocumentNumber,
		Email:             m.Email,
		Phone:             m.Phone,
	}
}

// FromDomain populates the persistence model from a domain Client entity
func (m *ClientModel) FromDomain(c *client.Client) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.FirstName = c.FirstName
	m.LastName = c.LastName
	m.DocumentType = c.DocumentType
	m.DocumentNumber = c.DocumentNumber
	m.Email = c.Email
	m.Phone = c.Phone
}

// ClientModelFromDomain creates a new persistence model from a domain Client entity
func ClientModelFromDomain(c *client.Client) *ClientModel {
	m := &ClientModel{}
	m.FromDomain(c)
	return m
}
