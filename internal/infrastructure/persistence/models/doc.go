// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
// - base.go: BaseModel shared by every table
// - identity.go: users
// - client.go: clients
// - invoice.go: invoices and invoice_items
package models
