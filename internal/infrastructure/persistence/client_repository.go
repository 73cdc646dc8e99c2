package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/client"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/infinity-9427/invoicing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormClientRepository implements client.Repository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// Create inserts a client
func (r *GormClientRepository) Create(ctx context.Context, c *client.Client) error {
	err := r.db.WithContext(ctx).Create(models.ClientModelFromDomain(c)).Error
	return r.mapWriteErr(err, "create client")
}

// Update saves client details
func (r *GormClientRepository) Update(ctx context.Context, c *client.Client) error {
	m := models.ClientModelFromDomain(c)
	res := r.db.WithContext(ctx).Model(&models.ClientModel{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"first_name":      m.FirstName,
			"last_name":       m.LastName,
			"document_type":   m.DocumentType,
			"document_number": m.DocumentNumber,
			"email":           m.Email,
			"phone":           m.Phone,
			"updated_at":      m.UpdatedAt,
		})
	if res.Error != nil {
		return r.mapWriteErr(res.Error, "update client")
	}
	if res.RowsAffected == 0 {
		return client.ErrClientNotFound
	}
	return nil
}

// Delete removes a client that no invoice references
func (r *GormClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&models.InvoiceModel{}).Where("client_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return client.ErrClientHasInvoices
		}
		res := tx.Where("id = ?", id).Delete(&models.ClientModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return client.ErrClientNotFound
		}
		return nil
	})
	return wrapErr(err, client.ErrClientNotFound, "delete client")
}

// FindByID finds a client by ID
func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	var m models.ClientModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err, client.ErrClientNotFound, "load client")
	}
	return m.ToDomain(), nil
}

// FindAll returns clients matching the filter with the total count
func (r *GormClientRepository) FindAll(ctx context.Context, filter client.Filter) ([]*client.Client, int64, error) {
	filter.Filter = filter.Filter.Normalize()
	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.ClientModel{})
		if filter.DocumentType != nil {
			query = query.Where("document_type = ?", *filter.DocumentType)
		}
		if s := strings.TrimSpace(filter.Search); s != "" {
			p := likePattern(s)
			query = query.Where(
				`LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(document_number) LIKE ? ESCAPE '\'`,
				p, p, p, p,
			)
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, wrapErr(err, shared.ErrNotFound, "count clients")
	}

	var rows []models.ClientModel
	err := base().
		Order(ValidateSortField(filter.OrderBy, ClientSortFields, "created_at") + " " + ValidateSortOrder(filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, wrapErr(err, shared.ErrNotFound, "list clients")
	}

	clients := make([]*client.Client, len(rows))
	for i := range rows {
		clients[i] = rows[i].ToDomain()
	}
	return clients, total, nil
}

// ExistsByDocumentNumber checks document uniqueness, ignoring excludeID
func (r *GormClientRepository) ExistsByDocumentNumber(ctx context.Context, number string, excludeID *uuid.UUID) (bool, error) {
	return r.exists(ctx, "document_number = ?", strings.TrimSpace(number), excludeID)
}

// ExistsByEmail checks email uniqueness, ignoring excludeID
func (r *GormClientRepository) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	return r.exists(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)), excludeID)
}

func (r *GormClientRepository) exists(ctx context.Context, cond string, value string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.ClientModel{}).Where(cond, value)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, wrapErr(err, shared.ErrNotFound, "check client uniqueness")
	}
	return count > 0, nil
}

func (r *GormClientRepository) mapWriteErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if detail, ok := uniqueViolation(err); ok {
		if strings.Contains(strings.ToLower(detail), "email") {
			return client.ErrEmailConflict.WithCause(err)
		}
		return client.ErrDocumentConflict.WithCause(err)
	}
	return wrapErr(err, client.ErrClientNotFound, op)
}

// Ensure GormClientRepository implements client.Repository
var _ client.Repository = (*GormClientRepository)(nil)
