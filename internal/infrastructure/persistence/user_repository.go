package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	err := r.db.WithContext(ctx).Create(models.UserModelFromDomain(user)).Error
	if _, ok := uniqueViolation(err); ok {
		return identity.ErrEmailTaken.WithCause(err)
	}
	return wrapErr(err, identity.ErrUserNotFound, "create user")
}

// Update saves name, email, password hash and role
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	m := models.UserModelFromDomain(user)
	res := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"name":          m.Name,
			"email":         m.Email,
			"password_hash": m.PasswordHash,
			"role":          m.Role,
			"updated_at":    m.UpdatedAt,
		})
	if _, ok := uniqueViolation(res.Error); ok {
		return identity.ErrEmailTaken.WithCause(res.Error)
	}
	if res.Error != nil {
		return wrapErr(res.Error, identity.ErrUserNotFound, "update user")
	}
	if res.RowsAffected == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var m models.UserModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err, identity.ErrUserNotFound, "load user")
	}
	return m.ToDomain(), nil
}

// FindByEmail finds a user by normalized email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var m models.UserModel
	err := r.db.WithContext(ctx).First(&m, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, wrapErr(err, identity.ErrUserNotFound, "load user")
	}
	return m.ToDomain(), nil
}

// ExistsByEmail checks if an email already exists
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	if err != nil {
		return false, wrapErr(err, identity.ErrUserNotFound, "check user email")
	}
	return count > 0, nil
}

// FindAll returns users matching the filter with the total count
func (r *GormUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	filter.Filter = filter.Filter.Normalize()
	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.UserModel{})
		if filter.Role != nil {
			query = query.Where("role = ?", *filter.Role)
		}
		if s := strings.TrimSpace(filter.Search); s != "" {
			p := likePattern(s)
			query = query.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`, p, p)
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, wrapErr(err, identity.ErrUserNotFound, "count users")
	}

	var rows []models.UserModel
	err := base().
		Order(ValidateSortField(filter.OrderBy, UserSortFields, "created_at") + " " + ValidateSortOrder(filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, wrapErr(err, identity.ErrUserNotFound, "list users")
	}

	users := make([]*identity.User, len(rows))
	for i := range rows {
		users[i] = rows[i].ToDomain()
	}
	return users, total, nil
}

// Ensure GormUserRepository implements identity.UserRepository
var _ identity.UserRepository = (*GormUserRepository)(nil)
