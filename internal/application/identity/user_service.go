package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/infinity-9427/invoicing/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// UserService handles user administration. Every operation requires an admin.
type UserService struct {
	users     identity.UserRepository
	blacklist auth.TokenBlacklist
	// revokeTTL covers the longest-lived token a user may still hold
	revokeTTL time.Duration
	logger    *zap.Logger
}

// NewUserService creates a UserService. Role changes revoke the user's
// outstanding tokens for revokeTTL.
func NewUserService(users identity.UserRepository, blacklist auth.TokenBlacklist, revokeTTL time.Duration, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, blacklist: blacklist, revokeTTL: revokeTTL, logger: logger}
}

// List returns a page of users
func (s *UserService) List(ctx context.Context, actor identity.Actor, req ListUsersRequest) (*shared.Paginated[UserResponse], error) {
	if err := authorizeAdmin(actor); err != nil {
		return nil, err
	}
	filter := identity.UserFilter{Filter: shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   strings.TrimSpace(req.Search),
	}.Normalize()}
	if req.Role != "" {
		role, ok := identity.ParseRole(req.Role)
		if !ok {
			return nil, shared.NewDomainError("INVALID_ROLE", "Role must be admin or user")
		}
		filter.Role = &role
	}

	users, total, err := s.users.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]UserResponse, len(users))
	for i, u := range users {
		items[i] = *toUserResponse(u)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// GetByID returns one user
func (s *UserService) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*UserResponse, error) {
	if err := authorizeAdmin(actor); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

// ChangeRole sets a user's role and revokes the tokens carrying the old one
func (s *UserService) ChangeRole(ctx context.Context, actor identity.Actor, id uuid.UUID, req ChangeRoleRequest) (*UserResponse, error) {
	if err := authorizeAdmin(actor); err != nil {
		return nil, err
	}
	role, ok := identity.ParseRole(req.Role)
	if !ok {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role must be admin or user")
	}
	if actor.Owns(id) {
		return nil, shared.NewDomainError("CANNOT_CHANGE_OWN_ROLE", "You cannot change your own role")
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role == role {
		return toUserResponse(u), nil
	}
	previous := u.Role
	if err := u.ChangeRole(role); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	if s.blacklist != nil {
		if err := s.blacklist.RevokeUser(ctx, u.ID, s.revokeTTL); err != nil {
			s.logger.Error("Failed to revoke tokens after role change",
				zap.String("user_id", u.ID.String()),
				zap.Error(err))
		}
	}
	s.logger.Info("User role changed",
		zap.String("user_id", u.ID.String()),
		zap.String("from", previous.String()),
		zap.String("to", role.String()),
		zap.String("changed_by", actor.UserID.String()))
	return toUserResponse(u), nil
}

func authorizeAdmin(actor identity.Actor) error {
	if !actor.IsAdmin() {
		return shared.NewForbiddenError("Only administrators can manage users")
	}
	return nil
}
