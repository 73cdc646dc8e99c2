package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
)

// RegisterRequest creates a regular user account
type RegisterRequest struct {
	Name                 string `json:"name" binding:"required,max=255"`
	Email                string `json:"email" binding:"required,email,max=255"`
	Password             string `json:"password" binding:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// LoginRequest holds credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a new pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutInput identifies the tokens to revoke on logout
type LogoutInput struct {
	UserID uuid.UUID
	// TokenJTI and TokenTTL describe the access token in use
	TokenJTI string
	TokenTTL time.Duration
	// RefreshToken is revoked as well when supplied
	RefreshToken string
}

// ChangeRoleRequest sets a user's role
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin user"`
}

// ListUsersRequest holds user list query parameters
type ListUsersRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"per_page"`
	OrderBy  string `form:"sort_by" binding:"omitempty,oneof=name email role created_at"`
	OrderDir string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search"`
	Role     string `form:"role" binding:"omitempty,oneof=admin user"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	RoleLabel string    `json:"role_label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthResult is returned by register, login and refresh
type AuthResult struct {
	AccessToken           string        `json:"access_token"`
	RefreshToken          string        `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time     `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time     `json:"refresh_token_expires_at"`
	TokenType             string        `json:"token_type"`
	User                  *UserResponse `json:"user"`
}

func toUserResponse(u *identity.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role.String(),
		RoleLabel: u.Role.Label(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
