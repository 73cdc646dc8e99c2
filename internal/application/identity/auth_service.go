// Package identity implements account registration, token issuance and
// user administration.
package identity

import (
	"context"
	"errors"

	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/infinity-9427/invoicing/internal/infrastructure/auth"
	"go.uber.org/zap"
)

var errInvalidCredentials = shared.NewUnauthorizedError("INVALID_CREDENTIALS", "Invalid email or password")

// AuthService handles authentication operations
type AuthService struct {
	users     identity.UserRepository
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService creates a new authentication service. A nil blacklist
// disables revocation.
func NewAuthService(users identity.UserRepository, jwt *auth.JWTService, blacklist auth.TokenBlacklist, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, jwt: jwt, blacklist: blacklist, logger: logger}
}

// Register creates a regular user and signs them in
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if req.Password != req.PasswordConfirmation {
		return nil, shared.NewDomainError("PASSWORD_MISMATCH", "Password confirmation does not match")
	}
	email, err := identity.NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, identity.ErrEmailTaken
	}
	user, err := identity.NewUser(req.Name, email, req.Password, identity.RoleUser)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// Login verifies credentials and returns a token pair
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	email, err := identity.NormalizeEmail(req.Email)
	if err != nil {
		return nil, errInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login for unknown email")
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(req.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, errInvalidCredentials
	}
	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// Refresh rotates a refresh token. The new pair carries the user's current
// role and the presented refresh token is revoked.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResult, error) {
	claims, err := s.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, tokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, tokenError(auth.ErrInvalidClaims)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewUnauthorizedError("TOKEN_INVALID", "Token subject no longer exists")
		}
		return nil, err
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if s.blacklist != nil {
		if err := s.blacklist.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
			s.logger.Error("Failed to revoke rotated refresh token", zap.Error(err))
		}
	}
	return result, nil
}

// Logout revokes the access token in use and, when given, the refresh token
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if s.blacklist == nil {
		return nil
	}
	if input.TokenJTI != "" {
		if err := s.blacklist.Revoke(ctx, input.TokenJTI, input.TokenTTL); err != nil {
			return err
		}
	}
	if input.RefreshToken != "" {
		claims, err := s.jwt.ValidateRefreshToken(input.RefreshToken)
		if err == nil && claims.UserID == input.UserID.String() {
			if err := s.blacklist.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
				return err
			}
		}
	}
	s.logger.Info("User logged out", zap.String("user_id", input.UserID.String()))
	return nil
}

// Me returns the authenticated user's profile
func (s *AuthService) Me(ctx context.Context, actor identity.Actor) (*UserResponse, error) {
	if actor.IsGuest() {
		return nil, shared.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *AuthService) issue(user *identity.User) (*AuthResult, error) {
	pair, err := s.jwt.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewPersistenceError("Failed to generate authentication tokens", err)
	}
	return &AuthResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		User:                  toUserResponse(user),
	}, nil
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil {
		return nil
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !revoked {
		userID, perr := claims.GetUserUUID()
		if perr != nil {
			return tokenError(auth.ErrInvalidClaims)
		}
		if revoked, err = s.blacklist.IsUserRevoked(ctx, userID, claims.GetIssuedAtTime()); err != nil {
			return err
		}
	}
	if revoked {
		return tokenError(auth.ErrTokenBlacklisted)
	}
	return nil
}

// tokenError maps token validation failures to unauthorized errors
func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewUnauthorizedError("TOKEN_EXPIRED", "Token has expired")
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return shared.NewUnauthorizedError("TOKEN_REVOKED", "Token has been revoked")
	default:
		return shared.NewUnauthorizedError("TOKEN_INVALID", "Invalid token")
	}
}
