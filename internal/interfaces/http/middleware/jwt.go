package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/infrastructure/auth"
	"github.com/infinity-9427/invoicing/internal/infrastructure/logger"
	"github.com/infinity-9427/invoicing/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTActorKey   = "jwt_actor"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// Blacklist is optional; when set, revoked tokens and sessions are rejected
	Blacklist auth.TokenBlacklist
	Logger    *zap.Logger
}

// JWTAuth requires a valid access token and stores its claims and actor
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := logger.OrNop(cfg.Logger)

	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, log, dto.ErrCodeUnauthorized, "Authentication required", nil)
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, log, dto.ErrCodeTokenExpired, "Token has expired", err)
				return
			}
			abortUnauthorized(c, log, dto.ErrCodeTokenInvalid, "Invalid token", err)
			return
		}

		actor, err := claims.Actor()
		if err != nil {
			abortUnauthorized(c, log, dto.ErrCodeTokenInvalid, "Invalid token", err)
			return
		}

		if cfg.Blacklist != nil && revoked(c, log, cfg.Blacklist, claims) {
			abortUnauthorized(c, log, dto.ErrCodeTokenRevoked, "Token has been revoked", auth.ErrTokenBlacklisted)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTActorKey, actor)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

// revoked reports whether the token or the whole session was revoked.
// Blacklist failures are logged and treated as not revoked.
func revoked(c *gin.Context, log *zap.Logger, bl auth.TokenBlacklist, claims *auth.Claims) bool {
	ctx := c.Request.Context()
	if claims.ID != "" {
		hit, err := bl.IsRevoked(ctx, claims.ID)
		if err != nil {
			log.Error("Failed to check token blacklist", zap.String("jti", claims.ID), zap.Error(err))
		} else if hit {
			return true
		}
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		return false
	}
	hit, err := bl.IsUserRevoked(ctx, userID, claims.GetIssuedAtTime())
	if err != nil {
		log.Error("Failed to check user revocation", zap.String("user_id", claims.UserID), zap.Error(err))
		return false
	}
	return hit
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, code, message string, err error) {
	if err != nil {
		log.Debug("JWT authentication failed",
			zap.String("code", code),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetActor returns the authenticated actor, or the guest actor
func GetActor(c *gin.Context) identity.Actor {
	if v, ok := c.Get(JWTActorKey); ok {
		if actor, ok := v.(identity.Actor); ok {
			return actor
		}
	}
	return identity.Actor{}
}
