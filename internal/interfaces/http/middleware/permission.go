package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/infinity-9427/invoicing/internal/interfaces/http/dto"
)

// RequireAdmin rejects authenticated non-admin callers with 403. It must run
// after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if actor.IsGuest() {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}
		if !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Administrator role required", GetRequestID(c)))
			return
		}
		c.Next()
	}
}
