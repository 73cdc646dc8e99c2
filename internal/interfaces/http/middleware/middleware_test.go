package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/infrastructure/auth"
	"github.com/infinity-9427/invoicing/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "access-secret-for-tests-0123456789",
		RefreshSecret:          "refresh-secret-for-tests-0123456789",
		AccessTokenExpiration:  time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "test",
	})
}

func serve(engine *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("a"), "request %d", i)
	}
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 0, rl.Remaining("a"))
	assert.Equal(t, 3, rl.Limit())
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	rl.Allow("a")
	rl.evict(time.Now().Add(3 * time.Second))
	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.buckets)
}

func TestRateLimit_Middleware(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID(), RateLimit(NewRateLimiter(1, time.Minute)))
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = serve(engine, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestJWTAuth(t *testing.T) {
	jwtService := newJWTService()
	blacklist := auth.NewInMemoryTokenBlacklist()
	userID := uuid.New()
	pair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{UserID: userID, Email: "a@example.com", Role: identity.RoleUser})
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(RequestID(), JWTAuth(JWTMiddlewareConfig{JWTService: jwtService, Blacklist: blacklist}))
	var seen identity.Actor
	engine.GET("/x", func(c *gin.Context) {
		seen = GetActor(c)
		c.Status(http.StatusOK)
	})

	w := serve(engine, http.MethodGet, "/x", map[string]string{"Authorization": "Bearer " + pair.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, seen.UserID)
	assert.Equal(t, identity.RoleUser, seen.Role)

	w = serve(engine, http.MethodGet, "/x", map[string]string{"Authorization": "Bearer " + pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_INVALID")

	w = serve(engine, http.MethodGet, "/x", map[string]string{"Authorization": "Basic abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")

	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	require.NoError(t, blacklist.Revoke(t.Context(), claims.ID, time.Minute))
	w = serve(engine, http.MethodGet, "/x", map[string]string{"Authorization": "Bearer " + pair.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_REVOKED")
}

func TestRequireAdmin(t *testing.T) {
	engine := gin.New()
	role := identity.RoleUser
	engine.Use(func(c *gin.Context) {
		c.Set(JWTActorKey, identity.NewActor(uuid.New(), role))
	}, RequireAdmin())
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/x", nil).Code)
	role = identity.RoleAdmin
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/x", nil).Code)
}

func TestTimeout(t *testing.T) {
	engine := gin.New()
	engine.Use(Timeout(10 * time.Millisecond))
	engine.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	w := serve(engine, http.MethodGet, "/slow", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "REQUEST_TIMEOUT")
}

func TestSecureHeaders(t *testing.T) {
	engine := gin.New()
	engine.Use(SecureWithConfig(SecurityConfig{HSTSEnabled: true, HSTSMaxAge: 60, CSP: "default-src 'none'"}))
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, http.MethodGet, "/x", nil)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "max-age=60; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "default-src 'none'", w.Header().Get("Content-Security-Policy"))
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := serve(engine, http.MethodGet, "/x", nil)
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)

	w = serve(engine, http.MethodGet, "/x", map[string]string{RequestIDHeader: strings.Repeat("x", 200)})
	assert.NotEqual(t, strings.Repeat("x", 200), w.Body.String())
}

func TestResourceFromRoute(t *testing.T) {
	tests := map[string]string{
		"/api/v1/invoices/:id/pdf/download": "invoices",
		"/api/v1/clients":                   "clients",
		"/api/v1/auth/login":                "auth",
		"/health":                           "health",
		"":                                  "",
	}
	for route, want := range tests {
		assert.Equal(t, want, resourceFromRoute(route), route)
	}
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()
	type payload struct {
		Email string `json:"email" binding:"required,email"`
		Name  string `json:"name" binding:"required,max=3"`
	}
	engine := gin.New()
	engine.POST("/x", func(c *gin.Context) {
		var p payload
		if err := c.ShouldBindJSON(&p); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"email":"nope","name":"toolong"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"email"`)
	assert.Contains(t, w.Body.String(), "name may not be greater than 3 characters")

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"email":`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "BAD_REQUEST")
}
