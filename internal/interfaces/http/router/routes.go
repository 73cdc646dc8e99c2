package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/infinity-9427/invoicing/internal/infrastructure/auth"
	"github.com/infinity-9427/invoicing/internal/infrastructure/config"
	"github.com/infinity-9427/invoicing/internal/infrastructure/logger"
	"github.com/infinity-9427/invoicing/internal/interfaces/http/handler"
	"github.com/infinity-9427/invoicing/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Config carries everything the middleware chain needs
type Config struct {
	HTTP             config.HTTPConfig
	ServiceName      string
	TracingEnabled   bool
	ProfilingEnabled bool
	// Meter enables HTTP metrics when set
	Meter metric.Meter
	// RateLimiter enables per-IP limiting when set
	RateLimiter *middleware.RateLimiter
	JWT         *auth.JWTService
	Blacklist   auth.TokenBlacklist
	Logger      *zap.Logger
}

// Handlers are the route targets
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Client  *handler.ClientHandler
	Invoice *handler.InvoiceHandler
	PDF     *handler.PDFHandler
	Health  *handler.HealthHandler
}

// NewEngine builds the gin engine with the full middleware chain and routes
func NewEngine(cfg Config, h Handlers) (*gin.Engine, error) {
	log := logger.OrNop(cfg.Logger)
	middleware.SetupValidator()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	engine.NoRoute(middleware.NoRoute())
	engine.NoMethod(middleware.NoMethod())

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled),
		logger.GinMiddleware(log),
		middleware.SecureWithConfig(middleware.DefaultSecurityConfig()),
		middleware.CORSWithConfig(middleware.CORSFromConfig(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.RequestTimeout),
	)
	if cfg.Meter != nil {
		metrics, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
		}
		engine.Use(metrics)
	}

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter))
	}
	r.Use(middleware.Profiling(cfg.ProfilingEnabled))

	authenticated := []gin.HandlerFunc{
		middleware.JWTAuth(middleware.JWTMiddlewareConfig{JWTService: cfg.JWT, Blacklist: cfg.Blacklist, Logger: log}),
		middleware.SpanEnricher(),
	}

	authGroup := NewDomainGroup("auth", "/auth").
		POST("/register", h.Auth.Register).
		POST("/login", h.Auth.Login).
		POST("/refresh", h.Auth.Refresh)
	authGroup.Group("session", "").
		Use(authenticated...).
		POST("/logout", h.Auth.Logout).
		GET("/me", h.Auth.Me)
	r.Register(authGroup)

	r.Register(NewDomainGroup("users", "/users").
		Use(authenticated...).
		Use(middleware.RequireAdmin()).
		GET("", h.User.List).
		PATCH("/:id/role", h.User.ChangeRole))

	r.Register(NewDomainGroup("clients", "/clients").
		Use(authenticated...).
		GET("", h.Client.List).
		POST("", h.Client.Create).
		GET("/:id", h.Client.GetByID).
		PUT("/:id", h.Client.Update).
		DELETE("/:id", h.Client.Delete))

	invoices := NewDomainGroup("invoices", "/invoices").
		Use(authenticated...).
		GET("", h.Invoice.List).
		POST("", h.Invoice.Create).
		GET("/recent", h.Invoice.Recent).
		GET("/stats", h.Invoice.Statistics).
		GET("/:id", h.Invoice.GetByID).
		PUT("/:id", h.Invoice.Update).
		DELETE("/:id", h.Invoice.Delete).
		PATCH("/:id/status", h.Invoice.UpdateStatus)
	invoices.Group("pdf", "/:id/pdf").
		GET("/download", h.PDF.Download).
		POST("/regenerate", h.PDF.Regenerate).
		GET("/info", h.PDF.Info)
	r.Register(invoices)

	r.Setup()
	return engine, nil
}
