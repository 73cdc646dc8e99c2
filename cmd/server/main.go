package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	clientapp "github.com/infinity-9427/invoicing/internal/application/client"
	identityapp "github.com/infinity-9427/invoicing/internal/application/identity"
	invoiceapp "github.com/infinity-9427/invoicing/internal/application/invoice"
	printingapp "github.com/infinity-9427/invoicing/internal/application/printing"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/infinity-9427/invoicing/internal/infrastructure/auth"
	"github.com/infinity-9427/invoicing/internal/infrastructure/cache"
	"github.com/infinity-9427/invoicing/internal/infrastructure/config"
	"github.com/infinity-9427/invoicing/internal/infrastructure/event"
	"github.com/infinity-9427/invoicing/internal/infrastructure/logger"
	"github.com/infinity-9427/invoicing/internal/infrastructure/migration"
	"github.com/infinity-9427/invoicing/internal/infrastructure/persistence"
	"github.com/infinity-9427/invoicing/internal/infrastructure/printing"
	"github.com/infinity-9427/invoicing/internal/infrastructure/scheduler"
	"github.com/infinity-9427/invoicing/internal/infrastructure/storage"
	"github.com/infinity-9427/invoicing/internal/infrastructure/telemetry"
	"github.com/infinity-9427/invoicing/internal/interfaces/http/handler"
	"github.com/infinity-9427/invoicing/internal/interfaces/http/middleware"
	"github.com/infinity-9427/invoicing/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 30 * time.Second
)

//	@title			Invoicing API
//	@version		1.0
//	@description	Client, invoice and invoice PDF management

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	configPath := flag.String("config", "", "path to config file")
	autoMigrate := flag.Bool("migrate", false, "apply pending migrations before serving")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry comes first so the application logger can tee into OTLP
	tel, err := telemetry.Setup(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log, err := logger.New(logCfg, tel.Logs.Core())
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting invoicing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, log); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if *autoMigrate {
		if err := runMigrations(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Redis backs the token blacklist and, when selected, the invoice cache
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		rs, err := cache.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		} else {
			redisClient = rs.Client()
			defer func() { _ = rs.Close() }()
		}
	}
	var blacklist auth.TokenBlacklist
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	clientRepo := persistence.NewGormClientRepository(db.DB)
	var invoiceRepo invoice.Repository = persistence.NewGormInvoiceRepository(db.DB)
	if cfg.Cache.Enabled {
		store, err := cache.NewStoreFactory(cfg.Cache, cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
		if err != nil {
			log.Fatal("Failed to create invoice cache", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		invoiceRepo = cache.NewInvoiceRepository(invoiceRepo, store, cfg.Cache.TTL, log)
	}

	// Documents
	blobs, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize document storage", zap.Error(err))
	}
	renderer, err := printing.NewFromConfig(&cfg.Printing, log)
	if err != nil {
		log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
	}
	defer func() { _ = renderer.Close() }()
	documents := printingapp.NewManager(invoiceRepo, renderer, blobs, printingapp.ManagerConfig{
		Company:           cfg.Printing.CompanyName,
		RenderTimeout:     cfg.Printing.RenderTimeout,
		RedirectDownloads: cfg.Storage.RedirectDownloads(),
		Metrics:           tel.Metrics,
		Logger:            log,
	})

	// Event bus
	eventBus := event.NewInMemoryEventBus(log, event.WithAsyncWorkers(cfg.Event.AsyncWorkers, cfg.Event.QueueSize))
	eventBus.Subscribe(documents, documents.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log)
	userService := identityapp.NewUserService(userRepo, blacklist, cfg.JWT.RefreshTokenExpiration, log)
	clientService := clientapp.NewService(clientRepo, log)
	invoiceService := invoiceapp.NewService(invoiceRepo, clientRepo, eventBus, log,
		invoiceapp.WithDocuments(documents),
		invoiceapp.WithMetrics(tel.Metrics),
	)

	// Overdue sweep
	var overdueTrigger *scheduler.Trigger
	if cfg.Scheduler.OverdueEnabled {
		sweeper := invoiceapp.NewOverdueSweeper(invoiceRepo, eventBus, tel.Metrics, log)
		overdueTrigger, err = scheduler.NewTrigger(scheduler.OverdueTriggerConfig(cfg.Scheduler), sweeper.Run, log)
		if err != nil {
			log.Fatal("Failed to create overdue trigger", zap.Error(err))
		}
		if err := overdueTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start overdue trigger", zap.Error(err))
		}
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		go limiter.Run(ctx)
	}

	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.Config{
		HTTP:             cfg.HTTP,
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   cfg.Telemetry.Enabled,
		ProfilingEnabled: cfg.Telemetry.ProfilingEnabled,
		Meter:            tel.Meter.Meter("invoicing.http"),
		RateLimiter:      limiter,
		JWT:              jwtService,
		Blacklist:        blacklist,
		Logger:           log,
	}, router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		User:    handler.NewUserHandler(userService),
		Client:  handler.NewClientHandler(clientService),
		Invoice: handler.NewInvoiceHandler(invoiceService),
		PDF:     handler.NewPDFHandler(documents),
		Health:  handler.NewHealthHandler(version, checks),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if overdueTrigger != nil {
		if err := overdueTrigger.Stop(shutdownCtx); err != nil {
			log.Warn("Overdue trigger did not stop cleanly", zap.Error(err))
		}
	}
	// Drain queued document work before the database closes
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not drain", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited")
}

func runMigrations(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared pool
	if err := m.Up(); err != nil {
		return err
	}
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	log.Info("Migrations applied", zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}
