package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	invoiceapp "github.com/infinity-9427/invoicing/internal/application/invoice"
	printingapp "github.com/infinity-9427/invoicing/internal/application/printing"
	"github.com/infinity-9427/invoicing/internal/domain/identity"
	"github.com/infinity-9427/invoicing/internal/infrastructure/config"
	"github.com/infinity-9427/invoicing/internal/infrastructure/event"
	"github.com/infinity-9427/invoicing/internal/infrastructure/logger"
	"github.com/infinity-9427/invoicing/internal/infrastructure/persistence"
	"github.com/infinity-9427/invoicing/internal/infrastructure/printing"
	"github.com/infinity-9427/invoicing/internal/infrastructure/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands
type RootOptions struct {
	ConfigPath string
	Format     string // text, json
	As         string
	Verbose    bool
}

// validFormats defines the allowed output formats
var validFormats = []string{"text", "json"}

// NewRootCommand creates the invoicectl root command
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "invoicectl",
		Short: "Operate the invoicing database from the command line",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.As, "as", "", "act as the user with this email instead of the operator")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newShowCommand(opts))
	cmd.AddCommand(newUpdateStatusCommand(opts))
	cmd.AddCommand(newCheckOverdueCommand(opts))
	cmd.AddCommand(newRegeneratePDFCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newCreateAdminCommand(opts))

	return cmd
}

// operator is the identity commands run as without --as. It holds the
// administrator role so every invoice is visible.
var operator = identity.NewActor(uuid.Max, identity.RoleAdmin)

// runtime is the wired application a command operates on
type runtime struct {
	log       *zap.Logger
	db        *persistence.Database
	renderer  *printing.DocumentRenderer
	users     *persistence.GormUserRepository
	invoices  *invoiceapp.Service
	documents *printingapp.Manager
	sweeper   *invoiceapp.OverdueSweeper
}

func newRuntime(ctx context.Context, opts *RootOptions) (*runtime, error) {
	cfg, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	log, err := logger.New(&logger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := persistence.NewDatabase(&cfg.Database, logger.NewGormLogger(log, logger.MapGormLogLevel(level), 0))
	if err != nil {
		return nil, err
	}
	blobs, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	renderer, err := printing.NewFromConfig(&cfg.Printing, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	clientRepo := persistence.NewGormClientRepository(db.DB)
	documents := printingapp.NewManager(invoiceRepo, renderer, blobs, printingapp.ManagerConfig{
		Company:           cfg.Printing.CompanyName,
		RenderTimeout:     cfg.Printing.RenderTimeout,
		RedirectDownloads: cfg.Storage.RedirectDownloads(),
		Logger:            log,
	})
	// Synchronous: documents are current when the command returns
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(documents)

	return &runtime{
		log:       log,
		db:        db,
		renderer:  renderer,
		users:     persistence.NewGormUserRepository(db.DB),
		invoices:  invoiceapp.NewService(invoiceRepo, clientRepo, bus, log, invoiceapp.WithDocuments(documents)),
		documents: documents,
		sweeper:   invoiceapp.NewOverdueSweeper(invoiceRepo, bus, nil, log),
	}, nil
}

// actor resolves --as to a stored user, defaulting to the operator
func (r *runtime) actor(ctx context.Context, opts *RootOptions) (identity.Actor, error) {
	if opts.As == "" {
		return operator, nil
	}
	email, err := identity.NormalizeEmail(opts.As)
	if err != nil {
		return identity.Actor{}, err
	}
	u, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		return identity.Actor{}, fmt.Errorf("resolve --as %s: %w", opts.As, err)
	}
	return u.Actor(), nil
}

func (r *runtime) createAdmin(ctx context.Context, name, email, password string) (*identity.User, error) {
	u, err := identity.NewUser(name, email, password, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := r.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *runtime) Close() {
	_ = r.renderer.Close()
	if err := r.db.Close(); err != nil {
		r.log.Warn("close database", zap.Error(err))
	}
	_ = r.log.Sync()
}

// withRuntime wraps a command body with runtime setup and teardown
func withRuntime(opts *RootOptions, fn func(ctx context.Context, rt *runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx, opts)
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(ctx, rt, args)
	}
}
