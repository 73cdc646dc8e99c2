package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	invoiceapp "github.com/infinity-9427/invoicing/internal/application/invoice"
	"github.com/spf13/cobra"
)

func newListCommand(opts *RootOptions) *cobra.Command {
	var req invoiceapp.ListInvoicesRequest
	var clientID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices",
		Example: `  invoicectl list --status overdue
  invoicectl list --client 3f0c... --page 2 --format json`,
		Args: cobra.NoArgs,
		RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, _ []string) error {
			if clientID != "" {
				id, err := uuid.Parse(clientID)
				if err != nil {
					return fmt.Errorf("invalid --client: %w", err)
				}
				req.ClientID = &id
			}
			actor, err := rt.actor(ctx, opts)
			if err != nil {
				return err
			}
			page, err := rt.invoices.List(ctx, actor, req)
			if err != nil {
				return err
			}
			return newPrinter(opts).invoices(page)
		}),
	}

	cmd.Flags().IntVar(&req.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&req.PageSize, "per-page", 15, "page size (max 100)")
	cmd.Flags().StringVar(&req.Status, "status", "", "filter by status (pending|paid|overdue)")
	cmd.Flags().StringVar(&req.Search, "search", "", "search number and description")
	cmd.Flags().StringVar(&req.OrderBy, "sort-by", "", "sort column")
	cmd.Flags().StringVar(&req.OrderDir, "sort-order", "", "sort direction (asc|desc)")
	cmd.Flags().StringVar(&clientID, "client", "", "filter by client id")
	return cmd
}

func newShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <invoice-id>",
		Short: "Show one invoice with its items",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid invoice id: %w", err)
			}
			actor, err := rt.actor(ctx, opts)
			if err != nil {
				return err
			}
			inv, err := rt.invoices.GetByID(ctx, actor, id)
			if err != nil {
				return err
			}
			return newPrinter(opts).invoice(inv)
		}),
	}
}

func newUpdateStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "update-status <invoice-id> <pending|paid|overdue>",
		Short:   "Set an invoice's payment status",
		Example: "  invoicectl update-status 3f0c... paid",
		Args:    cobra.ExactArgs(2),
		RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid invoice id: %w", err)
			}
			actor, err := rt.actor(ctx, opts)
			if err != nil {
				return err
			}
			inv, err := rt.invoices.UpdateStatus(ctx, actor, id, args[1])
			if err != nil {
				return err
			}
			return newPrinter(opts).invoice(inv)
		}),
	}
}

func newCheckOverdueCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-overdue",
		Short: "Mark pending invoices past their due date as overdue",
		Long: `Mark every pending invoice whose due date is strictly before now as
overdue. Each flipped invoice gets its PDF regenerated. Running the
command twice in a row flips nothing the second time.`,
		Args: cobra.NoArgs,
		RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, _ []string) error {
			result, err := rt.sweeper.Sweep(ctx, time.Now())
			if err != nil {
				return err
			}
			return newPrinter(opts).sweep(result)
		}),
	}
}

func newRegeneratePDFCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate-pdf <invoice-id>...",
		Short: "Re-render the PDF of one or more invoices",
		Args:  cobra.MinimumNArgs(1),
		RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, args []string) error {
			p := newPrinter(opts)
			var failed int
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid invoice id %q: %w", arg, err)
				}
				info, err := rt.documents.RegenerateByID(ctx, id)
				if err != nil {
					p.failure(arg, err)
					failed++
					continue
				}
				if err := p.pdf(info); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(args))
			}
			return nil
		}),
	}
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show invoice counts and amounts by status",
		Args:  cobra.NoArgs,
		RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, _ []string) error {
			actor, err := rt.actor(ctx, opts)
			if err != nil {
				return err
			}
			stats, err := rt.invoices.Statistics(ctx, actor)
			if err != nil {
				return err
			}
			return newPrinter(opts).stats(stats)
		}),
	}
}

func newCreateAdminCommand(opts *RootOptions) *cobra.Command {
	var name, password string

	cmd := &cobra.Command{
		Use:   "create-admin <email>",
		Short: "Create an administrator account",
		Long: `Create an administrator account. Self-registration over HTTP only
ever creates regular users, so the first administrator is created here.`,
		Args: cobra.ExactArgs(1),
		RunE: withRuntime(opts, func(ctx context.Context, rt *runtime, args []string) error {
			if name == "" {
				name = args[0]
			}
			u, err := rt.createAdmin(ctx, name, args[0], password)
			if err != nil {
				return err
			}
			return newPrinter(opts).message("created administrator " + u.Email + " (" + u.ID.String() + ")")
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (default: the email)")
	cmd.Flags().StringVar(&password, "password", "", "initial password (min 8 characters)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
