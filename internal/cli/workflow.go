package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tourdesk/internal/agency"
	"github.com/roach88/tourdesk/internal/coordinator"
)

// Commands for the agency workflows: tour sales through the coordinator,
// catalog lists and customer notes through the typed accessors.

var errBadInput = errors.New("bad input")

// newCoordinator loads the snapshot the workflow commands act on.
func newCoordinator(ctx context.Context, e *env) (*coordinator.Coordinator, error) {
	opts := []coordinator.Option{coordinator.WithLogger(e.logger)}
	if e.cfg.Mirror.Dir != "" {
		opts = append(opts, coordinator.WithMirror(coordinator.NewFileMirror(e.cfg.Mirror.Dir)))
	}
	c := coordinator.New(e.db, opts...)
	if err := c.Refresh(ctx); err != nil {
		return nil, e.out.Fail("failed to read records", err)
	}
	return c, nil
}

// NewTourCommand creates the tour command group.
func NewTourCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tour",
		Short: "Record tour sales",
	}
	cmd.AddCommand(newTourSaveCommand(rootOpts))
	cmd.AddCommand(newTourDeleteCommand(rootOpts))
	return cmd
}

func newTourSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save [json|-]",
		Short: "Save a tour sale with its customer and ledger side effects",
		Long: `Save a tour given as a JSON object, inline or on stdin.

A tour whose id is already stored is updated, anything else is added.
When no customer has the tour's customer name and phone, one is created.
When the payment status is "completed", every positive tour expense is
entered in the ledger once, under the "Tur Gideri" category.

Fields that are not part of a tour are dropped.

Example:
  tourdesk tour save '{"tourName":"Kapadokya","tourDate":"2024-05-01","customerName":"Ayşe Yılmaz"}'
  cat tour.json | tourdesk tour save -`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				rec, err := readRecord(e.out, cmd, append([]string{"tours"}, args...))
				if err != nil {
					return err
				}
				var tour agency.Tour
				if err := json.Unmarshal(rec, &tour); err != nil {
					_ = e.out.Error(ErrCodeBadInput, fmt.Sprintf("not a tour: %v", err), nil)
					return WrapExitError(ExitCommandError, "not a tour", err)
				}

				ctx := cmd.Context()
				c, err := newCoordinator(ctx, e)
				if err != nil {
					return err
				}
				res, err := c.SaveTour(ctx, tour)
				if err != nil {
					return e.out.Fail("tour save failed", err)
				}

				if e.out.Format == "json" {
					return e.out.Success(res)
				}
				fmt.Fprintf(e.out.Writer, "✓ Saved tour %s\n", res.Tour.ID)
				if res.CreatedCustomer != nil {
					fmt.Fprintf(e.out.Writer, "  customer created: %s (%s)\n", res.CreatedCustomer.Name, res.CreatedCustomer.ID)
				}
				if len(res.Projected) > 0 {
					fmt.Fprintf(e.out.Writer, "  %d expense(s) entered in the ledger\n", len(res.Projected))
				}
				return nil
			})
		},
	}
}

func newTourDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a tour; its ledger entries are kept",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				ctx := cmd.Context()
				c, err := newCoordinator(ctx, e)
				if err != nil {
					return err
				}
				if err := c.DeleteTour(ctx, args[0]); err != nil {
					return e.out.Fail("tour delete failed", err)
				}
				return done(e.out, fmt.Sprintf("✓ Deleted tour %s", args[0]))
			})
		},
	}
}

// catalog reads and replaces one catalog list.
type catalog struct {
	save func(ctx context.Context, data json.RawMessage) error
	get  func(ctx context.Context) ([]any, error)
}

func catalogOf[T any](save func(context.Context, []T) error, get func(context.Context) ([]T, error)) catalog {
	return catalog{
		save: func(ctx context.Context, data json.RawMessage) error {
			var items []T
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("%w: %v", errBadInput, err)
			}
			return save(ctx, items)
		},
		get: func(ctx context.Context) ([]any, error) {
			items, err := get(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = item
			}
			return out, nil
		},
	}
}

func catalogs(db *agency.DB, expenseType string) map[string]catalog {
	return map[string]catalog{
		"expenses": catalogOf(db.SaveExpenseTypes, func(ctx context.Context) ([]agency.ExpenseType, error) {
			return db.GetExpenseTypes(ctx, expenseType)
		}),
		"providers":    catalogOf(db.SaveProviders, db.GetProviders),
		"activities":   catalogOf(db.SaveActivities, db.GetActivities),
		"destinations": catalogOf(db.SaveDestinations, db.GetDestinations),
	}
}

var catalogNames = []string{"expenses", "providers", "activities", "destinations"}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	var set, expenseType string

	cmd := &cobra.Command{
		Use:   "catalog <expenses|providers|activities|destinations>",
		Short: "Show or replace a catalog list",
		Long: `Show a catalog list, or replace it whole with --set. The list given to
--set is a JSON array; entries missing from it are removed.

Example:
  tourdesk catalog providers
  tourdesk catalog expenses --type guide
  tourdesk catalog destinations --set '[{"name":"Göreme","country":"Türkiye"}]'`,
		Args:          cobra.ExactArgs(1),
		ValidArgs:     catalogNames,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(catalogNames, args[0]) {
				msg := fmt.Sprintf("unknown catalog %q: must be one of %s", args[0], strings.Join(catalogNames, ", "))
				_ = newFormatter(rootOpts, cmd).Error(ErrCodeBadInput, msg, nil)
				return NewExitError(ExitCommandError, msg)
			}

			return withEnv(rootOpts, cmd, func(e *env) error {
				ctx := cmd.Context()
				cat := catalogs(e.db, expenseType)[args[0]]

				if set != "" {
					input, err := readRecord(e.out, cmd, []string{args[0], set})
					if err != nil {
						return err
					}
					if err := cat.save(ctx, input); err != nil {
						if errors.Is(err, errBadInput) {
							_ = e.out.Error(ErrCodeBadInput, fmt.Sprintf("not a %s list: %v", args[0], err), nil)
							return WrapExitError(ExitCommandError, "invalid catalog list", err)
						}
						return e.out.Fail("catalog save failed", err)
					}
					e.logger.Info("catalog replaced", "catalog", args[0])
				}

				items, err := cat.get(ctx)
				if err != nil {
					return e.out.Fail("catalog read failed", err)
				}
				if e.out.Format == "json" {
					return e.out.Success(items)
				}
				for _, item := range items {
					data, err := json.Marshal(item)
					if err != nil {
						return err
					}
					fmt.Fprintln(e.out.Writer, string(data))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "replace the list with this JSON array (- reads stdin)")
	cmd.Flags().StringVar(&expenseType, "type", "", "expenses only: keep entries of this type")

	return cmd
}

// NewNoteCommand creates the note command group.
func NewNoteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Keep notes on customers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:           "add <customer-id> <text>",
		Short:         "Add a note to a customer",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				n, err := e.db.SaveCustomerNote(cmd.Context(), agency.CustomerNote{CustomerID: args[0], Content: args[1]})
				if err != nil {
					return e.out.Fail("note add failed", err)
				}
				if e.out.Format == "json" {
					return e.out.Success(n)
				}
				fmt.Fprintf(e.out.Writer, "✓ Added note %s\n", n.ID)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "list [customer-id]",
		Short:         "List notes, most recent first",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID := ""
			if len(args) == 1 {
				customerID = args[0]
			}
			return withEnv(rootOpts, cmd, func(e *env) error {
				notes, err := e.db.GetCustomerNotes(cmd.Context(), customerID)
				if err != nil {
					return e.out.Fail("note list failed", err)
				}
				if e.out.Format == "json" {
					return e.out.Success(notes)
				}
				for _, n := range notes {
					fmt.Fprintf(e.out.Writer, "%s  %s  %s\n", n.Timestamp.Format(time.RFC3339), n.CustomerID, n.Content)
				}
				return nil
			})
		},
	})
	return cmd
}
