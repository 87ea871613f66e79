package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/tourdesk/internal/agency"
	"github.com/roach88/tourdesk/internal/coordinator"
)

// SummaryResult is the summary command payload.
type SummaryResult struct {
	agency.Summary
	Currencies []string `json:"currencies"`
	Stale      bool     `json:"stale,omitempty"`
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	var currency string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expense and profit totals",
		Long: `Total the ledger and tour sales in one currency, or in every currency
added together with --currency all. No conversion is performed.

When the database cannot be read and a mirror directory is configured,
the totals are computed from the last mirrored snapshot and marked stale.

Example:
  tourdesk summary --currency EUR`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(rootOpts, currency, cmd)
		},
	}

	cmd.Flags().StringVar(&currency, "currency", agency.DefaultCurrency, `currency code, or "all"`)

	return cmd
}

func runSummary(opts *RootOptions, currency string, cmd *cobra.Command) error {
	return withEnv(opts, cmd, func(e *env) error {
		coordOpts := []coordinator.Option{coordinator.WithLogger(e.logger)}
		if e.cfg.Mirror.Dir != "" {
			coordOpts = append(coordOpts, coordinator.WithMirror(coordinator.NewFileMirror(e.cfg.Mirror.Dir)))
		}
		c := coordinator.New(e.db, coordOpts...)
		if err := c.Refresh(cmd.Context()); err != nil {
			if !c.Stale() {
				return e.out.Fail("failed to read records", err)
			}
			e.out.VerboseLog("database unreadable, using mirrored snapshot: %v", err)
		}

		snap := c.Snapshot()
		result := SummaryResult{
			Summary:    c.Summary(currency),
			Currencies: agency.Currencies(snap.Financials, snap.Tours),
			Stale:      c.Stale(),
		}
		if result.Currencies == nil {
			result.Currencies = []string{}
		}

		if e.out.Format == "json" {
			return e.out.Success(result)
		}
		printSummary(e.out, result)
		return nil
	})
}

func printSummary(out *OutputFormatter, r SummaryResult) {
	w := out.Writer
	if r.Stale {
		fmt.Fprintln(w, "! stale: totals come from the mirrored snapshot")
	}
	fmt.Fprintf(w, "Currency: %s\n", r.Currency)
	rows := []struct {
		label string
		value decimal.Decimal
	}{
		{"Income", r.Income},
		{"Tour income", r.TourIncome},
		{"Total income", r.TotalIncome},
		{"Expense", r.Expense},
		{"  tour expenses", r.TourExpenses},
		{"  other expenses", r.OtherExpenses()},
		{"Profit", r.Profit},
		{"Total profit", r.TotalProfit},
		{"Balance", r.Balance},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-18s %s\n", row.label, row.value.StringFixed(2))
	}
	if len(r.Currencies) > 0 {
		fmt.Fprintf(w, "Currencies in use: %s\n", strings.Join(r.Currencies, ", "))
	}
}
