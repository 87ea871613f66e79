package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tourdesk/internal/config"
	"github.com/roach88/tourdesk/internal/coordinator"
	"github.com/roach88/tourdesk/internal/sample"
)

// InitResult describes the database after init.
type InitResult struct {
	Path       string `json:"path"`
	Version    int    `json:"version"`
	Tours      int    `json:"tours"`
	Financials int    `json:"financials"`
	Customers  int    `json:"customers"`
	Stale      bool   `json:"stale,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var samples bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or upgrade the database",
		Long: `Create the database (or upgrade an older one) and, when samples are
enabled, seed every empty collection with the bundled example data.

Example:
  tourdesk init --db ./agency.db
  tourdesk init --samples=false`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var flags config.FlagOverrides
			if cmd.Flags().Changed("samples") {
				flags.Samples = &samples
			}
			return runInit(rootOpts, flags, cmd)
		},
	}

	cmd.Flags().BoolVar(&samples, "samples", true, "seed empty collections with example data (overrides config)")

	return cmd
}

func runInit(opts *RootOptions, flags config.FlagOverrides, cmd *cobra.Command) error {
	e, err := openEnv(opts, cmd, flags)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	if err := e.db.Initialize(ctx); err != nil {
		return e.out.Fail("database check failed", err)
	}

	coordOpts := []coordinator.Option{coordinator.WithLogger(e.logger)}
	if e.cfg.Samples.Enabled {
		coordOpts = append(coordOpts, coordinator.WithSampleLoader(sample.New(e.db, sample.WithLogger(e.logger))))
	}
	if e.cfg.Mirror.Dir != "" {
		coordOpts = append(coordOpts, coordinator.WithMirror(coordinator.NewFileMirror(e.cfg.Mirror.Dir)))
	}
	c := coordinator.New(e.db, coordOpts...)
	if err := c.Start(ctx); err != nil {
		return e.out.Fail("failed to load records", err)
	}

	snap := c.Snapshot()
	result := InitResult{
		Path:       e.cfg.Database.Path,
		Version:    e.db.Store().Registry().Version,
		Tours:      len(snap.Tours),
		Financials: len(snap.Financials),
		Customers:  len(snap.Customers),
	}
	if e.out.Format == "json" {
		return e.out.Success(result)
	}
	fmt.Fprintf(e.out.Writer, "✓ Database ready at %s (version %d)\n", result.Path, result.Version)
	fmt.Fprintf(e.out.Writer, "  tours: %d  financials: %d  customers: %d\n", result.Tours, result.Financials, result.Customers)
	return nil
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load example data into empty collections",
		Long: `Load the bundled example datasets (or the sample-*.json files of a
directory) into every collection that is still empty. Collections that
already hold records are left alone.

Example:
  tourdesk seed
  tourdesk seed --dir ./fixtures`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, dir, cmd)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory holding sample-*.json datasets (default: bundled data)")

	return cmd
}

func runSeed(opts *RootOptions, dir string, cmd *cobra.Command) error {
	e, err := openEnv(opts, cmd, config.FlagOverrides{})
	if err != nil {
		return err
	}
	defer e.Close()

	loaderOpts := []sample.Option{sample.WithLogger(e.logger)}
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			_ = e.out.Error(ErrCodeBadInput, fmt.Sprintf("not a directory: %s", dir), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("not a directory: %s", dir))
		}
		loaderOpts = append(loaderOpts, sample.WithFS(os.DirFS(dir)))
	}

	report, err := sample.New(e.db, loaderOpts...).Load(cmd.Context())
	if err != nil {
		return e.out.Fail("failed to load samples", err)
	}

	if e.out.Format == "json" {
		return e.out.Success(report)
	}
	fmt.Fprintf(e.out.Writer, "✓ Loaded %d record(s)\n", report.Total())
	if len(report.Skipped) > 0 {
		fmt.Fprintf(e.out.Writer, "  skipped (not empty): %s\n", strings.Join(report.Skipped, ", "))
	}
	return nil
}
