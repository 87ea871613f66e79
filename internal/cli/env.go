package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tourdesk/internal/agency"
	"github.com/roach88/tourdesk/internal/config"
	tdlog "github.com/roach88/tourdesk/internal/log"
)

// env is what a command needs to run: resolved config, a logger, the
// output formatter and an open database.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	out    *OutputFormatter
	db     *agency.DB
	closer io.Closer
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openEnv loads the configuration, builds the logger and opens the
// database. Failures are reported through the formatter.
func openEnv(opts *RootOptions, cmd *cobra.Command, flags config.FlagOverrides) (*env, error) {
	out := newFormatter(opts, cmd)

	if opts.Database != "" {
		flags.DatabasePath = &opts.Database
	}
	if opts.Verbose {
		debug := "debug"
		flags.LogLevel = &debug
	}

	cfg, err := config.Load(config.LoadOptions{ConfigPath: opts.ConfigPath, Flags: flags})
	if err != nil {
		return nil, out.Fail("failed to load config", err)
	}

	logger, closer, err := tdlog.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, out.Fail("failed to set up logging", err)
	}

	out.VerboseLog("opening database %s", cfg.Database.Path)
	db, err := agency.Open(cfg.Database.Path, agency.WithLogger(logger))
	if err != nil {
		closer.Close()
		return nil, out.Fail("failed to open database", err)
	}

	return &env{cfg: cfg, logger: logger, out: out, db: db, closer: closer}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		e.logger.Error("error closing database", "error", err)
	}
	_ = e.closer.Close()
}
