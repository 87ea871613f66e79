package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tourdesk/internal/backup"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output, as string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every collection to a JSON or YAML backup",
		Long: `Write every collection to one backup document.

The format follows --as, else the output file extension, else JSON.

Example:
  tourdesk export -o backup.json
  tourdesk export --as yaml > backup.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, output, as, cmd)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&as, "as", "", "backup format (json|yaml)")

	return cmd
}

func runExport(opts *RootOptions, output, as string, cmd *cobra.Command) error {
	return withEnv(opts, cmd, func(e *env) error {
		format, err := backupFormat(as, output)
		if err != nil {
			_ = e.out.Error(ErrCodeBadInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid format", err)
		}

		var w io.Writer = e.out.Writer
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				_ = e.out.Error(ErrCodeBadInput, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to create output file", err)
			}
			defer f.Close()
			w = f
		}

		if err := backup.Export(cmd.Context(), e.db, w, format, time.Now()); err != nil {
			return e.out.Fail("export failed", err)
		}
		e.logger.Info("backup exported", "format", string(format), "output", output)

		if output == "" {
			return nil
		}
		if e.out.Format == "json" {
			return e.out.Success(map[string]string{"output": output, "format": string(format)})
		}
		fmt.Fprintf(e.out.Writer, "✓ Exported to %s\n", output)
		return nil
	})
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore collections from a backup",
		Long: `Replace every collection present in the backup with its content.
Collections absent from the backup are left alone. A backup naming an
unknown collection is rejected before anything is written.

Example:
  tourdesk import backup.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], as, cmd)
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "backup format (json|yaml, default: from extension)")

	return cmd
}

func runImport(opts *RootOptions, path, as string, cmd *cobra.Command) error {
	return withEnv(opts, cmd, func(e *env) error {
		format, err := backupFormat(as, path)
		if err != nil {
			_ = e.out.Error(ErrCodeBadInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid format", err)
		}

		f, err := os.Open(path)
		if err != nil {
			_ = e.out.Error(ErrCodeBadInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open backup", err)
		}
		defer f.Close()

		written, err := backup.Import(cmd.Context(), e.db, f, format)
		if err != nil {
			return e.out.Fail("import failed", err)
		}

		if e.out.Format == "json" {
			return e.out.Success(written)
		}
		total := 0
		for _, n := range written {
			total += n
		}
		fmt.Fprintf(e.out.Writer, "✓ Imported %d record(s) into %d collection(s)\n", total, len(written))
		return nil
	})
}

// backupFormat picks the explicit format, else the one implied by path.
func backupFormat(as, path string) (backup.Format, error) {
	if as != "" {
		return backup.ParseFormat(as)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return backup.YAML, nil
	}
	return backup.JSON, nil
}
