package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tourdesk/internal/config"
	"github.com/roach88/tourdesk/internal/store"
)

// Raw record commands. Records are read and written as JSON objects; in
// text format every record is printed on its own line.

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <collection> <id>",
		Short:         "Print one record",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				rec, ok, err := e.db.GetByID(cmd.Context(), args[0], args[1])
				if err != nil {
					return e.out.Fail("get failed", err)
				}
				if !ok {
					return e.out.Fail("get failed", &store.Error{
						Code: store.CodeNotFound, Op: "get", Collection: args[0], Key: args[1],
					})
				}
				return printRecord(e.out, rec)
			})
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <collection>",
		Short:         "Print every record of a collection in key order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				recs, err := e.db.GetAll(cmd.Context(), args[0])
				if err != nil {
					return e.out.Fail("list failed", err)
				}
				return printList(e.out, recs)
			})
		},
	}
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find <collection> <field> <value>",
		Short: "Print the records whose indexed field equals value",
		Long: `Look records up through a secondary index.

Example:
  tourdesk find financials type expense
  tourdesk find tours tourDate 2024-05-01`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				recs, err := e.db.Find(cmd.Context(), args[0], args[1], args[2])
				if err != nil {
					return e.out.Fail("find failed", err)
				}
				return printList(e.out, recs)
			})
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection> [json|-]",
		Short: "Insert a new record; fails if the id exists",
		Long: `Insert a record given as a JSON object, either inline or on stdin.
A record without an id gets a generated one.

Example:
  tourdesk add customers '{"name":"Ayşe Yılmaz","phone":"+90 555 000 00 01"}'
  cat tour.json | tourdesk add tours -`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				rec, err := readRecord(e.out, cmd, args)
				if err != nil {
					return err
				}
				stored, err := e.db.Add(cmd.Context(), args[0], rec)
				if err != nil {
					return e.out.Fail("add failed", err)
				}
				return printRecord(e.out, stored)
			})
		},
	}
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "put <collection> [json|-]",
		Short:         "Insert or replace a record by id",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				rec, err := readRecord(e.out, cmd, args)
				if err != nil {
					return err
				}
				stored, err := e.db.Update(cmd.Context(), args[0], rec)
				if err != nil {
					return e.out.Fail("put failed", err)
				}
				return printRecord(e.out, stored)
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <collection> <id>",
		Short:         "Remove a record; removing an absent id succeeds",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				if err := e.db.Delete(cmd.Context(), args[0], args[1]); err != nil {
					return e.out.Fail("delete failed", err)
				}
				return done(e.out, fmt.Sprintf("✓ Deleted %s/%s", args[0], args[1]))
			})
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear <collection>",
		Short:         "Remove every record of a collection",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				if err := e.db.Clear(cmd.Context(), args[0]); err != nil {
					return e.out.Fail("clear failed", err)
				}
				return done(e.out, fmt.Sprintf("✓ Cleared %s", args[0]))
			})
		},
	}
}

// withEnv opens the environment, runs fn and closes it.
func withEnv(opts *RootOptions, cmd *cobra.Command, fn func(*env) error) error {
	e, err := openEnv(opts, cmd, config.FlagOverrides{})
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e)
}

// readRecord returns the JSON object given as args[1], or read from stdin
// when args[1] is "-" or absent.
func readRecord(out *OutputFormatter, cmd *cobra.Command, args []string) (json.RawMessage, error) {
	var data []byte
	if len(args) > 1 && args[1] != "-" {
		data = []byte(args[1])
	} else {
		var err error
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			_ = out.Error(ErrCodeBadInput, fmt.Sprintf("read stdin: %v", err), nil)
			return nil, WrapExitError(ExitCommandError, "read stdin", err)
		}
	}
	if !json.Valid(data) {
		_ = out.Error(ErrCodeBadInput, "record is not valid JSON", nil)
		return nil, NewExitError(ExitCommandError, "record is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func printRecord(out *OutputFormatter, rec json.RawMessage) error {
	if out.Format == "json" {
		return out.Success(rec)
	}
	fmt.Fprintln(out.Writer, string(rec))
	return nil
}

func printList(out *OutputFormatter, recs []json.RawMessage) error {
	if out.Format == "json" {
		if recs == nil {
			recs = []json.RawMessage{}
		}
		return out.Success(recs)
	}
	for _, r := range recs {
		fmt.Fprintln(out.Writer, string(r))
	}
	out.VerboseLog("%d record(s)", len(recs))
	return nil
}

// done reports a successful mutation without a record payload.
func done(out *OutputFormatter, message string) error {
	if out.Format == "json" {
		return out.Success(map[string]bool{"ok": true})
	}
	fmt.Fprintln(out.Writer, message)
	return nil
}
