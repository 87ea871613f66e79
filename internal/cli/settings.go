package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tourdesk/internal/agency"
)

// NewSettingsCommand creates the settings command.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	var set string
	var reveal bool

	cmd := &cobra.Command{
		Use:   "settings [app|ai]",
		Short: "Show or replace the application or AI settings",
		Long: `Show the application settings (default) or the AI assistant settings.
Defaults are shown until settings are saved. With --set the settings are
replaced by the given JSON object; no merge is performed.

API keys are masked unless --reveal is given.

Example:
  tourdesk settings
  tourdesk settings ai --set '{"provider":"gemini","geminiApiKey":"..."}'`,
		Args:          cobra.MaximumNArgs(1),
		ValidArgs:     []string{"app", "ai"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			which := "app"
			if len(args) == 1 {
				which = args[0]
			}
			return runSettings(rootOpts, which, set, reveal, cmd)
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "replace the settings with this JSON object (- reads stdin)")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print API keys in clear")

	return cmd
}

func runSettings(opts *RootOptions, which, set string, reveal bool, cmd *cobra.Command) error {
	if which != "app" && which != "ai" {
		out := newFormatter(opts, cmd)
		_ = out.Error(ErrCodeBadInput, fmt.Sprintf("unknown settings %q: must be app or ai", which), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown settings %q", which))
	}

	return withEnv(opts, cmd, func(e *env) error {
		ctx := cmd.Context()

		var input json.RawMessage
		if set != "" {
			args := []string{which, set}
			var err error
			if input, err = readRecord(e.out, cmd, args); err != nil {
				return err
			}
		}

		if which == "app" {
			var s agency.AppSettings
			var err error
			if input != nil {
				if err = json.Unmarshal(input, &s); err != nil {
					return e.out.Fail("invalid settings", err)
				}
				if s, err = e.db.SaveSettings(ctx, s); err == nil {
					e.logger.Info("settings saved", "company", s.CompanyInfo.Name)
				}
			} else {
				s, err = e.db.GetSettings(ctx)
			}
			if err != nil {
				return e.out.Fail("settings failed", err)
			}
			return printSettings(e.out, s)
		}

		var s agency.AISettings
		var err error
		if input != nil {
			if err = json.Unmarshal(input, &s); err != nil {
				return e.out.Fail("invalid settings", err)
			}
			if s, err = e.db.SaveAISettings(ctx, s); err == nil {
				e.logger.Info("ai settings saved", "provider", s.Provider, "apiKey", s.APIKey, "geminiApiKey", s.GeminiAPIKey)
			}
		} else {
			s, err = e.db.GetAISettings(ctx)
		}
		if err != nil {
			return e.out.Fail("settings failed", err)
		}
		if !reveal {
			s.APIKey = maskKey(s.APIKey)
			s.GeminiAPIKey = maskKey(s.GeminiAPIKey)
		}
		return printSettings(e.out, s)
	})
}

func printSettings(out *OutputFormatter, v any) error {
	if out.Format == "json" {
		return out.Success(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out.Writer, string(data))
	return nil
}

// maskKey keeps the last four characters of keys longer than eight.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
