package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"solana-token-launcher/internal/reporting"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var csv bool

	cmd := &cobra.Command{
		Use:   "status <token-id>",
		Short: "Show the stored report of a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := OpenApp(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Orchestrator.Status(cmd.Context(), args[0])
			if err != nil {
				return classify("status "+args[0], err)
			}
			if csv {
				out, err := reporting.RenderAttemptsCSV(report)
				if err != nil {
					return err
				}
				cmd.Print(out)
				return nil
			}
			return writeReport(cmd, rootOpts, report)
		},
	}

	cmd.Flags().BoolVar(&csv, "csv", false, "print every provider attempt as CSV")
	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := OpenApp(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.Orchestrator.List(cmd.Context())
			if err != nil {
				return classify("list", err)
			}
			if rootOpts.Format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			cmd.Print(reporting.RenderListMarkdown(records))
			return nil
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <token-id>",
		Short: "Delete a stored token record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := OpenApp(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Orchestrator.Delete(cmd.Context(), args[0]); err != nil {
				return classify("delete "+args[0], err)
			}
			if rootOpts.Format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
			}
			cmd.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <platform>",
		Short: "Show per-provider attempt statistics from the attempt log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := OpenApp(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()

			if app.AttemptLog == nil {
				return WrapExitError(ExitUsage, "stats", errors.New("attempt_log.clickhouse_dsn is not configured"))
			}
			stats, err := app.AttemptLog.ProviderStats(cmd.Context(), args[0])
			if err != nil {
				return classify("stats "+args[0], err)
			}
			if rootOpts.Format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			cmd.Print(reporting.RenderProviderStatsMarkdown(args[0], stats))
			return nil
		},
	}
}
