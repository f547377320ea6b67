// Package cli implements the launcher command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	EnvFile    string
	Format     string // "markdown" | "json"
}

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatMarkdown, FormatJSON}

// NewRootCommand creates the root command for the launcher CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "launcher",
		Short: "Mint Solana tokens and list them across launch platforms",
		Long: `launcher mints an SPL token once and lists it on every requested platform.

Each platform has an ordered chain of providers. A failing provider falls back to the
next one; the outcome of every attempt is stored with the token so an interrupted or
partially failed launch can be resumed with "launcher retry".

Common workflows:

  Launch a token:
    launcher launch --name "Test Token" --symbol TST --platforms pumpfun,dexscreener

  Inspect it:
    launcher status <token-id>

  Retry platforms that failed:
    launcher retry <token-id> --failed`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitUsage, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "configs/launcher.yaml", "config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "env file loaded before the config")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatMarkdown, "output format (markdown|json)")

	cmd.AddCommand(NewLaunchCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewRetryCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
