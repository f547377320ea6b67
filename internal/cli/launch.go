package cli

import (
	"time"

	"github.com/spf13/cobra"

	"solana-token-launcher/internal/domain"
	"solana-token-launcher/internal/launch"
	"solana-token-launcher/internal/reporting"
)

type launchOptions struct {
	name        string
	symbol      string
	description string
	image       string
	platforms   []string
	cred        credentialFlags
}

// NewLaunchCommand creates the launch command.
func NewLaunchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &launchOptions{}

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Mint a token and list it on the given platforms",
		Long: `Mint a new token and run the provider chain of every requested platform.

The token is minted exactly once. Platforms are listed concurrently; each platform tries
its providers in configured order until one succeeds. The report shows every attempt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "token name (required)")
	cmd.Flags().StringVar(&opts.symbol, "symbol", "", "token symbol (required)")
	cmd.Flags().StringVar(&opts.description, "description", "", "token description")
	cmd.Flags().StringVar(&opts.image, "image", "", "image reference (URL)")
	cmd.Flags().StringSliceVarP(&opts.platforms, "platforms", "p", nil, "platforms to list on (comma-separated, required)")
	opts.cred.register(cmd)

	return cmd
}

func runLaunch(cmd *cobra.Command, rootOpts *RootOptions, opts *launchOptions) error {
	cred, err := opts.cred.resolve()
	if err != nil {
		return WrapExitError(ExitUsage, "load wallet credential", err)
	}

	app, err := OpenApp(cmd.Context(), rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	req := domain.LaunchRequest{
		Name:        opts.name,
		Symbol:      opts.symbol,
		Description: opts.description,
		ImageRef:    opts.image,
		Platforms:   opts.platforms,
	}
	report, err := app.Orchestrator.Launch(cmd.Context(), req, cred)
	if report != nil {
		if werr := writeReport(cmd, rootOpts, report); werr != nil {
			return werr
		}
	}
	if err != nil {
		return classify("launch", err)
	}
	return nil
}

type retryOptions struct {
	failed    bool
	platforms []string
	cred      credentialFlags
}

// NewRetryCommand creates the retry command.
func NewRetryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &retryOptions{}

	cmd := &cobra.Command{
		Use:   "retry <token-id>",
		Short: "Resume an interrupted launch or retry failed platforms",
		Long: `Resume an existing token.

A token that was never minted is minted first; an existing mint is never replaced.
Platforms left unfinished by an interrupted run continue with their attempts kept.
With --failed, FAILED and UNSUPPORTED platforms are retried too. Succeeded platforms never re-run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := opts.cred.resolve()
			if err != nil {
				return WrapExitError(ExitUsage, "load wallet credential", err)
			}

			app, err := OpenApp(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Orchestrator.Resume(cmd.Context(), args[0], cred, launch.RetryOptions{
				Platforms:   opts.platforms,
				RetryFailed: opts.failed,
			})
			if report != nil {
				if werr := writeReport(cmd, rootOpts, report); werr != nil {
					return werr
				}
			}
			if err != nil {
				return classify("retry "+args[0], err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.failed, "failed", false, "also retry FAILED and UNSUPPORTED platforms")
	cmd.Flags().StringSliceVarP(&opts.platforms, "platforms", "p", nil, "restrict the retry to these platforms")
	opts.cred.register(cmd)

	return cmd
}

func writeReport(cmd *cobra.Command, rootOpts *RootOptions, report *domain.LaunchReport) error {
	if rootOpts.Format == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	cmd.Print(reporting.RenderStatusMarkdown(report, time.Now().UTC()))
	return nil
}
