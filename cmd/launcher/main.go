// Command launcher mints Solana tokens and lists them across launch platforms.
//
// Usage:
//
//	launcher launch --name "Test Token" --symbol TST --platforms pumpfun,dexscreener
//	launcher status <token-id>
//	launcher retry <token-id> --failed
//
// Config is read from configs/launcher.yaml (override with --config); .env is loaded first.
// SIGINT stops a launch after the in-flight attempts, keeping everything recorded so far.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"solana-token-launcher/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
