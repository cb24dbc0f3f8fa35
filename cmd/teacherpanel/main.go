package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/impulsenest/teacherpanel/internal/cmd"
	"github.com/impulsenest/teacherpanel/internal/config"
	"github.com/impulsenest/teacherpanel/internal/exitcode"
)

func main() {
	// Create a context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadEnvFiles()

	if err := cmd.Execute(ctx); err != nil {
		// Check if error was due to context cancellation (e.g., Ctrl+C)
		if errors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			exitcode.Exit(exitcode.Interrupted)
		}

		cmd.ReportError(os.Stderr, err, slices.Contains(os.Args[1:], "--no-color"))
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
