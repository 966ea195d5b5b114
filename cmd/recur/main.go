package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joshhubert-dsp/recurrent-plus/internal/cli"
	"github.com/joshhubert-dsp/recurrent-plus/internal/config"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	ctx := context.Background()
	cfg, err := config.FromEnv(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading configuration: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	if err := cli.NewRootCommand(cfg).ExecuteContext(ctx); err != nil {
		var exitErr *cli.ExitError
		// Rejected input has already been reported on stdout.
		if !errors.As(err, &exitErr) || exitErr.Code != cli.ExitFailure {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
