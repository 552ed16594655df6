package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/specialistvlad/perplex/internal/app"
	"github.com/specialistvlad/perplex/internal/cli"
	"github.com/specialistvlad/perplex/internal/hclspec"
)

// main is the entrypoint for the perplex application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Stderr, os.Args[1:], afero.NewOsFs()); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Generation errors are reported on errW before being returned.
func run(outW, errW io.Writer, args []string, fs afero.Fs) error {
	appConfig, shouldExit, err := cli.Parse(args, errW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	parser := hclspec.NewParser()
	perplexApp := app.NewApp(outW, errW, appConfig, parser, fs)

	if err := perplexApp.Run(context.Background()); err != nil {
		perplexApp.Report(errW, err)
		return &cli.ExitError{Code: 1}
	}
	return nil
}
