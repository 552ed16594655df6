package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
	"github.com/spf13/afero"
	"github.com/specialistvlad/perplex/internal/decl"
	"github.com/specialistvlad/perplex/internal/generr"
)

// Version is the perplex release.
const Version = "1.0.1"

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	parser decl.Parser
	fs     afero.Fs
}

// NewApp is the constructor for the main application. Generated code goes
// to outW when no output path is configured; logs go to logW. Every file
// is read from and written to fs.
func NewApp(outW, logW io.Writer, cfg *Config, parser decl.Parser, fs afero.Fs) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		parser: parser,
		fs:     fs,
	}
}

// Report writes err to w. Generation errors are printed as diagnostics with
// the offending source line when it is available.
func (a *App) Report(w io.Writer, err error) {
	var gerr *generr.Error
	if !errors.As(err, &gerr) {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}
	wr := hcl.NewDiagnosticTextWriter(w, a.parser.Files(), 78, false)
	if werr := wr.WriteDiagnostics(gerr.Diagnostics()); werr != nil {
		fmt.Fprintf(w, "Error: %s\n", err)
	}
}
