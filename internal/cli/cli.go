package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/specialistvlad/perplex/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const usageHeader = `
perplex - a scanner generator producing standalone Go scanners.

Usage:
  perplex [options] INPUT

Arguments:
  INPUT
    Path to the scanner specification (.hcl).

Options:
`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("perplex", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.SortFlags = false

	flagSet.Usage = func() {
		fmt.Fprint(output, usageHeader)
		flagSet.PrintDefaults()
	}

	headerFlag := flagSet.StringP("header", "i", "", "Write public declarations to this header file.")
	outputFlag := flagSet.StringP("output", "o", "", "Write the scanner to this file instead of standard output.")
	templateFlag := flagSet.StringP("template", "t", "", "Use this template instead of the bundled one.")
	conditionsFlag := flagSet.BoolP("conditions", "c", false, "Enable start conditions.")
	safeModeFlag := flagSet.BoolP("safe-mode", "s", false, "Skip the matched text of rules whose action does not return.")
	noLineFlag := flagSet.BoolP("noline", "L", false, "Do not emit //line directives.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	helpFlag := flagSet.BoolP("help", "h", false, "Print this help and exit.")
	versionFlag := flagSet.BoolP("version", "v", false, "Print the version and exit.")

	if err := flagSet.Parse(args); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if *helpFlag {
		flagSet.Usage()
		return nil, true, nil
	}
	if *versionFlag {
		fmt.Fprintf(output, "perplex %s\n", app.Version)
		return nil, true, nil
	}

	switch flagSet.NArg() {
	case 0:
		slog.Debug("No input path provided, printing usage.")
		flagSet.Usage()
		return nil, false, &ExitError{Code: 1, Message: "missing input file"}
	case 1:
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected one input file, got %d: %s", flagSet.NArg(), strings.Join(flagSet.Args(), " "))}
	}

	config, err := app.NewConfig(app.Config{
		InputPath:    flagSet.Arg(0),
		OutputPath:   *outputFlag,
		HeaderPath:   *headerFlag,
		TemplatePath: *templateFlag,
		Conditions:   *conditionsFlag,
		SafeMode:     *safeModeFlag,
		NoLine:       *noLineFlag,
		LogFormat:    strings.ToLower(*logFormatFlag),
		LogLevel:     strings.ToLower(*logLevelFlag),
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
