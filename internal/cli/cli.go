package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/tlxgo/internal/app"
)

// ExitError is an error that carries a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// setFlags collects repeated -set flags.
type setFlags []string

func (s *setFlags) String() string { return strings.Join(*s, ",") }

func (s *setFlags) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("tlx", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
tlx - render reactive markup templates against a data model.

Usage:
  tlx [options] [TEMPLATE_PATH]
  tlx -follow URL

Arguments:
  TEMPLATE_PATH
    Path to an HTML template or fragment with ${...} interpolations.

Options:
`)
		flagSet.PrintDefaults()
	}

	var sets setFlags
	templateFlag := flagSet.String("template", "", "Path to the template file.")
	tFlag := flagSet.String("t", "", "Path to the template file (shorthand).")
	modelFlag := flagSet.String("model", "", "Path to a JSON or YAML model file.")
	mFlag := flagSet.String("m", "", "Path to a JSON or YAML model file (shorthand).")
	flagSet.Var(&sets, "set", "Model assignment key=value; the value is read as JSON when it parses. Repeatable.")
	outFlag := flagSet.String("out", "", "Write the rendered document to this file atomically instead of stdout.")
	watchFlag := flagSet.Bool("watch", false, "Re-render when the template or model file changes.")
	servePortFlag := flagSet.Int("serve-port", 0, "Port for the live preview server. 0 is disabled.")
	followFlag := flagSet.String("follow", "", "Print every document pushed by the preview server at this URL.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := firstNonEmpty(*templateFlag, *tFlag)
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Template path determined.", "path", path)

	if path == "" && *followFlag == "" {
		slog.Debug("No template path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		TemplatePath: path,
		ModelPath:    firstNonEmpty(*modelFlag, *mFlag),
		Sets:         sets,
		OutPath:      *outFlag,
		Watch:        *watchFlag,
		ServePort:    *servePortFlag,
		FollowURL:    *followFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
