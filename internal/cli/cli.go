package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/tensorgrid/internal/app"
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

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("tensorgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
TensorGrid - a computation graph evaluator with traceable nodes.

Usage:
  tensorgrid [options] [GRAPH_PATH]

Arguments:
  GRAPH_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	graphFlag := flagSet.String("graph", "", "Path to the graph file or directory.")
	gFlag := flagSet.String("g", "", "Path to the graph file or directory (shorthand).")
	stepsFlag := flagSet.Int("steps", 1, "Number of minibatches to evaluate.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	traceOutFlag := flagSet.String("trace-out", "", "File for trace node output. Empty writes to stderr.")
	saveModelFlag := flagSet.String("save-model", "", "File the evaluated model is saved to. Empty disables saving.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *graphFlag != "" {
		path = *graphFlag
	} else if *gFlag != "" {
		path = *gFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Graph path determined.", "path", path)

	if path == "" {
		slog.Debug("No graph path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	if *stepsFlag <= 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid steps: must be a positive number"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		GraphPath: path,
		Steps:     *stepsFlag,
		LogFormat: logFormat,
		LogLevel:  logLevel,
		TraceOut:  *traceOutFlag,
		SaveModel: *saveModelFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
