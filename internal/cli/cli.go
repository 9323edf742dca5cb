package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/euphroshub/minimalist-stack/internal/app"
	"github.com/spf13/pflag"
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
minimalist-stack - front-end asset pipeline.

Usage:
  minimalist-stack [options] [COMMAND]

Commands:
  clean        Empty the output directory.
  styles       Compile stylesheets with source maps.
  app          Bundle the main script with a source map.
  components   Bundle every component script.
  html         Copy templates to the output directory.
  images       Optimise images.
  webp         Render WebP copies of raster images.
  svg          Copy vector graphics.
  default      Clean, then build everything (also: build).
  production   Build, then write minified styles and scripts.
  watch        Build, then rebuild on every source change.
  serve        Build, serve the output with live reload and watch.

Options:
`

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("minimalist-stack", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usageHeader)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.StringP("config", "c", "pipeline.hcl", "Path to the pipeline file. Defaults apply when the default file is absent.")
	rootFlag := flagSet.String("root", ".", "Project root that sources and outputs resolve against.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	tasksFlag := flagSet.Bool("tasks", false, "Print the task tree of COMMAND and exit.")
	portFlag := flagSet.Int("port", 0, "Override the dev server port.")
	reloadPortFlag := flagSet.Int("reload-port", 0, "Override the live reload port.")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected at most one command, got %d: %s", flagSet.NArg(), strings.Join(flagSet.Args(), " "))}
	}
	command := flagSet.Arg(0)

	// The default pipeline file lives in the project root.
	configPath := *configFlag
	if !flagSet.Changed("config") {
		configPath = filepath.Join(*rootFlag, configPath)
	}

	config, err := app.NewConfig(app.Config{
		Command:        command,
		Root:           *rootFlag,
		ConfigPath:     configPath,
		ConfigRequired: flagSet.Changed("config"),
		LogFormat:      strings.ToLower(*logFormatFlag),
		LogLevel:       strings.ToLower(*logLevelFlag),
		PrintTasks:     *tasksFlag,
		Port:           *portFlag,
		ReloadPort:     *reloadPortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
