package app

import (
	"errors"
	"fmt"
)

// DefaultCommand runs when no command is named.
const DefaultCommand = "default"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Command names the task graph to run.
	Command string
	// Root is the project directory sources and outputs resolve against.
	Root string
	// ConfigPath is the pipeline file. A missing file is only an error when
	// ConfigRequired is set.
	ConfigPath     string
	ConfigRequired bool

	LogFormat string
	LogLevel  string

	// PrintTasks prints the execution graph of Command instead of running it.
	PrintTasks bool

	// Port and ReloadPort override the pipeline file when positive.
	Port       int
	ReloadPort int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	var errs []error
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, errors.New("invalid log-format: must be 'text' or 'json'"))
	}
	if _, ok := parseLevel(cfg.LogLevel); !ok {
		errs = append(errs, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'"))
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", cfg.Port))
	}
	if cfg.ReloadPort < 0 || cfg.ReloadPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid reload-port %d", cfg.ReloadPort))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
