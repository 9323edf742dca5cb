package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/euphroshub/minimalist-stack/internal/config"
	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
	"github.com/euphroshub/minimalist-stack/internal/registry"
	"github.com/euphroshub/minimalist-stack/modules/pipeline"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	model    *config.Model
	registry *registry.Registry
	modules  []registry.Module
}

// NewApp is the constructor for the main application. It loads the pipeline
// configuration, registers the modules and validates the command table.
// When no modules are given the pipeline module is built from the loaded
// configuration. A registry that fails validation is a programming error
// and panics.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loadModel(ctx, appConfig, loader)
	if err != nil {
		return nil, err
	}
	logger.Debug("Pipeline configuration loaded.", "root", model.Root, "output_dir", model.OutputDir)

	if len(modules) == 0 {
		p, err := pipeline.New(model)
		if err != nil {
			return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
		}
		modules = []registry.Module{p}
	}

	reg := registry.New()
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All modules registered.", "count", len(modules))

	if err := reg.Validate(ctx); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.", "commands", reg.Commands())

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		model:    model,
		registry: reg,
		modules:  modules,
	}, nil
}

// loadModel reads the pipeline file, falling back to the defaults when the
// file is absent and was not asked for explicitly. CLI overrides are
// applied last.
func loadModel(ctx context.Context, appConfig *Config, loader config.Loader) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	model := config.Default()
	if appConfig.ConfigPath != "" {
		_, statErr := os.Stat(appConfig.ConfigPath)
		switch {
		case statErr == nil:
			loaded, err := loader.Load(ctx, appConfig.ConfigPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load configuration: %w", err)
			}
			model = loaded
		case errors.Is(statErr, fs.ErrNotExist) && !appConfig.ConfigRequired:
			logger.Debug("No pipeline file found, using defaults.", "path", appConfig.ConfigPath)
		default:
			return nil, fmt.Errorf("failed to load configuration: %w", statErr)
		}
	}

	model.Root = appConfig.Root
	if appConfig.Port > 0 {
		model.Server.Port = appConfig.Port
	}
	if appConfig.ReloadPort > 0 {
		model.Server.ReloadPort = appConfig.ReloadPort
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}
	return model, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the resolved pipeline configuration.
func (a *App) Model() *config.Model {
	return a.model
}
