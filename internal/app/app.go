package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/tensorgrid/internal/config"
	"github.com/vk/tensorgrid/internal/ctxlog"
	"github.com/vk/tensorgrid/internal/extfunc"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	appCfg   *Config
	model    *config.Model
	registry *extfunc.Registry
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and function
// registry. When no modules are given, the compiled-in core modules are
// registered.
func NewApp(outW io.Writer, appConfig *Config, modules ...extfunc.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Load all configuration into the format-agnostic model first.
	model, err := config.Load(ctx, appConfig.GraphPath)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded.", "nodes", len(model.Nodes), "frames", model.Frames)

	// Create and populate the function registry.
	reg := extfunc.New(extfunc.WithLibrary(model.Library))
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All function modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		appCfg:   appConfig,
		model:    model,
		registry: reg,
	}
}

// Registry returns the application's function registry. This is primarily
// for testing.
func (a *App) Registry() *extfunc.Registry {
	return a.registry
}

// Model returns the loaded configuration model. This is primarily for
// testing.
func (a *App) Model() *config.Model {
	return a.model
}
