package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"github.com/vk/parasheet/internal/config"
	"github.com/vk/parasheet/internal/ctxlog"
	"github.com/vk/parasheet/internal/hcl"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	fs       afero.Fs
	loader   config.Loader
	now      func() time.Time
	config   *Config
	settings *config.Settings
}

// Option customises an App at construction time.
type Option func(*App)

// WithFs replaces the OS filesystem. Tests pass afero.NewMemMapFs().
func WithFs(fs afero.Fs) Option {
	return func(a *App) { a.fs = fs }
}

// WithLoader replaces the HCL settings loader.
func WithLoader(l config.Loader) Option {
	return func(a *App) { a.loader = l }
}

// WithClock fixes the time used for {timestamp} placeholders.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// NewApp is the constructor for the main application. It builds the
// isolated logger and loads the settings file.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	a := &App{
		outW:   outW,
		logger: logger,
		fs:     afero.NewOsFs(),
		loader: hcl.NewLoader(),
		now:    time.Now,
		config: cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	logger.Debug("Logger configured successfully.")

	if cfg.ConfigPath == "" {
		a.settings = config.Default()
		logger.Debug("No settings file configured; using defaults.")
		return a, nil
	}

	ctx := ctxlog.WithLogger(context.Background(), logger)
	settings, err := a.loader.Load(ctx, a.fs, cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	a.settings = settings
	logger.Debug("Settings loaded.", "path", cfg.ConfigPath, "output_dir", settings.OutputDir)

	return a, nil
}

// Settings returns the effective settings. This is primarily for testing.
func (a *App) Settings() *config.Settings {
	return a.settings
}
