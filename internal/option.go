package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	out        io.Writer
	logger     *slog.Logger
	max        int
	follow     bool
	autoSubmit bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOutput sets where command results are printed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

// WithLogger overrides the JSON logger built from the configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithMax caps the number of metadata files Submit considers. 0 means all.
func WithMax(n int) Option {
	return func(a *application) {
		a.max = n
	}
}

// WithFollow keeps Submit running and submits new records as they appear.
func WithFollow(follow bool) Option {
	return func(a *application) {
		a.follow = follow
	}
}

// WithAutoSubmit makes Serve submit new records while serving.
func WithAutoSubmit(enabled bool) Option {
	return func(a *application) {
		a.autoSubmit = enabled
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.out == nil {
		app.out = os.Stdout
	}
	if app.logger == nil {
		// Stdout carries command output and the MCP stdio transport.
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
		slog.SetDefault(app.logger)
	}
	return app, nil
}
