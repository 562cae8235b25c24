// Package ctxlog carries the run's slog.Logger through context.Context so
// that every pipeline phase logs with the same handler and level.
package ctxlog

import (
	"context"
	"io"
	"log/slog"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

var loggerKey = key{}

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. If no logger is
// found, it returns the default global logger.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// Discard returns a context whose logger drops everything. Handy in tests
// that do not assert on log output.
func Discard(ctx context.Context) context.Context {
	return WithLogger(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)))
}
