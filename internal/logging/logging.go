// Package logging provides context-aware logging utilities.
package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// RunIDKey is the context key for the run ID.
type RunIDKey struct{}

// WithRunID returns a context carrying a fresh run ID.
func WithRunID(ctx context.Context) context.Context {
	return context.WithValue(ctx, RunIDKey{}, uuid.New().String())
}

// GetRunID returns the run ID from the context, or empty string if not found.
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Logger returns a logger with the run_id from the context.
func Logger(ctx context.Context) *slog.Logger {
	runID := GetRunID(ctx)
	if runID != "" {
		return slog.Default().With("run_id", runID)
	}
	return slog.Default()
}

// Setup installs the default logger. JSON is used unless text is requested.
func Setup(w io.Writer, level slog.Level, text bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if text {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
