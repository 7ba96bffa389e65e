// Package logger configures the process-wide slog logger and carries
// request-scoped attributes through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type (
	requestIDKey struct{}
	attrsKey     struct{}
)

// Setup installs a slog handler writing to stdout as the default logger.
func Setup(level string, format string) {
	SetupWriter(os.Stdout, level, format)
}

// SetupWriter installs a slog handler writing to w. Batch commands point it
// at stderr so stdout stays reserved for the report. Format "json" selects
// the JSON handler; anything else is text.
func SetupWriter(w io.Writer, level string, format string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps a config level name to a slog.Level. Unknown names mean
// info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// With returns a context whose logger carries args in addition to anything
// attached by outer calls.
func With(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(attrsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(append(merged, prev...), args...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

// FromContext returns the default logger decorated with the request ID and
// attributes stored in ctx.
func FromContext(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if id := RequestID(ctx); id != "" {
		l = l.With("request_id", id)
	}
	if attrs, ok := ctx.Value(attrsKey{}).([]any); ok {
		l = l.With(attrs...)
	}
	return l
}
