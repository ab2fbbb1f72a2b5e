// Package logger configures slog for the service and carries request-scoped
// loggers through the request context.
//
// In dev/test environments logs are rendered with the tint handler for
// readability; prod and staging use JSON output so logs can be shipped to a
// collector without further parsing.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

type contextKey string

const (
	requestLoggerKey contextKey = "requestLogger"
	logAttrsKey      contextKey = "logAttrs"
)

// levelNone disables all output (used by tests that start an in-process server).
const levelNone = slog.Level(127)

// ParseLogLevel converts a level name to a slog.Level. Unknown names fall back
// to info. "none" suppresses all output.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		return levelNone
	default:
		return slog.LevelInfo
	}
}

// InitLogger creates the application logger and installs it as the slog
// default so library code that logs via slog uses the same handler.
func InitLogger(level slog.Level, environment string) *slog.Logger {
	var handler slog.Handler

	var out io.Writer = os.Stdout
	if level == levelNone {
		out = io.Discard
	}

	switch environment {
	case "prod", "staging":
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ContextWithRequestLogger returns a context carrying a request-scoped logger.
// The server middleware attaches one per request with the request id attached.
func ContextWithRequestLogger(ctx context.Context, logger *slog.Logger) context.Context {
	ctx = context.WithValue(ctx, requestLoggerKey, logger)
	// attach a mutable attr collector so handlers can add context for the
	// final request log line
	return context.WithValue(ctx, logAttrsKey, &logAttrs{})
}

// ContextRequestLogger returns the request-scoped logger. Falls back to
// slog.Default() when the middleware did not run (e.g. in unit tests).
func ContextRequestLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(requestLoggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// logAttrs collects attributes handlers want included in the final request log.
type logAttrs struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// ContextWithLogAttrs records attributes against the current request. They are
// retrieved by the request logging middleware when the request completes.
func ContextWithLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	collector, ok := ctx.Value(logAttrsKey).(*logAttrs)
	if !ok {
		return
	}
	collector.mu.Lock()
	defer collector.mu.Unlock()
	collector.attrs = append(collector.attrs, attrs...)
}

// ContextLogAttrs returns the attributes recorded for the current request.
func ContextLogAttrs(ctx context.Context) []slog.Attr {
	collector, ok := ctx.Value(logAttrsKey).(*logAttrs)
	if !ok {
		return nil
	}
	collector.mu.Lock()
	defer collector.mu.Unlock()
	return append([]slog.Attr(nil), collector.attrs...)
}
