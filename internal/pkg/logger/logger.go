package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	level         = new(slog.LevelVar)
	once          sync.Once
)

// Initialize sets up the structured logger. Logs go to stderr so that
// command output on stdout stays machine readable.
func Initialize() {
	once.Do(func() {
		level.Set(slog.LevelInfo)
		defaultLogger = newLogger(os.Stderr, "json")
	})
}

func newLogger(w io.Writer, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Configure replaces the output format ("json" or "text") and level of the
// default logger.
func Configure(format, lvl string) error {
	Initialize()
	if err := SetLevel(lvl); err != nil {
		return err
	}
	switch format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	defaultLogger = newLogger(os.Stderr, format)
	return nil
}

// SetLevel changes the minimum level: debug, info, warn or error.
func SetLevel(lvl string) error {
	switch strings.ToLower(lvl) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "", "info":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level %q", lvl)
	}
	return nil
}

// Get returns the default structured logger
func Get() *slog.Logger {
	Initialize() // sync.Once ensures it only runs once
	return defaultLogger
}

// Info logs an info level message
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

// InfoContext logs an info level message with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	Get().InfoContext(ctx, msg, args...)
}

// Warn logs a warning level message
func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// Error logs an error level message
func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

// ErrorContext logs an error level message with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().ErrorContext(ctx, msg, args...)
}

// Debug logs a debug level message
func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Get().With(args...)
}
