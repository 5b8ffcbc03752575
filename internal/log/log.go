// Package log provides the leveled diagnostics used across the module.
// Registry reloads, dispatch misses, and slot truncation all report through
// here so hosts can raise or silence the subsystem with one call.
package log

import (
	"log/slog"
	"os"
)

var (
	level   = new(slog.LevelVar)
	backend = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// SetLevel sets the minimum level emitted. The default is Info.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Level reports the current minimum level.
func Level() slog.Level {
	return level.Level()
}

// SetHandler replaces the output handler. Tests use this to capture output.
func SetHandler(h slog.Handler) {
	backend = slog.New(h)
}

func Debug(msg string, args ...any) {
	backend.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	backend.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	backend.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	backend.Error(msg, args...)
}
