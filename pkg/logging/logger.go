package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const runIDKey contextKey = "runID"

// LevelTrace is below debug, for per-file scanner output
const LevelTrace = slog.LevelDebug - 4

var logger *slog.Logger

func init() {
	// Compact handler on stderr so generated text on stdout stays clean
	logger = slog.New(NewCompactHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Configure replaces the global logger
func Configure(w io.Writer, level slog.Level, jsonOutput bool) {
	opts := &slog.HandlerOptions{Level: level}
	if jsonOutput {
		logger = slog.New(slog.NewJSONHandler(w, opts))
		return
	}
	logger = slog.New(NewCompactHandler(w, opts))
}

// ParseLevel maps a verbosity name to a level. An empty name falls back to
// counting -v flags: one for debug, two or more for trace.
func ParseLevel(name string, verbose int) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "":
		switch {
		case verbose >= 2:
			return LevelTrace, nil
		case verbose == 1:
			return slog.LevelDebug, nil
		default:
			return slog.LevelInfo, nil
		}
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown verbosity %q", name)
	}
}

// New returns a logger tagged with a component name
func New(component string) *slog.Logger {
	return logger.With("component", component)
}

// NewRunID returns a fresh identifier for one generator run
func NewRunID() string {
	return uuid.New().String()
}

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		return runID
	}
	return ""
}

// Helper function to add run ID to log attributes if present
func withRunID(ctx context.Context, args []any) []any {
	runID := GetRunID(ctx)
	if runID != "" {
		return append([]any{"runID", runID}, args...)
	}
	return args
}

// Trace logs at TRACE level (very verbose, debug-time only)
func Trace(msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Debug logs at DEBUG level (internal component behavior)
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// DebugContext logs at DEBUG level with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	logger.DebugContext(ctx, msg, withRunID(ctx, args)...)
}

// Info logs at INFO level (user-facing operations)
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// InfoContext logs at INFO level with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	logger.InfoContext(ctx, msg, withRunID(ctx, args)...)
}

// Warn logs at WARN level (should be looked at, generation continues)
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// WarnContext logs at WARN level with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	logger.WarnContext(ctx, msg, withRunID(ctx, args)...)
}

// Error logs at ERROR level
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}
