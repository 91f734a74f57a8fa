// Package logger provides the structured logging interface used across the test toolkit.
// Four engines (zap, slog, zerolog, logrus) sit behind one Logger so a suite can pick
// its engine from configuration while every record carries the same run correlation fields.
package logger

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Level represents the severity of a log record.
type Level int

// Engine represents a supported underlying logging implementation.
type Engine string

const (
	// ZapEngine selects go.uber.org/zap.
	ZapEngine Engine = "zap"
	// SlogEngine selects the stdlib log/slog logger.
	SlogEngine Engine = "slog"
	// ZerologEngine selects github.com/rs/zerolog.
	ZerologEngine Engine = "zerolog"
	// LogrusEngine selects github.com/sirupsen/logrus.
	LogrusEngine Engine = "logrus"

	// DebugLevel is the most verbose level.
	DebugLevel Level = iota - 4
	// InfoLevel is the default level.
	InfoLevel
	// WarnLevel marks retried or otherwise unusual events.
	WarnLevel
	// ErrorLevel marks failures surfaced to the test run.
	ErrorLevel
)

// Step statuses accepted by LogStep.
const (
	StepPassed  = "passed"
	StepFailed  = "failed"
	StepSkipped = "skipped"
)

// Attr represents a key-value pair for structured logging.
type Attr struct {
	Key   string
	Value any
}

// Logger is the structured logging interface shared by every engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// Ctx returns a logger enriched with the run ID and scenario stored in ctx.
	Ctx(ctx context.Context) Logger
	// With returns a logger that adds the key-value pairs to every record.
	With(args ...any) Logger
	// WithGroup nests subsequent keys under name where the engine supports it.
	WithGroup(name string) Logger

	// Log logs a message at the given level with structured attributes.
	Log(level Level, msg string, attrs ...Attr)
	// LogAttrs is Log with context enrichment.
	LogAttrs(ctx context.Context, level Level, msg string, attrs ...Attr)
	// LogStep records the outcome of one scenario step.
	LogStep(ctx context.Context, step, status string, duration time.Duration)
}

// InitLogger initializes a logger for the given engine, application name and environment.
// Unknown engines fall back to slog.
func InitLogger(engine Engine, appName, env string, opts ...Option) (Logger, error) {
	switch engine {
	case ZapEngine:
		return NewZapAdapter(appName, env, opts...)
	case ZerologEngine:
		return NewZerologAdapter(appName, env, opts...), nil
	case LogrusEngine:
		return NewLogrusAdapter(appName, env, opts...), nil
	default:
		return NewSlogAdapter(appName, env, opts...), nil
	}
}

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts "debug", "info", "warn" or "error" (any case) into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("logger: unknown level %q", s)
	}
}

// String creates a string attribute.
func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Int creates an int attribute.
func Int(key string, value int) Attr {
	return Attr{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attr {
	return Attr{Key: key, Value: value}
}

// Bool creates a bool attribute.
func Bool(key string, value bool) Attr {
	return Attr{Key: key, Value: value}
}

// Duration creates a time.Duration attribute.
func Duration(key string, value time.Duration) Attr {
	return Attr{Key: key, Value: value}
}

// Time creates a time.Time attribute.
func Time(key string, value time.Time) Attr {
	return Attr{Key: key, Value: value}
}

// Err creates an "error" attribute holding the error message.
func Err(err error) Attr {
	if err == nil {
		return Attr{Key: "error", Value: nil}
	}
	return Attr{Key: "error", Value: err.Error()}
}

// Any creates an attribute with an arbitrary value.
func Any(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// logStep is the engine-independent LogStep body.
func logStep(l Logger, ctx context.Context, step, status string, duration time.Duration) {
	level := InfoLevel
	switch status {
	case StepFailed:
		level = ErrorLevel
	case StepSkipped:
		level = WarnLevel
	}
	l.LogAttrs(ctx, level, "step",
		String("step", step),
		String("status", status),
		Duration("duration", duration),
	)
}
