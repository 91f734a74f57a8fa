package logger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// LogrusAdapter implements Logger on top of github.com/sirupsen/logrus.
// WithGroup has no effect: logrus fields are flat.
type LogrusAdapter struct {
	entry *logrus.Entry
}

// NewLogrusAdapter creates a logrus-backed logger with JSON output, tagged with service and env.
func NewLogrusAdapter(appName, env string, opts ...Option) *LogrusAdapter {
	cfg := defaultConfigs()
	for _, opt := range opts {
		opt(cfg)
	}

	l := logrus.New()
	l.SetOutput(cfg.GetWriter())
	l.SetLevel(toLogrusLevel(cfg.Level))
	l.SetFormatter(&logrus.JSONFormatter{})

	return &LogrusAdapter{
		entry: l.WithFields(logrus.Fields{
			"service": appName,
			"env":     env,
		}),
	}
}

func (a *LogrusAdapter) Debug(msg string, args ...any) { a.entry.WithFields(toLogrusFields(args)).Debug(msg) }
func (a *LogrusAdapter) Info(msg string, args ...any)  { a.entry.WithFields(toLogrusFields(args)).Info(msg) }
func (a *LogrusAdapter) Warn(msg string, args ...any)  { a.entry.WithFields(toLogrusFields(args)).Warn(msg) }
func (a *LogrusAdapter) Error(msg string, args ...any) { a.entry.WithFields(toLogrusFields(args)).Error(msg) }

// Ctx returns a logger enriched with the run correlation fields of ctx.
func (a *LogrusAdapter) Ctx(ctx context.Context) Logger {
	kv := contextFields(ctx)
	if len(kv) == 0 {
		return a
	}
	return &LogrusAdapter{entry: a.entry.WithFields(toLogrusFields(kv))}
}

// With ignores non-string keys and a trailing key without value.
func (a *LogrusAdapter) With(args ...any) Logger {
	if len(args) == 0 {
		return a
	}
	return &LogrusAdapter{entry: a.entry.WithFields(toLogrusFields(args))}
}

func (a *LogrusAdapter) WithGroup(_ string) Logger {
	return a
}

func (a *LogrusAdapter) Log(level Level, msg string, attrs ...Attr) {
	fields := make(logrus.Fields, len(attrs))
	for _, attr := range attrs {
		fields[attr.Key] = attr.Value
	}
	a.entry.WithFields(fields).Log(toLogrusLevel(level), msg)
}

func (a *LogrusAdapter) LogAttrs(ctx context.Context, level Level, msg string, attrs ...Attr) {
	a.Ctx(ctx).Log(level, msg, attrs...)
}

func (a *LogrusAdapter) LogStep(ctx context.Context, step, status string, duration time.Duration) {
	logStep(a, ctx, step, status, duration)
}

func toLogrusFields(args []any) logrus.Fields {
	fields := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		fields[key] = args[i+1]
	}
	return fields
}

func toLogrusLevel(l Level) logrus.Level {
	switch l {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
