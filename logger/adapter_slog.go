package logger

import (
	"context"
	"log/slog"
	"time"
)

// SlogAdapter implements Logger on top of log/slog with JSON output.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a slog-backed logger tagged with service and env.
func NewSlogAdapter(appName, env string, opts ...Option) *SlogAdapter {
	cfg := defaultConfigs()
	for _, opt := range opts {
		opt(cfg)
	}

	handler := slog.NewJSONHandler(cfg.GetWriter(), &slog.HandlerOptions{
		Level: toSlogLevel(cfg.Level),
	})
	return &SlogAdapter{
		logger: slog.New(handler).With(
			slog.String("service", appName),
			slog.String("env", env),
		),
	}
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *SlogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *SlogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }

// Ctx returns a logger enriched with the run correlation fields of ctx.
func (a *SlogAdapter) Ctx(ctx context.Context) Logger {
	kv := contextFields(ctx)
	if len(kv) == 0 {
		return a
	}
	return &SlogAdapter{logger: a.logger.With(kv...)}
}

func (a *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: a.logger.With(args...)}
}

func (a *SlogAdapter) WithGroup(name string) Logger {
	return &SlogAdapter{logger: a.logger.WithGroup(name)}
}

// Log checks the level before building the record.
func (a *SlogAdapter) Log(level Level, msg string, attrs ...Attr) {
	slogLevel := toSlogLevel(level)
	if !a.logger.Enabled(context.Background(), slogLevel) {
		return
	}
	a.logger.Log(context.Background(), slogLevel, msg, toSlogAttrs(attrs)...)
}

func (a *SlogAdapter) LogAttrs(ctx context.Context, level Level, msg string, attrs ...Attr) {
	a.Ctx(ctx).Log(level, msg, attrs...)
}

func (a *SlogAdapter) LogStep(ctx context.Context, step, status string, duration time.Duration) {
	logStep(a, ctx, step, status, duration)
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func toSlogAttrs(attrs []Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = slog.Any(attr.Key, attr.Value)
	}
	return args
}
