package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ZerologAdapter implements Logger on top of github.com/rs/zerolog.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter creates a zerolog-backed logger with timestamp, service and env fields.
func NewZerologAdapter(appName, env string, opts ...Option) *ZerologAdapter {
	cfg := defaultConfigs()
	for _, opt := range opts {
		opt(cfg)
	}
	return &ZerologAdapter{
		logger: zerolog.New(cfg.GetWriter()).Level(toZerologLevel(cfg.Level)).With().
			Timestamp().
			Str("service", appName).
			Str("env", env).
			Logger(),
	}
}

// NewConsoleZerologAdapter writes human-readable colored lines, for local suite runs.
func NewConsoleZerologAdapter(appName string, opts ...Option) *ZerologAdapter {
	cfg := defaultConfigs()
	for _, opt := range opts {
		opt(cfg)
	}
	out := zerolog.ConsoleWriter{
		Out:        cfg.GetWriter(),
		TimeFormat: "2006-01-02 15:04:05",
	}
	return &ZerologAdapter{
		logger: zerolog.New(out).Level(toZerologLevel(cfg.Level)).With().
			Timestamp().
			Str("service", appName).
			Logger(),
	}
}

func (a *ZerologAdapter) Debug(msg string, args ...any) { a.logger.Debug().Fields(args).Msg(msg) }
func (a *ZerologAdapter) Info(msg string, args ...any)  { a.logger.Info().Fields(args).Msg(msg) }
func (a *ZerologAdapter) Warn(msg string, args ...any)  { a.logger.Warn().Fields(args).Msg(msg) }
func (a *ZerologAdapter) Error(msg string, args ...any) { a.logger.Error().Fields(args).Msg(msg) }

// Ctx returns a logger enriched with the run correlation fields of ctx.
func (a *ZerologAdapter) Ctx(ctx context.Context) Logger {
	kv := contextFields(ctx)
	if len(kv) == 0 {
		return a
	}
	return &ZerologAdapter{logger: a.logger.With().Fields(kv).Logger()}
}

func (a *ZerologAdapter) With(args ...any) Logger {
	return &ZerologAdapter{logger: a.logger.With().Fields(args).Logger()}
}

// WithGroup records the group name as a field, zerolog has no key nesting.
func (a *ZerologAdapter) WithGroup(name string) Logger {
	return &ZerologAdapter{logger: a.logger.With().Str("group", name).Logger()}
}

func (a *ZerologAdapter) Log(level Level, msg string, attrs ...Attr) {
	event := a.logger.WithLevel(toZerologLevel(level))
	for _, attr := range attrs {
		event = event.Interface(attr.Key, attr.Value)
	}
	event.Msg(msg)
}

func (a *ZerologAdapter) LogAttrs(ctx context.Context, level Level, msg string, attrs ...Attr) {
	a.Ctx(ctx).Log(level, msg, attrs...)
}

func (a *ZerologAdapter) LogStep(ctx context.Context, step, status string, duration time.Duration) {
	logStep(a, ctx, step, status, duration)
}

func toZerologLevel(l Level) zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
