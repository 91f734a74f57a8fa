package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter implements Logger on top of go.uber.org/zap with JSON encoding.
type ZapAdapter struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// NewZapAdapter creates a zap-backed logger tagged with service and env.
// Records at ErrorLevel carry a stack trace.
func NewZapAdapter(appName, env string, opts ...Option) (*ZapAdapter, error) {
	cfg := defaultConfigs()
	for _, opt := range opts {
		opt(cfg)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(cfg.GetWriter()),
		toZapLevel(cfg.Level),
	)

	l := zap.New(core,
		zap.Fields(
			zap.String("service", appName),
			zap.String("env", env),
		),
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)

	return newZapAdapter(l), nil
}

func newZapAdapter(l *zap.Logger) *ZapAdapter {
	return &ZapAdapter{logger: l, sugar: l.Sugar()}
}

func (a *ZapAdapter) Debug(msg string, args ...any) { a.sugar.Debugw(msg, args...) }
func (a *ZapAdapter) Info(msg string, args ...any)  { a.sugar.Infow(msg, args...) }
func (a *ZapAdapter) Warn(msg string, args ...any)  { a.sugar.Warnw(msg, args...) }
func (a *ZapAdapter) Error(msg string, args ...any) { a.sugar.Errorw(msg, args...) }

// Ctx returns a logger enriched with the run correlation fields of ctx.
func (a *ZapAdapter) Ctx(ctx context.Context) Logger {
	kv := contextFields(ctx)
	if len(kv) == 0 {
		return a
	}
	return newZapAdapter(a.logger.With(toZapFields(kv)...))
}

// With adds the key-value pairs to every record. Non-string keys become "UNKNOWN".
func (a *ZapAdapter) With(args ...any) Logger {
	return newZapAdapter(a.logger.With(toZapFields(args)...))
}

// WithGroup is implemented with zap.Namespace.
func (a *ZapAdapter) WithGroup(name string) Logger {
	return newZapAdapter(a.logger.With(zap.Namespace(name)))
}

// Log uses Check/Write so disabled levels cost nothing.
func (a *ZapAdapter) Log(level Level, msg string, attrs ...Attr) {
	if ce := a.logger.Check(toZapLevel(level), msg); ce != nil {
		fields := make([]zap.Field, 0, len(attrs))
		for _, attr := range attrs {
			fields = append(fields, zap.Any(attr.Key, attr.Value))
		}
		ce.Write(fields...)
	}
}

func (a *ZapAdapter) LogAttrs(ctx context.Context, level Level, msg string, attrs ...Attr) {
	a.Ctx(ctx).Log(level, msg, attrs...)
}

func (a *ZapAdapter) LogStep(ctx context.Context, step, status string, duration time.Duration) {
	logStep(a, ctx, step, status, duration)
}

// Sync flushes buffered records.
func (a *ZapAdapter) Sync() error {
	return a.logger.Sync()
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// toZapFields pairs up args; an odd trailing key gets "<missing>".
func toZapFields(args []any) []zap.Field {
	if len(args)%2 != 0 {
		args = append(args, "<missing>")
	}
	fields := make([]zap.Field, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = "UNKNOWN"
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	return fields
}
