package logger_i

import (
	"context"
	"log/slog"
	"os"

	"github.com/akolanti/DocScanAPI/internal/config"
)

type Logger struct {
	inner *slog.Logger
}

func Init(settings config.Settings) {
	options := &slog.HandlerOptions{
		Level: settings.SlogLevel(),
	}

	var handler slog.Handler
	if settings.IsProd() {
		options.AddSource = true
		handler = slog.NewJSONHandler(os.Stdout, options)
	} else {
		handler = slog.NewTextHandler(os.Stdout, options)
	}
	slog.SetDefault(slog.New(handler))
}

func NewLogger(section string) *Logger {
	return &Logger{
		inner: slog.Default().With("component", section),
	}
}

func (l *Logger) Info(msg string, args ...any) {
	l.inner.Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if !l.inner.Enabled(context.Background(), level) {
		return
	}
	l.inner.Log(context.Background(), level, msg, args...)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		inner: l.inner.With(args...),
	}
}

// WithContext tags the logger with the trace and user ids carried by ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	var args []any
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok && trace != "" {
		args = append(args, "traceId", trace)
	}
	if user, ok := ctx.Value(config.USER_ID_KEY).(string); ok && user != "" {
		args = append(args, "userId", user)
	}
	if len(args) == 0 {
		return l
	}
	return l.With(args...)
}
