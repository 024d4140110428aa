package logger

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

var (
	current      atomic.Pointer[slog.Logger]
	fallbackOnce sync.Once
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

// Init sets up the global logger. Development gets readable text at debug level,
// everything else gets JSON at info level.
func Init(env string) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	if env == "development" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	l := slog.New(handler)
	current.Store(l)
	slog.SetDefault(l)
}

// GetLogger returns the global logger, initialising a development one if Init was never called.
// Safe for concurrent use.
func GetLogger() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	fallbackOnce.Do(func() {
		if current.Load() == nil {
			Init("development")
		}
	})
	return current.Load()
}

func Debug(msg string, args ...any) { GetLogger().Debug(msg, args...) }
func Info(msg string, args ...any)  { GetLogger().Info(msg, args...) }
func Warn(msg string, args ...any)  { GetLogger().Warn(msg, args...) }
func Error(msg string, args ...any) { GetLogger().Error(msg, args...) }

// Fatal logs at error level and exits
func Fatal(msg string, args ...any) {
	GetLogger().Error(msg, args...)
	os.Exit(1)
}

// WithRequestID stores the request ID for FromContext
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUserID stores the authenticated user ID for FromContext
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// FromContext returns the global logger enriched with request_id and user_id when present
func FromContext(ctx context.Context) *slog.Logger {
	l := GetLogger()
	if ctx == nil {
		return l
	}

	var fields []any
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if userID, ok := ctx.Value(userIDKey).(uint); ok && userID != 0 {
		fields = append(fields, "user_id", userID)
	}

	if len(fields) > 0 {
		l = l.With(fields...)
	}
	return l
}
