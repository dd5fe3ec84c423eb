package obs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type ctxKey string

const (
	RequestIDKey ctxKey = "req_id"
	loggerKey    ctxKey = "logger"
)

// WithLogger attaches a request-scoped logger to ctx.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Logger returns the logger attached to ctx, or the global zap logger.
func Logger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.L()
}

// RequestID returns the id set by the HTTP middleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Time logs the duration of an operation and its error, if any:
//
//	defer obs.Time(ctx, "ors.fetchMatrix")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	return func(errp *error) {
		fields := []zap.Field{
			zap.String("req_id", RequestID(ctx)),
			zap.String("op", name),
			zap.Int64("dur_ms", time.Since(start).Milliseconds()),
		}

		if errp != nil && *errp != nil {
			Logger(ctx).Warn("operation failed", append(fields, zap.Error(*errp))...)
			return
		}
		Logger(ctx).Debug("operation finished", fields...)
	}
}
