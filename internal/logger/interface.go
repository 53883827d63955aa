package logger

import "context"

// Logger is the logging facade used across the service.
// Messages are printf-style; the request id stored in ctx is attached when present.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...interface{})
	Info(ctx context.Context, msg string, args ...interface{})
	Warn(ctx context.Context, msg string, args ...interface{})
	Error(ctx context.Context, msg string, args ...interface{})

	// With returns a Logger that adds key=value to every entry.
	With(key string, value interface{}) Logger
}
