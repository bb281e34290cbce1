package contracts

import "context"

// Logger is the generic structured-logging interface. Implementations:
// zap (drivers/loggerzap), a no-op for tests.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	WithContext(ctx context.Context) Logger
	WithFields(fields ...any) Logger
	WithError(err error) Logger
	Named(name string) Logger

	Sync() error
}
