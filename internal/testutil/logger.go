package testutil

import (
	"context"

	"github.com/madcok-co/messagingcore/contracts"
)

// NoopLogger is a contracts.Logger fake that discards everything.
type NoopLogger struct{}

func (NoopLogger) Debug(msg string, fields ...any) {}
func (NoopLogger) Info(msg string, fields ...any)  {}
func (NoopLogger) Warn(msg string, fields ...any)  {}
func (NoopLogger) Error(msg string, fields ...any) {}

func (l NoopLogger) WithContext(ctx context.Context) contracts.Logger { return l }
func (l NoopLogger) WithFields(fields ...any) contracts.Logger        { return l }
func (l NoopLogger) WithError(err error) contracts.Logger             { return l }
func (l NoopLogger) Named(name string) contracts.Logger               { return l }
func (NoopLogger) Sync() error                                        { return nil }

var _ contracts.Logger = NoopLogger{}
