// Package loggerzap implements contracts.Logger on top of zap,
// generalized from the teacher's contrib/logger/zap.Driver — trimmed to
// the methods the messaging core's Logging Sidechannel (C10) actually
// calls (no Fatal: a dispatch failure must retry, never exit).
package loggerzap

import (
	"context"
	"os"

	"github.com/madcok-co/messagingcore/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Driver implements contracts.Logger using zap.
type Driver struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// Config configures a new Driver.
type Config struct {
	Level         string
	Format        string // json, console
	Output        string // stdout, stderr, or a file path
	AddCaller     bool
	AddStacktrace bool
	DefaultFields map[string]any
}

// DefaultConfig returns production-sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Level:         "info",
		Format:        "json",
		Output:        "stdout",
		AddCaller:     true,
		AddStacktrace: true,
	}
}

// New creates a Driver with default config.
func New() *Driver {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Driver with custom config.
func NewWithConfig(cfg *Config) *Driver {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var output zapcore.WriteSyncer
	switch cfg.Output {
	case "stdout", "":
		output = zapcore.AddSync(os.Stdout)
	case "stderr":
		output = zapcore.AddSync(os.Stderr)
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			output = zapcore.AddSync(os.Stdout)
		} else {
			output = zapcore.AddSync(file)
		}
	}

	core := zapcore.NewCore(encoder, output, level)

	opts := []zap.Option{}
	if cfg.AddCaller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	if cfg.AddStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	if len(cfg.DefaultFields) > 0 {
		fields := make([]zap.Field, 0, len(cfg.DefaultFields))
		for k, v := range cfg.DefaultFields {
			fields = append(fields, zap.Any(k, v))
		}
		opts = append(opts, zap.Fields(fields...))
	}

	logger := zap.New(core, opts...)
	return &Driver{logger: logger, sugar: logger.Sugar()}
}

// NewWithLogger wraps an existing *zap.Logger.
func NewWithLogger(logger *zap.Logger) *Driver {
	return &Driver{logger: logger, sugar: logger.Sugar()}
}

func (d *Driver) Debug(msg string, fields ...any) { d.sugar.Debugw(msg, fields...) }
func (d *Driver) Info(msg string, fields ...any)  { d.sugar.Infow(msg, fields...) }
func (d *Driver) Warn(msg string, fields ...any)  { d.sugar.Warnw(msg, fields...) }
func (d *Driver) Error(msg string, fields ...any) { d.sugar.Errorw(msg, fields...) }

func (d *Driver) WithContext(ctx context.Context) contracts.Logger {
	if traceID := ctx.Value(traceIDKey{}); traceID != nil {
		return d.WithFields("trace_id", traceID)
	}
	return d
}

type traceIDKey struct{}

func (d *Driver) WithFields(fields ...any) contracts.Logger {
	return &Driver{logger: d.logger, sugar: d.sugar.With(fields...)}
}

func (d *Driver) WithError(err error) contracts.Logger {
	return &Driver{logger: d.logger, sugar: d.sugar.With("error", err.Error())}
}

func (d *Driver) Named(name string) contracts.Logger {
	return &Driver{logger: d.logger.Named(name), sugar: d.logger.Named(name).Sugar()}
}

func (d *Driver) Sync() error { return d.logger.Sync() }

var _ contracts.Logger = (*Driver)(nil)
