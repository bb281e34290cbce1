package loggerzap

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	d := New()
	if d == nil || d.logger == nil || d.sugar == nil {
		t.Fatal("expected initialized driver")
	}
}

func TestNewWithConfig_LevelVariants(t *testing.T) {
	for _, level := range []string{"debug", "warn", "error", "unknown-level", ""} {
		cfg := &Config{Level: level, Format: "json", Output: "stdout"}
		if d := NewWithConfig(cfg); d == nil {
			t.Fatalf("expected driver for level %q", level)
		}
	}
}

func TestNewWithConfig_ConsoleFormat(t *testing.T) {
	cfg := &Config{Level: "info", Format: "console", Output: "stdout"}
	if d := NewWithConfig(cfg); d == nil {
		t.Fatal("expected driver")
	}
}

func TestNewWithConfig_DefaultFields(t *testing.T) {
	cfg := &Config{
		Level:         "info",
		Format:        "json",
		Output:        "stdout",
		DefaultFields: map[string]any{"service": "messagingcore"},
	}
	if d := NewWithConfig(cfg); d == nil {
		t.Fatal("expected driver")
	}
}

func TestNewWithLogger(t *testing.T) {
	zl, _ := zap.NewDevelopment()
	d := NewWithLogger(zl)
	if d.logger != zl {
		t.Error("expected driver to wrap the provided logger")
	}
}

func observedDriver() (*Driver, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	return &Driver{logger: logger, sugar: logger.Sugar()}, recorded
}

func TestLevels(t *testing.T) {
	d, logs := observedDriver()

	d.Debug("debug msg")
	d.Info("info msg", "count", 1)
	d.Warn("warn msg")
	d.Error("error msg")

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, want := range wantLevels {
		if entries[i].Level != want {
			t.Errorf("entry %d: expected level %v, got %v", i, want, entries[i].Level)
		}
	}
}

func TestWithFieldsAttachesContext(t *testing.T) {
	d, logs := observedDriver()

	d.WithFields("request_id", "r1").Info("handled")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctxMap := entries[0].ContextMap()
	if ctxMap["request_id"] != "r1" {
		t.Errorf("expected request_id=r1, got %v", ctxMap["request_id"])
	}
}

func TestWithErrorAttachesErrorField(t *testing.T) {
	d, logs := observedDriver()

	d.WithError(errors.New("boom")).Error("dispatch failed")

	entries := logs.All()
	ctxMap := entries[0].ContextMap()
	if ctxMap["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", ctxMap["error"])
	}
}

func TestWithContextNoTraceIDIsNoOp(t *testing.T) {
	d, _ := observedDriver()
	if got := d.WithContext(context.Background()); got != d {
		t.Error("expected WithContext to return the same logger when no trace id is present")
	}
}

func TestNamed(t *testing.T) {
	d, logs := observedDriver()
	named := d.Named("outbox")
	named.Info("publishing")

	entries := logs.All()
	if entries[0].LoggerName != "outbox" {
		t.Errorf("expected logger name 'outbox', got %q", entries[0].LoggerName)
	}
}

func TestSync(t *testing.T) {
	d, _ := observedDriver()
	_ = d.Sync()
}
