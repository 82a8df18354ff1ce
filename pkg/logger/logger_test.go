package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestNewLogger_DevEnvironment проверяет создание логгера для dev окружения
func TestNewLogger_DevEnvironment(t *testing.T) {
	log, err := NewLogger("dev", "debug", "toktok")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if log == nil {
		t.Fatal("Expected logger, got nil")
	}

	log.Info("Test message")
	log.With(String("test", "value")).Info("Test message with field")
}

// TestNewLogger_ProdEnvironment проверяет создание логгера для prod окружения
func TestNewLogger_ProdEnvironment(t *testing.T) {
	log, err := NewLogger("prod", "info", "toktok")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if log == nil {
		t.Fatal("Expected logger, got nil")
	}

	log.Info("Test message", Duration("elapsed", time.Second))
	log.Error("Test error", Error(errors.New("boom")))
}

// TestParseLevel проверяет разбор уровней логирования
func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zap.DebugLevel,
		"info":    zap.InfoLevel,
		"warn":    zap.WarnLevel,
		"error":   zap.ErrorLevel,
		"invalid": zap.InfoLevel,
		"":        zap.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// TestNewFromZap_WritesFields проверяет, что поля доходят до zap core
func TestNewFromZap_WritesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewFromZap(zap.New(core)).With(String("component", "scheduler"))

	log.Warn("notifier failed", String("notifier", "mailer"), Int("attempt", 2))

	entries := logs.FilterMessage("notifier failed").All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["component"] != "scheduler" {
		t.Errorf("Expected component field, got %v", ctx["component"])
	}
	if ctx["notifier"] != "mailer" {
		t.Errorf("Expected notifier field, got %v", ctx["notifier"])
	}
}

// TestLogger_CtxField проверяет извлечение trace_id из контекста
func TestLogger_CtxField(t *testing.T) {
	field := CtxField(context.Background())
	if field.Field.String != "unknown" {
		t.Errorf("Expected unknown trace id, got %s", field.Field.String)
	}

	field = CtxField(ContextWithTraceID(context.Background(), "test-trace-123"))
	if field.Field.String != "test-trace-123" {
		t.Errorf("Expected test-trace-123, got %s", field.Field.String)
	}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	field = CtxField(trace.ContextWithSpanContext(context.Background(), sc))
	if field.Field.String != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("Expected span trace id, got %s", field.Field.String)
	}
}

// TestLogger_Fields проверяет ключи полей
func TestLogger_Fields(t *testing.T) {
	if f := String("name", "test"); f.Key != "name" {
		t.Errorf("Expected key name, got %s", f.Key)
	}
	if f := Int64("count", 42); f.Key != "count" {
		t.Errorf("Expected key count, got %s", f.Key)
	}
	if f := Bool("active", true); f.Key != "active" {
		t.Errorf("Expected key active, got %s", f.Key)
	}
	if f := Time("at", time.Now()); f.Key != "at" {
		t.Errorf("Expected key at, got %s", f.Key)
	}
	if f := Error(nil); f.Key != "error" || f.String != "nil" {
		t.Errorf("Expected error=nil field, got %s=%s", f.Key, f.String)
	}
	if f := Any("data", map[string]string{"k": "v"}); f.Key != "data" {
		t.Errorf("Expected key data, got %s", f.Key)
	}
}
