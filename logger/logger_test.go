package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "invalid-level", Format: "json"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	if l := NewFromEnv("env-svc"); l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestJSONOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "debug", Format: "json"}, "recoveryd", &buf)

	l.WithComponent(ComponentRecovery).Warn("recovery failed", Fields(FieldTarget, "model", FieldAttempt, 2))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "recovery failed" {
		t.Errorf("unexpected message %v", entry["message"])
	}
	if entry[FieldComponent] != ComponentRecovery {
		t.Errorf("expected component field, got %v", entry[FieldComponent])
	}
	if entry[FieldService] != "recoveryd" {
		t.Errorf("expected service field, got %v", entry[FieldService])
	}
	if entry[FieldTarget] != "model" {
		t.Errorf("expected target_service field, got %v", entry[FieldTarget])
	}
	if entry[FieldAttempt] != float64(2) {
		t.Errorf("expected attempt=2, got %v", entry[FieldAttempt])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "warn", Format: "json"}, "svc", &buf)
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
	l.Error("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected error to be logged, got %q", buf.String())
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "json"}, "svc", &buf)
	l.WithError(errors.New("boom")).Error("failed")
	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("expected error field, got %q", buf.String())
	}
}

func TestWithContext_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "json"}, "svc", &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.WithContext(ctx).Info("traced")
	if !strings.Contains(buf.String(), traceID.String()) {
		t.Errorf("expected trace id in output, got %q", buf.String())
	}

	if got := l.WithContext(context.Background()); got != l {
		t.Error("expected the same logger when no span is active")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "json"}, "svc", &buf)
	l.WithFields(map[string]interface{}{"k": "v"}).Info("x")
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("expected field, got %q", buf.String())
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "recoveryd", &buf)
	l.Info("hello")
	if !strings.Contains(buf.String(), "[REC][INF]") {
		t.Errorf("expected service and level tag, got %q", buf.String())
	}
}

func TestNop(t *testing.T) {
	Nop().Error("nothing")
}

func TestInitAndGlobal(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	Init(Config{ServiceName: "init-test", Level: "debug", Format: "json", Output: "stderr"})
	if GetGlobalLogger().service != "init-test" {
		t.Errorf("expected global logger service 'init-test', got %q", GetGlobalLogger().service)
	}
	if OrGlobal(nil) != GetGlobalLogger() {
		t.Error("OrGlobal(nil) should return the global logger")
	}
	custom := NewDefault("custom")
	if OrGlobal(custom) != custom {
		t.Error("OrGlobal should return the provided logger")
	}

	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != FormatConsole || cfg.Output != "stdout" || !cfg.Timestamp {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid json", Config{Level: "info", Format: "json"}, false},
		{"valid console", Config{Level: "debug", Format: "console"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() err=%v, wantErr=%v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := NewDefault("registered")
	Register("custom-component", l)
	if Get("custom-component") != l {
		t.Error("expected registered logger")
	}
	if Get("never-registered") == nil {
		t.Error("expected fallback logger for unregistered name")
	}
	RegisterDefaults()
	if Get(ComponentHealth) == nil {
		t.Error("expected default component logger")
	}
}

func TestFields(t *testing.T) {
	f := Fields("a", 1, "b", "two", 3, "ignored-key-not-string", "dangling")
	if f["a"] != 1 || f["b"] != "two" {
		t.Errorf("unexpected fields %v", f)
	}
	if len(f) != 2 {
		t.Errorf("expected 2 fields, got %d", len(f))
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	ef := ErrorFields("list_models", errors.New("down"))
	if ef[FieldOperation] != "list_models" || ef[FieldError] != "down" {
		t.Errorf("unexpected error fields %v", ef)
	}
	df := DurationFields("reset", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("unexpected duration fields %v", df)
	}
	mf := MergeWithError(nil, errors.New("x"))
	if mf[FieldError] != "x" {
		t.Errorf("unexpected merged fields %v", mf)
	}
}

func TestOutputWriter(t *testing.T) {
	if outputWriter("stderr") != os.Stderr {
		t.Error("expected stderr")
	}
	if outputWriter("anything") != os.Stdout {
		t.Error("expected stdout fallback")
	}
}

func TestForComponent(t *testing.T) {
	registered := Nop()
	Register("for-component", registered)
	if ForComponent(nil, "for-component") != registered {
		t.Error("expected a nil logger to resolve through the registry")
	}
	base := Nop()
	if got := ForComponent(base, "x"); got == base || got == nil {
		t.Error("expected a tagged copy of the provided logger")
	}
}
