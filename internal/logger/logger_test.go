package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json"})

	log.Info("hello", "key", "value")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Errorf("expected JSON record, got %q", out)
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected attribute in output, got %q", out)
	}
}

func TestNew_ProductionDefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Environment: "production"})

	log.Info("boot")

	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("production logs should be JSON, got %q", buf.String())
	}
}

func TestNew_DevelopmentUsesPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Environment: "development"})

	log.Info("serving", "port", 8080)

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("development logs should not be JSON, got %q", out)
	}
	if !strings.Contains(out, "serving") || !strings.Contains(out, "port=8080") {
		t.Errorf("unexpected pretty output %q", out)
	}
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelWarn})

	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info record should have been filtered")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn record missing from output")
	}
}

func TestPrettyHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty"})

	log.WithField("session", "rs-123").Info("tick")

	if !strings.Contains(buf.String(), "session=rs-123") {
		t.Errorf("expected inherited attribute, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json"})

	log.WithError(errTest{}).Error("failed")

	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("expected error attribute, got %q", buf.String())
	}
}

type errTest struct{}

func (errTest) Error() string { return "boom" }
