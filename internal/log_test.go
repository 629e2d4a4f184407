package internal

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogLevelWarn)

	logger.Info("hidden %d", 1)
	logger.Debug("hidden %d", 2)
	logger.Warn("shown %s", "warn")
	logger.Error("shown %s", "error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected INFO/DEBUG to be suppressed, got %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn") || !strings.Contains(out, "[ERROR] shown error") {
		t.Errorf("Expected WARN and ERROR lines, got %q", out)
	}
}

func TestLogger_WithPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogLevelInfo).With("enrich")

	logger.Info("done")

	if !strings.Contains(buf.String(), "[INFO] [enrich] done") {
		t.Errorf("Expected component prefix, got %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"error": LogLevelError,
		"WARN":  LogLevelWarn,
		" info": LogLevelInfo,
		"Debug": LogLevelDebug,
		"TRACE": LogLevelTrace,
	}
	for in, want := range cases {
		got, ok := ParseLogLevel(in)
		if !ok || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}

	if level, ok := ParseLogLevel("verbose"); ok || level != LogLevelInfo {
		t.Errorf("Expected unknown level to fall back to INFO, got %v %v", level, ok)
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
}
