// internal/utils/logger_test.go
package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"nonsense", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := &SimpleLogger{level: WarnLevel, out: &buf, fields: map[string]interface{}{}}

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")
	logger.Errorf("also %s", "visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("suppressed messages leaked: %s", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "also visible") {
		t.Errorf("expected messages missing: %s", out)
	}
}

func TestLoggerFieldsAreDeterministic(t *testing.T) {
	var buf bytes.Buffer
	logger := &SimpleLogger{level: InfoLevel, out: &buf, fields: map[string]interface{}{}}

	logger.WithFields(map[string]interface{}{
		"vendor": "Chards",
		"page":   3,
	}).Info("scan complete")

	out := buf.String()
	if !strings.Contains(out, "{page=3, vendor=Chards}") {
		t.Errorf("fields not rendered in sorted order: %s", out)
	}
}

func TestLoggerWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := &SimpleLogger{level: InfoLevel, out: &buf, fields: map[string]interface{}{}}
	parent.WithField("vendor", "Chards")

	parent.Info("plain")
	if strings.Contains(buf.String(), "vendor") {
		t.Errorf("child field leaked into parent: %s", buf.String())
	}
}
