package logging

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" debug ", slog.LevelDebug},

		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo}, // default

		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},

		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},

		{"invalid", slog.LevelInfo}, // default
		{"trace", slog.LevelInfo},   // unsupported, default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLogLevel(tt.input)
			if got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestUseTextFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "text")
	if !useTextFormat() {
		t.Error("LOG_FORMAT=text should force text output")
	}

	t.Setenv("LOG_FORMAT", "json")
	if useTextFormat() {
		t.Error("LOG_FORMAT=json should force JSON output")
	}
}

func TestNew(t *testing.T) {
	logger := New()
	if logger == nil {
		t.Fatal("New() should return a logger")
	}
}

func TestSetDefault(t *testing.T) {
	logger := SetDefault()
	if logger == nil {
		t.Fatal("SetDefault() should return a logger")
	}

	if slog.Default() == nil {
		t.Error("slog.Default() should not be nil after SetDefault()")
	}
}
