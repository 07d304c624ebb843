package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestInit_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Options{Level: "info", Writer: &buf})

	logger.Debug("hidden")
	logger.Info("visible", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "k=v") {
		t.Errorf("unexpected output: %s", out)
	}
	if !strings.Contains(out, "app=cinestudio") {
		t.Errorf("missing app attribute: %s", out)
	}
}

func TestInit_JSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Writer: &buf})

	WithComponent("backend").Debug("request")

	out := buf.String()
	if !strings.Contains(out, `"component":"backend"`) {
		t.Errorf("missing component attribute: %s", out)
	}
	if !strings.Contains(out, `"msg":"request"`) {
		t.Errorf("missing message: %s", out)
	}
}

func TestInit_File(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "studio.log")
	logger := Init(Options{Level: "info", File: path, Writer: &buf})

	logger.Info("to both")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"msg":"to both"`) {
		t.Errorf("file log missing record: %s", data)
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Errorf("console log missing record: %s", buf.String())
	}
}
