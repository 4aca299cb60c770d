package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"off", levelSilent},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.in); got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	if got := LevelFromVerbosity(0, false); got != slog.LevelWarn {
		t.Errorf("verbosity 0 = %v, want warn", got)
	}
	if got := LevelFromVerbosity(1, false); got != slog.LevelInfo {
		t.Errorf("verbosity 1 = %v, want info", got)
	}
	if got := LevelFromVerbosity(3, false); got != slog.LevelDebug {
		t.Errorf("verbosity 3 = %v, want debug", got)
	}
	if got := LevelFromVerbosity(2, true); got != levelSilent {
		t.Errorf("quiet = %v, want silent", got)
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo, "json").Info("hello", "k", 1)
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"k":1`) {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	NewLogger(&buf, slog.LevelInfo, "text").Info("hello", "k", 1)
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=1") {
		t.Errorf("text output = %q", buf.String())
	}

	buf.Reset()
	NewLogger(&buf, slog.LevelWarn, "text").Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info below warn should be dropped, got %q", buf.String())
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vybe.log")
	logger, f, err := NewFileLogger(path, slog.LevelDebug, "text")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	logger.Debug("written")
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	l := NewDiscardLogger()
	if OrDiscard(l) != l {
		t.Error("OrDiscard should return the given logger")
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled for error")
	}
}
