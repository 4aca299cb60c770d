package cmd

import (
	"log/slog"
	"testing"

	"vybe/internal/slogutil"
)

func TestLogLevel(t *testing.T) {
	silent := slogutil.LevelFromString("off")
	tests := []struct {
		name       string
		configured string
		verbose    int
		quiet      bool
		want       slog.Level
	}{
		{"configured", "error", 0, false, slog.LevelError},
		{"verbose overrides config", "error", 1, false, slog.LevelInfo},
		{"debug", "warn", 2, false, slog.LevelDebug},
		{"quiet", "debug", 0, true, silent},
		{"quiet wins over verbose", "info", 2, true, silent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := logLevel(tt.configured, tt.verbose, tt.quiet); got != tt.want {
				t.Errorf("logLevel = %v, want %v", got, tt.want)
			}
		})
	}
}
